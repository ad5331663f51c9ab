package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// slogGorm sends GORM's statement log to slog. Failed statements log at
// error, slow ones at warn, and everything else only at gorm's Info level.
// Missing rows are not errors here; repositories map them to NOT_FOUND.
type slogGorm struct {
	log   *slog.Logger
	level gormlogger.LogLevel
}

func newGormLogger(l *slog.Logger) gormlogger.Interface {
	return &slogGorm{log: l, level: gormlogger.Warn}
}

func (g *slogGorm) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *g
	cp.level = level
	return &cp
}

func (g *slogGorm) printf(ctx context.Context, at gormlogger.LogLevel, lvl slog.Level, msg string, args []any) {
	if g.level >= at {
		g.log.Log(ctx, lvl, fmt.Sprintf(msg, args...), "source", "gorm")
	}
}

func (g *slogGorm) Info(ctx context.Context, msg string, args ...any) {
	g.printf(ctx, gormlogger.Info, slog.LevelInfo, msg, args)
}

func (g *slogGorm) Warn(ctx context.Context, msg string, args ...any) {
	g.printf(ctx, gormlogger.Warn, slog.LevelWarn, msg, args)
}

func (g *slogGorm) Error(ctx context.Context, msg string, args ...any) {
	g.printf(ctx, gormlogger.Error, slog.LevelError, msg, args)
}

func (g *slogGorm) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)

	var lvl slog.Level
	var msg string
	switch {
	case failed && g.level >= gormlogger.Error:
		lvl, msg = slog.LevelError, "query failed"
	case elapsed > slowQueryThreshold && g.level >= gormlogger.Warn:
		lvl, msg = slog.LevelWarn, "slow query"
	case g.level >= gormlogger.Info:
		lvl, msg = slog.LevelDebug, "query"
	default:
		return
	}

	sql, rows := fc()
	attrs := []any{"sql", sql, "rows", rows, "elapsed", elapsed}
	if failed {
		attrs = append(attrs, "error", err)
	}
	g.log.Log(ctx, lvl, msg, attrs...)
}
