// Package observability holds the logging, metrics and tracing helpers shared
// by repositories, services and the notification hub.
package observability

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"gorm.io/gorm"
)

// GlobalLogger is used by code that has no request-scoped logger of its own.
// The server replaces it with the context-aware middleware logger at startup
// so repository lines carry request and trace IDs.
var GlobalLogger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

func SetLogger(l *slog.Logger) {
	if l != nil {
		GlobalLogger = l
	}
}

// RepoLogger writes one debug line per row mutation, tagged with the table.
type RepoLogger struct {
	table string
}

func NewRepoLogger(table string) *RepoLogger {
	return &RepoLogger{table: table}
}

func (l *RepoLogger) mutation(ctx context.Context, op string, kv []any) {
	args := append([]any{"table", l.table, "op", op}, kv...)
	GlobalLogger.DebugContext(ctx, l.table+" "+op, args...)
}

// LogCreate, LogUpdate and LogDelete take alternating key/value pairs.
func (l *RepoLogger) LogCreate(ctx context.Context, kv ...any) { l.mutation(ctx, "create", kv) }
func (l *RepoLogger) LogUpdate(ctx context.Context, kv ...any) { l.mutation(ctx, "update", kv) }
func (l *RepoLogger) LogDelete(ctx context.Context, kv ...any) { l.mutation(ctx, "delete", kv) }

// LogError records a failed statement. Missing rows are an expected outcome
// the service maps to NOT_FOUND, so they are not logged.
func (l *RepoLogger) LogError(ctx context.Context, err error, op string) {
	if err == nil || errors.Is(err, gorm.ErrRecordNotFound) {
		return
	}
	GlobalLogger.ErrorContext(ctx, "repository error", "table", l.table, "op", op, "error", err)
}

// WSLogger tags connection lifecycle lines with the hub that owns them.
type WSLogger struct {
	hub string
}

func NewWSLogger(hub string) *WSLogger {
	return &WSLogger{hub: hub}
}

func (l *WSLogger) with(userID uint) *slog.Logger {
	return GlobalLogger.With("hub", l.hub, "user_id", userID)
}

func (l *WSLogger) LogConnect(ctx context.Context, userID uint) {
	l.with(userID).InfoContext(ctx, "websocket connected")
}

func (l *WSLogger) LogDisconnect(ctx context.Context, userID uint, reason string) {
	l.with(userID).InfoContext(ctx, "websocket disconnected", "reason", reason)
}

func (l *WSLogger) LogError(ctx context.Context, userID uint, err error, stage string) {
	l.with(userID).WarnContext(ctx, "websocket error", "stage", stage, "error", err)
}

// LogAsyncOperationError reports a best-effort side effect (a notification,
// an orphaned object delete) that failed after the main write succeeded.
func LogAsyncOperationError(ctx context.Context, operation string, err error, kv ...any) {
	args := append([]any{"operation", operation, "error", err}, kv...)
	GlobalLogger.WarnContext(ctx, "async operation failed", args...)
}
