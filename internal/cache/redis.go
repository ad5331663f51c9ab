// Package cache holds the shared Redis client and the JSON cache-aside
// helpers built on it. Redis is optional: with no client every helper
// reports a miss and callers read through to the database.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sociallink/internal/middleware"

	"github.com/redis/go-redis/v9"
)

var client *redis.Client

// failureHook feeds RedisErrors. redis.Nil is a cache miss, not a failure.
type failureHook struct{}

func countFailure(name string, err error) {
	if err != nil && !errors.Is(err, redis.Nil) {
		middleware.RedisErrors.WithLabelValues(name).Inc()
	}
}

func (failureHook) DialHook(next redis.DialHook) redis.DialHook { return next }

func (failureHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		countFailure(cmd.Name(), err)
		return err
	}
}

func (failureHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		countFailure("pipeline", err)
		return err
	}
}

// parseAddr accepts either a redis:// URL or a bare host:port.
func parseAddr(addr string) (*redis.Options, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("empty redis address")
	}
	if !strings.Contains(addr, "://") {
		return &redis.Options{Addr: addr}, nil
	}
	opts, err := redis.ParseURL(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL %q: %w", addr, err)
	}
	return opts, nil
}

// Connect dials addr, verifies it with PING and installs the client for the
// package helpers. On error no client is installed.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	opts, err := parseAddr(addr)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	SetClient(rdb)
	return rdb, nil
}

// SetClient installs c (nil disables caching). Tests use it with miniredis.
func SetClient(c *redis.Client) {
	if c != nil {
		c.AddHook(failureHook{})
	}
	client = c
}
