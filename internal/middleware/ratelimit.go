package middleware

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"sociallink/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy decides what happens to a request when Redis cannot be asked.
type FailPolicy int

const (
	FailOpen FailPolicy = iota
	// FailClosed answers 503; used where guessing is the threat (OTP, login).
	FailClosed
)

var errNoLimiterStore = errors.New("rate limiter has no redis client")

// rateLimitBypassed reports whether limits are off for the current APP_ENV.
func rateLimitBypassed() bool {
	switch os.Getenv("APP_ENV") {
	case "", "test", "development":
		return true
	}
	return false
}

// Decision is the outcome of counting one hit.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Hit counts one request against a fixed window keyed by resource and id.
// The window starts with the first hit; a key that somehow lost its TTL is
// given one again so it cannot block forever.
func Hit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, window time.Duration) (Decision, error) {
	if rateLimitBypassed() {
		return Decision{Allowed: true, Remaining: limit}, nil
	}
	if rdb == nil {
		return Decision{}, errNoLimiterStore
	}

	key := "rl:" + resource + ":" + id
	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	if _, err := rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, key)
		ttl = p.TTL(ctx, key)
		return nil
	}); err != nil {
		return Decision{}, err
	}

	left := ttl.Val()
	if left < 0 {
		if err := rdb.Expire(ctx, key, window).Err(); err != nil {
			return Decision{}, err
		}
		left = window
	}

	count := int(incr.Val())
	d := Decision{Allowed: count <= limit, Remaining: max(limit-count, 0)}
	if !d.Allowed {
		d.RetryAfter = left
	}
	return d, nil
}

// CheckRateLimit is Hit reduced to allowed or not.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, window time.Duration) (bool, error) {
	d, err := Hit(ctx, rdb, resource, id, limit, window)
	return d.Allowed, err
}

// limiterIdentity counts signed-in users by id and everyone else by IP.
func limiterIdentity(c *fiber.Ctx) string {
	if uid, ok := UserID(c); ok {
		return "user:" + strconv.FormatUint(uint64(uid), 10)
	}
	return "ip:" + c.IP()
}

// RateLimit allows limit requests per window for the named bucket and lets
// traffic through when Redis is down.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, bucket string) fiber.Handler {
	return rateLimit(rdb, limit, window, bucket, FailOpen)
}

// StrictRateLimit is RateLimit with FailClosed.
func StrictRateLimit(rdb *redis.Client, limit int, window time.Duration, bucket string) fiber.Handler {
	return rateLimit(rdb, limit, window, bucket, FailClosed)
}

func rateLimit(rdb *redis.Client, limit int, window time.Duration, bucket string, policy FailPolicy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		d, err := Hit(c.UserContext(), rdb, bucket, limiterIdentity(c), limit, window)
		if err != nil {
			if policy == FailOpen {
				return c.Next()
			}
			Logger.WarnContext(c.UserContext(), "rate limit store unavailable, rejecting",
				"bucket", bucket, "error", err)
			return models.RespondWithError(c, fiber.StatusServiceUnavailable,
				models.NewTransientError("rate limit unavailable", err))
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if !d.Allowed {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(d.RetryAfter.Round(time.Second)/time.Second)))
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error:     fmt.Sprintf("rate limit exceeded, retry in %s", d.RetryAfter.Round(time.Second)),
				Code:      "RATE_LIMITED",
				Retryable: true,
			})
		}
		return c.Next()
	}
}
