package service

import (
	"context"
	"encoding/json"

	"sociallink/internal/middleware"
	"sociallink/internal/observability"

	"github.com/redis/go-redis/v9"
)

// MailChannel is where reset codes are handed to the delivery worker.
const MailChannel = "mail:otp"

// Mailer delivers password reset codes.
type Mailer interface {
	SendOTP(ctx context.Context, email, otp string) error
}

// RedisMailer publishes reset codes for an external delivery worker. With a
// nil client it only logs.
type RedisMailer struct {
	rdb *redis.Client
}

func NewRedisMailer(rdb *redis.Client) *RedisMailer {
	return &RedisMailer{rdb: rdb}
}

type otpMessage struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

func (m *RedisMailer) SendOTP(ctx context.Context, email, otp string) error {
	observability.GlobalLogger.InfoContext(ctx, "password reset code issued", "email", email)
	if m.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(otpMessage{Email: email, OTP: otp})
	if err != nil {
		return err
	}
	return m.rdb.Publish(ctx, MailChannel, payload).Err()
}

// RedisOTPLimiter allows OTPRateLimit reset codes per email per OTPRateWindow.
func RedisOTPLimiter(rdb *redis.Client) OTPLimiter {
	return func(ctx context.Context, email string) (bool, error) {
		return middleware.CheckRateLimit(ctx, rdb, "otp", email, OTPRateLimit, OTPRateWindow)
	}
}
