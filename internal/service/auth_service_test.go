package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"sociallink/internal/auth"
	"sociallink/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mailerStub struct {
	email, otp string
	err        error
}

func (m *mailerStub) SendOTP(_ context.Context, email, otp string) error {
	m.email, m.otp = email, otp
	return m.err
}

func newAuthService(t *testing.T, users *userRepoStub, opts ...AuthOption) (*AuthService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	tokens := auth.NewTokenManager("test-secret-that-is-long-enough-123", time.Hour)
	return NewAuthService(users, tokens, auth.NewBlacklist(rdb), &mailerStub{}, opts...), mr
}

func TestAuthServiceRegisterValidation(t *testing.T) {
	svc, _ := newAuthService(t, noopUserRepo())

	tests := []struct {
		name string
		in   RegisterInput
		msg  string
	}{
		{"missing name", RegisterInput{Email: "a@b.io", Password: "secret1"}, "Name, email and password are required"},
		{"missing email", RegisterInput{Name: "A", Password: "secret1"}, "Name, email and password are required"},
		{"missing password", RegisterInput{Name: "A", Email: "a@b.io"}, "Name, email and password are required"},
		{"bad email", RegisterInput{Name: "A", Email: "not-an-email", Password: "secret1"}, "Email format error"},
		{"short password", RegisterInput{Name: "A", Email: "a@b.io", Password: "12345"}, "Password must be at least 6 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.in)
			require.Error(t, err)
			assert.True(t, models.IsCode(err, models.CodeValidation))
			assert.Equal(t, tt.msg, err.Error())
		})
	}
}

func TestAuthServiceRegisterCreatesActiveUser(t *testing.T) {
	users := noopUserRepo()
	var created *models.User
	users.createFn = func(_ context.Context, u *models.User) error {
		u.ID = 7
		created = u
		return nil
	}
	svc, _ := newAuthService(t, users)

	res, err := svc.Register(context.Background(), RegisterInput{Name: " Ada ", Email: "Ada@Example.com", Password: "secret1"})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.True(t, created.IsActive)
	assert.Equal(t, "Ada", created.Name)
	assert.Equal(t, "ada@example.com", created.Email)
	assert.NotEqual(t, "secret1", created.Password)
	assert.True(t, auth.CheckPassword(created.Password, "secret1"))
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, uint(7), res.User.ID)
}

func TestAuthServiceRegisterDuplicateEmail(t *testing.T) {
	users := noopUserRepo()
	users.createFn = func(context.Context, *models.User) error {
		return models.NewConflictError("Email already in use")
	}
	svc, _ := newAuthService(t, users)

	_, err := svc.Register(context.Background(), RegisterInput{Name: "A", Email: "a@b.io", Password: "secret1"})
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.CodeConflict))
	assert.Equal(t, "Email already in use", err.Error())
}

func TestAuthServiceLogin(t *testing.T) {
	hash, err := auth.HashPassword("secret1")
	require.NoError(t, err)

	users := noopUserRepo()
	users.getByEmailFn = func(_ context.Context, email string) (*models.User, error) {
		if email == "ada@example.com" {
			return &models.User{ID: 3, Email: email, Password: hash}, nil
		}
		return nil, models.NewNotFoundMessage("User not found")
	}
	var activated bool
	users.setActiveFn = func(_ context.Context, id uint, active bool) error {
		activated = id == 3 && active
		return nil
	}
	svc, _ := newAuthService(t, users)

	res, err := svc.Login(context.Background(), "ada@example.com", "secret1")
	require.NoError(t, err)
	assert.True(t, activated)
	assert.True(t, res.User.IsActive)
	assert.NotEmpty(t, res.Token)

	_, err = svc.Login(context.Background(), "ada@example.com", "wrong-pass")
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))

	_, err = svc.Login(context.Background(), "nobody@example.com", "secret1")
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))
	assert.Equal(t, "Invalid credentials", err.Error())

	_, err = svc.Login(context.Background(), "", "secret1")
	assert.True(t, models.IsCode(err, models.CodeValidation))
}

func TestAuthServiceLogoutRevokesToken(t *testing.T) {
	users := noopUserRepo()
	var deactivated bool
	users.setActiveFn = func(_ context.Context, _ uint, active bool) error {
		deactivated = !active
		return nil
	}
	svc, mr := newAuthService(t, users)

	token, _, err := svc.tokens.Issue(5)
	require.NoError(t, err)
	claims, err := svc.tokens.Parse(token)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), 5, claims))
	assert.True(t, deactivated)

	revoked, err := svc.revoker.IsRevoked(context.Background(), claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)

	mr.FastForward(2 * time.Hour)
	revoked, err = svc.revoker.IsRevoked(context.Background(), claims.ID)
	require.NoError(t, err)
	assert.False(t, revoked, "blacklist entry expires with the token")
}

func TestAuthServicePasswordResetFlow(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	user := &models.User{ID: 9, Email: "ada@example.com"}

	users := noopUserRepo()
	users.getByEmailFn = func(context.Context, string) (*models.User, error) {
		cp := *user
		return &cp, nil
	}
	users.setOTPFn = func(_ context.Context, _ uint, otp string, exp time.Time) error {
		user.OTP, user.OTPExpiresAt, user.ValidationStatus = otp, &exp, false
		return nil
	}
	users.markOTPValidatedFn = func(context.Context, uint) error {
		user.OTP, user.OTPExpiresAt, user.ValidationStatus = "", nil, true
		return nil
	}
	users.updatePasswordFn = func(_ context.Context, _ uint, hash string) error {
		user.Password, user.ValidationStatus = hash, false
		return nil
	}

	mailer := &mailerStub{}
	tokens := auth.NewTokenManager("test-secret-that-is-long-enough-123", time.Hour)
	svc := NewAuthService(users, tokens, nil, mailer,
		WithClock(func() time.Time { return now }),
		WithOTPGenerator(func() (string, error) { return "123456", nil }),
	)
	ctx := context.Background()

	err := svc.SetNewPassword(ctx, SetNewPasswordInput{Email: user.Email, Password: "newpass", PasswordConfirmation: "newpass"})
	assert.True(t, models.IsCode(err, models.CodeUnauthorized), "reset requires a validated OTP")

	require.NoError(t, svc.ForgotPassword(ctx, user.Email))
	assert.Equal(t, "123456", mailer.otp)
	assert.Equal(t, now.Add(DefaultOTPTTL), *user.OTPExpiresAt)

	err = svc.ValidateOTP(ctx, user.Email, "654321")
	assert.True(t, models.IsCode(err, models.CodeValidation))
	assert.Equal(t, "Invalid or expired OTP", err.Error())

	require.NoError(t, svc.ValidateOTP(ctx, user.Email, "123456"))
	assert.True(t, user.ValidationStatus)

	err = svc.SetNewPassword(ctx, SetNewPasswordInput{Email: user.Email, Password: "newpass", PasswordConfirmation: "other"})
	assert.Equal(t, "Passwords do not match", err.Error())

	require.NoError(t, svc.SetNewPassword(ctx, SetNewPasswordInput{Email: user.Email, Password: "newpass", PasswordConfirmation: "newpass"}))
	assert.True(t, auth.CheckPassword(user.Password, "newpass"))
	assert.False(t, user.ValidationStatus)
}

func TestAuthServiceValidateOTPExpired(t *testing.T) {
	now := time.Now()
	expired := now.Add(-time.Minute)
	users := noopUserRepo()
	users.getByEmailFn = func(context.Context, string) (*models.User, error) {
		return &models.User{ID: 1, OTP: "111111", OTPExpiresAt: &expired}, nil
	}
	users.markOTPValidatedFn = func(context.Context, uint) error {
		t.Fatal("expired code must not validate")
		return nil
	}
	svc, _ := newAuthService(t, users, WithClock(func() time.Time { return now }))

	err := svc.ValidateOTP(context.Background(), "a@b.io", "111111")
	assert.True(t, models.IsCode(err, models.CodeValidation))
}

func TestAuthServiceForgotPasswordLimitsAndErrors(t *testing.T) {
	users := noopUserRepo()
	svc, _ := newAuthService(t, users, WithOTPLimiter(func(context.Context, string) (bool, error) { return false, nil }))
	err := svc.ForgotPassword(context.Background(), "a@b.io")
	assert.True(t, models.IsCode(err, models.CodeValidation))

	svc, _ = newAuthService(t, users)
	err = svc.ForgotPassword(context.Background(), "missing@b.io")
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	users.getByEmailFn = func(context.Context, string) (*models.User, error) { return &models.User{ID: 1}, nil }
	svc = NewAuthService(users, auth.NewTokenManager("x", time.Hour), nil, &mailerStub{err: errors.New("smtp down")})
	err = svc.ForgotPassword(context.Background(), "a@b.io")
	assert.True(t, models.IsCode(err, models.CodeTransient))
}

func TestRedisOTPLimiter(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	limit := RedisOTPLimiter(rdb)
	for i := 0; i < OTPRateLimit; i++ {
		ok, err := limit(context.Background(), "a@b.io")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := limit(context.Background(), "a@b.io")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = limit(context.Background(), "other@b.io")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisMailerPublishes(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	sub := rdb.Subscribe(context.Background(), MailChannel)
	defer func() { _ = sub.Close() }()
	_, err := sub.Receive(context.Background())
	require.NoError(t, err)

	require.NoError(t, NewRedisMailer(rdb).SendOTP(context.Background(), "a@b.io", "123456"))

	select {
	case msg := <-sub.Channel():
		assert.JSONEq(t, `{"email":"a@b.io","otp":"123456"}`, msg.Payload)
	case <-time.After(time.Second):
		t.Fatal("no mail message published")
	}

	assert.NoError(t, NewRedisMailer(nil).SendOTP(context.Background(), "a@b.io", "1"))
}
