package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"strings"
	"time"

	"sociallink/internal/auth"
	"sociallink/internal/cache"
	"sociallink/internal/models"
	"sociallink/internal/observability"
	"sociallink/internal/repository"
	"sociallink/internal/validation"
)

const (
	DefaultOTPTTL = 10 * time.Minute
	OTPRateLimit  = 3
	OTPRateWindow = 10 * time.Minute
)

// AuthResult is the payload of register and login.
type AuthResult struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type SetNewPasswordInput struct {
	Email                string
	Password             string
	PasswordConfirmation string
}

// OTPLimiter reports whether another reset code may be sent to email.
type OTPLimiter func(ctx context.Context, email string) (bool, error)

// AuthService handles accounts, sessions and password resets.
type AuthService struct {
	users   repository.UserRepository
	tokens  *auth.TokenManager
	revoker auth.Revoker
	mailer  Mailer
	limiter OTPLimiter
	otpTTL  time.Duration
	now     func() time.Time
	newOTP  func() (string, error)
}

// AuthOption customizes an AuthService.
type AuthOption func(*AuthService)

// WithOTPLimiter installs a limiter for reset codes.
func WithOTPLimiter(l OTPLimiter) AuthOption {
	return func(s *AuthService) { s.limiter = l }
}

// WithOTPTTL overrides how long a reset code stays valid.
func WithOTPTTL(d time.Duration) AuthOption {
	return func(s *AuthService) {
		if d > 0 {
			s.otpTTL = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

// WithOTPGenerator overrides how reset codes are generated.
func WithOTPGenerator(gen func() (string, error)) AuthOption {
	return func(s *AuthService) { s.newOTP = gen }
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenManager,
	revoker auth.Revoker,
	mailer Mailer,
	opts ...AuthOption,
) *AuthService {
	s := &AuthService{
		users:   users,
		tokens:  tokens,
		revoker: revoker,
		mailer:  mailer,
		otpTTL:  DefaultOTPTTL,
		now:     time.Now,
		newOTP:  generateOTP,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (result *AuthResult, err error) {
	ctx, finish := observability.StartServiceSpan(ctx, "AuthService", "Register")
	defer func() { finish(err) }()

	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" || email == "" || in.Password == "" {
		return nil, models.NewValidationError("Name, email and password are required")
	}
	if err := validation.ValidateName(name); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user := &models.User{Name: name, Email: email, Password: hash, IsActive: true}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (result *AuthResult, err error) {
	ctx, finish := observability.StartServiceSpan(ctx, "AuthService", "Login")
	defer func() { finish(err) }()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, models.NewValidationError("Email and password are required")
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, models.NewUnauthorizedError("Invalid credentials")
		}
		return nil, err
	}
	if !auth.CheckPassword(user.Password, password) {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	if err := s.users.SetActive(ctx, user.ID, true); err != nil {
		return nil, err
	}
	cache.InvalidateUser(ctx, user.ID)
	user.IsActive = true
	return s.issue(user)
}

// Logout clears the presence flag and revokes the presented token for the
// rest of its lifetime.
func (s *AuthService) Logout(ctx context.Context, userID uint, claims *auth.Claims) (err error) {
	ctx, finish := observability.StartServiceSpan(ctx, "AuthService", "Logout")
	defer func() { finish(err) }()

	if err := s.users.SetActive(ctx, userID, false); err != nil {
		return err
	}
	cache.InvalidateUser(ctx, userID)
	if claims == nil || claims.ID == "" || s.revoker == nil {
		return nil
	}
	if ttl := claims.Remaining(s.now()); ttl > 0 {
		if err := s.revoker.Revoke(ctx, claims.ID, ttl); err != nil {
			return models.NewTransientError("Failed to revoke session", err)
		}
	}
	return nil
}

// Me returns the authenticated user with their profile.
// Reads go through the user cache, which profile and presence changes clear.
func (s *AuthService) Me(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := cache.Aside(ctx, cache.UserKey(userID), &user, cache.UserTTL, func() error {
		u, err := s.users.GetWithProfile(ctx, userID)
		if err != nil {
			return err
		}
		user = *u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ForgotPassword stores a fresh reset code and hands it to the mailer.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (err error) {
	ctx, finish := observability.StartServiceSpan(ctx, "AuthService", "ForgotPassword")
	defer func() { finish(err) }()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return models.NewValidationError("Email is required")
	}
	if s.limiter != nil {
		allowed, err := s.limiter(ctx, email)
		if err != nil {
			return models.NewTransientError("Rate limiter unavailable", err)
		}
		if !allowed {
			return models.NewValidationError("Too many reset requests, try again later")
		}
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	otp, err := s.newOTP()
	if err != nil {
		return models.NewInternalError(err)
	}
	if err := s.users.SetOTP(ctx, user.ID, otp, s.now().Add(s.otpTTL)); err != nil {
		return err
	}
	if s.mailer != nil {
		if err := s.mailer.SendOTP(ctx, user.Email, otp); err != nil {
			return models.NewTransientError("Failed to send reset code", err)
		}
	}
	return nil
}

// ValidateOTP accepts a matching, unexpired code and unlocks SetNewPassword.
func (s *AuthService) ValidateOTP(ctx context.Context, email, otp string) error {
	otp = strings.TrimSpace(otp)
	if strings.TrimSpace(email) == "" || otp == "" {
		return models.NewValidationError("Email and OTP are required")
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	invalid := models.NewValidationError("Invalid or expired OTP")
	if validation.ValidateOTP(otp) != nil || user.OTP == "" || user.OTPExpiresAt == nil {
		return invalid
	}
	if subtle.ConstantTimeCompare([]byte(user.OTP), []byte(otp)) != 1 || !s.now().Before(*user.OTPExpiresAt) {
		return invalid
	}
	return s.users.MarkOTPValidated(ctx, user.ID)
}

// SetNewPassword replaces the password after a successful ValidateOTP.
func (s *AuthService) SetNewPassword(ctx context.Context, in SetNewPasswordInput) error {
	if strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return models.NewValidationError("Email and password are required")
	}
	if in.Password != in.PasswordConfirmation {
		return models.NewValidationError("Passwords do not match")
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return models.NewValidationError(err.Error())
	}
	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		return err
	}
	if !user.ValidationStatus {
		return models.NewUnauthorizedError("OTP validation required")
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.NewInternalError(err)
	}
	return s.users.UpdatePassword(ctx, user.ID, hash)
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, _, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
