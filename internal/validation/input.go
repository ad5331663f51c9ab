// Package validation holds the input rules shared by services and handlers.
package validation

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MinPasswordLength = 6
	MaxPasswordLength = 128
	MaxCommentLength  = 10000
	MaxNameLength     = 255
	OTPLength         = 6
)

var (
	ErrEmailFormat     = errors.New("Email format error")
	ErrPasswordLength  = errors.New("Password must be at least 6 characters")
	ErrPasswordTooLong = errors.New("Password must not exceed 128 characters")
	ErrCommentTooLong  = errors.New("Comment too long (max 10000 characters)")
	ErrNameTooLong     = errors.New("Name too long (max 255 characters)")
	ErrOTPFormat       = errors.New("OTP must be 6 digits")
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	otpRegex   = regexp.MustCompile(`^[0-9]{6}$`)
)

// ValidateEmail checks the address shape; it does not check deliverability.
func ValidateEmail(email string) error {
	if len(email) > 254 || !emailRegex.MatchString(email) || strings.Contains(email, "..") {
		return ErrEmailFormat
	}
	return nil
}

// ValidatePassword enforces the length bounds on a new password.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrPasswordLength
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}

// ValidateName bounds a display name.
func ValidateName(name string) error {
	if utf8.RuneCountInString(name) > MaxNameLength {
		return ErrNameTooLong
	}
	return nil
}

// ValidateCommentContent bounds a comment body. Emptiness is checked by the caller.
func ValidateCommentContent(content string) error {
	if utf8.RuneCountInString(content) > MaxCommentLength {
		return ErrCommentTooLong
	}
	return nil
}

// ValidateOTP checks a one-time code is exactly six digits.
func ValidateOTP(otp string) error {
	if !otpRegex.MatchString(otp) {
		return ErrOTPFormat
	}
	return nil
}
