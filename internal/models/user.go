// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// User is an account holder. IsActive is a presence indicator flipped on
// login and logout; it is not a security boundary.
type User struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Name             string     `gorm:"size:255;not null" json:"name"`
	Email            string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password         string     `gorm:"not null" json:"-"`
	IsActive         bool       `gorm:"column:activation_status;default:false" json:"activation_status"`
	OTP              string     `gorm:"column:otp;size:6" json:"-"`
	OTPExpiresAt     *time.Time `gorm:"column:otp_expires_at" json:"-"`
	ValidationStatus bool       `gorm:"default:false" json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	Profile *Profile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"profile,omitempty"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// UserSummary is the compact author shape embedded in events.
type UserSummary struct {
	ID     uint   `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar_path,omitempty"`
}

// Summary returns the compact representation of u.
func (u User) Summary() UserSummary {
	s := UserSummary{ID: u.ID, Name: u.Name}
	if u.Profile != nil {
		s.Avatar = u.Profile.AvatarPath
	}
	return s
}
