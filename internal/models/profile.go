package models

import "time"

// Profile holds the presentation attributes of a user. The unique index on
// UserID keeps the relation one-to-one.
type Profile struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_user_profiles_user" json:"user_id"`
	AvatarPath string    `json:"avatar_path"`
	BannerPath string    `json:"banner_path"`
	Location   string    `gorm:"size:255" json:"location"`
	AboutUser  string    `gorm:"type:text" json:"about_user"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Profile) TableName() string {
	return "user_profiles"
}

// ProfileView is the aggregate returned by the profile query.
type ProfileView struct {
	User        User     `json:"user"`
	Profile     *Profile `json:"profile"`
	Connections []User   `json:"connections"`
	Posts       []*Post  `json:"posts"`
}
