package models

import (
	"time"

	"gorm.io/datatypes"
)

// Post is a user's post. Images is an ordered list of storage keys; the
// counters and Liked are computed by the query that loads the post.
type Post struct {
	ID          uint                        `gorm:"primaryKey" json:"id"`
	UserID      uint                        `gorm:"not null;index" json:"user_id"`
	Description string                      `gorm:"type:text;not null" json:"description"`
	Images      datatypes.JSONSlice[string] `gorm:"not null" json:"images"`
	CreatedAt   time.Time                   `json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`

	User     *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Comments []Comment `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"comments,omitempty"`

	// LikesCount is not persisted; computed at query time
	LikesCount int `gorm:"->;-:migration" json:"likes_count"`
	// CommentsCount is not persisted; computed at query time
	CommentsCount int `gorm:"->;-:migration" json:"comments_count"`
	// Liked indicates whether the requesting user liked this post (computed)
	Liked bool `gorm:"->;-:migration" json:"liked"`
}

// TableName specifies the table name for GORM
func (Post) TableName() string {
	return "user_posts"
}

// OwnedBy reports whether userID owns the post.
func (p *Post) OwnedBy(userID uint) bool {
	return p != nil && p.UserID == userID
}
