package models

import "time"

// Comment belongs to a post. A non-nil MasterCommentID makes it a reply;
// replies are never masters themselves, so the tree is at most one level deep.
type Comment struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	PostID          uint      `gorm:"column:user_post_id;not null;index" json:"user_post_id"`
	UserID          uint      `gorm:"not null;index" json:"user_id"`
	MasterCommentID *uint     `gorm:"index" json:"master_comment_id"`
	Content         string    `gorm:"column:comment;type:text;not null" json:"comment"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	User    *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Replies []Comment `gorm:"foreignKey:MasterCommentID;constraint:OnDelete:CASCADE" json:"nested_comments"`

	LikesCount   int `gorm:"->;-:migration" json:"likes_count"`
	RepliesCount int `gorm:"->;-:migration" json:"replies_count"`
}

// TableName specifies the table name for GORM
func (Comment) TableName() string {
	return "user_comments"
}

// IsReply reports whether the comment hangs under a master comment.
func (c *Comment) IsReply() bool {
	return c.MasterCommentID != nil
}
