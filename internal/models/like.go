package models

import (
	"fmt"
	"time"
)

// LikeKind discriminates what a like points at.
type LikeKind string

const (
	LikeKindPost    LikeKind = "post"
	LikeKindComment LikeKind = "comment"
)

// LikeTarget is exactly one post or one comment. Build it with PostTarget,
// CommentTarget or ParseLikeTarget so the kind and id always agree.
type LikeTarget struct {
	Kind LikeKind `json:"kind"`
	ID   uint     `json:"id"`
}

// PostTarget targets a post.
func PostTarget(id uint) LikeTarget { return LikeTarget{Kind: LikeKindPost, ID: id} }

// CommentTarget targets a comment.
func CommentTarget(id uint) LikeTarget { return LikeTarget{Kind: LikeKindComment, ID: id} }

// ParseLikeTarget converts the two optional request ids into a target.
// Exactly one must be set.
func ParseLikeTarget(postID, commentID *uint) (LikeTarget, error) {
	hasPost := postID != nil && *postID != 0
	hasComment := commentID != nil && *commentID != 0
	switch {
	case hasPost && hasComment:
		return LikeTarget{}, NewValidationError("Only one of user_post_id or user_comment_id may be given")
	case hasPost:
		return PostTarget(*postID), nil
	case hasComment:
		return CommentTarget(*commentID), nil
	default:
		return LikeTarget{}, NewValidationError("Either user_post_id or user_comment_id is required")
	}
}

// Valid reports whether the target names a known kind and a non-zero id.
func (t LikeTarget) Valid() bool {
	return (t.Kind == LikeKindPost || t.Kind == LikeKindComment) && t.ID != 0
}

func (t LikeTarget) String() string {
	return fmt.Sprintf("%s:%d", t.Kind, t.ID)
}

// Like is one user's like on one target. The unique index makes a second
// insert for the same (user, target) fail instead of double counting.
type Like struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_user_likes_target" json:"user_id"`
	TargetKind LikeKind  `gorm:"type:varchar(16);not null;uniqueIndex:idx_user_likes_target;index:idx_user_likes_lookup" json:"target_kind"`
	TargetID   uint      `gorm:"not null;uniqueIndex:idx_user_likes_target;index:idx_user_likes_lookup" json:"target_id"`
	CreatedAt  time.Time `json:"created_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

// TableName specifies the table name for GORM
func (Like) TableName() string {
	return "user_likes"
}

// Target returns the tagged target of the like.
func (l Like) Target() LikeTarget {
	return LikeTarget{Kind: l.TargetKind, ID: l.TargetID}
}

// LikedItem is the refreshed state of a target after a toggle.
type LikedItem struct {
	Kind       LikeKind `json:"kind"`
	ID         uint     `json:"id"`
	LikesCount int64    `json:"likes_count"`
}

// ToggleLikeResult is the payload of a like toggle.
type ToggleLikeResult struct {
	LikedItem LikedItem `json:"liked_item"`
	Liked     bool      `json:"liked"`
}
