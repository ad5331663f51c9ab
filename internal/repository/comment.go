package repository

import (
	"context"

	"sociallink/internal/models"
	"sociallink/internal/observability"

	"gorm.io/gorm"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	// GetThread loads a top-level comment with all replies oldest first.
	GetThread(ctx context.Context, id uint) (*models.Comment, error)
	Exists(ctx context.Context, id uint) (bool, error)
	ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error)
}

type commentRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db, log: observability.NewRepoLogger("user_comments")}
}

const commentCountsSelect = "user_comments.*, " +
	"(SELECT COUNT(*) FROM user_likes WHERE user_likes.target_kind = 'comment' AND user_likes.target_id = user_comments.id) AS likes_count, " +
	"(SELECT COUNT(*) FROM user_comments AS r WHERE r.master_comment_id = user_comments.id) AS replies_count"

func withCommentCounts(db *gorm.DB) *gorm.DB {
	return db.Select(commentCountsSelect)
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Omit("User", "Replies").Create(comment).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	r.log.LogCreate(ctx, "comment_id", comment.ID,
		"post_id", comment.PostID,
		"reply", comment.IsReply())
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Preload("User").First(&comment, id).Error; err != nil {
		return nil, mapError(err, "Comment", id)
	}
	return &comment, nil
}

func (r *commentRepository) GetThread(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	err := withCommentCounts(r.db.WithContext(ctx)).
		Preload("User").
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return withCommentCounts(db).Order("created_at ASC, id ASC")
		}).
		Preload("Replies.User").
		First(&comment, id).Error
	if err != nil {
		return nil, mapError(err, "Comment", id)
	}
	return &comment, nil
}

func (r *commentRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := readDB(r.db).WithContext(ctx).Model(&models.Comment{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *commentRepository) ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := withCommentCounts(readDB(r.db).WithContext(ctx)).
		Preload("User").
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return withCommentCounts(db).Order("created_at ASC, id ASC")
		}).
		Preload("Replies.User").
		Where("user_post_id = ? AND master_comment_id IS NULL", postID).
		Order("created_at DESC, id DESC").
		Find(&comments).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}
