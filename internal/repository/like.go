package repository

import (
	"context"
	"errors"

	"sociallink/internal/models"
	"sociallink/internal/observability"

	"gorm.io/gorm"
)

// LikeRepository persists likes on posts and comments.
type LikeRepository interface {
	// Toggle removes the user's like on target if present and adds it
	// otherwise, in one transaction. It reports whether the target is liked
	// afterwards.
	Toggle(ctx context.Context, userID uint, target models.LikeTarget) (bool, error)
	Count(ctx context.Context, target models.LikeTarget) (int64, error)
	IsLiked(ctx context.Context, userID uint, target models.LikeTarget) (bool, error)
	TargetExists(ctx context.Context, target models.LikeTarget) (bool, error)
	ListLikers(ctx context.Context, target models.LikeTarget) ([]models.User, error)
}

type likeRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewLikeRepository creates a new like repository
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db, log: observability.NewRepoLogger("user_likes")}
}

func targetScope(target models.LikeTarget) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_likes.target_kind = ? AND user_likes.target_id = ?", target.Kind, target.ID)
	}
}

func (r *likeRepository) Toggle(ctx context.Context, userID uint, target models.LikeTarget) (bool, error) {
	var liked bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Like
		err := tx.Scopes(targetScope(target)).Where("user_id = ?", userID).First(&existing).Error
		switch {
		case err == nil:
			liked = false
			return tx.Delete(&existing).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			liked = true
			return tx.Omit("User").Create(&models.Like{
				UserID:     userID,
				TargetKind: target.Kind,
				TargetID:   target.ID,
			}).Error
		default:
			return err
		}
	})
	if err != nil {
		if isUniqueViolation(err) {
			return false, models.NewRetryableConflictError("Like already being processed, please retry", err)
		}
		r.log.LogError(ctx, err, "toggle")
		return false, models.NewInternalError(err)
	}
	if liked {
		r.log.LogCreate(ctx, "user_id", userID, "target", target.String())
	} else {
		r.log.LogDelete(ctx, "user_id", userID, "target", target.String())
	}
	return liked, nil
}

func (r *likeRepository) Count(ctx context.Context, target models.LikeTarget) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Like{}).Scopes(targetScope(target)).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *likeRepository) IsLiked(ctx context.Context, userID uint, target models.LikeTarget) (bool, error) {
	var count int64
	if err := readDB(r.db).WithContext(ctx).Model(&models.Like{}).Scopes(targetScope(target)).
		Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *likeRepository) TargetExists(ctx context.Context, target models.LikeTarget) (bool, error) {
	var model interface{}
	switch target.Kind {
	case models.LikeKindPost:
		model = &models.Post{}
	case models.LikeKindComment:
		model = &models.Comment{}
	default:
		return false, nil
	}
	var count int64
	if err := readDB(r.db).WithContext(ctx).Model(model).Where("id = ?", target.ID).Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *likeRepository) ListLikers(ctx context.Context, target models.LikeTarget) ([]models.User, error) {
	var users []models.User
	if err := readDB(r.db).WithContext(ctx).
		Table("users").
		Select("users.*").
		Joins("JOIN user_likes ON user_likes.user_id = users.id").
		Scopes(targetScope(target)).
		Order("user_likes.created_at DESC").
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}
