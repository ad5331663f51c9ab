package repository

import (
	"context"

	"sociallink/internal/cache"
	"sociallink/internal/models"
	"sociallink/internal/observability"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	// Get loads the bare row without counts or relations.
	Get(ctx context.Context, id uint) (*models.Post, error)
	GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error)
	Exists(ctx context.Context, id uint) (bool, error)
	List(ctx context.Context, limit, offset int, viewerID uint) ([]*models.Post, error)
	ListByUser(ctx context.Context, userID uint, limit, offset int, viewerID uint) ([]*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	// Delete removes the post with its comments and every like on either.
	Delete(ctx context.Context, id uint) error
}

// postRepository implements PostRepository
type postRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, log: observability.NewRepoLogger("user_posts")}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("create", "user_posts")()
	if err := r.db.WithContext(ctx).Omit("User", "Comments").Create(post).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	r.log.LogCreate(ctx, "post_id", post.ID, "images", len(post.Images))
	return nil
}

func (r *postRepository) Get(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		return nil, mapError(err, "Post", id)
	}
	return &post, nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error) {
	defer observability.TrackQuery("get", "user_posts")()
	var post models.Post
	load := func() error {
		err := r.withDetails(readDB(r.db).WithContext(ctx), viewerID).First(&post, id).Error
		return mapError(err, "Post", id)
	}

	// Only the anonymous view is shareable; Liked depends on the viewer.
	var err error
	if viewerID == 0 {
		err = cache.Aside(ctx, cache.PostKey(id), &post, cache.PostTTL, load)
	} else {
		err = load()
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := readDB(r.db).WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *postRepository) List(ctx context.Context, limit, offset int, viewerID uint) ([]*models.Post, error) {
	defer observability.TrackQuery("list", "user_posts")()
	ctx, finish := observability.StartQuerySpan(ctx, "user_posts", "List")
	limit, offset = clampLimit(limit, offset)
	var posts []*models.Post
	if err := r.withDetails(readDB(r.db).WithContext(ctx), viewerID).
		Order("user_posts.created_at DESC, user_posts.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error; err != nil {
		finish(err)
		return nil, models.NewInternalError(err)
	}
	finish(nil)
	return posts, nil
}

func (r *postRepository) ListByUser(ctx context.Context, userID uint, limit, offset int, viewerID uint) ([]*models.Post, error) {
	defer observability.TrackQuery("list_by_user", "user_posts")()
	ctx, finish := observability.StartQuerySpan(ctx, "user_posts", "ListByUser")
	limit, offset = clampLimit(limit, offset)
	var posts []*models.Post
	if err := r.withDetails(readDB(r.db).WithContext(ctx), viewerID).
		Where("user_posts.user_id = ?", userID).
		Order("user_posts.created_at DESC, user_posts.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error; err != nil {
		finish(err)
		return nil, models.NewInternalError(err)
	}
	finish(nil)
	return posts, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	res := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", post.ID).
		Updates(map[string]interface{}{
			"description": post.Description,
			"images":      post.Images,
		})
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "update")
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", post.ID)
	}
	r.log.LogUpdate(ctx, "post_id", post.ID)
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		commentIDs := tx.Model(&models.Comment{}).Select("id").Where("user_post_id = ?", id)
		if err := tx.Where("target_kind = ? AND target_id IN (?)", models.LikeKindComment, commentIDs).
			Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("target_kind = ? AND target_id = ?", models.LikeKindPost, id).
			Delete(&models.Like{}).Error; err != nil {
			return err
		}
		// Replies first so the self reference never dangles.
		if err := tx.Where("user_post_id = ? AND master_comment_id IS NOT NULL", id).
			Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		r.log.LogError(ctx, err, "delete")
		return mapError(err, "Post", id)
	}
	r.log.LogDelete(ctx, "post_id", id)
	return nil
}

// withDetails selects the derived counters and preloads the author and the
// one-level comment tree.
func (r *postRepository) withDetails(db *gorm.DB, viewerID uint) *gorm.DB {
	selectQuery := "user_posts.*, " +
		"(SELECT COUNT(*) FROM user_comments WHERE user_comments.user_post_id = user_posts.id) AS comments_count, " +
		"(SELECT COUNT(*) FROM user_likes WHERE user_likes.target_kind = 'post' AND user_likes.target_id = user_posts.id) AS likes_count"

	if viewerID != 0 {
		db = db.Select(selectQuery+", EXISTS(SELECT 1 FROM user_likes WHERE user_likes.target_kind = 'post' AND user_likes.target_id = user_posts.id AND user_likes.user_id = ?) AS liked", viewerID)
	} else {
		db = db.Select(selectQuery + ", false AS liked")
	}

	return db.
		Preload("User").
		Preload("User.Profile").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return withCommentCounts(db).Where("master_comment_id IS NULL").Order("created_at DESC, id DESC")
		}).
		Preload("Comments.User").
		Preload("Comments.Replies", func(db *gorm.DB) *gorm.DB {
			return withCommentCounts(db).Order("created_at ASC, id ASC")
		}).
		Preload("Comments.Replies.User")
}
