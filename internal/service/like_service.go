package service

import (
	"context"

	"sociallink/internal/cache"
	"sociallink/internal/models"
	"sociallink/internal/notifications"
	"sociallink/internal/observability"
	"sociallink/internal/repository"
)

const (
	MsgLiked       = "Liked successfully"
	MsgLikeRemoved = "Like removed"
)

type LikeService struct {
	likes    repository.LikeRepository
	posts    repository.PostRepository
	notifier UserNotifier
}

func NewLikeService(likes repository.LikeRepository, posts repository.PostRepository, notifier UserNotifier) *LikeService {
	return &LikeService{likes: likes, posts: posts, notifier: notifier}
}

func targetNotFound(target models.LikeTarget) error {
	if target.Kind == models.LikeKindComment {
		return models.NewNotFoundMessage("Comment not found")
	}
	return models.NewNotFoundMessage("Post not found")
}

// ToggleLike likes the target if the user has not, and unlikes it otherwise.
// The count in the result is read after the toggle commits.
func (s *LikeService) ToggleLike(ctx context.Context, userID uint, target models.LikeTarget) (res *models.ToggleLikeResult, err error) {
	ctx, finish := observability.StartServiceSpan(ctx, "LikeService", "ToggleLike")
	defer func() { finish(err) }()

	if !target.Valid() {
		return nil, models.NewValidationError("Either user_post_id or user_comment_id is required")
	}
	exists, err := s.likes.TargetExists(ctx, target)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, targetNotFound(target)
	}

	liked, err := s.likes.Toggle(ctx, userID, target)
	if err != nil {
		if models.IsCode(err, models.CodeConflict) {
			observability.LikeToggles.WithLabelValues(string(target.Kind), "conflict").Inc()
		}
		return nil, err
	}
	outcome := "unliked"
	if liked {
		outcome = "liked"
	}
	observability.LikeToggles.WithLabelValues(string(target.Kind), outcome).Inc()

	count, err := s.likes.Count(ctx, target)
	if err != nil {
		return nil, err
	}
	if target.Kind == models.LikeKindPost {
		cache.InvalidatePost(ctx, target.ID)
		if liked {
			s.notifyPostOwner(ctx, userID, target.ID, count)
		}
	}

	return &models.ToggleLikeResult{
		LikedItem: models.LikedItem{Kind: target.Kind, ID: target.ID, LikesCount: count},
		Liked:     liked,
	}, nil
}

func (s *LikeService) notifyPostOwner(ctx context.Context, likerID, postID uint, count int64) {
	if s.notifier == nil {
		return
	}
	post, err := s.posts.Get(ctx, postID)
	if err != nil || post.UserID == likerID {
		return
	}
	notify(ctx, s.notifier, post.UserID, notifications.EventPostLiked, map[string]interface{}{
		"post_id":     postID,
		"user_id":     likerID,
		"likes_count": count,
	})
}

// ListLikers returns the users who liked target.
func (s *LikeService) ListLikers(ctx context.Context, target models.LikeTarget) ([]models.User, error) {
	if !target.Valid() {
		return nil, models.NewValidationError("Either user_post_id or user_comment_id is required")
	}
	exists, err := s.likes.TargetExists(ctx, target)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, targetNotFound(target)
	}
	return s.likes.ListLikers(ctx, target)
}
