package service

import (
	"context"
	"testing"

	"sociallink/internal/models"
	"sociallink/internal/notifications"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryLikes toggles likes in a map keyed by user and target.
func memoryLikes() *likeRepoStub {
	type likeKey struct {
		userID uint
		target models.LikeTarget
	}
	liked := map[likeKey]bool{}
	key := func(userID uint, t models.LikeTarget) likeKey { return likeKey{userID, t} }
	count := func(t models.LikeTarget) int64 {
		var n int64
		for k, v := range liked {
			if v && k.target == t {
				n++
			}
		}
		return n
	}
	return &likeRepoStub{
		toggleFn: func(_ context.Context, userID uint, t models.LikeTarget) (bool, error) {
			k := key(userID, t)
			liked[k] = !liked[k]
			return liked[k], nil
		},
		countFn: func(_ context.Context, t models.LikeTarget) (int64, error) { return count(t), nil },
		isLikedFn: func(_ context.Context, userID uint, t models.LikeTarget) (bool, error) {
			return liked[key(userID, t)], nil
		},
		targetExistsFn: func(_ context.Context, t models.LikeTarget) (bool, error) { return t.ID < 100, nil },
		listLikersFn:   func(context.Context, models.LikeTarget) ([]models.User, error) { return []models.User{{ID: 2}}, nil },
	}
}

func TestLikeServiceRejectsInvalidTarget(t *testing.T) {
	svc := NewLikeService(memoryLikes(), noopPostRepo(), nil)

	for _, target := range []models.LikeTarget{{}, {Kind: models.LikeKindPost}, {Kind: "story", ID: 1}} {
		_, err := svc.ToggleLike(context.Background(), 1, target)
		require.Error(t, err)
		assert.True(t, models.IsCode(err, models.CodeValidation))
	}
}

func TestLikeServiceMissingTarget(t *testing.T) {
	svc := NewLikeService(memoryLikes(), noopPostRepo(), nil)

	_, err := svc.ToggleLike(context.Background(), 1, models.PostTarget(500))
	assert.True(t, models.IsCode(err, models.CodeNotFound))
	assert.Equal(t, "Post not found", err.Error())

	_, err = svc.ToggleLike(context.Background(), 1, models.CommentTarget(500))
	assert.True(t, models.IsCode(err, models.CodeNotFound))
	assert.Equal(t, "Comment not found", err.Error())
}

func TestLikeServiceToggleRoundTrip(t *testing.T) {
	n := &notifierStub{}
	svc := NewLikeService(memoryLikes(), noopPostRepo(), n)
	ctx := context.Background()

	res, err := svc.ToggleLike(ctx, 2, models.PostTarget(7))
	require.NoError(t, err)
	assert.True(t, res.Liked)
	assert.Equal(t, models.LikedItem{Kind: models.LikeKindPost, ID: 7, LikesCount: 1}, res.LikedItem)

	res, err = svc.ToggleLike(ctx, 3, models.PostTarget(7))
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.LikedItem.LikesCount)

	res, err = svc.ToggleLike(ctx, 2, models.PostTarget(7))
	require.NoError(t, err)
	assert.False(t, res.Liked)
	assert.Equal(t, int64(1), res.LikedItem.LikesCount)

	// the post owner (user 1) hears about likes only
	assert.Equal(t, []sentEvent{
		{UserID: 1, Type: notifications.EventPostLiked},
		{UserID: 1, Type: notifications.EventPostLiked},
	}, n.sent())
}

func TestLikeServiceCommentLikesDoNotNotify(t *testing.T) {
	n := &notifierStub{}
	svc := NewLikeService(memoryLikes(), noopPostRepo(), n)

	res, err := svc.ToggleLike(context.Background(), 2, models.CommentTarget(3))
	require.NoError(t, err)
	assert.Equal(t, models.LikeKindComment, res.LikedItem.Kind)
	assert.Empty(t, n.sent())
}

func TestLikeServiceConflictIsRetryable(t *testing.T) {
	likes := memoryLikes()
	likes.toggleFn = func(context.Context, uint, models.LikeTarget) (bool, error) {
		return false, models.NewRetryableConflictError("Like state changed, please retry", nil)
	}
	svc := NewLikeService(likes, noopPostRepo(), nil)

	_, err := svc.ToggleLike(context.Background(), 2, models.PostTarget(7))
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.CodeConflict))
}

func TestLikeServiceListLikers(t *testing.T) {
	svc := NewLikeService(memoryLikes(), noopPostRepo(), nil)

	users, err := svc.ListLikers(context.Background(), models.PostTarget(7))
	require.NoError(t, err)
	assert.Len(t, users, 1)

	_, err = svc.ListLikers(context.Background(), models.CommentTarget(400))
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}
