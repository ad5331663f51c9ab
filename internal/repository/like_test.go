package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"sociallink/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLikeRepository_Toggle(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLikeRepository(db)
	ctx := context.Background()

	u := createUser(t, db, "liker")
	other := createUser(t, db, "other")
	post := createPost(t, db, u.ID, "likeable")
	target := models.PostTarget(post.ID)

	liked, err := repo.Toggle(ctx, u.ID, target)
	require.NoError(t, err)
	assert.True(t, liked)

	liked, err = repo.Toggle(ctx, other.ID, target)
	require.NoError(t, err)
	assert.True(t, liked)

	count, err := repo.Count(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	liked, err = repo.Toggle(ctx, u.ID, target)
	require.NoError(t, err)
	assert.False(t, liked)

	count, err = repo.Count(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	isLiked, err := repo.IsLiked(ctx, other.ID, target)
	require.NoError(t, err)
	assert.True(t, isLiked)

	likers, err := repo.ListLikers(ctx, target)
	require.NoError(t, err)
	require.Len(t, likers, 1)
	assert.Equal(t, other.ID, likers[0].ID)
}

func TestLikeRepository_PostAndCommentLikesAreSeparate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLikeRepository(db)
	ctx := context.Background()

	u := createUser(t, db, "sep")
	post := createPost(t, db, u.ID, "p")
	comment := createComment(t, db, post.ID, u.ID, nil, "c")
	require.Equal(t, post.ID, comment.ID, "same numeric id on both targets")

	_, err := repo.Toggle(ctx, u.ID, models.PostTarget(post.ID))
	require.NoError(t, err)
	liked, err := repo.Toggle(ctx, u.ID, models.CommentTarget(comment.ID))
	require.NoError(t, err)
	assert.True(t, liked, "liking the comment is independent of the post")
}

func TestLikeRepository_TargetExists(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLikeRepository(db)
	ctx := context.Background()

	u := createUser(t, db, "exists")
	post := createPost(t, db, u.ID, "p")

	ok, err := repo.TargetExists(ctx, models.PostTarget(post.ID))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.TargetExists(ctx, models.CommentTarget(post.ID))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLikeRepository_DuplicateInsertIsUniqueViolation(t *testing.T) {
	db := setupTestDB(t)
	u := createUser(t, db, "dupe")
	post := createPost(t, db, u.ID, "p")

	like := func() error {
		return db.Omit("User").Create(&models.Like{UserID: u.ID, TargetKind: models.LikeKindPost, TargetID: post.ID}).Error
	}
	require.NoError(t, like())
	assert.True(t, isUniqueViolation(like()))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, isUniqueViolation(fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("boom")))
	assert.False(t, isUniqueViolation(nil))
}
