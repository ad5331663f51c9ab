package service

import (
	"context"
	"strings"
	"testing"

	"sociallink/internal/models"
	"sociallink/internal/notifications"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uintPtr(v uint) *uint { return &v }

// commentFixture holds one post owned by user 1 with a top-level comment 10
// by user 2 and its reply 11 by user 3.
func commentFixture() (*commentRepoStub, *postRepoStub) {
	stored := []*models.Comment{
		{ID: 10, PostID: 100, UserID: 2, Content: "top"},
		{ID: 11, PostID: 100, UserID: 3, Content: "reply", MasterCommentID: uintPtr(10)},
	}
	comments := &commentRepoStub{
		createFn: func(_ context.Context, c *models.Comment) error {
			c.ID = uint(len(stored) + 10)
			stored = append(stored, c)
			return nil
		},
		getByIDFn: func(_ context.Context, id uint) (*models.Comment, error) {
			for _, c := range stored {
				if c.ID == id {
					cp := *c
					return &cp, nil
				}
			}
			return nil, models.NewNotFoundError("Comment", id)
		},
		getThreadFn: func(_ context.Context, id uint) (*models.Comment, error) {
			var master *models.Comment
			var replies []models.Comment
			for _, c := range stored {
				if c.ID == id {
					cp := *c
					master = &cp
				}
				if c.MasterCommentID != nil && *c.MasterCommentID == id {
					replies = append(replies, *c)
				}
			}
			if master == nil {
				return nil, models.NewNotFoundError("Comment", id)
			}
			master.Replies = replies
			return master, nil
		},
		existsFn:     func(context.Context, uint) (bool, error) { return true, nil },
		listByPostFn: func(context.Context, uint) ([]*models.Comment, error) { return nil, nil },
	}
	posts := noopPostRepo()
	posts.getFn = func(_ context.Context, id uint) (*models.Post, error) {
		switch id {
		case 100:
			return &models.Post{ID: 100, UserID: 1}, nil
		case 200:
			return &models.Post{ID: 200, UserID: 1}, nil
		}
		return nil, models.NewNotFoundError("Post", id)
	}
	return comments, posts
}

func TestCommentServiceCreateValidation(t *testing.T) {
	comments, posts := commentFixture()
	svc := NewCommentService(comments, posts, nil)

	tests := []struct {
		name string
		in   CreateCommentInput
		code string
		msg  string
	}{
		{"no post id", CreateCommentInput{UserID: 2, Content: "hi"}, models.CodeValidation, "Post ID required"},
		{"missing post", CreateCommentInput{UserID: 2, PostID: 999, Content: "hi"}, models.CodeNotFound, "Post not found"},
		{"blank content", CreateCommentInput{UserID: 2, PostID: 100, Content: "   "}, models.CodeValidation, "Comment content required"},
		{"content too long", CreateCommentInput{UserID: 2, PostID: 100, Content: strings.Repeat("x", 10001)}, models.CodeValidation, "Comment too long (max 10000 characters)"},
		{"missing master", CreateCommentInput{UserID: 2, PostID: 100, Content: "hi", MasterCommentID: uintPtr(77)}, models.CodeNotFound, "Master comment not found"},
		{"master on another post", CreateCommentInput{UserID: 2, PostID: 200, Content: "hi", MasterCommentID: uintPtr(10)}, models.CodeNotFound, "Master comment not found"},
		{"reply to a reply", CreateCommentInput{UserID: 2, PostID: 100, Content: "hi", MasterCommentID: uintPtr(11)}, models.CodeValidation, "Replies can only be added to top-level comments"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateComment(context.Background(), tt.in)
			require.Error(t, err)
			assert.True(t, models.IsCode(err, tt.code), "got %v", err)
			assert.Equal(t, tt.msg, err.Error())
		})
	}
}

func TestCommentServiceCreateTopLevel(t *testing.T) {
	comments, posts := commentFixture()
	n := &notifierStub{}
	svc := NewCommentService(comments, posts, n)

	c, err := svc.CreateComment(context.Background(), CreateCommentInput{UserID: 4, PostID: 100, Content: " nice "})
	require.NoError(t, err)
	assert.Equal(t, "nice", c.Content)
	assert.Nil(t, c.MasterCommentID)
	assert.NotNil(t, c.Replies)
	assert.Empty(t, c.Replies)
	assert.Equal(t, []sentEvent{{UserID: 1, Type: notifications.EventCommentCreated}}, n.sent())
}

func TestCommentServiceCreateReplyReturnsThread(t *testing.T) {
	comments, posts := commentFixture()
	n := &notifierStub{}
	svc := NewCommentService(comments, posts, n)

	thread, err := svc.CreateComment(context.Background(), CreateCommentInput{
		UserID:          4,
		PostID:          100,
		Content:         "me too",
		MasterCommentID: uintPtr(10),
	})
	require.NoError(t, err)
	assert.Equal(t, uint(10), thread.ID)
	require.Len(t, thread.Replies, 2)
	assert.Equal(t, "reply", thread.Replies[0].Content)
	assert.Equal(t, "me too", thread.Replies[1].Content)
	assert.Equal(t, []sentEvent{
		{UserID: 1, Type: notifications.EventCommentCreated},
		{UserID: 2, Type: notifications.EventCommentCreated},
	}, n.sent())
}

func TestCommentServiceOwnCommentsDoNotNotify(t *testing.T) {
	comments, posts := commentFixture()
	n := &notifierStub{}
	svc := NewCommentService(comments, posts, n)

	_, err := svc.CreateComment(context.Background(), CreateCommentInput{UserID: 1, PostID: 100, Content: "mine"})
	require.NoError(t, err)
	_, err = svc.CreateComment(context.Background(), CreateCommentInput{UserID: 2, PostID: 100, Content: "self reply", MasterCommentID: uintPtr(10)})
	require.NoError(t, err)

	assert.Equal(t, []sentEvent{{UserID: 1, Type: notifications.EventCommentCreated}}, n.sent())
}

func TestCommentServiceListPostComments(t *testing.T) {
	comments, posts := commentFixture()
	comments.listByPostFn = func(context.Context, uint) ([]*models.Comment, error) {
		return []*models.Comment{{ID: 10}, {ID: 12, Replies: []models.Comment{{ID: 13}}}}, nil
	}
	posts.existsFn = func(_ context.Context, id uint) (bool, error) { return id == 100, nil }
	svc := NewCommentService(comments, posts, nil)

	list, err := svc.ListPostComments(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.NotNil(t, list[0].Replies)
	assert.Len(t, list[1].Replies, 1)

	_, err = svc.ListPostComments(context.Background(), 5)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}
