package service

import (
	"context"
	"strings"

	"sociallink/internal/cache"
	"sociallink/internal/models"
	"sociallink/internal/notifications"
	"sociallink/internal/observability"
	"sociallink/internal/repository"
	"sociallink/internal/validation"
)

const (
	MsgCommentCreated       = "Comment created successfully"
	MsgNestedCommentCreated = "Nested comment created successfully"
)

type CreateCommentInput struct {
	UserID          uint
	PostID          uint
	Content         string
	MasterCommentID *uint
}

type CommentService struct {
	comments repository.CommentRepository
	posts    repository.PostRepository
	notifier UserNotifier
}

func NewCommentService(comments repository.CommentRepository, posts repository.PostRepository, notifier UserNotifier) *CommentService {
	return &CommentService{comments: comments, posts: posts, notifier: notifier}
}

// CreateComment adds a top-level comment, or a reply when MasterCommentID is
// set. A top-level comment is returned on its own; a reply returns its master
// reloaded with every reply, oldest first.
func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (out *models.Comment, err error) {
	ctx, finish := observability.StartServiceSpan(ctx, "CommentService", "CreateComment")
	defer func() { finish(err) }()

	if in.PostID == 0 {
		return nil, models.NewValidationError("Post ID required")
	}
	post, err := s.posts.Get(ctx, in.PostID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, models.NewNotFoundMessage("Post not found")
		}
		return nil, err
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError("Comment content required")
	}
	if err := validation.ValidateCommentContent(content); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	var master *models.Comment
	if in.MasterCommentID != nil && *in.MasterCommentID != 0 {
		master, err = s.comments.GetByID(ctx, *in.MasterCommentID)
		if err != nil {
			if models.IsCode(err, models.CodeNotFound) {
				return nil, models.NewNotFoundMessage("Master comment not found")
			}
			return nil, err
		}
		if master.PostID != post.ID {
			return nil, models.NewNotFoundMessage("Master comment not found")
		}
		if master.IsReply() {
			return nil, models.NewValidationError("Replies can only be added to top-level comments")
		}
	}

	comment := &models.Comment{
		PostID:  post.ID,
		UserID:  in.UserID,
		Content: content,
	}
	if master != nil {
		comment.MasterCommentID = &master.ID
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	cache.InvalidatePost(ctx, post.ID)

	event := map[string]interface{}{
		"post_id":    post.ID,
		"comment_id": comment.ID,
		"user_id":    in.UserID,
	}
	if post.UserID != in.UserID {
		notify(ctx, s.notifier, post.UserID, notifications.EventCommentCreated, event)
	}

	if master == nil {
		comment.Replies = []models.Comment{}
		return comment, nil
	}
	if master.UserID != in.UserID && master.UserID != post.UserID {
		notify(ctx, s.notifier, master.UserID, notifications.EventCommentCreated, event)
	}
	return s.comments.GetThread(ctx, master.ID)
}

// ListPostComments returns the top-level comments of a post, newest first,
// each with its replies oldest first.
func (s *CommentService) ListPostComments(ctx context.Context, postID uint) ([]*models.Comment, error) {
	if postID == 0 {
		return nil, models.NewValidationError("Post ID required")
	}
	exists, err := s.posts.Exists(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, models.NewNotFoundMessage("Post not found")
	}
	comments, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	for _, c := range comments {
		if c.Replies == nil {
			c.Replies = []models.Comment{}
		}
	}
	return comments, nil
}
