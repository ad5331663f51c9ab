package service

import (
	"context"
	"strings"

	"sociallink/internal/cache"
	"sociallink/internal/models"
	"sociallink/internal/observability"
	"sociallink/internal/repository"
	"sociallink/internal/storage"

	"gorm.io/datatypes"
)

const (
	MsgPostCreated = "Post created successfully"
	MsgPostUpdated = "Post updated successfully"
	MsgPostDeleted = "Post deleted successfully"

	msgPostRequired     = "Description and at least one image are required"
	msgPostUnauthorized = "Post not found or unauthorized"

	maxDescriptionLen = 5000
	maxImagesPerPost  = 10
)

type CreatePostInput struct {
	UserID      uint
	Description string
	Images      []storage.Upload
}

// UpdatePostInput changes a post. A nil Description keeps the current one;
// a nil Images keeps the current image list.
type UpdatePostInput struct {
	UserID      uint
	PostID      uint
	Description *string
	Images      []storage.Upload
}

type PostService struct {
	posts  repository.PostRepository
	images *storage.ImageUploader
}

func NewPostService(posts repository.PostRepository, images *storage.ImageUploader) *PostService {
	return &PostService{posts: posts, images: images}
}

// CreatePost stores every image, then inserts the row. Nothing stays
// behind in storage if either step fails.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (post *models.Post, err error) {
	ctx, finish := observability.StartServiceSpan(ctx, "PostService", "CreatePost")
	defer func() { finish(err) }()

	description := strings.TrimSpace(in.Description)
	if description == "" || len(in.Images) == 0 {
		return nil, models.NewValidationError(msgPostRequired)
	}
	if len(description) > maxDescriptionLen {
		return nil, models.NewValidationError("Description too long (max 5000 characters)")
	}
	if len(in.Images) > maxImagesPerPost {
		return nil, models.NewValidationError("Too many images (max 10)")
	}

	keys, err := s.images.SaveAll(ctx, storage.PrefixPosts, in.Images)
	if err != nil {
		return nil, err
	}

	post = &models.Post{
		UserID:      in.UserID,
		Description: description,
		Images:      datatypes.JSONSlice[string](keys),
	}
	if err := s.posts.Create(ctx, post); err != nil {
		s.images.Remove(context.WithoutCancel(ctx), keys...)
		return nil, err
	}
	return s.posts.GetByID(ctx, post.ID, in.UserID)
}

// owned loads the post and hides whether it is missing or someone else's.
func (s *PostService) owned(ctx context.Context, userID, postID uint) (*models.Post, error) {
	if postID == 0 {
		return nil, models.NewForbiddenError(msgPostUnauthorized)
	}
	post, err := s.posts.Get(ctx, postID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, models.NewForbiddenError(msgPostUnauthorized)
		}
		return nil, err
	}
	if !post.OwnedBy(userID) {
		return nil, models.NewForbiddenError(msgPostUnauthorized)
	}
	return post, nil
}

// UpdatePost replaces the description and/or image list. New images are
// stored before the row changes and the old ones are removed after commit.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (post *models.Post, err error) {
	ctx, finish := observability.StartServiceSpan(ctx, "PostService", "UpdatePost")
	defer func() { finish(err) }()

	post, err = s.owned(ctx, in.UserID, in.PostID)
	if err != nil {
		return nil, err
	}

	if in.Description != nil {
		description := strings.TrimSpace(*in.Description)
		if description == "" {
			return nil, models.NewValidationError(msgPostRequired)
		}
		if len(description) > maxDescriptionLen {
			return nil, models.NewValidationError("Description too long (max 5000 characters)")
		}
		post.Description = description
	}

	var oldKeys, newKeys []string
	if in.Images != nil {
		if len(in.Images) == 0 {
			return nil, models.NewValidationError(msgPostRequired)
		}
		if len(in.Images) > maxImagesPerPost {
			return nil, models.NewValidationError("Too many images (max 10)")
		}
		newKeys, err = s.images.SaveAll(ctx, storage.PrefixPosts, in.Images)
		if err != nil {
			return nil, err
		}
		oldKeys = append(oldKeys, post.Images...)
		post.Images = datatypes.JSONSlice[string](newKeys)
	}

	if err := s.posts.Update(ctx, post); err != nil {
		s.images.Remove(context.WithoutCancel(ctx), newKeys...)
		return nil, err
	}

	s.images.Remove(ctx, oldKeys...)
	cache.InvalidatePost(ctx, post.ID)
	return s.posts.GetByID(ctx, post.ID, in.UserID)
}

// DeletePost removes the post with its comments and likes, then its images.
func (s *PostService) DeletePost(ctx context.Context, userID, postID uint) (err error) {
	ctx, finish := observability.StartServiceSpan(ctx, "PostService", "DeletePost")
	defer func() { finish(err) }()

	post, err := s.owned(ctx, userID, postID)
	if err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, post.ID); err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return models.NewForbiddenError(msgPostUnauthorized)
		}
		return err
	}
	s.images.Remove(ctx, post.Images...)
	cache.InvalidatePost(ctx, post.ID)
	return nil
}

func (s *PostService) GetPost(ctx context.Context, viewerID, postID uint) (*models.Post, error) {
	if postID == 0 {
		return nil, models.NewValidationError("Post ID required")
	}
	post, err := s.posts.GetByID(ctx, postID, viewerID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, models.NewNotFoundMessage("Post not found")
		}
		return nil, err
	}
	return post, nil
}

// ListPosts returns the global feed, newest first.
func (s *PostService) ListPosts(ctx context.Context, viewerID uint, limit, offset int) ([]*models.Post, error) {
	return s.posts.List(ctx, limit, offset, viewerID)
}

// ListUserPosts returns one author's posts, newest first.
func (s *PostService) ListUserPosts(ctx context.Context, viewerID, userID uint, limit, offset int) ([]*models.Post, error) {
	if userID == 0 {
		return nil, models.NewValidationError("User ID required")
	}
	return s.posts.ListByUser(ctx, userID, limit, offset, viewerID)
}
