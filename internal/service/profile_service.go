package service

import (
	"context"
	"strings"

	"sociallink/internal/cache"
	"sociallink/internal/models"
	"sociallink/internal/observability"
	"sociallink/internal/repository"
	"sociallink/internal/storage"
)

const (
	ProfilePostsPageSize = 10
	maxLocationLen       = 255
	maxAboutLen          = 2000
)

// UpdateProfileInput carries the optional profile changes. Nil fields are
// left as they are.
type UpdateProfileInput struct {
	UserID   uint
	Avatar   *storage.Upload
	Banner   *storage.Upload
	Location *string
	About    *string
}

type ProfileService struct {
	users       repository.UserRepository
	profiles    repository.ProfileRepository
	connections repository.ConnectionRepository
	posts       repository.PostRepository
	images      *storage.ImageUploader
}

func NewProfileService(
	users repository.UserRepository,
	profiles repository.ProfileRepository,
	connections repository.ConnectionRepository,
	posts repository.PostRepository,
	images *storage.ImageUploader,
) *ProfileService {
	return &ProfileService{
		users:       users,
		profiles:    profiles,
		connections: connections,
		posts:       posts,
		images:      images,
	}
}

// UserProfile assembles the profile page of userID as seen by viewerID.
func (s *ProfileService) UserProfile(ctx context.Context, viewerID, userID uint) (view *models.ProfileView, err error) {
	ctx, finish := observability.StartServiceSpan(ctx, "ProfileService", "UserProfile")
	defer func() { finish(err) }()

	if userID == 0 {
		return nil, models.NewValidationError("User ID required")
	}
	user, err := s.users.GetWithProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	connections, err := s.connections.ListConnectedUsers(ctx, userID)
	if err != nil {
		return nil, err
	}
	posts, err := s.posts.ListByUser(ctx, userID, ProfilePostsPageSize, 0, viewerID)
	if err != nil {
		return nil, err
	}
	if connections == nil {
		connections = []models.User{}
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return &models.ProfileView{
		User:        *user,
		Profile:     user.Profile,
		Connections: connections,
		Posts:       posts,
	}, nil
}

// UpdateProfile creates the profile on first use. New images are stored
// before the row changes; the replaced ones are deleted after commit.
func (s *ProfileService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (profile *models.Profile, err error) {
	ctx, finish := observability.StartServiceSpan(ctx, "ProfileService", "UpdateProfile")
	defer func() { finish(err) }()

	if in.Location != nil && len(strings.TrimSpace(*in.Location)) > maxLocationLen {
		return nil, models.NewValidationError("Location too long (max 255 characters)")
	}
	if in.About != nil && len(*in.About) > maxAboutLen {
		return nil, models.NewValidationError("About too long (max 2000 characters)")
	}

	var newAvatar, newBanner string
	var stored []string
	if in.Avatar != nil {
		if newAvatar, err = s.images.Save(ctx, storage.PrefixProfileAvatar, *in.Avatar); err != nil {
			return nil, err
		}
		stored = append(stored, newAvatar)
	}
	if in.Banner != nil {
		if newBanner, err = s.images.Save(ctx, storage.PrefixProfileBanner, *in.Banner); err != nil {
			s.images.Remove(context.WithoutCancel(ctx), stored...)
			return nil, err
		}
		stored = append(stored, newBanner)
	}

	var replaced []string
	profile, err = s.profiles.Upsert(ctx, in.UserID, func(p *models.Profile) error {
		replaced = replaced[:0]
		if newAvatar != "" {
			replaced = append(replaced, p.AvatarPath)
			p.AvatarPath = newAvatar
		}
		if newBanner != "" {
			replaced = append(replaced, p.BannerPath)
			p.BannerPath = newBanner
		}
		if in.Location != nil {
			p.Location = strings.TrimSpace(*in.Location)
		}
		if in.About != nil {
			p.AboutUser = *in.About
		}
		return nil
	})
	if err != nil {
		s.images.Remove(context.WithoutCancel(ctx), stored...)
		return nil, err
	}

	s.images.Remove(ctx, replaced...)
	cache.InvalidateUser(ctx, in.UserID)
	return profile, nil
}

// DeleteProfile removes the profile row and then its stored images.
func (s *ProfileService) DeleteProfile(ctx context.Context, userID uint) (profile *models.Profile, err error) {
	ctx, finish := observability.StartServiceSpan(ctx, "ProfileService", "DeleteProfile")
	defer func() { finish(err) }()

	profile, err = s.profiles.DeleteByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.images.Remove(ctx, profile.AvatarPath, profile.BannerPath)
	cache.InvalidateUser(ctx, userID)
	return profile, nil
}
