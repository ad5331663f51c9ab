package repository

import (
	"context"
	"errors"

	"sociallink/internal/models"
	"sociallink/internal/observability"

	"gorm.io/gorm"
)

// ProfileRepository persists the one-to-one user profile.
type ProfileRepository interface {
	Create(ctx context.Context, profile *models.Profile) error
	GetByUserID(ctx context.Context, userID uint) (*models.Profile, error)
	// Upsert loads the user's profile, creating it when missing, lets apply
	// mutate it and saves the result, all in one transaction.
	Upsert(ctx context.Context, userID uint, apply func(p *models.Profile) error) (*models.Profile, error)
	DeleteByUserID(ctx context.Context, userID uint) (*models.Profile, error)
}

type profileRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db, log: observability.NewRepoLogger("user_profiles")}
}

func (r *profileRepository) Create(ctx context.Context, profile *models.Profile) error {
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		if isUniqueViolation(err) {
			return models.NewConflictError("Profile already exists for this user")
		}
		return models.NewInternalError(err)
	}
	r.log.LogCreate(ctx, "user_id", profile.UserID)
	return nil
}

func (r *profileRepository) GetByUserID(ctx context.Context, userID uint) (*models.Profile, error) {
	var profile models.Profile
	err := readDB(r.db).WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundMessage("Profile not found")
		}
		return nil, models.NewInternalError(err)
	}
	return &profile, nil
}

func (r *profileRepository) Upsert(ctx context.Context, userID uint, apply func(p *models.Profile) error) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(models.Profile{UserID: userID}).FirstOrCreate(&profile).Error; err != nil {
			return err
		}
		if err := apply(&profile); err != nil {
			return err
		}
		return tx.Save(&profile).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			// A concurrent first-or-create won the insert.
			return nil, models.NewRetryableConflictError("Profile is being created, please retry", err)
		}
		r.log.LogError(ctx, err, "upsert")
		return nil, mapError(err, "Profile", userID)
	}
	r.log.LogUpdate(ctx, "user_id", userID)
	return &profile, nil
}

func (r *profileRepository) DeleteByUserID(ctx context.Context, userID uint) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).First(&profile).Error; err != nil {
			return err
		}
		return tx.Delete(&profile).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundMessage("Profile not found")
		}
		return nil, models.NewInternalError(err)
	}
	r.log.LogDelete(ctx, "user_id", userID)
	return &profile, nil
}
