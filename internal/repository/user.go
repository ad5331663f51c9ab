package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"sociallink/internal/models"
	"sociallink/internal/observability"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetWithProfile(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Exists(ctx context.Context, id uint) (bool, error)
	SetActive(ctx context.Context, id uint, active bool) error
	SetOTP(ctx context.Context, id uint, otp string, expiresAt time.Time) error
	MarkOTPValidated(ctx context.Context, id uint) error
	UpdatePassword(ctx context.Context, id uint, hash string) error
}

type userRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db, log: observability.NewRepoLogger("users")}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	user.Email = normalizeEmail(user.Email)
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return models.NewConflictError("Email already in use")
		}
		r.log.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	r.log.LogCreate(ctx, "user_id", user.ID)
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := readDB(r.db).WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, mapError(err, "User", id)
	}
	return &user, nil
}

func (r *userRepository) GetWithProfile(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := readDB(r.db).WithContext(ctx).Preload("Profile").First(&user, id).Error; err != nil {
		return nil, mapError(err, "User", id)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundMessage("User not found")
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := readDB(r.db).WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *userRepository) updateColumns(ctx context.Context, id uint, op string, values map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, op)
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	r.log.LogUpdate(ctx, "user_id", id, "op", op)
	return nil
}

func (r *userRepository) SetActive(ctx context.Context, id uint, active bool) error {
	return r.updateColumns(ctx, id, "set_active", map[string]interface{}{"activation_status": active})
}

func (r *userRepository) SetOTP(ctx context.Context, id uint, otp string, expiresAt time.Time) error {
	return r.updateColumns(ctx, id, "set_otp", map[string]interface{}{
		"otp":               otp,
		"otp_expires_at":    expiresAt,
		"validation_status": false,
	})
}

func (r *userRepository) MarkOTPValidated(ctx context.Context, id uint) error {
	return r.updateColumns(ctx, id, "validate_otp", map[string]interface{}{
		"otp":               "",
		"otp_expires_at":    nil,
		"validation_status": true,
	})
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uint, hash string) error {
	return r.updateColumns(ctx, id, "update_password", map[string]interface{}{
		"password":          hash,
		"validation_status": false,
	})
}
