package repository

import (
	"context"
	"errors"

	"sociallink/internal/models"
	"sociallink/internal/observability"

	"gorm.io/gorm"
)

// SuggestionLimit caps the friend suggestion list.
const SuggestionLimit = 10

const pairCondition = "(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)"

// ConnectionRepository defines persistence for the social graph.
type ConnectionRepository interface {
	// CreateIfAbsent inserts conn unless a row for the same unordered pair
	// exists; that row is returned instead and nothing is written.
	CreateIfAbsent(ctx context.Context, conn *models.Connection) (*models.Connection, error)
	GetByID(ctx context.Context, id uint) (*models.Connection, error)
	FindBetween(ctx context.Context, userA, userB uint) (*models.Connection, error)
	// AcceptPending flips a pending row addressed to receiverID. It reports
	// false when no such row exists.
	AcceptPending(ctx context.Context, id, receiverID uint) (bool, error)
	// DeletePending removes a pending row addressed to receiverID.
	DeletePending(ctx context.Context, id, receiverID uint) (bool, error)
	DeleteBetween(ctx context.Context, userA, userB uint) (bool, error)
	ListPendingReceived(ctx context.Context, userID uint) ([]models.Connection, error)
	ListPendingSent(ctx context.Context, userID uint) ([]models.Connection, error)
	ListAll(ctx context.Context, userID uint) ([]models.Connection, error)
	ListConnectedUsers(ctx context.Context, userID uint) ([]models.User, error)
	SuggestUsers(ctx context.Context, userID uint, limit int) ([]models.User, error)
}

type connectionRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewConnectionRepository creates a new connection repository
func NewConnectionRepository(db *gorm.DB) ConnectionRepository {
	return &connectionRepository{db: db, log: observability.NewRepoLogger("users_connections")}
}

func (r *connectionRepository) CreateIfAbsent(ctx context.Context, conn *models.Connection) (*models.Connection, error) {
	var existing *models.Connection
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var found models.Connection
		err := tx.Where(pairCondition, conn.SenderID, conn.ReceiverID, conn.ReceiverID, conn.SenderID).
			First(&found).Error
		switch {
		case err == nil:
			existing = &found
			return nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}
		return tx.Create(conn).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, models.NewRetryableConflictError("A friend request is already pending.", err)
		}
		r.log.LogError(ctx, err, "create")
		return nil, models.NewInternalError(err)
	}
	if existing == nil {
		r.log.LogCreate(ctx, "sender_id", conn.SenderID, "receiver_id", conn.ReceiverID)
	}
	return existing, nil
}

func (r *connectionRepository) GetByID(ctx context.Context, id uint) (*models.Connection, error) {
	var conn models.Connection
	if err := r.db.WithContext(ctx).Preload("Sender").Preload("Receiver").First(&conn, id).Error; err != nil {
		return nil, mapError(err, "Connection", id)
	}
	return &conn, nil
}

func (r *connectionRepository) FindBetween(ctx context.Context, userA, userB uint) (*models.Connection, error) {
	var conn models.Connection
	err := r.db.WithContext(ctx).Where(pairCondition, userA, userB, userB, userA).First(&conn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &conn, nil
}

func (r *connectionRepository) AcceptPending(ctx context.Context, id, receiverID uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Connection{}).
		Where("id = ? AND friend_id = ? AND is_accepted = ?", id, receiverID, false).
		Update("is_accepted", true)
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	if res.RowsAffected > 0 {
		r.log.LogUpdate(ctx, "connection_id", id, "accepted", true)
	}
	return res.RowsAffected > 0, nil
}

func (r *connectionRepository) DeletePending(ctx context.Context, id, receiverID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND friend_id = ? AND is_accepted = ?", id, receiverID, false).
		Delete(&models.Connection{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	if res.RowsAffected > 0 {
		r.log.LogDelete(ctx, "connection_id", id, "reason", "rejected")
	}
	return res.RowsAffected > 0, nil
}

func (r *connectionRepository) DeleteBetween(ctx context.Context, userA, userB uint) (bool, error) {
	res := r.db.WithContext(ctx).Where(pairCondition, userA, userB, userB, userA).Delete(&models.Connection{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	if res.RowsAffected > 0 {
		r.log.LogDelete(ctx, "user_a", userA, "user_b", userB, "reason", "unfriended")
	}
	return res.RowsAffected > 0, nil
}

func (r *connectionRepository) ListPendingReceived(ctx context.Context, userID uint) ([]models.Connection, error) {
	var conns []models.Connection
	if err := readDB(r.db).WithContext(ctx).
		Where("friend_id = ? AND is_accepted = ?", userID, false).
		Preload("Sender").
		Order("created_at DESC").
		Find(&conns).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return conns, nil
}

func (r *connectionRepository) ListPendingSent(ctx context.Context, userID uint) ([]models.Connection, error) {
	var conns []models.Connection
	if err := readDB(r.db).WithContext(ctx).
		Where("user_id = ? AND is_accepted = ?", userID, false).
		Preload("Receiver").
		Order("created_at DESC").
		Find(&conns).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return conns, nil
}

func (r *connectionRepository) ListAll(ctx context.Context, userID uint) ([]models.Connection, error) {
	var conns []models.Connection
	if err := readDB(r.db).WithContext(ctx).
		Where("user_id = ? OR friend_id = ?", userID, userID).
		Preload("Sender").
		Preload("Receiver").
		Order("created_at DESC").
		Find(&conns).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return conns, nil
}

func (r *connectionRepository) ListConnectedUsers(ctx context.Context, userID uint) ([]models.User, error) {
	var users []models.User
	if err := readDB(r.db).WithContext(ctx).
		Table("users").
		Select("users.*").
		Joins("JOIN users_connections c ON (users.id = c.user_id OR users.id = c.friend_id)").
		Where("c.is_accepted = ? AND (c.user_id = ? OR c.friend_id = ?) AND users.id <> ?",
			true, userID, userID, userID).
		Order("users.name ASC").
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// SuggestUsers picks random users with no connection row of any status to
// userID, in one statement.
func (r *connectionRepository) SuggestUsers(ctx context.Context, userID uint, limit int) ([]models.User, error) {
	if limit <= 0 || limit > SuggestionLimit {
		limit = SuggestionLimit
	}
	related := r.db.Model(&models.Connection{}).
		Select("CASE WHEN user_id = ? THEN friend_id ELSE user_id END", userID).
		Where("user_id = ? OR friend_id = ?", userID, userID)

	var users []models.User
	if err := readDB(r.db).WithContext(ctx).
		Where("id <> ?", userID).
		Where("id NOT IN (?)", related).
		Order("RANDOM()").
		Limit(limit).
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}
