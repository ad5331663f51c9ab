package models

import (
	"time"
)

// Connection is a directed friend edge. IsAccepted is false while the
// request is pending. Rejection and unfriending delete the row, so there is
// no declined state.
type Connection struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SenderID   uint      `gorm:"column:user_id;not null;index:idx_connections_sender" json:"user_id"`
	ReceiverID uint      `gorm:"column:friend_id;not null;index:idx_connections_receiver" json:"friend_id"`
	IsAccepted bool      `gorm:"not null;default:false;index" json:"is_accepted"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Sender   *User `gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Receiver *User `gorm:"foreignKey:ReceiverID;constraint:OnDelete:CASCADE" json:"friend,omitempty"`
}

// TableName specifies the table name for GORM
func (Connection) TableName() string {
	return "users_connections"
}

// Other returns the id of the party that is not userID.
func (c *Connection) Other(userID uint) uint {
	if c.SenderID == userID {
		return c.ReceiverID
	}
	return c.SenderID
}

// Involves reports whether userID is either party.
func (c *Connection) Involves(userID uint) bool {
	return c.SenderID == userID || c.ReceiverID == userID
}

// ConnectionStatus describes the relationship between two users from the
// point of view of the first.
type ConnectionStatus string

const (
	ConnectionNone            ConnectionStatus = "none"
	ConnectionPendingSent     ConnectionStatus = "pending_sent"
	ConnectionPendingReceived ConnectionStatus = "pending_received"
	ConnectionConnected       ConnectionStatus = "connected"
)

// StatusFor derives the relationship status of c as seen by userID.
func (c *Connection) StatusFor(userID uint) ConnectionStatus {
	switch {
	case c == nil:
		return ConnectionNone
	case c.IsAccepted:
		return ConnectionConnected
	case c.SenderID == userID:
		return ConnectionPendingSent
	default:
		return ConnectionPendingReceived
	}
}
