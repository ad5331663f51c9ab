package service

import (
	"context"

	"sociallink/internal/models"
	"sociallink/internal/notifications"
	"sociallink/internal/observability"
	"sociallink/internal/repository"
)

// User-facing outcomes of social graph mutations.
const (
	MsgFriendRequestSent     = "Friend request sent successfully."
	MsgFriendRequestAccepted = "Friend request accepted."
	MsgFriendRequestRejected = "Friend request rejected."
	MsgUnfriended            = "Successfully unfriended the user."

	msgSelfRequest       = "You cannot send a friend request to yourself."
	msgAlreadyConnected  = "You are already connected."
	msgRequestPending    = "A friend request is already pending."
	msgInvalidResponse   = "Invalid connection ID or you are not authorized to respond to this request."
	msgConnectionMissing = "Connection not found or not authorized to unfriend this user."
)

// ConnectionStatusResult is the relationship between the caller and another user.
type ConnectionStatusResult struct {
	Status       models.ConnectionStatus `json:"status"`
	ConnectionID uint                    `json:"connection_id,omitempty"`
}

// ConnectionService provides friend-request and connection business logic.
type ConnectionService struct {
	connections repository.ConnectionRepository
	users       repository.UserRepository
	notifier    UserNotifier
}

func NewConnectionService(
	connections repository.ConnectionRepository,
	users repository.UserRepository,
	notifier UserNotifier,
) *ConnectionService {
	return &ConnectionService{connections: connections, users: users, notifier: notifier}
}

func existingConnectionError(existing *models.Connection) error {
	if existing.IsAccepted {
		return models.NewConflictError(msgAlreadyConnected)
	}
	return models.NewConflictError(msgRequestPending)
}

// SendRequest creates a pending connection from senderID to receiverID.
func (s *ConnectionService) SendRequest(ctx context.Context, senderID, receiverID uint) (conn *models.Connection, err error) {
	ctx, finish := observability.StartServiceSpan(ctx, "ConnectionService", "SendRequest")
	defer func() { finish(err) }()

	if receiverID == 0 {
		return nil, models.NewValidationError("Receiver ID required")
	}
	if senderID == receiverID {
		return nil, models.NewValidationError(msgSelfRequest)
	}
	exists, err := s.users.Exists(ctx, receiverID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, models.NewNotFoundMessage("User not found")
	}

	existing, err := s.connections.FindBetween(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, existingConnectionError(existing)
	}

	created := &models.Connection{SenderID: senderID, ReceiverID: receiverID}
	existing, err = s.connections.CreateIfAbsent(ctx, created)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, existingConnectionError(existing)
	}

	conn, err = s.connections.GetByID(ctx, created.ID)
	if err != nil {
		return nil, err
	}
	observability.ConnectionEvents.WithLabelValues("request_sent").Inc()
	notify(ctx, s.notifier, receiverID, notifications.EventFriendRequestReceived, connectionEvent(conn, conn.Sender))
	return conn, nil
}

// RespondToRequest accepts or rejects a pending request addressed to responderID.
// Rejection deletes the row.
func (s *ConnectionService) RespondToRequest(ctx context.Context, responderID, connectionID uint, accept bool) (conn *models.Connection, err error) {
	ctx, finish := observability.StartServiceSpan(ctx, "ConnectionService", "RespondToRequest")
	defer func() { finish(err) }()

	if connectionID == 0 {
		return nil, models.NewValidationError("Connection ID required")
	}
	invalid := models.NewForbiddenError(msgInvalidResponse)

	if accept {
		ok, err := s.connections.AcceptPending(ctx, connectionID, responderID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, invalid
		}
		conn, err = s.connections.GetByID(ctx, connectionID)
		if err != nil {
			return nil, err
		}
		observability.ConnectionEvents.WithLabelValues("accepted").Inc()
		notify(ctx, s.notifier, conn.SenderID, notifications.EventFriendRequestAccepted, connectionEvent(conn, conn.Receiver))
		return conn, nil
	}

	conn, err = s.connections.GetByID(ctx, connectionID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, invalid
		}
		return nil, err
	}
	if conn.IsAccepted || conn.ReceiverID != responderID {
		return nil, invalid
	}
	ok, err := s.connections.DeletePending(ctx, connectionID, responderID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, invalid
	}
	observability.ConnectionEvents.WithLabelValues("rejected").Inc()
	return conn, nil
}

// Unfriend deletes the connection between the two users in either
// direction, pending or accepted.
func (s *ConnectionService) Unfriend(ctx context.Context, actorID, otherID uint) (err error) {
	ctx, finish := observability.StartServiceSpan(ctx, "ConnectionService", "Unfriend")
	defer func() { finish(err) }()

	if otherID == 0 || otherID == actorID {
		return models.NewNotFoundMessage(msgConnectionMissing)
	}
	ok, err := s.connections.DeleteBetween(ctx, actorID, otherID)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewNotFoundMessage(msgConnectionMissing)
	}
	observability.ConnectionEvents.WithLabelValues("unfriended").Inc()
	return nil
}

// ListFriendRequests returns pending requests addressed to userID, newest first.
func (s *ConnectionService) ListFriendRequests(ctx context.Context, userID uint) ([]models.Connection, error) {
	return s.connections.ListPendingReceived(ctx, userID)
}

// ListSentRequests returns pending requests sent by userID.
func (s *ConnectionService) ListSentRequests(ctx context.Context, userID uint) ([]models.Connection, error) {
	return s.connections.ListPendingSent(ctx, userID)
}

// ListActiveConnections returns the users connected to userID.
func (s *ConnectionService) ListActiveConnections(ctx context.Context, userID uint) ([]models.User, error) {
	return s.connections.ListConnectedUsers(ctx, userID)
}

// ListAllConnections returns every row involving userID.
func (s *ConnectionService) ListAllConnections(ctx context.Context, userID uint) ([]models.Connection, error) {
	return s.connections.ListAll(ctx, userID)
}

// SuggestFriends returns up to SuggestionLimit random users with no
// connection to userID.
func (s *ConnectionService) SuggestFriends(ctx context.Context, userID uint) ([]models.User, error) {
	return s.connections.SuggestUsers(ctx, userID, repository.SuggestionLimit)
}

// ConnectionStatus reports how userID relates to otherID.
func (s *ConnectionService) ConnectionStatus(ctx context.Context, userID, otherID uint) (*ConnectionStatusResult, error) {
	if otherID == 0 {
		return nil, models.NewValidationError("User ID required")
	}
	if otherID == userID {
		return &ConnectionStatusResult{Status: models.ConnectionNone}, nil
	}
	exists, err := s.users.Exists(ctx, otherID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, models.NewNotFoundMessage("User not found")
	}
	conn, err := s.connections.FindBetween(ctx, userID, otherID)
	if err != nil {
		return nil, err
	}
	res := &ConnectionStatusResult{Status: conn.StatusFor(userID)}
	if conn != nil {
		res.ConnectionID = conn.ID
	}
	return res, nil
}

func connectionEvent(conn *models.Connection, from *models.User) map[string]interface{} {
	payload := map[string]interface{}{"connection_id": conn.ID}
	if from != nil {
		payload["from"] = from.Summary()
	}
	return payload
}
