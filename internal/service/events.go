package service

import (
	"context"

	"sociallink/internal/observability"
)

// UserNotifier delivers a realtime event to one user.
type UserNotifier interface {
	Notify(ctx context.Context, userID uint, eventType string, payload any) error
}

// notify is fire-and-forget: the mutation has already committed, so a
// delivery failure is only logged.
func notify(ctx context.Context, n UserNotifier, userID uint, eventType string, payload any) {
	if n == nil || userID == 0 {
		return
	}
	if err := n.Notify(context.WithoutCancel(ctx), userID, eventType, payload); err != nil {
		observability.LogAsyncOperationError(ctx, "notify_"+eventType, err, "user_id", userID)
	}
}
