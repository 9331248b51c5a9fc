package ports

import (
	"context"

	"github.com/growex/quotebot/internal/domain"
)

// OperatorNotifier delivers outbound notifications (leads, expiry alerts) to
// the human-operator channel. Delivery is fire-and-forget from user flows: a
// failure is logged by the caller and never surfaced into the conversation.
type OperatorNotifier interface {
	Notify(ctx context.Context, notification domain.Notification) error
}
