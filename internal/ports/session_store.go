package ports

import (
	"context"

	"github.com/growex/quotebot/internal/domain"
)

// SessionStore keeps per-user conversation sessions. Get returns nil when the
// user has no active session (not an error). Serialization of access to one
// user's session is the caller's responsibility; stores only guarantee that
// individual operations are safe under concurrency.
type SessionStore interface {
	Get(ctx context.Context, userID string) (*domain.Session, error)
	Put(ctx context.Context, session *domain.Session) error
	Delete(ctx context.Context, userID string) error
	Close() error
}
