package ports

import (
	"context"

	"github.com/jbctechsolutions/tokencalc/internal/domain/session"
)

// -----------------------------------------------------------------------------
// Session Storage Port
// -----------------------------------------------------------------------------

// SessionStore is the host runtime's get/set storage for per-user session
// state, keyed by an opaque string identifier. State lives only as long as
// the session: entries idle for longer than the store's TTL are treated as
// ended.
type SessionStore interface {
	// Load returns the stored state for id.
	// Returns a NOT_FOUND domain error wrapping ErrSessionNotFound if the
	// session does not exist or has expired.
	Load(ctx context.Context, id string) (*session.State, error)

	// Save stores state under id, replacing any previous value and
	// refreshing the session's expiry.
	Save(ctx context.Context, id string, state *session.State) error

	// Delete removes the session. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error

	// Cleanup removes expired sessions and returns how many were removed.
	Cleanup(ctx context.Context) (int, error)
}
