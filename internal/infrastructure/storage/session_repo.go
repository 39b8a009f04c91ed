// Package storage provides session storage implementations for the tokencalc hosts.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jbctechsolutions/tokencalc/internal/application/ports"
	domainErrors "github.com/jbctechsolutions/tokencalc/internal/domain/errors"
	"github.com/jbctechsolutions/tokencalc/internal/domain/session"
)

// timeLayout is fixed width so stored timestamps compare correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Compile-time check that SessionRepository implements SessionStore.
var _ ports.SessionStore = (*SessionRepository)(nil)

// SessionRepository implements SessionStore using SQLite.
// The state is stored as JSON in the sessions table.
type SessionRepository struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewSessionRepository creates a new session repository. A ttl of zero
// disables expiry.
func NewSessionRepository(db *sql.DB, ttl time.Duration) *SessionRepository {
	return &SessionRepository{
		db:  db,
		ttl: ttl,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Load retrieves the state of a live session.
func (r *SessionRepository) Load(ctx context.Context, id string) (*session.State, error) {
	var stateJSON, updatedAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT state, updated_at FROM sessions WHERE id = ?`, id,
	).Scan(&stateJSON, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	updated, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse session timestamp: %w", err)
	}
	if r.expired(updated) {
		if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
			return nil, fmt.Errorf("failed to delete expired session: %w", err)
		}
		return nil, notFound(id)
	}

	var st session.State
	if err := json.Unmarshal([]byte(stateJSON), &st); err != nil {
		return nil, domainErrors.WithContext(
			domainErrors.NewError(domainErrors.CodeValidation, "stored session state is corrupt", err),
			"session_id", id,
		)
	}
	return &st, nil
}

// Save stores state under id and refreshes the session's expiry.
func (r *SessionRepository) Save(ctx context.Context, id string, state *session.State) error {
	if id == "" {
		return domainErrors.NewError(domainErrors.CodeValidation, "session ID is required", nil)
	}
	if state == nil {
		return domainErrors.NewError(domainErrors.CodeValidation, "session state is required", nil)
	}

	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session state: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, state, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			updated_at = excluded.updated_at
	`, id, string(stateJSON), r.now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete removes a session. Unknown ids are ignored.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Cleanup removes every expired session.
func (r *SessionRepository) Cleanup(ctx context.Context) (int, error) {
	if r.ttl <= 0 {
		return 0, nil
	}

	cutoff := r.now().Add(-r.ttl).UTC().Format(timeLayout)
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count removed sessions: %w", err)
	}
	return int(n), nil
}

// Count returns the number of stored sessions, expired or not.
func (r *SessionRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return n, nil
}

func (r *SessionRepository) expired(updated time.Time) bool {
	return r.ttl > 0 && r.now().Sub(updated) > r.ttl
}

func notFound(id string) error {
	return domainErrors.WithContext(
		domainErrors.NewError(domainErrors.CodeNotFound, "session not found", domainErrors.ErrSessionNotFound),
		"session_id", id,
	)
}
