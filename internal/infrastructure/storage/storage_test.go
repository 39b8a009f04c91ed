package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbctechsolutions/tokencalc/internal/adapters/sqlite"
	"github.com/jbctechsolutions/tokencalc/internal/application/ports"
	"github.com/jbctechsolutions/tokencalc/internal/domain/encoding"
	domainErrors "github.com/jbctechsolutions/tokencalc/internal/domain/errors"
	"github.com/jbctechsolutions/tokencalc/internal/domain/session"
	"github.com/jbctechsolutions/tokencalc/internal/domain/tokencount"
)

// clock is a settable time source shared by a store under test.
type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }
func newClock() *clock                   { return &clock{t: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)} }

func newSQLiteStore(t *testing.T, ttl time.Duration, c *clock) *SessionRepository {
	t.Helper()
	conn, err := sqlite.NewConnection(sqlite.MemoryPath)
	require.NoError(t, err)
	require.NoError(t, conn.Open())
	t.Cleanup(func() { conn.Close() })

	db, err := conn.DB()
	require.NoError(t, err)

	repo := NewSessionRepository(db, ttl)
	repo.now = c.now
	return repo
}

func newMemoryStore(ttl time.Duration, c *clock) *MemoryStore {
	s := NewMemoryStore(ttl)
	s.now = c.now
	return s
}

// storeFactories runs each contract test against every implementation.
func storeFactories() map[string]func(t *testing.T, ttl time.Duration, c *clock) ports.SessionStore {
	return map[string]func(t *testing.T, ttl time.Duration, c *clock) ports.SessionStore{
		"memory": func(_ *testing.T, ttl time.Duration, c *clock) ports.SessionStore { return newMemoryStore(ttl, c) },
		"sqlite": func(t *testing.T, ttl time.Duration, c *clock) ports.SessionStore { return newSQLiteStore(t, ttl, c) },
	}
}

func sampleState() *session.State {
	st := session.NewState()
	st.LastResult = &tokencount.Result{Count: 6, Encoding: encoding.CL100KBase}
	st.PendingClear = true
	st.Mode = session.ModePDF
	st.Encoding = encoding.P50KBase
	st.Text = "draft text"
	st.FileName = "doc.pdf"
	st.PageWarnings = []session.PageWarning{{Page: 2, Message: "bad stream"}}
	return st
}

func TestSessionStore_RoundTrip(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t, time.Hour, newClock())

			in := sampleState()
			require.NoError(t, store.Save(ctx, "s-1", in))

			out, err := store.Load(ctx, "s-1")
			require.NoError(t, err)
			require.NotNil(t, out.LastResult)
			assert.Equal(t, *in.LastResult, *out.LastResult)
			assert.True(t, out.PendingClear)
			assert.Equal(t, session.ModePDF, out.Mode)
			assert.Equal(t, encoding.P50KBase, out.Encoding)
			assert.Equal(t, "draft text", out.Text)
			assert.Equal(t, "doc.pdf", out.FileName)
			assert.Equal(t, in.PageWarnings, out.PageWarnings)

			// callers do not share state with the store
			out.Text = "mutated"
			again, err := store.Load(ctx, "s-1")
			require.NoError(t, err)
			assert.Equal(t, "draft text", again.Text)
		})
	}
}

func TestSessionStore_SaveOverwrites(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t, time.Hour, newClock())

			require.NoError(t, store.Save(ctx, "s-1", sampleState()))
			require.NoError(t, store.Save(ctx, "s-1", session.NewState()))

			out, err := store.Load(ctx, "s-1")
			require.NoError(t, err)
			assert.Nil(t, out.LastResult)
			assert.Equal(t, session.ModeText, out.Mode)
		})
	}
}

func TestSessionStore_NotFound(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			_, err := factory(t, time.Hour, newClock()).Load(context.Background(), "missing")
			require.Error(t, err)
			assert.ErrorIs(t, err, domainErrors.ErrSessionNotFound)
			assert.Equal(t, domainErrors.CodeNotFound, domainErrors.CodeOf(err))
		})
	}
}

func TestSessionStore_Delete(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t, time.Hour, newClock())

			require.NoError(t, store.Save(ctx, "s-1", sampleState()))
			require.NoError(t, store.Delete(ctx, "s-1"))
			require.NoError(t, store.Delete(ctx, "never-existed"))

			_, err := store.Load(ctx, "s-1")
			assert.ErrorIs(t, err, domainErrors.ErrSessionNotFound)
		})
	}
}

func TestSessionStore_Expiry(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := newClock()
			store := factory(t, 30*time.Minute, c)

			require.NoError(t, store.Save(ctx, "old", sampleState()))
			c.advance(20 * time.Minute)
			require.NoError(t, store.Save(ctx, "fresh", sampleState()))

			// saving refreshes expiry
			c.advance(15 * time.Minute)
			_, err := store.Load(ctx, "old")
			assert.ErrorIs(t, err, domainErrors.ErrSessionNotFound, "old session should have expired")
			_, err = store.Load(ctx, "fresh")
			assert.NoError(t, err)
		})
	}
}

func TestSessionStore_Cleanup(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := newClock()
			store := factory(t, time.Minute, c)

			require.NoError(t, store.Save(ctx, "a", sampleState()))
			require.NoError(t, store.Save(ctx, "b", sampleState()))
			c.advance(2 * time.Minute)
			require.NoError(t, store.Save(ctx, "c", sampleState()))

			removed, err := store.Cleanup(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, removed)

			_, err = store.Load(ctx, "c")
			assert.NoError(t, err)
		})
	}
}

func TestSessionStore_ZeroTTLNeverExpires(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := newClock()
			store := factory(t, 0, c)

			require.NoError(t, store.Save(ctx, "s", sampleState()))
			c.advance(24 * 365 * time.Hour)

			removed, err := store.Cleanup(ctx)
			require.NoError(t, err)
			assert.Equal(t, 0, removed)
			_, err = store.Load(ctx, "s")
			assert.NoError(t, err)
		})
	}
}

func TestSessionRepository_Validation(t *testing.T) {
	repo := newSQLiteStore(t, time.Hour, newClock())
	ctx := context.Background()

	err := repo.Save(ctx, "", session.NewState())
	assert.Equal(t, domainErrors.CodeValidation, domainErrors.CodeOf(err))

	err = repo.Save(ctx, "s", nil)
	assert.Equal(t, domainErrors.CodeValidation, domainErrors.CodeOf(err))
}

func TestSessionRepository_CorruptState(t *testing.T) {
	repo := newSQLiteStore(t, time.Hour, newClock())
	ctx := context.Background()

	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO sessions (id, state, updated_at) VALUES (?, ?, ?)`,
		"bad", "{not json", repo.now().Format(timeLayout))
	require.NoError(t, err)

	_, err = repo.Load(ctx, "bad")
	assert.Equal(t, domainErrors.CodeValidation, domainErrors.CodeOf(err))
}

func TestSessionRepository_Count(t *testing.T) {
	repo := newSQLiteStore(t, time.Hour, newClock())
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "a", sampleState()))
	require.NoError(t, repo.Save(ctx, "b", sampleState()))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMemoryStore_LoadKeepsSessionRefreshedDuringExpiry(t *testing.T) {
	ctx := context.Background()
	c := newClock()
	s := NewMemoryStore(time.Hour)
	s.now = c.now

	stale := session.NewState()
	stale.Text = "stale"
	require.NoError(t, s.Save(ctx, "sess", stale))
	c.advance(2 * time.Hour)

	// Refresh the session after Load has seen it expired but before it
	// takes the write lock.
	refreshed := session.NewState()
	refreshed.Text = "fresh"
	saving := false
	s.now = func() time.Time {
		if !saving {
			saving = true
			require.NoError(t, s.Save(ctx, "sess", refreshed))
		}
		return c.now()
	}

	got, err := s.Load(ctx, "sess")
	require.NoError(t, err)
	assert.Equal(t, "fresh", got.Text)
	assert.Equal(t, 1, s.Count())
}

func TestMemoryStore_Count(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "a", sampleState()))
	assert.Equal(t, 1, store.Count())
}

func TestStartCleanupTicker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewMemoryStore(time.Millisecond)
	require.NoError(t, store.Save(ctx, "short-lived", sampleState()))

	StartCleanupTicker(ctx, store, 5*time.Millisecond, nil)

	assert.Eventually(t, func() bool { return store.Count() == 0 }, time.Second, 5*time.Millisecond)
}
