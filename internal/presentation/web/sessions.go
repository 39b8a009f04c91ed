package web

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/jbctechsolutions/tokencalc/internal/application/controller"
	domainErrors "github.com/jbctechsolutions/tokencalc/internal/domain/errors"
	"github.com/jbctechsolutions/tokencalc/internal/domain/session"
	"github.com/jbctechsolutions/tokencalc/internal/infrastructure/logging"
)

// SessionCookieName names the cookie holding the browser's session id.
const SessionCookieName = "tokencalc_session"

// sessionLocks hands out one mutex per session id so that a session's
// load-handle-save cycle never interleaves with another request's.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sessionLock)}
}

// lock blocks until id is free and returns the matching unlock.
func (l *sessionLocks) lock(id string) func() {
	l.mu.Lock()
	sl, ok := l.locks[id]
	if !ok {
		sl = &sessionLock{}
		l.locks[id] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.mu.Lock()
	return func() {
		sl.mu.Unlock()
		l.mu.Lock()
		sl.refs--
		if sl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

func (l *sessionLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// sessionID returns the request's session id, issuing a new cookie when
// the request carries none or a malformed one.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.config.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// transition loads the session, applies events and saves the result.
func (s *Server) transition(ctx context.Context, id string, events ...controller.Event) (*session.State, controller.Render, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	ctx = logging.WithSessionID(ctx, id)

	st, err := s.store.Load(ctx, id)
	if err != nil {
		if domainErrors.CodeOf(err) != domainErrors.CodeNotFound {
			return nil, controller.Render{}, err
		}
		st = session.NewState()
		st.Encoding = s.config.DefaultEncoding
	}

	next, render := s.controller.Apply(ctx, st, events...)
	if err := s.store.Save(ctx, id, next); err != nil {
		return nil, controller.Render{}, err
	}
	return next, render, nil
}
