package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/avolkov/storefront/internal/identity"
	"github.com/avolkov/storefront/internal/repository"
)

// Manager owns at most one live session per user identity. Sessions open
// lazily on first use and are torn down on logout, so an identity switch
// always re-subscribes against the new user with a fresh, empty store.
type Manager struct {
	carts    repository.CartRepository
	activity ActivityPublisher
	log      *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

func NewManager(carts repository.CartRepository, activity ActivityPublisher, log *zap.Logger) *Manager {
	return &Manager{
		carts:    carts,
		activity: activity,
		log:      log,
		sessions: make(map[string]*Session),
	}
}

// Session returns the user's live session, opening one if needed.
func (m *Manager) Session(ctx context.Context, userID string) (*Session, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrSessionClosed
	}
	if s, ok := m.sessions[userID]; ok {
		return s, nil
	}

	s, err := Open(ctx, userID, m.carts, m.activity, m.log)
	if err != nil {
		return nil, err
	}
	m.sessions[userID] = s
	return s, nil
}

// Drop closes and removes the user's session, if any.
func (m *Manager) Drop(userID string) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()

	if ok {
		s.Close()
	}
}

// Watch consumes identity events, releasing the session of any user who
// logs out. Returns when the event stream closes or ctx is done.
func (m *Manager) Watch(ctx context.Context, events <-chan identity.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Kind == identity.EventLogout {
				m.log.Info("closing cart session on logout", zap.String("user_id", ev.UserID))
				m.Drop(ev.UserID)
			}
		}
	}
}

// Close tears down every session. The manager rejects further use.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
