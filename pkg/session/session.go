// Package session tracks the authenticated session lifecycle. The store is
// the single owner of the current session value; everything that depends on
// who is signed in subscribes to it instead of polling the identity service.
package session

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/pixielabs/pixie-wallet/pkg/identity"
)

// Listener receives the new session value after every change. A nil session
// means signed out. Listeners run synchronously on the mutating goroutine
// and must not block.
type Listener func(*identity.Session)

// Store holds the current session and notifies subscribers on change.
type Store struct {
	identity identity.Service
	logger   *zap.Logger

	mu        sync.RWMutex
	current   *identity.Session
	listeners map[int]Listener
	nextID    int
	closed    bool
}

// NewStore creates a session store backed by the identity service.
func NewStore(identitySvc identity.Service, logger *zap.Logger) *Store {
	return &Store{
		identity:  identitySvc,
		logger:    logger,
		listeners: make(map[int]Listener),
	}
}

// Current returns the active session, or nil when signed out.
func (s *Store) Current() *identity.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Set replaces the active session and notifies subscribers. Setting the
// same session value again still notifies; subscribers decide whether the
// change is interesting.
func (s *Store) Set(session *identity.Session) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.current = session
	listeners := s.snapshotLocked()
	s.mu.Unlock()

	for _, l := range listeners {
		l(session)
	}
}

// Refresh re-validates the current session against the identity service.
// An expired or revoked session is cleared.
func (s *Store) Refresh(ctx context.Context) error {
	current := s.Current()
	if current == nil {
		return nil
	}

	refreshed, err := s.identity.GetSession(ctx, current.AccessToken)
	if err != nil {
		if errors.Is(err, identity.ErrNoSession) || current.Expired() {
			s.logger.Info("Session no longer valid, clearing",
				zap.String("user_id", current.User.ID))
			s.Set(nil)
			return nil
		}
		return err
	}

	s.Set(refreshed)
	return nil
}

// SignOut clears the session. The remote revocation is best-effort: a
// failing identity service never blocks local sign-out.
func (s *Store) SignOut(ctx context.Context) {
	current := s.Current()
	if current != nil {
		if err := s.identity.SignOut(ctx, current.AccessToken); err != nil {
			s.logger.Warn("Remote sign-out failed, clearing local session anyway",
				zap.String("user_id", current.User.ID),
				zap.Error(err))
		}
	}
	s.Set(nil)
}

// OnChange registers a listener and returns its unsubscribe function.
func (s *Store) OnChange(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = l

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Close drops all listeners and freezes the store. Further Set calls are
// no-ops.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.listeners = make(map[int]Listener)
}

func (s *Store) snapshotLocked() []Listener {
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	return listeners
}
