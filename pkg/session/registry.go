package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/pixielabs/pixie-wallet/pkg/identity"
)

// Registry owns one Store per signed-in user. Stores are created on the
// first observed session and dropped when their session clears, so a user's
// subscribers are torn down exactly once per sign-out.
type Registry struct {
	identity    identity.Service
	logger      *zap.Logger
	onSignedOut func(userID string)

	mu     sync.Mutex
	stores map[string]*Store
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithSignedOutHook registers a callback invoked after a user's session
// clears, with the user's store already removed from the registry.
func WithSignedOutHook(fn func(userID string)) RegistryOption {
	return func(r *Registry) {
		r.onSignedOut = fn
	}
}

// NewRegistry creates a session registry backed by the identity service.
func NewRegistry(identitySvc identity.Service, logger *zap.Logger, opts ...RegistryOption) *Registry {
	r := &Registry{
		identity: identitySvc,
		logger:   logger,
		stores:   make(map[string]*Store),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Observe records a session resolved for a request. A nil session or one
// without a user id is ignored; the guard rejects those before they reach
// any handler that observes.
func (r *Registry) Observe(sess *identity.Session) {
	if sess == nil || sess.User.ID == "" {
		return
	}
	r.forUser(sess.User.ID).Set(sess)
}

// ForUser returns the user's store, or nil when no session has been
// observed for that user.
func (r *Registry) ForUser(userID string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stores[userID]
}

// Clear drops the user's session locally without revoking it remotely.
// Subscribers observe the nil session.
func (r *Registry) Clear(userID string) {
	if store := r.ForUser(userID); store != nil {
		store.Set(nil)
	}
}

// SignOut revokes the user's session and clears it. Revocation is
// best-effort; subscribers observe the nil session either way.
func (r *Registry) SignOut(ctx context.Context, userID string) {
	if store := r.ForUser(userID); store != nil {
		store.SignOut(ctx)
	}
}

// Close tears down every store without firing sign-out hooks.
func (r *Registry) Close() {
	r.mu.Lock()
	stores := r.stores
	r.stores = make(map[string]*Store)
	r.mu.Unlock()

	for _, store := range stores {
		store.Close()
	}
}

func (r *Registry) forUser(userID string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	if store, ok := r.stores[userID]; ok {
		return store
	}

	store := NewStore(r.identity, r.logger)
	store.OnChange(func(sess *identity.Session) {
		if sess != nil {
			return
		}
		r.drop(userID, store)
		if r.onSignedOut != nil {
			r.onSignedOut(userID)
		}
	})
	r.stores[userID] = store

	return store
}

// drop removes the store only if it is still the registered one, so a
// session observed between the clear and the drop is not lost.
func (r *Registry) drop(userID string, store *Store) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stores[userID] == store {
		delete(r.stores, userID)
		store.Close()
	}
}
