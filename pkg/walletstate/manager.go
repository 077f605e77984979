package walletstate

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pixielabs/pixie-wallet/pkg/walletstore"
)

// ChangeFeed delivers wallet table changes for a user. Satisfied by
// *walletstore.Listener.
type ChangeFeed interface {
	Subscribe(userID string, handler walletstore.ChangeHandler)
	Unsubscribe(userID string)
}

// Manager owns one Store per signed-in user. Stores are created lazily on
// first use and torn down on sign-out. Each store refreshes itself when
// the change feed reports a wallet mutation for its user, so all server
// instances converge on the database state.
type Manager struct {
	wallets WalletReader
	feed    ChangeFeed
	cfg     Config
	logger  *zap.Logger

	mu     sync.Mutex
	stores map[string]*Store
}

// NewManager creates a wallet state manager.
func NewManager(wallets WalletReader, feed ChangeFeed, cfg Config, logger *zap.Logger) *Manager {
	return &Manager{
		wallets: wallets,
		feed:    feed,
		cfg:     cfg,
		logger:  logger,
		stores:  make(map[string]*Store),
	}
}

// ForUser returns the user's store, creating and wiring it on first use.
func (m *Manager) ForUser(userID string) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()

	if store, ok := m.stores[userID]; ok {
		return store
	}

	store := NewStore(userID, m.wallets, m.cfg, m.logger)
	m.stores[userID] = store

	if m.feed != nil {
		m.feed.Subscribe(userID, func(walletstore.ChangeEvent) {
			// Handlers run on the listener goroutine and must not
			// block, so the refresh runs on its own goroutine with a
			// bounded lifetime.
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				store.Refresh(ctx)
			}()
		})
	}

	return store
}

// Release tears down the user's store, typically on sign-out.
func (m *Manager) Release(userID string) {
	m.mu.Lock()
	store, ok := m.stores[userID]
	delete(m.stores, userID)
	m.mu.Unlock()

	if !ok {
		return
	}
	if m.feed != nil {
		m.feed.Unsubscribe(userID)
	}
	store.Close()
}

// Close tears down every store.
func (m *Manager) Close() {
	m.mu.Lock()
	stores := m.stores
	m.stores = make(map[string]*Store)
	m.mu.Unlock()

	for userID, store := range stores {
		if m.feed != nil {
			m.feed.Unsubscribe(userID)
		}
		store.Close()
	}
}
