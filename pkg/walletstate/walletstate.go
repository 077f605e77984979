// Package walletstate maintains the per-user wallet view: the primary
// wallet, its display balance, in-flight operation flags, and the last
// error. Consumers subscribe for changes instead of polling; writes from
// other server instances arrive through the wallet change listener.
package walletstate

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pixielabs/pixie-wallet/pkg/wallet"
)

// WalletReader fetches the wallet view this store caches.
type WalletReader interface {
	EnhancedDetails(ctx context.Context, userID string) (*wallet.EnhancedDetails, error)
}

// State is one user's wallet view. Operation flags are independent: a
// refresh can run while a send is still pending.
type State struct {
	Wallet     *wallet.EnhancedDetails
	Loading    bool
	Creating   bool
	Sending    bool
	Requesting bool
	Err        string
}

// Listener receives the state after every change. Listeners run
// synchronously on the mutating goroutine and must not block.
type Listener func(State)

// Config bounds the delayed refreshes after chain-mutating operations.
type Config struct {
	// SendRefreshDelay is the wait before refreshing after a send, giving
	// the chain time to reflect the new balance.
	SendRefreshDelay time.Duration

	// FaucetRefreshDelay is the wait before refreshing after a faucet
	// request. Faucets settle slower than direct sends.
	FaucetRefreshDelay time.Duration
}

// Store holds one user's wallet state.
type Store struct {
	userID  string
	wallets WalletReader
	cfg     Config
	logger  *zap.Logger

	mu        sync.Mutex
	state     State
	listeners map[int]Listener
	nextID    int
	closed    bool

	cancelMu      sync.Mutex
	cancelPending context.CancelFunc
	wg            sync.WaitGroup
}

// NewStore creates a wallet state store for one user.
func NewStore(userID string, wallets WalletReader, cfg Config, logger *zap.Logger) *Store {
	if cfg.SendRefreshDelay <= 0 {
		cfg.SendRefreshDelay = time.Second
	}
	if cfg.FaucetRefreshDelay <= 0 {
		cfg.FaucetRefreshDelay = 3 * time.Second
	}
	return &Store{
		userID:    userID,
		wallets:   wallets,
		cfg:       cfg,
		logger:    logger,
		listeners: make(map[int]Listener),
	}
}

// UserID returns the user this store belongs to.
func (s *Store) UserID() string {
	return s.userID
}

// State returns a snapshot of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
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

// Refresh re-fetches the wallet view. Fetch failures land in the error
// string; the previous wallet value is kept so the view degrades instead
// of blanking.
func (s *Store) Refresh(ctx context.Context) {
	s.update(func(st *State) { st.Loading = true })

	details, err := s.wallets.EnhancedDetails(ctx, s.userID)
	if err != nil {
		s.logger.Warn("Wallet refresh failed",
			zap.String("user_id", s.userID),
			zap.Error(err))
		s.update(func(st *State) {
			st.Loading = false
			st.Err = err.Error()
		})
		return
	}

	s.update(func(st *State) {
		st.Loading = false
		st.Wallet = details
		st.Err = ""
	})
}

// RefreshAfter schedules a refresh once delay elapses. A newer schedule
// supersedes a pending one. Close cancels outstanding schedules.
func (s *Store) RefreshAfter(ctx context.Context, delay time.Duration) {
	s.cancelMu.Lock()
	if s.cancelPending != nil {
		s.cancelPending()
	}
	refreshCtx, cancel := context.WithCancel(ctx)
	s.cancelPending = cancel
	s.cancelMu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		select {
		case <-refreshCtx.Done():
			return
		case <-time.After(delay):
		}
		s.Refresh(refreshCtx)
	}()
}

// RefreshAfterSend schedules the post-send refresh.
func (s *Store) RefreshAfterSend(ctx context.Context) {
	s.RefreshAfter(ctx, s.cfg.SendRefreshDelay)
}

// RefreshAfterFaucet schedules the post-faucet refresh.
func (s *Store) RefreshAfterFaucet(ctx context.Context) {
	s.RefreshAfter(ctx, s.cfg.FaucetRefreshDelay)
}

// SetCreating toggles the wallet creation flag.
func (s *Store) SetCreating(v bool) {
	s.update(func(st *State) { st.Creating = v })
}

// SetSending toggles the transaction submission flag.
func (s *Store) SetSending(v bool) {
	s.update(func(st *State) { st.Sending = v })
}

// SetRequesting toggles the faucet request flag.
func (s *Store) SetRequesting(v bool) {
	s.update(func(st *State) { st.Requesting = v })
}

// SetError records an operation error for display.
func (s *Store) SetError(msg string) {
	s.update(func(st *State) { st.Err = msg })
}

// ClearError clears the displayed error.
func (s *Store) ClearError() {
	s.update(func(st *State) { st.Err = "" })
}

// Close cancels pending refreshes, drops listeners and freezes the store.
func (s *Store) Close() {
	s.cancelMu.Lock()
	if s.cancelPending != nil {
		s.cancelPending()
		s.cancelPending = nil
	}
	s.cancelMu.Unlock()
	s.wg.Wait()

	s.mu.Lock()
	s.closed = true
	s.listeners = make(map[int]Listener)
	s.mu.Unlock()
}

func (s *Store) update(mutate func(*State)) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	mutate(&s.state)
	state := s.state
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(state)
	}
}
