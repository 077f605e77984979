package walletstore

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.uber.org/zap"
)

// NotifyChannel is the postgres channel the wallets trigger notifies on.
const NotifyChannel = "wallet_changes"

// ChangeEvent describes one wallet table mutation, as emitted by the
// wallets notify trigger.
type ChangeEvent struct {
	Op       string `json:"op"`
	UserID   string `json:"user_id"`
	WalletID string `json:"wallet_id"`
}

// ChangeHandler receives wallet change events. Handlers run on the
// listener goroutine and must not block.
type ChangeHandler func(ChangeEvent)

// Listener fans wallet change notifications out to registered handlers.
// Every server instance sharing the database observes the same stream, so
// state converges across instances without polling.
type Listener struct {
	ln     *pgdriver.Listener
	logger *zap.Logger

	mu       sync.RWMutex
	handlers map[string][]ChangeHandler
	all      []ChangeHandler

	cancel context.CancelFunc
	done   chan struct{}
}

// NewListener creates a wallet change listener on db.
func NewListener(db *bun.DB, logger *zap.Logger) *Listener {
	return &Listener{
		ln:       pgdriver.NewListener(db),
		logger:   logger,
		handlers: make(map[string][]ChangeHandler),
	}
}

// Start subscribes to the notify channel and begins dispatching events.
// Runs until Close or context cancellation.
func (l *Listener) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})

	if err := l.ln.Listen(ctx, NotifyChannel); err != nil {
		cancel()
		close(l.done)
		return err
	}

	go l.run(ctx)
	return nil
}

func (l *Listener) run(ctx context.Context) {
	defer close(l.done)

	for notif := range l.ln.Channel() {
		var event ChangeEvent
		if err := json.Unmarshal([]byte(notif.Payload), &event); err != nil {
			l.logger.Warn("Dropping malformed wallet notification",
				zap.String("payload", notif.Payload),
				zap.Error(err))
			continue
		}
		l.dispatch(event)
	}

	if ctx.Err() == nil {
		l.logger.Warn("Wallet notification channel closed")
	}
}

func (l *Listener) dispatch(event ChangeEvent) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, h := range l.all {
		h(event)
	}
	for _, h := range l.handlers[event.UserID] {
		h(event)
	}
}

// Subscribe registers a handler for one user's wallet changes.
func (l *Listener) Subscribe(userID string, handler ChangeHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers[userID] = append(l.handlers[userID], handler)
}

// SubscribeAll registers a handler for every wallet change.
func (l *Listener) SubscribeAll(handler ChangeHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.all = append(l.all, handler)
}

// Unsubscribe drops all handlers registered for a user.
func (l *Listener) Unsubscribe(userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.handlers, userID)
}

// Close stops dispatching and tears down the postgres subscription.
func (l *Listener) Close(ctx context.Context) error {
	if l.cancel != nil {
		l.cancel()
	}
	err := l.ln.Close()
	if l.done != nil {
		select {
		case <-l.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
