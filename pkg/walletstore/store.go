// Package walletstore persists wallet records in PostgreSQL. The database
// is the single source of truth for which wallet is a user's primary; a
// partial unique index enforces at most one primary per user.
package walletstore

import (
	"context"
	"errors"

	"github.com/pixielabs/pixie-wallet/pkg/wallet"
)

// ErrWalletNotFound is returned when a wallet lookup finds no matching record.
var ErrWalletNotFound = errors.New("wallet not found")

// ErrPrimaryExists is returned when inserting a primary wallet for a user
// that already has one. Losers of a concurrent create race see this error
// and re-read the winner's record.
var ErrPrimaryExists = errors.New("user already has a primary wallet")

// Store defines the interface for wallet data persistence.
type Store interface {
	CreateWallet(ctx context.Context, w *wallet.Wallet) error
	GetWallet(ctx context.Context, opts ...QueryOption) (*wallet.Wallet, error)
	ListWallets(ctx context.Context, userID string) ([]*wallet.Wallet, error)
	WalletExists(ctx context.Context, userID string) (bool, error)
	TouchLastAccessed(ctx context.Context, id string) error
	DeleteWallet(ctx context.Context, id string) error
}

// QueryOptions defines options for querying wallets.
type QueryOptions struct {
	ID      *string
	UserID  *string
	Address *string
	Primary *bool
}

// QueryOption is a functional option for querying wallets.
type QueryOption func(*QueryOptions)

// WithID sets the wallet id filter.
func WithID(id string) QueryOption {
	return func(o *QueryOptions) {
		o.ID = &id
	}
}

// WithUserID sets the owning user filter.
func WithUserID(userID string) QueryOption {
	return func(o *QueryOptions) {
		o.UserID = &userID
	}
}

// WithAddress sets the address filter.
func WithAddress(address string) QueryOption {
	return func(o *QueryOptions) {
		o.Address = &address
	}
}

// WithPrimary filters on the primary flag.
func WithPrimary(primary bool) QueryOption {
	return func(o *QueryOptions) {
		o.Primary = &primary
	}
}
