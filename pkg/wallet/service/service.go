package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pixielabs/pixie-wallet/internal/metrics"
	apperrors "github.com/pixielabs/pixie-wallet/pkg/app/errors"
	"github.com/pixielabs/pixie-wallet/pkg/custody"
	"github.com/pixielabs/pixie-wallet/pkg/wallet"
	"github.com/pixielabs/pixie-wallet/pkg/walletstore"
)

// ErrUnknownKind is returned when a wallet creation names an account type
// the custody provider does not manage.
var ErrUnknownKind = errors.New("unknown wallet kind")

// Store is the narrow data-access interface for the wallet service.
// Defined here to keep the service decoupled from walletstore implementation details.
type Store interface {
	CreateWallet(ctx context.Context, w *wallet.Wallet) error
	GetWallet(ctx context.Context, opts ...walletstore.QueryOption) (*wallet.Wallet, error)
	ListWallets(ctx context.Context, userID string) ([]*wallet.Wallet, error)
	TouchLastAccessed(ctx context.Context, id string) error
}

// Custodian is the subset of the custody provider the wallet service uses.
type Custodian interface {
	CreateAccount(ctx context.Context, userID string) (*custody.Account, error)
	CreateSmartAccount(ctx context.Context, userID string) (*custody.Account, error)
	GetAccount(ctx context.Context, userID string) (*custody.Account, error)
	GetSmartAccount(ctx context.Context, userID string) (*custody.Account, error)
}

// BalanceReader reads display balances from the chain.
type BalanceReader interface {
	BalanceETH(ctx context.Context, address string) string
}

// Service defines the interface for the wallet business logic
type Service interface {
	// GetPrimaryWallet returns the user's primary wallet.
	GetPrimaryWallet(ctx context.Context, userID string) (*wallet.Wallet, error)

	// CreateWallet provisions a primary wallet for the user. Idempotent:
	// if the user already has a primary wallet it is returned unchanged,
	// including when a concurrent create wins the race.
	CreateWallet(ctx context.Context, userID string, kind wallet.Kind) (*wallet.Wallet, error)

	// EnhancedDetails returns the primary wallet together with its live
	// chain balance.
	EnhancedDetails(ctx context.Context, userID string) (*wallet.EnhancedDetails, error)

	// ListWallets returns all of the user's wallets, most recent first.
	ListWallets(ctx context.Context, userID string) ([]*wallet.Wallet, error)
}

type walletService struct {
	store     Store
	custodian Custodian
	chain     BalanceReader
	logger    *zap.Logger
}

// NewService creates a new wallet service
func NewService(store Store, custodian Custodian, chain BalanceReader, logger *zap.Logger) Service {
	return &walletService{
		store:     store,
		custodian: custodian,
		chain:     chain,
		logger:    logger,
	}
}

func (s *walletService) GetPrimaryWallet(ctx context.Context, userID string) (*wallet.Wallet, error) {
	w, err := s.store.GetWallet(ctx,
		walletstore.WithUserID(userID),
		walletstore.WithPrimary(true))
	if err != nil {
		if errors.Is(err, walletstore.ErrWalletNotFound) {
			return nil, apperrors.ResourceNotFoundError(err, "no primary wallet")
		}
		return nil, fmt.Errorf("failed to get primary wallet: %w", err)
	}
	return w, nil
}

func (s *walletService) CreateWallet(ctx context.Context, userID string, kind wallet.Kind) (*wallet.Wallet, error) {
	if !kind.Valid() {
		return nil, apperrors.BadRequestError(ErrUnknownKind, "unknown wallet kind")
	}

	// Fast path: the user already has a primary wallet.
	existing, err := s.store.GetWallet(ctx,
		walletstore.WithUserID(userID),
		walletstore.WithPrimary(true))
	if err == nil {
		metrics.WalletCreationsTotal.WithLabelValues(string(existing.Kind), "existing").Inc()
		return existing, nil
	}
	if !errors.Is(err, walletstore.ErrWalletNotFound) {
		return nil, fmt.Errorf("failed to check for primary wallet: %w", err)
	}

	account, err := s.provisionAccount(ctx, userID, kind)
	if err != nil {
		metrics.WalletCreationsTotal.WithLabelValues(string(kind), "error").Inc()
		return nil, apperrors.DependencyError(err, "custody provisioning failed")
	}

	w := wallet.New(userID, account.Address, account.ID, kind, true)
	w.OwnerAddress = account.OwnerAddress
	w.NetworkID = account.Network
	err = s.store.CreateWallet(ctx, w)
	if errors.Is(err, walletstore.ErrPrimaryExists) {
		// A concurrent create won. Converge on the winner's record.
		s.logger.Info("Lost wallet creation race, returning existing wallet",
			zap.String("user_id", userID))
		metrics.WalletCreationsTotal.WithLabelValues(string(kind), "raced").Inc()
		return s.GetPrimaryWallet(ctx, userID)
	}
	if err != nil {
		metrics.WalletCreationsTotal.WithLabelValues(string(kind), "error").Inc()
		return nil, fmt.Errorf("failed to persist wallet: %w", err)
	}

	metrics.WalletCreationsTotal.WithLabelValues(string(kind), "created").Inc()
	return w, nil
}

func (s *walletService) provisionAccount(ctx context.Context, userID string, kind wallet.Kind) (*custody.Account, error) {
	switch kind {
	case wallet.KindSmart:
		return s.custodian.CreateSmartAccount(ctx, userID)
	default:
		return s.custodian.CreateAccount(ctx, userID)
	}
}

func (s *walletService) EnhancedDetails(ctx context.Context, userID string) (*wallet.EnhancedDetails, error) {
	w, err := s.GetPrimaryWallet(ctx, userID)
	if err != nil {
		return nil, err
	}

	// The view is served only while the provider still resolves the
	// backing account. A partial view is never returned.
	account, err := s.resolveAccount(ctx, w)
	if err != nil {
		return nil, apperrors.DependencyError(err, "custody account lookup failed")
	}

	if err := s.store.TouchLastAccessed(ctx, w.ID.String()); err != nil {
		s.logger.Warn("Failed to touch wallet last accessed",
			zap.String("wallet_id", w.ID.String()),
			zap.Error(err))
	}

	return &wallet.EnhancedDetails{
		Wallet:     w.ToView(),
		BalanceETH: s.chain.BalanceETH(ctx, account.Address),
	}, nil
}

func (s *walletService) resolveAccount(ctx context.Context, w *wallet.Wallet) (*custody.Account, error) {
	switch w.Kind {
	case wallet.KindSmart:
		return s.custodian.GetSmartAccount(ctx, w.UserID)
	default:
		return s.custodian.GetAccount(ctx, w.UserID)
	}
}

func (s *walletService) ListWallets(ctx context.Context, userID string) ([]*wallet.Wallet, error) {
	wallets, err := s.store.ListWallets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	return wallets, nil
}
