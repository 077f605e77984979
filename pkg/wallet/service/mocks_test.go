package service

import (
	"context"

	"github.com/pixielabs/pixie-wallet/pkg/custody"
	"github.com/pixielabs/pixie-wallet/pkg/wallet"
	"github.com/pixielabs/pixie-wallet/pkg/walletstore"
)

// MockStore is a mock implementation of Store
type MockStore struct {
	CreateWalletFunc      func(ctx context.Context, w *wallet.Wallet) error
	GetWalletFunc         func(ctx context.Context, opts ...walletstore.QueryOption) (*wallet.Wallet, error)
	ListWalletsFunc       func(ctx context.Context, userID string) ([]*wallet.Wallet, error)
	TouchLastAccessedFunc func(ctx context.Context, id string) error
}

func (m *MockStore) CreateWallet(ctx context.Context, w *wallet.Wallet) error {
	if m.CreateWalletFunc != nil {
		return m.CreateWalletFunc(ctx, w)
	}
	return nil
}

func (m *MockStore) GetWallet(ctx context.Context, opts ...walletstore.QueryOption) (*wallet.Wallet, error) {
	if m.GetWalletFunc != nil {
		return m.GetWalletFunc(ctx, opts...)
	}
	return nil, walletstore.ErrWalletNotFound
}

func (m *MockStore) ListWallets(ctx context.Context, userID string) ([]*wallet.Wallet, error) {
	if m.ListWalletsFunc != nil {
		return m.ListWalletsFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockStore) TouchLastAccessed(ctx context.Context, id string) error {
	if m.TouchLastAccessedFunc != nil {
		return m.TouchLastAccessedFunc(ctx, id)
	}
	return nil
}

// MockCustodian is a mock implementation of Custodian
type MockCustodian struct {
	CreateAccountFunc      func(ctx context.Context, userID string) (*custody.Account, error)
	CreateSmartAccountFunc func(ctx context.Context, userID string) (*custody.Account, error)
	GetAccountFunc         func(ctx context.Context, userID string) (*custody.Account, error)
	GetSmartAccountFunc    func(ctx context.Context, userID string) (*custody.Account, error)
}

func (m *MockCustodian) CreateAccount(ctx context.Context, userID string) (*custody.Account, error) {
	if m.CreateAccountFunc != nil {
		return m.CreateAccountFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockCustodian) CreateSmartAccount(ctx context.Context, userID string) (*custody.Account, error) {
	if m.CreateSmartAccountFunc != nil {
		return m.CreateSmartAccountFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockCustodian) GetAccount(ctx context.Context, userID string) (*custody.Account, error) {
	if m.GetAccountFunc != nil {
		return m.GetAccountFunc(ctx, userID)
	}
	return nil, custody.ErrAccountNotFound
}

func (m *MockCustodian) GetSmartAccount(ctx context.Context, userID string) (*custody.Account, error) {
	if m.GetSmartAccountFunc != nil {
		return m.GetSmartAccountFunc(ctx, userID)
	}
	return nil, custody.ErrAccountNotFound
}

// MockBalanceReader is a mock implementation of BalanceReader
type MockBalanceReader struct {
	BalanceETHFunc func(ctx context.Context, address string) string
}

func (m *MockBalanceReader) BalanceETH(ctx context.Context, address string) string {
	if m.BalanceETHFunc != nil {
		return m.BalanceETHFunc(ctx, address)
	}
	return "0.0"
}
