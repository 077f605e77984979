package walletstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/pixielabs/pixie-wallet/pkg/wallet"
)

// primaryWalletIndex backs the at-most-one-primary-per-user guarantee.
// Created by the wallets migration as a partial unique index.
const primaryWalletIndex = "wallets_user_primary_idx"

type pgStore struct {
	db *bun.DB
}

// NewStore creates a new postgres implementation of the wallet store
func NewStore(db *bun.DB) *pgStore {
	return &pgStore{db: db}
}

func (s *pgStore) CreateWallet(ctx context.Context, w *wallet.Wallet) error {
	dao := toWalletDao(w)

	_, err := s.db.NewInsert().
		Model(dao).
		Exec(ctx)
	if err != nil {
		if isPrimaryConflict(err) {
			return ErrPrimaryExists
		}
		return fmt.Errorf("failed to create wallet: %w", err)
	}

	return nil
}

func (s *pgStore) GetWallet(ctx context.Context, opts ...QueryOption) (*wallet.Wallet, error) {
	options := &QueryOptions{}
	for _, opt := range opts {
		opt(options)
	}

	dao := new(WalletDao)
	query := s.db.NewSelect().Model(dao)

	if options.ID != nil {
		query = query.Where("id = ?", *options.ID)
	}
	if options.UserID != nil {
		query = query.Where("user_id = ?", *options.UserID)
	}
	if options.Address != nil {
		query = query.Where("address = ?", *options.Address)
	}
	if options.Primary != nil {
		query = query.Where("is_primary = ?", *options.Primary)
	}

	// Most recent first. The unique index keeps primaries to one row per
	// user, so the limit only matters for unfiltered lookups.
	query = query.Order("created_at DESC").Limit(1)

	err := query.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	return toWallet(dao), nil
}

func (s *pgStore) ListWallets(ctx context.Context, userID string) ([]*wallet.Wallet, error) {
	var daos []WalletDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	wallets := make([]*wallet.Wallet, len(daos))
	for i := range daos {
		wallets[i] = toWallet(&daos[i])
	}
	return wallets, nil
}

func (s *pgStore) WalletExists(ctx context.Context, userID string) (bool, error) {
	exists, err := s.db.NewSelect().
		Model((*WalletDao)(nil)).
		Where("user_id = ?", userID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check wallet exists: %w", err)
	}
	return exists, nil
}

func (s *pgStore) TouchLastAccessed(ctx context.Context, id string) error {
	_, err := s.db.NewUpdate().
		Model((*WalletDao)(nil)).
		Set("last_accessed = current_timestamp").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to touch wallet: %w", err)
	}
	return nil
}

func (s *pgStore) DeleteWallet(ctx context.Context, id string) error {
	_, err := s.db.NewDelete().
		Model((*WalletDao)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete wallet: %w", err)
	}
	return nil
}

// isPrimaryConflict reports whether err is a unique violation on the
// primary wallet index.
func isPrimaryConflict(err error) bool {
	var pgErr pgdriver.Error
	if !errors.As(err, &pgErr) {
		return false
	}
	// 23505 is unique_violation.
	return pgErr.Field('C') == "23505" && pgErr.Field('n') == primaryWalletIndex
}
