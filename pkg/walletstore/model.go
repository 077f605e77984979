package walletstore

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/pixielabs/pixie-wallet/pkg/wallet"
)

// WalletDao is a data access object that maps directly to the 'wallets' table in PostgreSQL.
type WalletDao struct {
	bun.BaseModel    `bun:"table:wallets,alias:w"`
	ID               uuid.UUID `bun:"id,pk,type:uuid"`
	UserID           string    `bun:"user_id,notnull,type:varchar(255)"`
	Address          string    `bun:"address,unique,notnull,type:varchar(42)"`
	Kind             string    `bun:"kind,notnull,type:varchar(16)"`
	OwnerAddress     string    `bun:"owner_address,type:varchar(42)"`
	NetworkID        string    `bun:"network_id,notnull,type:varchar(64)"`
	CustodyAccountID string    `bun:"custody_account_id,notnull,type:varchar(255)"`
	IsPrimary        bool      `bun:"is_primary,notnull,default:false"`
	CreatedAt        time.Time `bun:"created_at,nullzero,default:current_timestamp"`
	LastAccessed     time.Time `bun:"last_accessed,nullzero,default:current_timestamp"`
}

// toWalletDao converts a wallet.Wallet to WalletDao.
func toWalletDao(w *wallet.Wallet) *WalletDao {
	return &WalletDao{
		ID:               w.ID,
		UserID:           w.UserID,
		Address:          w.Address,
		Kind:             string(w.Kind),
		OwnerAddress:     w.OwnerAddress,
		NetworkID:        w.NetworkID,
		CustodyAccountID: w.CustodyAccountID,
		IsPrimary:        w.IsPrimary,
		CreatedAt:        w.CreatedAt,
		LastAccessed:     w.LastAccessed,
	}
}

// toWallet converts a WalletDao to wallet.Wallet.
func toWallet(dao *WalletDao) *wallet.Wallet {
	return &wallet.Wallet{
		ID:               dao.ID,
		UserID:           dao.UserID,
		Address:          dao.Address,
		Kind:             wallet.Kind(dao.Kind),
		OwnerAddress:     dao.OwnerAddress,
		NetworkID:        dao.NetworkID,
		CustodyAccountID: dao.CustodyAccountID,
		IsPrimary:        dao.IsPrimary,
		CreatedAt:        dao.CreatedAt,
		LastAccessed:     dao.LastAccessed,
	}
}
