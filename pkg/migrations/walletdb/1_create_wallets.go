package walletdb

import (
	"context"
	"log"

	mghelper "github.com/pixielabs/pixie-wallet/pkg/pgutil/migrations"
	"github.com/pixielabs/pixie-wallet/pkg/walletstore"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating wallets table...")
		if err := mghelper.CreateSchema(ctx, db, &walletstore.WalletDao{}); err != nil {
			return err
		}
		if err := mghelper.CreateModelIndexes(ctx, db, &walletstore.WalletDao{}, "user_id"); err != nil {
			return err
		}
		// At most one primary wallet per user, enforced by postgres so
		// concurrent creates cannot both win.
		_, err := db.ExecContext(ctx, `
			CREATE UNIQUE INDEX IF NOT EXISTS wallets_user_primary_idx
			ON wallets (user_id) WHERE is_primary`)
		return err
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping wallets table...")
		return mghelper.DropTables(ctx, db, &walletstore.WalletDao{})
	})
}
