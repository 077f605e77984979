package walletdb

import (
	"context"
	"log"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating wallet notify trigger...")
		_, err := db.ExecContext(ctx, `
			CREATE OR REPLACE FUNCTION notify_wallet_change() RETURNS trigger AS $$
			DECLARE
				rec RECORD;
			BEGIN
				IF TG_OP = 'DELETE' THEN
					rec := OLD;
				ELSE
					rec := NEW;
				END IF;
				PERFORM pg_notify('wallet_changes', json_build_object(
					'op', TG_OP,
					'user_id', rec.user_id,
					'wallet_id', rec.id
				)::text);
				RETURN rec;
			END;
			$$ LANGUAGE plpgsql`)
		if err != nil {
			return err
		}

		_, err = db.ExecContext(ctx, `
			CREATE TRIGGER wallets_notify
			AFTER INSERT OR UPDATE OR DELETE ON wallets
			FOR EACH ROW EXECUTE FUNCTION notify_wallet_change()`)
		return err
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping wallet notify trigger...")
		if _, err := db.ExecContext(ctx, `DROP TRIGGER IF EXISTS wallets_notify ON wallets`); err != nil {
			return err
		}
		_, err := db.ExecContext(ctx, `DROP FUNCTION IF EXISTS notify_wallet_change()`)
		return err
	})
}
