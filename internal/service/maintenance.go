package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vaultbook/vaultbook/internal/database"
)

// MaintenanceService houses destructive ops actions.
type MaintenanceService struct {
	Store *database.DB
}

// Reset wipes transactions, rules and the import audit trail. The taxonomy
// stays: user edits to categories survive a data reset.
func (s *MaintenanceService) Reset(ctx context.Context) error {
	if s.Store == nil {
		return fmt.Errorf("maintenance: store not configured")
	}
	if err := s.Store.WithTx(func(tx *sql.Tx) error {
		for _, t := range []string{"imports", "category_rules", "ledger"} {
			var n int
			if err := tx.QueryRowContext(ctx,
				`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, t).Scan(&n); err != nil {
				return err
			}
			if n == 0 {
				continue
			}
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+t); err != nil {
				return fmt.Errorf("reset table %s: %w", t, err)
			}
		}
		return nil
	}); err != nil {
		return err
	}
	_, _ = s.Store.Handle().ExecContext(ctx, "VACUUM")
	return nil
}
