package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

type seedCategory struct {
	name string
	sub  string
	typ  ExpenseType
}

// Built-in taxonomy, loaded once at first-ever table creation. Never re-run
// against an existing table: user edits and additions must survive reopen.
var defaultTaxonomy = []seedCategory{
	{DefaultCategory, EmptySubcategory, NonExpense},
	{"Expense", EmptySubcategory, RecurringExpense},
	{"Expense", "Check", RecurringExpense},
	{"Auto", EmptySubcategory, RecurringExpense},
	{"Auto", "Gas", RecurringExpense},
	{"Auto", "Purchase", OneTimeExpense},
	{"Auto", "Repairs", RecurringExpense},
	{"Auto", "Service", RecurringExpense},
	{"Auto", "DMV", RecurringExpense},
	{"Auto", "Rental", OneTimeExpense},
	{"Cash Withdrawal", EmptySubcategory, RecurringExpense},
	{"Clothing", EmptySubcategory, RecurringExpense},
	{"Dry Cleaning", EmptySubcategory, RecurringExpense},
	{"Education", EmptySubcategory, RecurringExpense},
	{"Education", "Books", RecurringExpense},
	{"Education", "College", OneTimeExpense},
	{"Education", "Professional", OneTimeExpense},
	{"Education", "Tuition", OneTimeExpense},
	{"Education", "Post Secondary", OneTimeExpense},
	{"Entertainment", EmptySubcategory, RecurringExpense},
	{"Entertainment", "Drinks", RecurringExpense},
	{"Entertainment", "Coffee", RecurringExpense},
	{"Entertainment", "Dining", RecurringExpense},
	{"Entertainment", "Movies", RecurringExpense},
	{"Entertainment", "Video Streaming", RecurringExpense},
	{"Entertainment", "Hobbies", RecurringExpense},
	{"Entertainment", "Music", RecurringExpense},
	{"Entertainment", "Concert", RecurringExpense},
	{"Groceries / Food", EmptySubcategory, RecurringExpense},
	{"Household", EmptySubcategory, RecurringExpense},
	{"Household", "Cleaning", RecurringExpense},
	{"Household", "Furniture", RecurringExpense},
	{"Household", "Gardener", RecurringExpense},
	{"Household", "Pool Maintenance", RecurringExpense},
	{"Household", "Remodel", OneTimeExpense},
	{"Household", "Rent", RecurringExpense},
	{"Household", "Repairs", RecurringExpense},
	{"Insurance", EmptySubcategory, RecurringExpense},
	{"Insurance", "Auto", RecurringExpense},
	{"Insurance", "Home", RecurringExpense},
	{"Insurance", "Life", RecurringExpense},
	{"Insurance", "Medical", RecurringExpense},
	{"Postage / Shipping", EmptySubcategory, RecurringExpense},
	{"Recreation", EmptySubcategory, RecurringExpense},
	{"Recreation", "Golf", RecurringExpense},
	{"Recreation", "Camping", RecurringExpense},
	{"Recreation", "Hobbies", RecurringExpense},
	{"Rideshare", EmptySubcategory, RecurringExpense},
	{"Taxes", EmptySubcategory, OneTimeExpense},
	{"Taxes", "Federal", OneTimeExpense},
	{"Taxes", "State", OneTimeExpense},
	{"Tax Preparation", EmptySubcategory, RecurringExpense},
	{"Travel", EmptySubcategory, RecurringExpense},
	{"Travel", "Hotel", RecurringExpense},
	{"Travel", "Tours", RecurringExpense},
	{"Travel", "Transportation (air, sea, rail)", RecurringExpense},
	{"Utilities", EmptySubcategory, RecurringExpense},
	{"Utilities", "Cable", RecurringExpense},
	{"Utilities", "Gas / Electric", RecurringExpense},
	{"Utilities", "Internet", RecurringExpense},
	{"Utilities", "Phone", RecurringExpense},
	{"Utilities", "Water", RecurringExpense},
	{"Income", EmptySubcategory, NonExpense},
	{"Income", "Dividends", NonExpense},
	{"Income", "Interest", NonExpense},
	{"Income", "Salary / Wages", NonExpense},
	{"Income", "Unemployment", NonExpense},
	{"Savings", EmptySubcategory, NonExpense},
	{"Savings", "College fund", NonExpense},
	{"Savings", "Investment", NonExpense},
	{"Savings", "Retirement", NonExpense},
	{"Shopping", EmptySubcategory, RecurringExpense},
	{"Shopping", "Online", RecurringExpense},
	{"Shopping", "Amazon", RecurringExpense},
	{"Transfer", EmptySubcategory, NonExpense},
	{"Medical", EmptySubcategory, RecurringExpense},
	{"Medical", "Medicine", RecurringExpense},
	{"Mortgage", EmptySubcategory, RecurringExpense},
	{"Work Expense", EmptySubcategory, RecurringExpense},
	{"Work Expense", "License", RecurringExpense},
}

// seedCategories loads the default taxonomy in one batch. Upsert keyed on
// (name, subcategory) so a partially-seeded table converges.
func (d *DB) seedCategories(ctx context.Context) error {
	log.Info().Int("categories", len(defaultTaxonomy)).Msg("loading default taxonomy")
	return d.WithTx(func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
			`INSERT OR REPLACE INTO %s (name, subcategory, expense_type) VALUES (?, ?, ?)`,
			categoryTable))
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, c := range defaultTaxonomy {
			if _, err := stmt.ExecContext(ctx, c.name, c.sub, int(c.typ)); err != nil {
				return fmt.Errorf("seed category %q/%q: %w", c.name, c.sub, err)
			}
		}
		return nil
	})
}
