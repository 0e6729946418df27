package database

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

const (
	ledgerTable   = "ledger"
	categoryTable = "categories"
	rulesTable    = "category_rules"

	// Dedup lookup on the six content columns.
	contentIndex = "content_lookup"
	// Uniqueness of (name, subcategory) pairs.
	categoryFullIndex = "category_full"
)

// DefaultCategory is assigned to every new transaction until categorized.
const (
	DefaultCategory  = "No Category"
	EmptySubcategory = ""
)

const createLedgerSQL = `CREATE TABLE IF NOT EXISTS ledger (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	account TEXT,
	type TEXT,
	posted TEXT,
	amount FLOAT,
	name TEXT,
	memo TEXT,
	category INT DEFAULT 1,
	checknum TEXT
);`

const createCategoriesSQL = `CREATE TABLE IF NOT EXISTS categories (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT,
	subcategory TEXT,
	expense_type INTEGER DEFAULT 0
);`

const createRulesSQL = `CREATE TABLE IF NOT EXISTS category_rules (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	pattern TEXT,
	category TEXT,
	subcategory TEXT
);`

// EnsureSchema brings a possibly-absent or down-level schema to the current
// version, preserving all existing rows. Safe to run on every open; the
// taxonomy is seeded only when the categories table is first created.
func (d *DB) EnsureSchema(ctx context.Context) error {
	if err := d.createLedgerIfMissing(ctx); err != nil {
		return err
	}
	created, err := d.createCategoriesIfMissing(ctx)
	if err != nil {
		return err
	}
	if created {
		if err := d.seedCategories(ctx); err != nil {
			return err
		}
	}
	if err := d.createRulesIfMissing(ctx); err != nil {
		return err
	}

	migrations, err := d.DetectRequiredMigrations(ctx)
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if err := d.runMigration(ctx, m); err != nil {
			return fmt.Errorf("migration %s: %w", m, err)
		}
	}
	return nil
}

func (d *DB) createLedgerIfMissing(ctx context.Context) error {
	exists, err := d.tableExists(ctx, ledgerTable)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	log.Info().Str("table", ledgerTable).Msg("creating table")
	if _, err := d.conn.ExecContext(ctx, createLedgerSQL); err != nil {
		return fmt.Errorf("create %s: %w", ledgerTable, err)
	}
	if _, err := d.conn.ExecContext(ctx, fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS %s ON %s (account, posted, amount, name, memo, type)`,
		contentIndex, ledgerTable)); err != nil {
		return fmt.Errorf("create index %s: %w", contentIndex, err)
	}
	return nil
}

// createCategoriesIfMissing reports whether it created the table, so the
// caller can seed exactly once.
func (d *DB) createCategoriesIfMissing(ctx context.Context) (bool, error) {
	exists, err := d.tableExists(ctx, categoryTable)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	log.Info().Str("table", categoryTable).Msg("creating table")
	if _, err := d.conn.ExecContext(ctx, createCategoriesSQL); err != nil {
		return false, fmt.Errorf("create %s: %w", categoryTable, err)
	}
	if _, err := d.conn.ExecContext(ctx, fmt.Sprintf(
		`CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (name, subcategory)`,
		categoryFullIndex, categoryTable)); err != nil {
		return false, fmt.Errorf("create index %s: %w", categoryFullIndex, err)
	}
	return true, nil
}

func (d *DB) createRulesIfMissing(ctx context.Context) error {
	exists, err := d.tableExists(ctx, rulesTable)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	log.Info().Str("table", rulesTable).Msg("creating table")
	if _, err := d.conn.ExecContext(ctx, createRulesSQL); err != nil {
		return fmt.Errorf("create %s: %w", rulesTable, err)
	}
	return nil
}
