package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// Migration identifies one structural schema-rewrite step. Migrations are
// detected by inspecting live table metadata, never a stored version counter:
// that survives externally-edited files where a counter lies.
type Migration int

const (
	// MigrationIDTypeToText rebuilds the ledger with a TEXT id column. Legacy
	// stores carried bank-supplied string ids in a column declared INT.
	MigrationIDTypeToText Migration = iota
	// MigrationUniqueConstraint swaps the (bank-id, account) uniqueness index
	// for one that includes the posted date.
	MigrationUniqueConstraint
	// MigrationAutoID rebuilds the ledger with an auto-incrementing INTEGER
	// primary key, discarding any bank-supplied ids.
	MigrationAutoID
)

func (m Migration) String() string {
	switch m {
	case MigrationIDTypeToText:
		return "id-type-to-text"
	case MigrationUniqueConstraint:
		return "unique-constraint"
	case MigrationAutoID:
		return "auto-id"
	}
	return fmt.Sprintf("unknown(%d)", int(m))
}

// Index names across schema generations.
const (
	legacyBankIndex   = "ledger_bankid_account"
	bankPostedIndex   = "ledger_bankid_account_posted"
	ledgerStagingName = "ledger_new"
)

type columnInfo struct {
	Name    string
	Type    string
	PK      bool
	NotNull bool
	Default sql.NullString
}

func (d *DB) ledgerColumns(ctx context.Context) ([]columnInfo, error) {
	rows, err := d.conn.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, ledgerTable))
	if err != nil {
		return nil, fmt.Errorf("table_info %s: %w", ledgerTable, err)
	}
	defer rows.Close()

	var out []columnInfo
	for rows.Next() {
		var (
			cid, notnull, pk int
			c                columnInfo
		)
		if err := rows.Scan(&cid, &c.Name, &c.Type, &notnull, &c.Default, &pk); err != nil {
			return nil, fmt.Errorf("scan table_info: %w", err)
		}
		c.PK = pk > 0
		c.NotNull = notnull > 0
		out = append(out, c)
	}
	return out, rows.Err()
}

func idColumn(cols []columnInfo) *columnInfo {
	for i := range cols {
		if cols[i].Name == "id" {
			return &cols[i]
		}
	}
	return nil
}

// DetectRequiredMigrations inspects the live ledger metadata and returns the
// migrations that apply, oldest generation first. Each one is independently
// idempotent, so applying the full list is always safe.
func (d *DB) DetectRequiredMigrations(ctx context.Context) ([]Migration, error) {
	cols, err := d.ledgerColumns(ctx)
	if err != nil {
		return nil, err
	}
	id := idColumn(cols)
	if id == nil {
		return nil, fmt.Errorf("%w: ledger has no id column", ErrSchema)
	}

	var out []Migration
	if strings.EqualFold(id.Type, "INT") {
		out = append(out, MigrationIDTypeToText)
	}
	oldIdx, err := d.indexExists(ctx, legacyBankIndex)
	if err != nil {
		return nil, err
	}
	newIdx, err := d.indexExists(ctx, bankPostedIndex)
	if err != nil {
		return nil, err
	}
	if oldIdx && !newIdx {
		out = append(out, MigrationUniqueConstraint)
	}
	if !strings.EqualFold(id.Type, "INTEGER") || !id.PK {
		out = append(out, MigrationAutoID)
	}
	return out, nil
}

func (d *DB) runMigration(ctx context.Context, m Migration) error {
	switch m {
	case MigrationIDTypeToText:
		return d.migrateIDTypeToText(ctx)
	case MigrationUniqueConstraint:
		return d.migrateUniqueConstraint(ctx)
	case MigrationAutoID:
		return d.migrateAutoID(ctx)
	}
	return fmt.Errorf("%w: no such migration %d", ErrSchema, int(m))
}

// migrateIDTypeToText rebuilds the ledger with a TEXT id column, casting
// existing ids. No-op when the column is not declared INT.
func (d *DB) migrateIDTypeToText(ctx context.Context) error {
	cols, err := d.ledgerColumns(ctx)
	if err != nil {
		return err
	}
	id := idColumn(cols)
	if id == nil {
		return fmt.Errorf("%w: ledger has no id column", ErrSchema)
	}
	if !strings.EqualFold(id.Type, "INT") {
		log.Debug().Str("type", id.Type).Msg("id column already text, skipping rebuild")
		return nil
	}

	log.Info().Msg("migrating ledger id column from INT to TEXT")
	return d.WithTx(func(tx *sql.Tx) error {
		stmts := []string{
			fmt.Sprintf(`CREATE TABLE %s (
				id TEXT,
				account TEXT,
				type TEXT,
				posted TEXT,
				amount FLOAT,
				name TEXT,
				memo TEXT,
				category INT DEFAULT 1,
				checknum TEXT
			)`, ledgerStagingName),
			fmt.Sprintf(`INSERT INTO %s
				SELECT CAST(id AS TEXT), account, type, posted, amount, name, memo, category, checknum
				FROM %s`, ledgerStagingName, ledgerTable),
			fmt.Sprintf(`DROP TABLE %s`, ledgerTable),
			fmt.Sprintf(`ALTER TABLE %s RENAME TO %s`, ledgerStagingName, ledgerTable),
			fmt.Sprintf(`CREATE UNIQUE INDEX %s ON %s (id, account, posted)`, bankPostedIndex, ledgerTable),
		}
		for _, s := range stmts {
			if _, err := tx.ExecContext(ctx, s); err != nil {
				return err
			}
		}
		return nil
	})
}

// migrateUniqueConstraint replaces the legacy (bank-id, account) uniqueness
// index with one keyed on (bank-id, account, posted). Rows that violated the
// old constraint's assumptions are reported, not discarded: the new, looser
// constraint is expected to admit them.
func (d *DB) migrateUniqueConstraint(ctx context.Context) error {
	oldIdx, err := d.indexExists(ctx, legacyBankIndex)
	if err != nil {
		return err
	}
	newIdx, err := d.indexExists(ctx, bankPostedIndex)
	if err != nil {
		return err
	}
	if newIdx {
		log.Debug().Msg("posted-date uniqueness index already present, skipping")
		return nil
	}
	if !oldIdx {
		log.Debug().Msg("no legacy uniqueness index, skipping")
		return nil
	}

	log.Info().Msg("migrating ledger uniqueness constraint to include posted date")
	rows, err := d.conn.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, account, COUNT(*) AS n FROM %s GROUP BY id, account HAVING n > 1`, ledgerTable))
	if err != nil {
		return fmt.Errorf("scan for constraint violations: %w", err)
	}
	for rows.Next() {
		var (
			id, account string
			n           int
		)
		if err := rows.Scan(&id, &account, &n); err != nil {
			rows.Close()
			return err
		}
		log.Warn().Str("id", id).Str("account", account).Int("rows", n).
			Msg("duplicate under legacy constraint, admitted by new index")
	}
	if err := rows.Close(); err != nil {
		return err
	}

	return d.WithTx(func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DROP INDEX IF EXISTS %s`, legacyBankIndex)); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, fmt.Sprintf(
			`CREATE UNIQUE INDEX %s ON %s (id, account, posted)`, bankPostedIndex, ledgerTable))
		return err
	})
}

// migrateAutoID rebuilds the ledger with an auto-incrementing INTEGER primary
// key. Pre-existing id values are discarded; the surrogate ids restart from 1.
// The rebuild (create, copy, drop, rename, reindex) commits as one unit.
func (d *DB) migrateAutoID(ctx context.Context) error {
	cols, err := d.ledgerColumns(ctx)
	if err != nil {
		return err
	}
	id := idColumn(cols)
	if id == nil {
		return fmt.Errorf("%w: ledger has no id column", ErrSchema)
	}
	if strings.EqualFold(id.Type, "INTEGER") && id.PK {
		log.Debug().Msg("ledger already uses auto-generated ids")
		return nil
	}
	var count int
	if err := d.conn.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s`, ledgerTable)).Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		log.Info().Msg("rebuilding empty ledger with auto-generated ids")
	} else {
		log.Info().Int("rows", count).Msg("migrating ledger to auto-generated ids")
	}

	return d.WithTx(func(tx *sql.Tx) error {
		stmts := []string{
			fmt.Sprintf(`CREATE TABLE %s (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				account TEXT,
				type TEXT,
				posted TEXT,
				amount FLOAT,
				name TEXT,
				memo TEXT,
				category INT DEFAULT 1,
				checknum TEXT
			)`, ledgerStagingName),
			fmt.Sprintf(`INSERT INTO %s (account, type, posted, amount, name, memo, category, checknum)
				SELECT account, type, posted, amount, name, memo, category, checknum
				FROM %s`, ledgerStagingName, ledgerTable),
			fmt.Sprintf(`DROP TABLE %s`, ledgerTable),
			fmt.Sprintf(`ALTER TABLE %s RENAME TO %s`, ledgerStagingName, ledgerTable),
			fmt.Sprintf(`CREATE INDEX %s ON %s (account, posted, amount, name, memo, type)`,
				contentIndex, ledgerTable),
		}
		for _, s := range stmts {
			if _, err := tx.ExecContext(ctx, s); err != nil {
				return err
			}
		}
		return nil
	})
}
