package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vaultbook/vaultbook/internal/database"
)

// LedgerRepo handles the transaction table. It is stateless: all state lives
// in the storage handle.
type LedgerRepo struct {
	store *database.DB
	db    *sql.DB
}

func NewLedgerRepo(store *database.DB) *LedgerRepo {
	return &LedgerRepo{store: store, db: store.Handle()}
}

const recordColumns = "id, account, type, posted, amount, name, memo, category, checknum"

// Insert stores a record and returns its new surrogate id. It performs no
// duplicate check; dedup is Merge's responsibility.
func (r *LedgerRepo) Insert(ctx context.Context, rec Record) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
	INSERT INTO ledger (account, type, posted, amount, name, memo, checknum)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Account, rec.Type, rec.Posted, rec.Amount, rec.Name, rec.Memo, rec.Checknum)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("transaction last insert id: %w", err)
	}
	return id, nil
}

// FindDuplicate looks for an exact match on the six content columns.
// Bank-supplied ids and checknum are excluded: they are unreliable across
// export formats and may differ between two exports of the same transaction.
// Returns nil when there is no match.
func (r *LedgerRepo) FindDuplicate(ctx context.Context, rec Record) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT `+recordColumns+` FROM ledger
	WHERE account = ? AND posted = ? AND amount = ? AND name = ? AND memo = ? AND type = ?
	LIMIT 1`,
		rec.Account, rec.Posted, rec.Amount, rec.Name, rec.Memo, rec.Type)
	found, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find duplicate: %w", err)
	}
	return &found, nil
}

// Merge inserts rec unless an identical transaction is already stored. A
// content match means the record was imported before: it is skipped, not an
// error. Returns the stored row's id and whether an insert happened. This is
// what makes re-importing an overlapping statement idempotent.
func (r *LedgerRepo) Merge(ctx context.Context, rec Record) (int64, bool, error) {
	existing, err := r.FindDuplicate(ctx, rec)
	if err != nil {
		return 0, false, err
	}
	if existing != nil {
		log.Info().Int64("id", existing.ID).Str("posted", rec.Posted).
			Float64("amount", rec.Amount).Str("name", rec.Name).
			Msg("skipping duplicate transaction")
		return existing.ID, false, nil
	}
	id, err := r.Insert(ctx, rec)
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// MergeSummary reports one batch merge.
type MergeSummary struct {
	Inserted int
	Skipped  int
	Failed   int
}

// MergeBatch merges records in input order. Each merge commits on its own, so
// re-invoking with a partially-imported batch only inserts the remainder. A
// record that fails to merge is logged and skipped; the batch continues.
func (r *LedgerRepo) MergeBatch(ctx context.Context, recs []Record) (MergeSummary, error) {
	var s MergeSummary
	log.Info().Int("records", len(recs)).Msg("merging batch")
	for _, rec := range recs {
		_, inserted, err := r.Merge(ctx, rec)
		if err != nil {
			s.Failed++
			log.Warn().Err(fmt.Errorf("%w: %v", database.ErrImport, err)).
				Str("posted", rec.Posted).Str("name", rec.Name).
				Msg("record failed to merge")
			continue
		}
		if inserted {
			s.Inserted++
		} else {
			s.Skipped++
		}
	}
	return s, nil
}

// Get fetches one record by surrogate id. Misses are ErrNotFound.
func (r *LedgerRepo) Get(ctx context.Context, id int64) (Record, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM ledger WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return Record{}, fmt.Errorf("transaction %d: %w", id, database.ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return rec, nil
}

// SetCategory assigns an existing taxonomy entry to one transaction.
func (r *LedgerRepo) SetCategory(ctx context.Context, id int64, category, subcategory string) error {
	catID, err := r.store.CategoryID(ctx, category, subcategory)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE ledger SET category = ? WHERE id = ?`, catID, id)
	if err != nil {
		return fmt.Errorf("set category for %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	switch {
	case n == 0:
		return fmt.Errorf("transaction %d: %w", id, database.ErrNotFound)
	case n > 1:
		return fmt.Errorf("transaction %d matched %d rows: %w", id, n, database.ErrIntegrity)
	}
	return nil
}

// BulkCategorize assigns a category to every transaction whose name matches
// the LIKE pattern. By default only rows still on the default category are
// touched, so manual categorization survives; includeCategorized opts into
// overwriting. Returns the number of rows updated.
func (r *LedgerRepo) BulkCategorize(ctx context.Context, pattern, category, subcategory string, includeCategorized bool) (int64, error) {
	catID, err := r.store.CategoryID(ctx, category, subcategory)
	if err != nil {
		return 0, err
	}
	var res sql.Result
	if includeCategorized {
		res, err = r.db.ExecContext(ctx,
			`UPDATE ledger SET category = ? WHERE name LIKE ?`, catID, pattern)
	} else {
		var defID int64
		defID, err = r.store.CategoryID(ctx, database.DefaultCategory, database.EmptySubcategory)
		if err != nil {
			return 0, err
		}
		res, err = r.db.ExecContext(ctx,
			`UPDATE ledger SET category = ? WHERE name LIKE ? AND category = ?`, catID, pattern, defID)
	}
	if err != nil {
		return 0, fmt.Errorf("bulk categorize %q: %w", pattern, err)
	}
	return res.RowsAffected()
}

// List returns transactions ordered by posted ascending, optionally filtered
// by calendar year and/or month (0 = no filter).
func (r *LedgerRepo) List(ctx context.Context, year int, month time.Month) ([]Record, error) {
	var where []string
	var args []interface{}
	if year != 0 {
		where = append(where, `STRFTIME('%Y', posted) = ?`)
		args = append(args, fmt.Sprintf("%04d", year))
	}
	if month != 0 {
		where = append(where, `STRFTIME('%m', posted) = ?`)
		args = append(args, fmt.Sprintf("%02d", int(month)))
	}
	query := `SELECT ` + recordColumns + ` FROM ledger`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY posted`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DateRange returns the earliest and latest posting timestamps, or nils on an
// empty ledger.
func (r *LedgerRepo) DateRange(ctx context.Context) (*time.Time, *time.Time, error) {
	var minRaw, maxRaw sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT MIN(posted), MAX(posted) FROM ledger`).Scan(&minRaw, &maxRaw)
	if err != nil {
		return nil, nil, fmt.Errorf("query date range: %w", err)
	}
	if !minRaw.Valid || !maxRaw.Valid {
		return nil, nil, nil
	}
	start, err := time.Parse(PostedLayout, minRaw.String)
	if err != nil {
		return nil, nil, fmt.Errorf("parse range start %q: %w", minRaw.String, err)
	}
	end, err := time.Parse(PostedLayout, maxRaw.String)
	if err != nil {
		return nil, nil, fmt.Errorf("parse range end %q: %w", maxRaw.String, err)
	}
	return &start, &end, nil
}

// Count returns the number of stored transactions.
func (r *LedgerRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

// MostRecentMonth returns the latest (year, month) holding any data; ok is
// false on an empty ledger.
func (r *LedgerRepo) MostRecentMonth(ctx context.Context) (year int, month time.Month, ok bool, err error) {
	var yRaw, mRaw string
	err = r.db.QueryRowContext(ctx, `
	SELECT STRFTIME('%Y', posted), STRFTIME('%m', posted)
	FROM ledger ORDER BY posted DESC LIMIT 1`).Scan(&yRaw, &mRaw)
	if err == sql.ErrNoRows {
		return 0, 0, false, nil
	}
	if err != nil {
		return 0, 0, false, fmt.Errorf("query most recent month: %w", err)
	}
	y, err := strconv.Atoi(yRaw)
	if err != nil {
		return 0, 0, false, fmt.Errorf("parse year %q: %w", yRaw, err)
	}
	m, err := strconv.Atoi(mRaw)
	if err != nil {
		return 0, 0, false, fmt.Errorf("parse month %q: %w", mRaw, err)
	}
	return y, time.Month(m), true, nil
}

// DeleteAll wipes the ledger. Categories and rules stay.
func (r *LedgerRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM ledger`); err != nil {
		return fmt.Errorf("delete all transactions: %w", err)
	}
	log.Info().Msg("all transactions deleted")
	return nil
}

// scanRecord handles both Row and Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (Record, error) {
	var rec Record
	var category sql.NullInt64
	var checknum sql.NullString
	if err := row.Scan(&rec.ID, &rec.Account, &rec.Type, &rec.Posted, &rec.Amount,
		&rec.Name, &rec.Memo, &category, &checknum); err != nil {
		return Record{}, err
	}
	rec.Category = 1 // default category id
	if category.Valid {
		rec.Category = category.Int64
	}
	if checknum.Valid {
		rec.Checknum = checknum.String
	}
	return rec, nil
}
