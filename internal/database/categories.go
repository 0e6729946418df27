package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/agnivade/levenshtein"
)

// ExpenseType classifies a category for reporting. Non-expense outflows
// (transfers, savings movements) are subtracted back out of monthly totals.
type ExpenseType int

const (
	NonExpense ExpenseType = iota
	OneTimeExpense
	RecurringExpense
)

// CategoryInfo is one taxonomy entry in a CategoryDict snapshot.
type CategoryInfo struct {
	ID          int64
	ExpenseType ExpenseType
}

// CategoryID resolves an exact (name, subcategory) pair to its surrogate id.
// A miss is ErrNotFound; the error carries the nearest existing name as a
// hint for callers echoing it to a user.
func (d *DB) CategoryID(ctx context.Context, name, subcategory string) (int64, error) {
	var id int64
	err := d.conn.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT id FROM %s WHERE name = ? AND subcategory = ?`, categoryTable),
		name, subcategory).Scan(&id)
	if err == sql.ErrNoRows {
		if hint := d.nearestCategory(ctx, name); hint != "" && hint != name {
			return 0, fmt.Errorf("category %q/%q: %w (closest match %q)", name, subcategory, ErrNotFound, hint)
		}
		return 0, fmt.Errorf("category %q/%q: %w", name, subcategory, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("look up category %q/%q: %w", name, subcategory, err)
	}
	return id, nil
}

// nearestCategory returns the known name with the smallest edit distance.
// Best effort only; lookup errors degrade to no hint.
func (d *DB) nearestCategory(ctx context.Context, name string) string {
	names, err := d.CategoryList(ctx)
	if err != nil {
		return ""
	}
	best, bestDist := "", -1
	for _, n := range names {
		dist := levenshtein.ComputeDistance(name, n)
		if bestDist < 0 || dist < bestDist {
			best, bestDist = n, dist
		}
	}
	return best
}

// CategoryDict returns the full taxonomy keyed name -> subcategory -> info.
func (d *DB) CategoryDict(ctx context.Context) (map[string]map[string]CategoryInfo, error) {
	rows, err := d.conn.QueryContext(ctx, fmt.Sprintf(
		`SELECT name, subcategory, expense_type, id FROM %s ORDER BY name`, categoryTable))
	if err != nil {
		return nil, fmt.Errorf("query taxonomy: %w", err)
	}
	defer rows.Close()

	out := map[string]map[string]CategoryInfo{}
	for rows.Next() {
		var (
			name, sub string
			typ       int
			id        int64
		)
		if err := rows.Scan(&name, &sub, &typ, &id); err != nil {
			return nil, fmt.Errorf("scan taxonomy row: %w", err)
		}
		if out[name] == nil {
			out[name] = map[string]CategoryInfo{}
		}
		out[name][sub] = CategoryInfo{ID: id, ExpenseType: ExpenseType(typ)}
	}
	return out, rows.Err()
}

// CategoryList returns the distinct category names alphabetically, with the
// default category pinned first regardless of sort order.
func (d *DB) CategoryList(ctx context.Context) ([]string, error) {
	rows, err := d.conn.QueryContext(ctx, fmt.Sprintf(
		`SELECT DISTINCT name FROM %s ORDER BY name`, categoryTable))
	if err != nil {
		return nil, fmt.Errorf("query category names: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan category name: %w", err)
		}
		if name == DefaultCategory {
			out = append([]string{name}, out...)
		} else {
			out = append(out, name)
		}
	}
	return out, rows.Err()
}
