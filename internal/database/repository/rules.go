package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/vaultbook/vaultbook/internal/database"
)

// RuleRepo handles persisted bulk-categorization rules.
type RuleRepo struct {
	store *database.DB
	db    *sql.DB
}

func NewRuleRepo(store *database.DB) *RuleRepo {
	return &RuleRepo{store: store, db: store.Handle()}
}

// Add stores a rule after checking its target category exists.
func (r *RuleRepo) Add(ctx context.Context, rule Rule) (int64, error) {
	if _, err := r.store.CategoryID(ctx, rule.Category, rule.Subcategory); err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, `
	INSERT INTO category_rules (pattern, category, subcategory) VALUES (?, ?, ?)`,
		rule.Pattern, rule.Category, rule.Subcategory)
	if err != nil {
		return 0, fmt.Errorf("insert rule %q: %w", rule.Pattern, err)
	}
	return res.LastInsertId()
}

// List returns all rules in id order.
func (r *RuleRepo) List(ctx context.Context) ([]Rule, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, pattern, category, subcategory FROM category_rules ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var out []Rule
	for rows.Next() {
		var rule Rule
		if err := rows.Scan(&rule.ID, &rule.Pattern, &rule.Category, &rule.Subcategory); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

// Delete removes one rule by id.
func (r *RuleRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM category_rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete rule %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("rule %d: %w", id, database.ErrNotFound)
	}
	return nil
}

// Apply runs every rule as a default-scoped bulk categorization, in id
// order. Rows already categorized by hand are never overwritten. Returns the
// total number of transactions updated.
func (r *RuleRepo) Apply(ctx context.Context, ledger *LedgerRepo) (int64, error) {
	rules, err := r.List(ctx)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, rule := range rules {
		n, err := ledger.BulkCategorize(ctx, rule.Pattern, rule.Category, rule.Subcategory, false)
		if err != nil {
			return total, fmt.Errorf("apply rule %q: %w", rule.Pattern, err)
		}
		if n > 0 {
			log.Info().Str("pattern", rule.Pattern).Str("category", rule.Category).
				Int64("updated", n).Msg("rule applied")
		}
		total += n
	}
	return total, nil
}
