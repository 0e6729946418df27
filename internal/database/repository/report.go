package repository

import (
	"context"
	"fmt"
	"strconv"
)

// YearReport holds one calendar year of monthly expense totals. Months is
// indexed 0-11; a month with no outflow data stays nil rather than zero.
// Minimum, Maximum and Average cover only the populated months; Average is
// nil when no month qualifies.
type YearReport struct {
	Months  [12]*float64
	Minimum *float64
	Maximum *float64
	Average *float64
}

// Report aggregates monthly outflows. For every (year, month) with at least
// one negative transaction it totals the absolute outflow, then subtracts
// outflows whose category is non-expense: moving money into savings is
// negative but is not spending. A month whose outflows are all non-expense
// therefore reports zero, deterministically, rather than going absent.
func (r *LedgerRepo) Report(ctx context.Context) (map[int]*YearReport, error) {
	data := map[int]*YearReport{}

	rows, err := r.db.QueryContext(ctx, `
	SELECT STRFTIME('%Y', posted) AS year, STRFTIME('%m', posted) AS month, SUM(ABS(amount))
	FROM ledger
	WHERE amount < 0
	GROUP BY year, month`)
	if err != nil {
		return nil, fmt.Errorf("query monthly outflows: %w", err)
	}
	if err := collectMonthly(rows, func(year, month int, total float64) {
		yr := data[year]
		if yr == nil {
			yr = &YearReport{}
			data[year] = yr
		}
		t := total
		yr.Months[month] = &t
	}); err != nil {
		return nil, err
	}

	rows, err = r.db.QueryContext(ctx, `
	SELECT STRFTIME('%Y', txn.posted) AS year, STRFTIME('%m', txn.posted) AS month, SUM(ABS(txn.amount))
	FROM ledger AS txn
	JOIN categories AS cat ON txn.category = cat.id
	WHERE txn.amount < 0 AND cat.expense_type = 0
	GROUP BY year, month`)
	if err != nil {
		return nil, fmt.Errorf("query non-expense outflows: %w", err)
	}
	if err := collectMonthly(rows, func(year, month int, total float64) {
		yr := data[year]
		if yr == nil || yr.Months[month] == nil {
			// Every non-expense outflow month is in the first aggregate.
			return
		}
		*yr.Months[month] -= total
	}); err != nil {
		return nil, err
	}

	for _, yr := range data {
		var sum float64
		var n int
		for _, m := range yr.Months {
			if m == nil {
				continue
			}
			v := *m
			if yr.Minimum == nil || v < *yr.Minimum {
				lo := v
				yr.Minimum = &lo
			}
			if yr.Maximum == nil || v > *yr.Maximum {
				hi := v
				yr.Maximum = &hi
			}
			sum += v
			n++
		}
		if n > 0 {
			avg := sum / float64(n)
			yr.Average = &avg
		}
	}
	return data, nil
}

type monthlyRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Close() error
	Err() error
}

func collectMonthly(rows monthlyRows, add func(year, month int, total float64)) error {
	defer rows.Close()
	for rows.Next() {
		var yRaw, mRaw string
		var total float64
		if err := rows.Scan(&yRaw, &mRaw, &total); err != nil {
			return fmt.Errorf("scan monthly total: %w", err)
		}
		year, err := strconv.Atoi(yRaw)
		if err != nil {
			return fmt.Errorf("parse report year %q: %w", yRaw, err)
		}
		month, err := strconv.Atoi(mRaw)
		if err != nil {
			return fmt.Errorf("parse report month %q: %w", mRaw, err)
		}
		add(year, month-1, total)
	}
	return rows.Err()
}
