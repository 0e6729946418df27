package repository

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vaultbook/vaultbook/internal/database"
)

func openTestStore(t *testing.T) *database.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "repo.db")
	store, err := database.Open(path, bytes.Repeat([]byte{0x2a}, 32))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.EnsureSchema(context.Background()))
	return store
}

func posted(year int, month time.Month, day int) string {
	return time.Date(year, month, day, 9, 30, 0, 0, time.UTC).Format(PostedLayout)
}

func testRecord(day int, amount float64, name string) Record {
	return Record{
		Account: "acct-1",
		Type:    "DEBIT",
		Posted:  posted(2024, time.March, day),
		Amount:  amount,
		Name:    name,
		Memo:    "memo",
	}
}

func TestInsertAndGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewLedgerRepo(openTestStore(t))

	id, err := repo.Insert(ctx, testRecord(1, -42.50, "COFFEE SHOP"))
	require.NoError(t, err)
	require.Positive(t, id)

	rec, err := repo.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "COFFEE SHOP", rec.Name)
	require.Equal(t, -42.50, rec.Amount)
	// Unset category resolves to the default taxonomy entry.
	require.Equal(t, int64(1), rec.Category)

	_, err = repo.Get(ctx, id+1000)
	require.ErrorIs(t, err, database.ErrNotFound)
}

func TestMergeIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewLedgerRepo(openTestStore(t))
	rec := testRecord(2, -15.00, "GROCERY MART")

	id1, inserted, err := repo.Merge(ctx, rec)
	require.NoError(t, err)
	require.True(t, inserted)

	id2, inserted, err := repo.Merge(ctx, rec)
	require.NoError(t, err)
	require.False(t, inserted)
	require.Equal(t, id1, id2)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestMergeIgnoresChecknum(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewLedgerRepo(openTestStore(t))

	first := testRecord(3, -100.00, "LANDLORD")
	first.Checknum = "1021"
	_, inserted, err := repo.Merge(ctx, first)
	require.NoError(t, err)
	require.True(t, inserted)

	// Same six content columns, different checknum: still a duplicate.
	second := first
	second.Checknum = ""
	_, inserted, err = repo.Merge(ctx, second)
	require.NoError(t, err)
	require.False(t, inserted)
}

func TestMergeDistinguishesContent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewLedgerRepo(openTestStore(t))
	base := testRecord(4, -20.00, "DINER")

	_, inserted, err := repo.Merge(ctx, base)
	require.NoError(t, err)
	require.True(t, inserted)

	// Each content column participates in the duplicate check.
	variants := []func(r *Record){
		func(r *Record) { r.Account = "acct-2" },
		func(r *Record) { r.Posted = posted(2024, time.March, 5) },
		func(r *Record) { r.Amount = -20.01 },
		func(r *Record) { r.Name = "DINER 2" },
		func(r *Record) { r.Memo = "other" },
		func(r *Record) { r.Type = "CHECK" },
	}
	for _, mutate := range variants {
		rec := base
		mutate(&rec)
		_, inserted, err := repo.Merge(ctx, rec)
		require.NoError(t, err)
		require.True(t, inserted)
	}

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1+len(variants), count)
}

func TestMergeBatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewLedgerRepo(openTestStore(t))

	var batch []Record
	for i := 0; i < 10; i++ {
		batch = append(batch, testRecord(1+i, -float64(i+1), fmt.Sprintf("SHOP %d", i)))
	}
	summary, err := repo.MergeBatch(ctx, batch)
	require.NoError(t, err)
	require.Equal(t, MergeSummary{Inserted: 10}, summary)

	// Overlapping re-import: 4 repeats, 2 new.
	second := append(batch[6:10:10],
		testRecord(20, -99.00, "NEW ONE"),
		testRecord(21, -98.00, "NEW TWO"))
	summary, err = repo.MergeBatch(ctx, second)
	require.NoError(t, err)
	require.Equal(t, MergeSummary{Inserted: 2, Skipped: 4}, summary)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 12, count)
}

func TestSetCategory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)
	repo := NewLedgerRepo(store)

	id, err := repo.Insert(ctx, testRecord(6, -8.75, "STARBUCKS #123"))
	require.NoError(t, err)

	require.NoError(t, repo.SetCategory(ctx, id, "Entertainment", "Coffee"))
	rec, err := repo.Get(ctx, id)
	require.NoError(t, err)
	want, err := store.CategoryID(ctx, "Entertainment", "Coffee")
	require.NoError(t, err)
	require.Equal(t, want, rec.Category)

	err = repo.SetCategory(ctx, id, "No Such Category", "")
	require.ErrorIs(t, err, database.ErrNotFound)

	err = repo.SetCategory(ctx, id+1000, "Entertainment", "Coffee")
	require.ErrorIs(t, err, database.ErrNotFound)
}

func TestBulkCategorizeScoping(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)
	repo := NewLedgerRepo(store)

	a, err := repo.Insert(ctx, testRecord(7, -5.00, "STARBUCKS #123"))
	require.NoError(t, err)
	b, err := repo.Insert(ctx, testRecord(8, -6.00, "STARBUCKS #456"))
	require.NoError(t, err)
	c, err := repo.Insert(ctx, testRecord(9, -7.00, "PEETS"))
	require.NoError(t, err)

	// Manually categorized row must survive a default-scoped bulk pass.
	require.NoError(t, repo.SetCategory(ctx, a, "Travel", ""))

	n, err := repo.BulkCategorize(ctx, "STARBUCKS%", "Entertainment", "Coffee", false)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	coffee, err := store.CategoryID(ctx, "Entertainment", "Coffee")
	require.NoError(t, err)
	travel, err := store.CategoryID(ctx, "Travel", "")
	require.NoError(t, err)

	recA, err := repo.Get(ctx, a)
	require.NoError(t, err)
	require.Equal(t, travel, recA.Category)
	recB, err := repo.Get(ctx, b)
	require.NoError(t, err)
	require.Equal(t, coffee, recB.Category)
	recC, err := repo.Get(ctx, c)
	require.NoError(t, err)
	require.Equal(t, int64(1), recC.Category)

	// includeCategorized overwrites the manual assignment too.
	n, err = repo.BulkCategorize(ctx, "STARBUCKS%", "Entertainment", "Coffee", true)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
	recA, err = repo.Get(ctx, a)
	require.NoError(t, err)
	require.Equal(t, coffee, recA.Category)

	_, err = repo.BulkCategorize(ctx, "X%", "No Such Category", "", false)
	require.ErrorIs(t, err, database.ErrNotFound)
}

func TestListFilters(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewLedgerRepo(openTestStore(t))

	dates := []struct {
		y int
		m time.Month
		d int
	}{
		{2023, time.December, 30},
		{2024, time.January, 5},
		{2024, time.January, 15},
		{2024, time.February, 1},
	}
	for i, dt := range dates {
		rec := testRecord(1, -1.00, fmt.Sprintf("TX %d", i))
		rec.Posted = posted(dt.y, dt.m, dt.d)
		_, err := repo.Insert(ctx, rec)
		require.NoError(t, err)
	}

	all, err := repo.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i := 1; i < len(all); i++ {
		require.LessOrEqual(t, all[i-1].Posted, all[i].Posted)
	}

	jan, err := repo.List(ctx, 2024, time.January)
	require.NoError(t, err)
	require.Len(t, jan, 2)

	y2024, err := repo.List(ctx, 2024, 0)
	require.NoError(t, err)
	require.Len(t, y2024, 3)

	none, err := repo.List(ctx, 2022, 0)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestDateRangeAndMostRecentMonth(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewLedgerRepo(openTestStore(t))

	start, end, err := repo.DateRange(ctx)
	require.NoError(t, err)
	require.Nil(t, start)
	require.Nil(t, end)

	_, _, ok, err := repo.MostRecentMonth(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	first := testRecord(1, -1.00, "FIRST")
	first.Posted = posted(2023, time.November, 2)
	_, err = repo.Insert(ctx, first)
	require.NoError(t, err)
	last := testRecord(1, -2.00, "LAST")
	last.Posted = posted(2024, time.April, 17)
	_, err = repo.Insert(ctx, last)
	require.NoError(t, err)

	start, end, err = repo.DateRange(ctx)
	require.NoError(t, err)
	require.NotNil(t, start)
	require.NotNil(t, end)
	require.Equal(t, 2023, start.Year())
	require.Equal(t, time.November, start.Month())
	require.Equal(t, 2024, end.Year())
	require.Equal(t, time.April, end.Month())

	year, month, ok, err := repo.MostRecentMonth(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2024, year)
	require.Equal(t, time.April, month)
}

func TestDeleteAll(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)
	repo := NewLedgerRepo(store)

	_, err := repo.Insert(ctx, testRecord(10, -3.00, "GONE"))
	require.NoError(t, err)
	require.NoError(t, repo.DeleteAll(ctx))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, count)

	// Taxonomy is untouched.
	names, err := store.CategoryList(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, names)
}
