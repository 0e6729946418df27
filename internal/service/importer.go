package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vaultbook/vaultbook/internal/database"
	"github.com/vaultbook/vaultbook/internal/database/repository"
	"github.com/vaultbook/vaultbook/internal/ofx"
)

// ImportService merges statement files into the ledger. One service call is
// one import batch; each file that parses is merged record by record, and a
// file that fails to parse is logged and skipped without aborting the batch.
type ImportService struct {
	Store  *database.DB
	Ledger *repository.LedgerRepo

	// Load normalizes one statement file. Defaults to ofx.LoadFile.
	Load func(path string) ([]repository.Record, error)
}

// ImportSummary reports one batch.
type ImportSummary struct {
	BatchID  string
	Files    int
	Failed   int
	Inserted int
	Skipped  int
}

// ImportFiles merges each file in order and writes one audit row per file.
// Re-running with the same files is idempotent: every already-imported record
// is skipped by content dedup.
func (s *ImportService) ImportFiles(ctx context.Context, paths []string) (ImportSummary, error) {
	if err := s.ensureImportsTable(ctx); err != nil {
		return ImportSummary{}, err
	}
	load := s.Load
	if load == nil {
		load = ofx.LoadFile
	}

	before, err := s.Ledger.Count(ctx)
	if err != nil {
		return ImportSummary{}, err
	}
	if before > 0 {
		log.Info().Int("records", before).Msg("store already contains records")
	}

	summary := ImportSummary{BatchID: uuid.NewString(), Files: len(paths)}
	for _, path := range paths {
		records, err := load(path)
		if err != nil {
			if !errors.Is(err, database.ErrImport) {
				return summary, err
			}
			summary.Failed++
			log.Warn().Err(err).Str("file", path).Msg("skipping file")
			continue
		}
		merged, err := s.Ledger.MergeBatch(ctx, records)
		if err != nil {
			return summary, err
		}
		summary.Inserted += merged.Inserted
		summary.Skipped += merged.Skipped
		if err := s.recordImport(ctx, summary.BatchID, path, merged); err != nil {
			return summary, err
		}
	}

	after, err := s.Ledger.Count(ctx)
	if err != nil {
		return summary, err
	}
	log.Info().Int("records", after).Int("added", after-before).Msg("import finished")
	return summary, nil
}

func (s *ImportService) ensureImportsTable(ctx context.Context) error {
	_, err := s.Store.Handle().ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS imports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		batch_id TEXT NOT NULL,
		filename TEXT NOT NULL,
		inserted INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		imported_at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("ensure imports table: %w", err)
	}
	return nil
}

func (s *ImportService) recordImport(ctx context.Context, batchID, path string, merged repository.MergeSummary) error {
	_, err := s.Store.Handle().ExecContext(ctx, `
	INSERT INTO imports (batch_id, filename, inserted, skipped, imported_at)
	VALUES (?, ?, ?, ?, ?)`,
		batchID, path, merged.Inserted, merged.Skipped,
		database.Now().Format(repository.PostedLayout))
	if err != nil {
		return fmt.Errorf("record import %s: %w", path, err)
	}
	return nil
}
