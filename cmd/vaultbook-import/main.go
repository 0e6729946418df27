// vaultbook-import merges OFX statement exports into the encrypted store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vaultbook/vaultbook/internal/config"
	"github.com/vaultbook/vaultbook/internal/database"
	"github.com/vaultbook/vaultbook/internal/database/repository"
	"github.com/vaultbook/vaultbook/internal/secrets"
	"github.com/vaultbook/vaultbook/internal/service"
)

func main() {
	os.Exit(run())
}

func run() int {
	dbPath := flag.String("db", "", "path to the encrypted store (default from config)")
	passwordEnv := flag.String("password-env", "VAULTBOOK_PASSWORD", "env var holding the master password")
	applyRules := flag.Bool("apply-rules", false, "apply stored categorization rules after import")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("load config")
		return 1
	}
	if lvl, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
		cfg.Database.SaltPath = *dbPath + ".salt"
	}
	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: vaultbook-import [flags] FILE...")
		return 2
	}

	password := os.Getenv(*passwordEnv)
	if password == "" {
		log.Error().Str("env", *passwordEnv).Msg("master password not set")
		return 1
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		log.Error().Err(err).Msg("create data dir")
		return 1
	}
	salt, err := secrets.LoadOrCreateSalt(cfg.Database.SaltPath)
	if err != nil {
		log.Error().Err(err).Msg("load salt")
		return 1
	}
	key := secrets.DeriveKey(password, salt, "store")

	store, err := database.Open(cfg.Database.Path, key)
	if err != nil {
		log.Error().Err(err).Msg("open store")
		return 1
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.EnsureSchema(ctx); err != nil {
		log.Error().Err(err).Msg("ensure schema")
		return 1
	}

	ledger := repository.NewLedgerRepo(store)
	importer := &service.ImportService{Store: store, Ledger: ledger}
	summary, err := importer.ImportFiles(ctx, flag.Args())
	if err != nil {
		log.Error().Err(err).Msg("import failed")
		return 1
	}
	log.Info().Str("batch", summary.BatchID).
		Int("files", summary.Files).Int("failed", summary.Failed).
		Int("inserted", summary.Inserted).Int("skipped", summary.Skipped).
		Msg("import complete")

	if *applyRules {
		rules := repository.NewRuleRepo(store)
		updated, err := rules.Apply(ctx, ledger)
		if err != nil {
			log.Error().Err(err).Msg("apply rules")
			return 1
		}
		log.Info().Int64("updated", updated).Msg("rules applied")
	}
	return 0
}
