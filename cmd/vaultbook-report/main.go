// vaultbook-report prints monthly expense totals from the encrypted store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vaultbook/vaultbook/internal/config"
	"github.com/vaultbook/vaultbook/internal/database"
	"github.com/vaultbook/vaultbook/internal/database/repository"
	"github.com/vaultbook/vaultbook/internal/secrets"
)

func main() {
	os.Exit(run())
}

func run() int {
	dbPath := flag.String("db", "", "path to the encrypted store (default from config)")
	passwordEnv := flag.String("password-env", "VAULTBOOK_PASSWORD", "env var holding the master password")
	year := flag.Int("year", 0, "restrict output to one calendar year")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("load config")
		return 1
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
		cfg.Database.SaltPath = *dbPath + ".salt"
	}
	password := os.Getenv(*passwordEnv)
	if password == "" {
		log.Error().Str("env", *passwordEnv).Msg("master password not set")
		return 1
	}

	salt, err := secrets.LoadOrCreateSalt(cfg.Database.SaltPath)
	if err != nil {
		log.Error().Err(err).Msg("load salt")
		return 1
	}
	store, err := database.Open(cfg.Database.Path, secrets.DeriveKey(password, salt, "store"))
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
	report, err := ledger.Report(ctx)
	if err != nil {
		log.Error().Err(err).Msg("build report")
		return 1
	}

	years := make([]int, 0, len(report))
	for y := range report {
		if *year != 0 && y != *year {
			continue
		}
		years = append(years, y)
	}
	sort.Ints(years)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, y := range years {
		yr := report[y]
		fmt.Fprintf(w, "%d\n", y)
		for i, m := range yr.Months {
			if m == nil {
				continue
			}
			fmt.Fprintf(w, "  %s\t%.2f\n", time.Month(i+1), *m)
		}
		fmt.Fprintf(w, "  min\t%s\n", fmtAmount(yr.Minimum))
		fmt.Fprintf(w, "  max\t%s\n", fmtAmount(yr.Maximum))
		fmt.Fprintf(w, "  avg\t%s\n", fmtAmount(yr.Average))
	}
	w.Flush()
	return 0
}

func fmtAmount(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}
