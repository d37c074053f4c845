package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tbourn/go-post-archive/internal/config"
	"github.com/tbourn/go-post-archive/internal/observability"
	"github.com/tbourn/go-post-archive/internal/repo"
	"github.com/tbourn/go-post-archive/internal/sysutil"
)

// version is stamped by the build (-ldflags "-X main.version=...").
var version = "dev"

var dbPath string

var rootCmd = &cobra.Command{
	Use:           "postarchive",
	Short:         "Normalize post archives into a relational store",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides DB_PATH)")
}

// openDB opens the configured backend, attaches tracing when enabled, and
// optionally brings the schema up to date.
func openDB(cfg config.Config, migrate bool) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Database.Driver {
	case "sqlite":
		db, err = repo.OpenSQLite(sysutil.FirstNonEmpty(dbPath, cfg.Database.Path))
	case "postgres":
		db, err = repo.OpenPostgres(cfg.Database.DSN)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
	if err != nil {
		return nil, err
	}

	if cfg.OTEL.Enabled {
		if err := observability.InstrumentGORM(db); err != nil {
			return nil, fmt.Errorf("instrument database: %w", err)
		}
	}
	if migrate {
		if err := repo.AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("migrate schema: %w", err)
		}
	}
	return db, nil
}
