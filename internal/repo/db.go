// Package repo implements the data persistence layer for the archive
// schema, backed by GORM. This file contains database bootstrapping helpers
// for SQLite (pure Go driver) and PostgreSQL, plus schema migrations.
package repo

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tbourn/go-post-archive/internal/domain"
)

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	configurePool(db)
	return db, nil
}

// OpenPostgres connects to a PostgreSQL database. Loader sessions are tagged
// with an application_name so they are identifiable in pg_stat_activity.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(withApplicationName(dsn, "postarchive")), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	configurePool(db)
	return db, nil
}

// configurePool bounds the shared connection pool.
func configurePool(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
}

// withApplicationName appends application_name to a DSN unless the caller
// already set one. Both DSN forms are handled: URL ("postgres://...") and
// key/value ("host=... user=...").
func withApplicationName(dsn, name string) string {
	if strings.Contains(strings.ToLower(dsn), "application_name") {
		return dsn
	}
	if strings.Contains(dsn, "://") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		return dsn + sep + "application_name=" + name
	}
	if strings.TrimSpace(dsn) == "" {
		return "application_name=" + name
	}
	return dsn + " application_name=" + name
}

// AutoMigrate creates or upgrades the full archive schema. Dimension tables
// migrate before the tables whose foreign keys point at them.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.URL{},
		&domain.Author{},
		&domain.Post{},
		&domain.PostURL{},
		&domain.Mention{},
		&domain.Tag{},
		&domain.Media{},
	)
}
