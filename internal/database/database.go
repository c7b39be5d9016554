// Package database opens the libsql connection and applies schema migrations.
package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/tursodatabase/go-libsql"

	"github.com/csvtree/csvtree-api/internal/database/migrations"
)

// New opens a libsql database from a DSN. Three deployment shapes are
// supported: a plain local file ("file:csvtree.db"), an embedded replica
// synced against Turso cloud when TURSO_URL and TURSO_AUTH_TOKEN are set,
// and a local libsql server over http for development.
func New(dsn string) (*sql.DB, error) {
	db, err := open(dsn)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func open(dsn string) (*sql.DB, error) {
	tursoURL := os.Getenv("TURSO_URL")
	tursoToken := os.Getenv("TURSO_AUTH_TOKEN")
	if tursoURL == "" || tursoToken == "" {
		db, err := sql.Open("libsql", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		return db, nil
	}

	// Embedded replica: reads hit the local file, writes sync to Turso.
	path := strings.TrimPrefix(dsn, "file:")
	path, _, _ = strings.Cut(path, "?")

	connector, err := libsql.NewEmbeddedReplicaConnector(path, tursoURL,
		libsql.WithAuthToken(tursoToken),
		libsql.WithReadYourWrites(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Turso connector: %w", err)
	}
	return sql.OpenDB(connector), nil
}

// Migrate applies pending migrations.
// User identity lives with the auth provider; user_id columns store the
// token subject and carry no foreign key.
func Migrate(db *sql.DB) error {
	return MigrateWithLogger(db, nil)
}

// MigrateWithLogger applies pending migrations, logging each one applied.
func MigrateWithLogger(db *sql.DB, logger *slog.Logger) error {
	return migrations.Run(db, logger)
}

// GetAppliedMigrations reports which migrations have been applied.
func GetAppliedMigrations(db *sql.DB) ([]migrations.AppliedMigration, error) {
	return migrations.GetAppliedMigrations(db)
}
