// Package migration creates the schema on startup so a fresh database
// is usable without manual steps. Postgres runs versioned SQL
// migrations; other dialects fall back to gorm auto-migration.
package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	logdomain "github.com/subsidytracker/subsidytracker/internal/collectionlog/domain"
	subsidydomain "github.com/subsidytracker/subsidytracker/internal/subsidy/domain"
	"gorm.io/gorm"
)

//go:embed sql/*.sql
var embeddedMigrations embed.FS

const migrationsDir = "sql"

func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// AutoMigrate covers sqlite and mysql, where the versioned SQL files
// do not apply.
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&subsidydomain.Region{},
		&subsidydomain.Category{},
		&subsidydomain.TargetGroup{},
		&subsidydomain.Subsidy{},
		&subsidydomain.SubsidyTargetGroup{},
		&logdomain.CollectionLog{},
	)
}
