package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// ErrNoChange is returned by migrate when the schema is already at the target
// version. Migrate swallows it; it is exported for callers that drive
// migrate directly.
var ErrNoChange = migrate.ErrNoChange

var (
	errEmptyDSN         = errors.New("DATABASE_URL is not set")
	errInvalidDirection = errors.New("direction must be up or down")
)

// Migrate applies the embedded migrations in the given direction ("up" or
// "down").
func Migrate(dsn, direction string) error {
	if strings.TrimSpace(dsn) == "" {
		return errEmptyDSN
	}
	if direction != "up" && direction != "down" {
		return fmt.Errorf("%w, got %q", errInvalidDirection, direction)
	}

	source, err := iofs.New(MigrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrate source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, migrateURL(dsn))
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if direction == "up" {
		err = m.Up()
	} else {
		err = m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate %s: %w", direction, err)
	}
	return nil
}

// migrateURL rewrites a postgres:// DSN to the scheme registered by the pgx/v5
// migrate driver.
func migrateURL(dsn string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if rest, ok := strings.CutPrefix(dsn, prefix); ok {
			return "pgx5://" + rest
		}
	}
	return dsn
}
