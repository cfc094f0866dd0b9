package db

import (
	"embed"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// MigrationURL rewrites a postgres DSN to the scheme the pgx/v5 migrate
// driver registers.
func MigrationURL(dsn string) string {
	for _, scheme := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(dsn, scheme) {
			return "pgx5://" + strings.TrimPrefix(dsn, scheme)
		}
	}
	return dsn
}

func newMigrate(dsn string) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, errors.Wrap(err, "opening embedded migrations")
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, MigrationURL(dsn))
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize golang-migrate")
	}
	return m, nil
}

// MigrateUp applies every pending migration.
func MigrateUp(dsn string, logger *zap.Logger) error {
	return runMigration(dsn, logger, "up", func(m *migrate.Migrate) error { return m.Up() })
}

// MigrateDown rolls back the given number of migrations.
func MigrateDown(dsn string, steps int, logger *zap.Logger) error {
	return runMigration(dsn, logger, "down", func(m *migrate.Migrate) error { return m.Steps(-steps) })
}

func runMigration(dsn string, logger *zap.Logger, direction string, fn func(*migrate.Migrate) error) error {
	m, err := newMigrate(dsn)
	if err != nil {
		return err
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Error("Error closing migration", zap.NamedError("source", srcErr), zap.NamedError("database", dbErr))
		}
	}()

	err = fn(m)
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("No new golang-migrate migrations to apply.", zap.String("direction", direction))
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "golang-migrate %s failed", direction)
	}

	version, dirty, _ := m.Version()
	logger.Info("golang-migrate migrations applied successfully.",
		zap.String("direction", direction), zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}
