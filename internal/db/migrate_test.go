package db

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@localhost:5432/campus?sslmode=disable", MigrationURL("postgres://u:p@localhost:5432/campus?sslmode=disable"))
	assert.Equal(t, "pgx5://localhost/campus", MigrationURL("postgresql://localhost/campus"))
	assert.Equal(t, "pgx5://localhost/campus", MigrationURL("pgx5://localhost/campus"))
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	ups, err := fs.Glob(migrationFiles, "migrations/*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(migrationFiles, "migrations/*.down.sql")
	require.NoError(t, err)

	assert.NotEmpty(t, ups)
	assert.Len(t, downs, len(ups))
}
