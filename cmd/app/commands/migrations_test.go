package commands

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsPath(t *testing.T) {
	assert.Equal(t, "file://migrations/mysql", migrationsPath("mysql"))
	assert.Equal(t, "file://migrations/postgresql", migrationsPath("postgres"))
}

func TestRunMigrations(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("unknown database scheme", func(t *testing.T) {
		err := RunMigrations(logger, "postgres", "sqlite://vault.db")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create migrate instance")
	})

	t.Run("invalid connection string", func(t *testing.T) {
		err := RunMigrations(logger, "mysql", "invalid-connection-string")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create migrate instance")
	})
}
