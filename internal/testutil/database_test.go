package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name   string
		driver string
		envKey string
		env    string
		want   string
	}{
		{name: "postgres default", driver: "postgres", envKey: "TEST_POSTGRES_DSN", want: defaultPostgresTestDSN},
		{
			name:   "postgres from env",
			driver: "postgres",
			envKey: "TEST_POSTGRES_DSN",
			env:    "postgres://vault:vault@db:5432/vault",
			want:   "postgres://vault:vault@db:5432/vault",
		},
		{name: "mysql default", driver: "mysql", envKey: "TEST_MYSQL_DSN", want: defaultMySQLTestDSN},
		{
			name:   "mysql from env",
			driver: "mysql",
			envKey: "TEST_MYSQL_DSN",
			env:    "vault:vault@tcp(db:3306)/vault",
			want:   "vault:vault@tcp(db:3306)/vault",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.envKey, tt.env)
			assert.Equal(t, tt.want, DSN(tt.driver))
		})
	}
}

func TestGetMigrationsPath(t *testing.T) {
	for _, dbType := range []string{"postgresql", "mysql"} {
		t.Run(dbType, func(t *testing.T) {
			path, err := getMigrationsPath(dbType)
			require.NoError(t, err)
			assert.True(t, filepath.IsAbs(path))
			assert.Equal(t, dbType, filepath.Base(path))

			entries, err := os.ReadDir(path)
			require.NoError(t, err)
			assert.NotEmpty(t, entries)
		})
	}

	t.Run("unknown database", func(t *testing.T) {
		_, err := getMigrationsPath("oracle")
		assert.ErrorContains(t, err, "migrations directory not found")
	})
}

func TestGetMigrationsPath_FromNestedDirectory(t *testing.T) {
	root, err := getMigrationsPath("postgresql")
	require.NoError(t, err)

	t.Chdir(filepath.Join(filepath.Dir(filepath.Dir(root)), "internal", "vault"))

	path, err := getMigrationsPath("postgresql")
	require.NoError(t, err)
	assert.Equal(t, root, path)
}
