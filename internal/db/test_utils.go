package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestDatabase opens a fresh sqlite database in a per-test temp directory
func newTestDatabase(t *testing.T) *Database {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db")
	database, err := NewDatabase(dsn)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = database.Close()
	})

	return database
}
