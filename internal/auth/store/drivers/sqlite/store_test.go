package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/saifdinehd/shopauth/internal/auth/store"
	"github.com/saifdinehd/shopauth/internal/auth/store/drivers/sqlite"
	"github.com/saifdinehd/shopauth/internal/auth/store/storetest"
	"github.com/stretchr/testify/require"
)

func newMemoryStore(t *testing.T) store.Store {
	t.Helper()
	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())
	return s
}

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, newMemoryStore)
}

func TestApplyMigrationsIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.db")

	s, err := sqlite.NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.Credentials().CreateCredential(context.Background(), storetest.NewCredential("keep@example.com")))
	require.NoError(t, s.Close())

	s, err = sqlite.NewStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.Ping(context.Background()))

	exists, err := s.Credentials().EmailExists(context.Background(), "keep@example.com")
	require.NoError(t, err)
	require.True(t, exists)
}
