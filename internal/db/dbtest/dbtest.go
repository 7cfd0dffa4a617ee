// Package dbtest opens throwaway migrated stores for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Gopher0727/HappyBot/config"
	"github.com/Gopher0727/HappyBot/internal/db"
	logger "github.com/Gopher0727/HappyBot/middleware/log"
)

// Open returns a migrated sqlite store in a temporary directory. The store
// is closed when the test ends.
func Open(t testing.TB) *db.Store {
	t.Helper()

	store, err := db.Open(config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "happy.db"),
	}, logger.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate store: %v", err)
	}
	return store
}
