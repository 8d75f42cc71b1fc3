package testsupport

import (
	"context"
	"testing"

	"subburn/internal/config"
	"subburn/internal/tmcache"
)

// MustOpenStore opens the translation memory configured in cfg and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *tmcache.Store {
	t.Helper()

	store, err := tmcache.Open(context.Background(), cfg.Cache.Path)
	if err != nil {
		t.Fatalf("tmcache.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
