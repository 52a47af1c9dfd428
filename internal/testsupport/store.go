package testsupport

import (
	"testing"

	"marquee/internal/config"
	"marquee/internal/logging"
	"marquee/internal/lookupcache"
)

// MustOpenStore opens the lookup cache selected by cfg and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config, opts ...lookupcache.Option) lookupcache.Store {
	t.Helper()

	store, err := lookupcache.Open(cfg, logging.NewNop(), opts...)
	if err != nil {
		t.Fatalf("lookupcache.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
