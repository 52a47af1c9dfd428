package lookupcache

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"marquee/internal/config"
	"marquee/internal/services"
)

// Backend names accepted in configuration.
const (
	BackendFiles  = "files"
	BackendSQLite = "sqlite"
)

// Open returns the store selected by cfg. An empty cache directory yields a
// memory-only store.
func Open(cfg *config.Config, logger *slog.Logger, opts ...Option) (Store, error) {
	opts = append([]Option{WithLogger(logger)}, opts...)
	dir := strings.TrimSpace(cfg.Paths.CacheDir)
	if dir == "" {
		return NewMemoryStore(opts...), nil
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Cache.Backend)) {
	case "", BackendFiles:
		return NewFileStore(dir, opts...)
	case BackendSQLite:
		return NewSQLiteStore(filepath.Join(dir, DatabaseFileName), opts...)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "cache", "open", fmt.Sprintf("unknown backend %q", cfg.Cache.Backend), nil)
	}
}

// PolicyFor builds the TTL policy from configuration.
func PolicyFor(cfg *config.Config) Policy {
	return Policy{NoMatchTTL: cfg.NoMatchTTL()}
}
