package lookupcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"marquee/internal/fileutil"
	"marquee/internal/logging"
	"marquee/internal/lookup"
	"marquee/internal/query"
	"marquee/internal/services"
)

const (
	entriesDir    = "lookups"
	lockFileName  = ".lock"
	entrySuffix   = ".json"
	keyStripes    = 64
	lockRetryWait = 25 * time.Millisecond
)

// FileStore keeps one JSON document per key under <dir>/lookups. Writes are
// atomic and serialized across processes with an advisory lock on
// <dir>/.lock; reads take no lock.
type FileStore struct {
	dir      string
	lockPath string
	clock    func() time.Time
	logger   *slog.Logger

	stripes [keyStripes]sync.Mutex

	mu   sync.RWMutex
	memo map[string]Entry
}

var _ Store = (*FileStore)(nil)

// NewFileStore prepares a store rooted at dir.
func NewFileStore(dir string, opts ...Option) (*FileStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("cache directory is empty")
	}
	if err := os.MkdirAll(filepath.Join(dir, entriesDir), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	o := buildOptions(opts)
	return &FileStore{
		dir:      dir,
		lockPath: filepath.Join(dir, lockFileName),
		clock:    o.clock,
		logger:   o.logger,
		memo:     make(map[string]Entry),
	}, nil
}

// Dir exposes the backing directory for inspection.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) Get(ctx context.Context, q query.NormalizedQuery) (Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, false, err
	}
	key := q.Key()
	s.mu.RLock()
	entry, ok := s.memo[key]
	s.mu.RUnlock()
	if !ok {
		path := s.entryPath(q)
		loaded, found, err := s.readEntry(path)
		if err != nil {
			logCorrupt(s.logger, key, path, err)
			return Entry{}, false, nil
		}
		if !found {
			return Entry{}, false, nil
		}
		if loaded.Key != key {
			logCorrupt(s.logger, key, path, fmt.Errorf("%w: stored key %q", services.ErrCacheCorruption, loaded.Key))
			return Entry{}, false, nil
		}
		entry = loaded
		s.mu.Lock()
		s.memo[key] = entry
		s.mu.Unlock()
	}
	if !entry.FreshAt(s.clock()) {
		return Entry{}, false, nil
	}
	return entry.clone(), true, nil
}

func (s *FileStore) Put(ctx context.Context, q query.NormalizedQuery, value *lookup.Candidate, decision string, confidence float64, ttl time.Duration) error {
	entry := newEntry(q, value, decision, confidence, ttl, s.clock())
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	stripe := s.stripe(entry.Key)
	stripe.Lock()
	defer stripe.Unlock()

	path := s.entryPath(q)
	if err := s.withLock(ctx, func() error {
		return fileutil.WriteFileAtomic(path, data, 0o644)
	}); err != nil {
		return err
	}

	s.mu.Lock()
	s.memo[entry.Key] = entry
	s.mu.Unlock()

	s.logger.Debug("cached lookup outcome",
		logging.String("cache_key", entry.Key),
		logging.String("decision", entry.Decision),
		logging.Bool("no_match", entry.IsNoMatch()),
	)
	return nil
}

func (s *FileStore) Invalidate(ctx context.Context, q query.NormalizedQuery) error {
	key := q.Key()
	stripe := s.stripe(key)
	stripe.Lock()
	defer stripe.Unlock()

	if err := s.withLock(ctx, func() error {
		return removeIfExists(s.entryPath(q))
	}); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.memo, key)
	s.mu.Unlock()
	return nil
}

// List returns every readable entry, newest first, expired ones included.
func (s *FileStore) List(ctx context.Context) ([]Entry, error) {
	paths, err := s.entryFiles()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entry, found, err := s.readEntry(path)
		if err != nil {
			logCorrupt(s.logger, filepath.Base(path), path, err)
			continue
		}
		if found {
			entries = append(entries, entry)
		}
	}
	sortNewestFirst(entries)
	return entries, nil
}

// Prune removes expired and unreadable entries and reports how many went.
func (s *FileStore) Prune(ctx context.Context) (int, error) {
	paths, err := s.entryFiles()
	if err != nil {
		return 0, err
	}
	now := s.clock()
	removed := 0
	err = s.withLock(ctx, func() error {
		for _, path := range paths {
			entry, found, readErr := s.readEntry(path)
			if !found && readErr == nil {
				continue
			}
			if readErr == nil && entry.FreshAt(now) {
				continue
			}
			if err := removeIfExists(path); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return removed, err
	}
	s.mu.Lock()
	s.memo = make(map[string]Entry)
	s.mu.Unlock()
	return removed, nil
}

func (s *FileStore) Clear(ctx context.Context) error {
	paths, err := s.entryFiles()
	if err != nil {
		return err
	}
	err = s.withLock(ctx, func() error {
		for _, path := range paths {
			if err := removeIfExists(path); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.memo = make(map[string]Entry)
	s.mu.Unlock()
	s.logger.Debug("cleared lookup cache", logging.Int("removed", len(paths)))
	return nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) entryPath(q query.NormalizedQuery) string {
	return filepath.Join(s.dir, entriesDir, q.Hash()+entrySuffix)
}

func (s *FileStore) entryFiles() ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, entriesDir, "*"+entrySuffix))
	if err != nil {
		return nil, fmt.Errorf("list cache entries: %w", err)
	}
	return paths, nil
}

func (s *FileStore) stripe(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &s.stripes[h.Sum32()%keyStripes]
}

// withLock runs fn while holding the directory lock. Each call opens its own
// lock handle, so goroutines in this process exclude each other as well.
func (s *FileStore) withLock(ctx context.Context, fn func() error) error {
	lock := flock.New(s.lockPath)
	locked, err := lock.TryLockContext(ctx, lockRetryWait)
	if err != nil {
		return fmt.Errorf("acquire cache lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("acquire cache lock: %s busy", s.lockPath)
	}
	defer func() {
		if unlockErr := lock.Unlock(); unlockErr != nil {
			s.logger.Debug("release cache lock failed", logging.Error(unlockErr))
		}
	}()
	return fn()
}

// readEntry decodes the entry at path. A missing file is (zero, false, nil);
// an undecodable one is (zero, false, err).
func (s *FileStore) readEntry(path string) (Entry, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("%w: read: %w", services.ErrCacheCorruption, err)
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return Entry{}, false, fmt.Errorf("%w: decode: %w", services.ErrCacheCorruption, err)
	}
	if entry.Key == "" || entry.FetchedAt.IsZero() {
		return Entry{}, false, fmt.Errorf("%w: incomplete entry", services.ErrCacheCorruption)
	}
	entry.TTL = time.Duration(entry.TTLSeconds) * time.Second
	return entry, true, nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove cache entry: %w", err)
	}
	return nil
}
