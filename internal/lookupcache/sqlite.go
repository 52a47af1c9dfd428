package lookupcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"marquee/internal/logging"
	"marquee/internal/lookup"
	"marquee/internal/query"
	"marquee/internal/services"
)

// DatabaseFileName is the SQLite backend's file inside the cache directory.
const DatabaseFileName = "lookups.db"

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const schema = `
CREATE TABLE IF NOT EXISTS lookups (
	key             TEXT PRIMARY KEY,
	kind            TEXT NOT NULL,
	canonical_title TEXT NOT NULL,
	year            INTEGER,
	value_json      TEXT,
	decision        TEXT NOT NULL,
	confidence      REAL NOT NULL,
	fetched_at      INTEGER NOT NULL,
	ttl_seconds     INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_lookups_fetched_at ON lookups(fetched_at);
`

const selectColumns = "key, kind, canonical_title, year, value_json, decision, confidence, fetched_at, ttl_seconds"

// SQLiteStore keeps entries in a single WAL-mode database.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	clock  func() time.Time
	logger *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates the database at path.
func NewSQLiteStore(path string, opts ...Option) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("cache database path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// busy_timeout is per connection; a single writer connection keeps it in
	// force for every statement.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}

	o := buildOptions(opts)
	return &SQLiteStore{db: db, path: path, clock: o.clock, logger: o.logger}, nil
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) Get(ctx context.Context, q query.NormalizedQuery) (Entry, bool, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM lookups WHERE key = ?", q.Key())
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		if errors.Is(err, services.ErrCacheCorruption) {
			logCorrupt(s.logger, q.Key(), s.path, err)
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("query cache entry: %w", err)
	}
	if !entry.FreshAt(s.clock()) {
		return Entry{}, false, nil
	}
	return entry, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, q query.NormalizedQuery, value *lookup.Candidate, decision string, confidence float64, ttl time.Duration) error {
	entry := newEntry(q, value, decision, confidence, ttl, s.clock())
	var valueJSON sql.NullString
	if entry.Value != nil {
		data, err := json.Marshal(entry.Value)
		if err != nil {
			return fmt.Errorf("encode cache value: %w", err)
		}
		valueJSON = sql.NullString{String: string(data), Valid: true}
	}
	var year sql.NullInt64
	if q.Year != nil {
		year = sql.NullInt64{Int64: int64(*q.Year), Valid: true}
	}
	return s.execWithRetry(ctx, `
INSERT INTO lookups (key, kind, canonical_title, year, value_json, decision, confidence, fetched_at, ttl_seconds)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
	kind = excluded.kind,
	canonical_title = excluded.canonical_title,
	year = excluded.year,
	value_json = excluded.value_json,
	decision = excluded.decision,
	confidence = excluded.confidence,
	fetched_at = excluded.fetched_at,
	ttl_seconds = excluded.ttl_seconds`,
		entry.Key, string(q.Kind), q.CanonicalTitle, year, valueJSON,
		entry.Decision, entry.Confidence, entry.FetchedAt.UnixNano(), entry.TTLSeconds,
	)
}

func (s *SQLiteStore) Invalidate(ctx context.Context, q query.NormalizedQuery) error {
	return s.execWithRetry(ctx, "DELETE FROM lookups WHERE key = ?", q.Key())
}

func (s *SQLiteStore) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+selectColumns+" FROM lookups ORDER BY fetched_at DESC, key ASC")
	if err != nil {
		return nil, fmt.Errorf("list cache entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			if errors.Is(err, services.ErrCacheCorruption) {
				logCorrupt(s.logger, entry.Key, s.path, err)
				continue
			}
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cache entries: %w", err)
	}
	return entries, nil
}

func (s *SQLiteStore) Prune(ctx context.Context) (int, error) {
	now := s.clock().UnixNano()
	var removed int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			"DELETE FROM lookups WHERE ttl_seconds > 0 AND fetched_at + ttl_seconds * 1000000000 <= ?", now)
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("prune cache: %w", err)
	}
	return int(removed), nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	return s.execWithRetry(ctx, "DELETE FROM lookups")
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		entry      Entry
		kind       string
		year       sql.NullInt64
		valueJSON  sql.NullString
		fetchedAt  int64
		ttlSeconds int64
	)
	if err := row.Scan(&entry.Key, &kind, &entry.Query.CanonicalTitle, &year, &valueJSON,
		&entry.Decision, &entry.Confidence, &fetchedAt, &ttlSeconds); err != nil {
		return Entry{}, err
	}
	parsedKind, err := query.ParseKind(kind)
	if err != nil {
		return entry, fmt.Errorf("%w: %w", services.ErrCacheCorruption, err)
	}
	entry.Query.Kind = parsedKind
	if year.Valid {
		y := int(year.Int64)
		entry.Query.Year = &y
	}
	if valueJSON.Valid {
		var value lookup.Candidate
		if err := json.Unmarshal([]byte(valueJSON.String), &value); err != nil {
			return entry, fmt.Errorf("%w: decode value: %w", services.ErrCacheCorruption, err)
		}
		entry.Value = &value
	}
	entry.FetchedAt = time.Unix(0, fetchedAt).UTC()
	entry.TTLSeconds = ttlSeconds
	entry.TTL = time.Duration(ttlSeconds) * time.Second
	return entry, nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *SQLiteStore) execWithRetry(ctx context.Context, stmt string, args ...any) error {
	err := retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, stmt, args...)
		return err
	})
	if err != nil {
		s.logger.Debug("cache write failed", logging.Error(err))
		return fmt.Errorf("write cache: %w", err)
	}
	return nil
}
