package lookupcache

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"marquee/internal/logging"
	"marquee/internal/lookup"
	"marquee/internal/query"
)

// Entry is one cached lookup outcome. A nil Value records a confirmed
// no-match. A zero TTL never expires.
type Entry struct {
	Key        string                `json:"key"`
	Query      query.NormalizedQuery `json:"query"`
	Value      *lookup.Candidate     `json:"value"`
	Decision   string                `json:"decision"`
	Confidence float64               `json:"confidence"`
	FetchedAt  time.Time             `json:"fetched_at"`
	TTL        time.Duration         `json:"-"`
	TTLSeconds int64                 `json:"ttl_seconds"`
}

// IsNoMatch reports whether the entry records a confirmed absence.
func (e Entry) IsNoMatch() bool { return e.Value == nil }

// ExpiresAt returns the expiry instant and false for permanent entries.
func (e Entry) ExpiresAt() (time.Time, bool) {
	if e.TTL <= 0 {
		return time.Time{}, false
	}
	return e.FetchedAt.Add(e.TTL), true
}

// FreshAt reports whether the entry is still valid at now.
func (e Entry) FreshAt(now time.Time) bool {
	expires, ok := e.ExpiresAt()
	return !ok || now.Before(expires)
}

// Store is the contract shared by all cache backends. Implementations are
// safe for concurrent use.
type Store interface {
	Get(ctx context.Context, q query.NormalizedQuery) (Entry, bool, error)
	Put(ctx context.Context, q query.NormalizedQuery, value *lookup.Candidate, decision string, confidence float64, ttl time.Duration) error
	Invalidate(ctx context.Context, q query.NormalizedQuery) error
	List(ctx context.Context) ([]Entry, error)
	Prune(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
	Close() error
}

// Policy decides how long an outcome stays valid.
type Policy struct {
	NoMatchTTL time.Duration
}

// DefaultNoMatchTTL applies when a policy leaves NoMatchTTL unset.
const DefaultNoMatchTTL = 72 * time.Hour

// TTLFor returns 0 (permanent) for a match and NoMatchTTL for a no-match.
func (p Policy) TTLFor(value *lookup.Candidate) time.Duration {
	if value != nil {
		return 0
	}
	if p.NoMatchTTL <= 0 {
		return DefaultNoMatchTTL
	}
	return p.NoMatchTTL
}

// Option configures a store.
type Option func(*options)

type options struct {
	clock  func() time.Time
	logger *slog.Logger
}

// WithClock overrides the time source used for FetchedAt and freshness.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger sets the logger used for corruption and housekeeping events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{clock: time.Now, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = logging.NewComponentLogger(o.logger, "lookupcache")
	return o
}

func newEntry(q query.NormalizedQuery, value *lookup.Candidate, decision string, confidence float64, ttl time.Duration, now time.Time) Entry {
	if ttl < 0 {
		ttl = 0
	}
	// Persisted with second precision; round up so a short TTL never
	// becomes permanent.
	seconds := int64((ttl + time.Second - 1) / time.Second)
	ttl = time.Duration(seconds) * time.Second
	return Entry{
		Key:        q.Key(),
		Query:      q,
		Value:      cloneCandidate(value),
		Decision:   decision,
		Confidence: confidence,
		FetchedAt:  now.UTC(),
		TTL:        ttl,
		TTLSeconds: seconds,
	}
}

func (e Entry) clone() Entry {
	out := e
	out.Value = cloneCandidate(e.Value)
	if e.Query.Year != nil {
		year := *e.Query.Year
		out.Query.Year = &year
	}
	return out
}

func cloneCandidate(c *lookup.Candidate) *lookup.Candidate {
	if c == nil {
		return nil
	}
	out := *c
	if c.Year != nil {
		year := *c.Year
		out.Year = &year
	}
	out.Payload.ProductionCompanies = slices.Clone(c.Payload.ProductionCompanies)
	return &out
}

func sortNewestFirst(entries []Entry) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		if c := b.FetchedAt.Compare(a.FetchedAt); c != 0 {
			return c
		}
		if a.Key < b.Key {
			return -1
		}
		if a.Key > b.Key {
			return 1
		}
		return 0
	})
}

func logCorrupt(logger *slog.Logger, key, location string, err error) {
	logging.WarnWithContext(logger, "cache entry unreadable; treating as miss", "cache_corrupt",
		logging.String("cache_key", key),
		logging.String("location", location),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "run `marquee cache prune` to drop unreadable entries"),
		logging.String(logging.FieldImpact, "lookup will be repeated against the external service"),
	)
}
