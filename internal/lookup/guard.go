package lookup

import (
	"context"
	"log/slog"

	"marquee/internal/logging"
	"marquee/internal/query"
)

// Guarded routes every call to a Searcher through a shared Throttle and a
// RetryPolicy. Each attempt, including retries, waits on the throttle.
type Guarded struct {
	inner    Searcher
	throttle *Throttle
	policy   RetryPolicy
	logger   *slog.Logger
}

var (
	_ Searcher = (*Guarded)(nil)
	_ Detailer = (*Guarded)(nil)
)

// Guard wraps s. A nil throttle disables spacing.
func Guard(s Searcher, throttle *Throttle, policy RetryPolicy, logger *slog.Logger) *Guarded {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Guarded{
		inner:    s,
		throttle: throttle,
		policy:   policy,
		logger:   logger.With(logging.String("service", s.Name())),
	}
}

func (g *Guarded) Name() string     { return g.inner.Name() }
func (g *Guarded) Kind() query.Kind { return g.inner.Kind() }

// Search performs a throttled, retried search.
func (g *Guarded) Search(ctx context.Context, q query.NormalizedQuery) ([]Candidate, error) {
	return Retry(ctx, g.policy, g.logger, func(ctx context.Context) ([]Candidate, error) {
		if err := g.throttle.Wait(ctx); err != nil {
			return nil, err
		}
		return g.inner.Search(ctx, q)
	})
}

// Details performs a throttled, retried detail fetch. Searchers without
// detail support return c unchanged.
func (g *Guarded) Details(ctx context.Context, c Candidate) (Candidate, error) {
	detailer, ok := g.inner.(Detailer)
	if !ok {
		return c, nil
	}
	return Retry(ctx, g.policy, g.logger, func(ctx context.Context) (Candidate, error) {
		if err := g.throttle.Wait(ctx); err != nil {
			return c, err
		}
		return detailer.Details(ctx, c)
	})
}
