package lookup

import (
	"context"
	"log/slog"
	"time"

	"marquee/internal/logging"
)

// Retry defaults applied when a policy leaves a bound unset.
const (
	DefaultMaxRateRetries        = 4
	DefaultMaxUnavailableRetries = 3
	DefaultInitialBackoff        = 2 * time.Second
	DefaultMaxBackoff            = 60 * time.Second
)

// RetryPolicy bounds automatic retries of transient failures. Rate limits and
// unavailability are counted separately.
type RetryPolicy struct {
	MaxRateRetries        int
	MaxUnavailableRetries int
	InitialBackoff        time.Duration
	MaxBackoff            time.Duration

	// Sleep is used between attempts; tests substitute a recorder.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRateRetries:        DefaultMaxRateRetries,
		MaxUnavailableRetries: DefaultMaxUnavailableRetries,
		InitialBackoff:        DefaultInitialBackoff,
		MaxBackoff:            DefaultMaxBackoff,
	}
}

// Backoff returns the delay before retry number attempt (1-based), doubling
// from InitialBackoff and capped at MaxBackoff.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	initial := p.InitialBackoff
	if initial <= 0 {
		return 0
	}
	limit := p.MaxBackoff
	if limit <= 0 || limit < initial {
		limit = initial
	}
	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= limit {
			return limit
		}
	}
	return delay
}

func (p RetryPolicy) budget(class Class) int {
	switch class {
	case ClassRateLimited:
		return max(p.MaxRateRetries, 0)
	case ClassUnavailable:
		return max(p.MaxUnavailableRetries, 0)
	default:
		return 0
	}
}

func (p RetryPolicy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	return SleepWithContext(ctx, d)
}

// Retry runs fn until it succeeds, fails permanently, exhausts the retry
// budget for its failure class, or ctx is cancelled. The last error is
// returned unchanged.
func Retry[T any](ctx context.Context, policy RetryPolicy, logger *slog.Logger, fn func(context.Context) (T, error)) (T, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	used := map[Class]int{}
	for {
		value, err := fn(ctx)
		if err == nil {
			return value, nil
		}
		class := Classify(err)
		if used[class] >= policy.budget(class) {
			return value, err
		}
		used[class]++
		delay := policy.Backoff(used[class])
		if hint, ok := RetryAfter(err); ok && hint > delay {
			delay = min(hint, max(policy.MaxBackoff, policy.InitialBackoff))
		}
		logger.Debug("retrying lookup",
			logging.String("failure_class", string(class)),
			logging.Int("attempt", used[class]),
			logging.Duration("backoff", delay),
			logging.Error(err),
		)
		if sleepErr := policy.sleep(interruptOf(ctx), delay); sleepErr != nil {
			return value, err
		}
	}
}

type interruptKey struct{}

// Detach returns a context that keeps ctx's values but not its cancellation,
// so a request already on the wire can finish. Retry still stops waiting
// between attempts once ctx is done.
func Detach(ctx context.Context) context.Context {
	return context.WithValue(context.WithoutCancel(ctx), interruptKey{}, ctx)
}

func interruptOf(ctx context.Context) context.Context {
	if parent, ok := ctx.Value(interruptKey{}).(context.Context); ok {
		return parent
	}
	return ctx
}

// SleepWithContext blocks for d, returning early if ctx is cancelled.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
