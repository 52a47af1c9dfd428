package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"marquee/internal/classify"
	"marquee/internal/film"
	"marquee/internal/logging"
	"marquee/internal/lookup"
	"marquee/internal/lookup/youtube"
	"marquee/internal/lookupcache"
	"marquee/internal/matching"
	"marquee/internal/query"
	"marquee/internal/services"
)

// DefaultWorkers is used when Options.Workers is not positive.
const DefaultWorkers = 4

// Options tunes one Enrich call.
type Options struct {
	SkipMetadata bool
	SkipTrailers bool
	// Limit truncates the input to its first Limit films when positive.
	Limit   int
	Workers int
}

// Deps are the collaborators an Orchestrator drives. Metadata and Video may be
// nil, which disables that kind. Searchers are expected to be wrapped with
// lookup.Guard so every call is throttled and retried.
type Deps struct {
	Store      lookupcache.Store
	Policy     lookupcache.Policy
	Matcher    *matching.Matcher
	Metadata   lookup.Searcher
	Video      lookup.Searcher
	Classifier *classify.Classifier
	Logger     *slog.Logger
	// Now is used for run timing; defaults to time.Now.
	Now func() time.Time
}

// Orchestrator enriches batches of films.
type Orchestrator struct {
	store      lookupcache.Store
	policy     lookupcache.Policy
	matcher    *matching.Matcher
	searchers  map[query.Kind]lookup.Searcher
	classifier *classify.Classifier
	logger     *slog.Logger
	now        func() time.Time
	flights    singleflight.Group
}

// New validates deps and returns an orchestrator.
func New(deps Deps) (*Orchestrator, error) {
	if deps.Store == nil {
		return nil, services.Wrap(services.ErrConfiguration, "enrichment", "init", "cache store required", nil)
	}
	matcher := deps.Matcher
	if matcher == nil {
		matcher = matching.New(0, 0, 0, deps.Logger)
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	searchers := make(map[query.Kind]lookup.Searcher, 2)
	if deps.Metadata != nil {
		searchers[query.KindMetadata] = deps.Metadata
	}
	if deps.Video != nil {
		searchers[query.KindVideo] = deps.Video
	}
	return &Orchestrator{
		store:      deps.Store,
		policy:     deps.Policy,
		matcher:    matcher,
		searchers:  searchers,
		classifier: deps.Classifier,
		logger:     logging.NewComponentLogger(deps.Logger, "enrichment"),
		now:        now,
	}, nil
}

// Enrich returns enriched copies of films in input order along with a run
// summary. The input slice is never modified.
func (o *Orchestrator) Enrich(ctx context.Context, films []film.Record, opts Options) ([]film.Record, Summary) {
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, o.logger)
	started := o.now()

	if opts.Limit > 0 && opts.Limit < len(films) {
		films = films[:opts.Limit]
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	out := make([]film.Record, len(films))
	outcomes := make([]FilmOutcome, len(films))
	for i := range films {
		out[i] = films[i].Clone()
		outcomes[i] = FilmOutcome{
			Index:    i,
			Slug:     out[i].Slug,
			Title:    out[i].Title,
			Metadata: Outcome{Status: StatusCancelled, Reason: "run cancelled before lookup"},
			Trailer:  Outcome{Status: StatusCancelled, Reason: "run cancelled before lookup"},
		}
	}

	logger.Info("enrichment started",
		logging.String(logging.FieldEventType, "enrichment_start"),
		logging.Int("films", len(films)),
		logging.Int("workers", workers),
		logging.Bool("metadata", o.enabled(query.KindMetadata, opts)),
		logging.Bool("trailers", o.enabled(query.KindVideo, opts)),
	)

	var g errgroup.Group
	g.SetLimit(workers)
	for i := range out {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			outcomes[i] = o.enrichFilm(ctx, i, &out[i], opts)
			return nil
		})
	}
	_ = g.Wait()

	if o.classifier != nil {
		o.classifier.Apply(out)
	}

	summary := Summary{
		RunID:     runID,
		StartedAt: started,
		Duration:  o.now().Sub(started),
		Films:     outcomes,
		Cancelled: ctx.Err() != nil,
	}
	summary.tally()

	meta, video := summary.Counts[query.KindMetadata], summary.Counts[query.KindVideo]
	logger.Info("enrichment finished",
		logging.String(logging.FieldEventType, "enrichment_complete"),
		logging.Int("films", len(out)),
		logging.Int("metadata_accepted", meta.Accepted),
		logging.Int("metadata_errors", meta.Errors),
		logging.Int("trailers_accepted", video.Accepted),
		logging.Int("trailer_errors", video.Errors),
		logging.Int("cache_hits", meta.CacheHits+video.CacheHits),
		logging.Bool("cancelled", summary.Cancelled),
		logging.Duration("duration", summary.Duration),
	)
	return out, summary
}

func (o *Orchestrator) enabled(kind query.Kind, opts Options) bool {
	if kind == query.KindMetadata && opts.SkipMetadata {
		return false
	}
	if kind == query.KindVideo && opts.SkipTrailers {
		return false
	}
	_, ok := o.searchers[kind]
	return ok
}

// enrichFilm runs both kinds for one film concurrently and merges accepted
// matches once both have finished.
func (o *Orchestrator) enrichFilm(ctx context.Context, index int, rec *film.Record, opts Options) FilmOutcome {
	ctx = services.WithFilm(services.WithFilmIndex(ctx, index), rec.Slug)
	if rec.Title != "" {
		rec.Enrichment.TrailerSearchURL = youtube.SearchURL(rec.Title, rec.Director, rec.Year)
	}

	var (
		wg      sync.WaitGroup
		results [2]kindResult
	)
	for slot, kind := range query.Kinds {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[slot] = o.enrichKind(ctx, *rec, kind, opts)
		}()
	}
	wg.Wait()

	fo := FilmOutcome{Index: index, Slug: rec.Slug, Title: rec.Title}
	for slot, kind := range query.Kinds {
		res := results[slot]
		if res.outcome.Status == StatusAccepted {
			merge(rec, kind, res.candidate, res.outcome.Confidence)
		}
		if kind == query.KindVideo {
			fo.Trailer = res.outcome
		} else {
			fo.Metadata = res.outcome
		}
	}

	logging.WithContext(ctx, o.logger).Info("film enriched",
		logging.String(logging.FieldEventType, "film_enriched"),
		logging.String("metadata_status", string(fo.Metadata.Status)),
		logging.String("trailer_status", string(fo.Trailer.Status)),
	)
	return fo
}

type kindResult struct {
	outcome   Outcome
	candidate *lookup.Candidate
}

// flightResult is what a singleflight lookup hands every caller.
type flightResult struct {
	result matching.Result
}

func (o *Orchestrator) enrichKind(ctx context.Context, rec film.Record, kind query.Kind, opts Options) kindResult {
	ctx = services.WithKind(ctx, string(kind))
	logger := logging.WithContext(ctx, o.logger)

	if !o.enabled(kind, opts) {
		reason := "no client configured"
		if (kind == query.KindMetadata && opts.SkipMetadata) || (kind == query.KindVideo && opts.SkipTrailers) {
			reason = "disabled for this run"
		}
		return kindResult{outcome: Outcome{Status: StatusDisabled, Reason: reason}}
	}
	if reason, skip := ineligible(rec, kind); skip {
		logger.Info("lookup skipped", logging.Args(logging.DecisionAttrs("eligibility", "skipped", reason)...)...)
		return kindResult{outcome: Outcome{Status: StatusSkipped, Reason: reason}}
	}
	if ctx.Err() != nil {
		return kindResult{outcome: Outcome{Status: StatusCancelled, Reason: "run cancelled before lookup"}}
	}

	q := query.Normalize(rec.Title, rec.Year, kind)

	if entry, ok, err := o.store.Get(ctx, q); err != nil {
		logging.WarnWithContext(logger, "cache read failed; falling back to lookup", "cache_read_failed",
			logging.String("cache_key", q.Key()),
			logging.Error(err),
			logging.String(logging.FieldImpact, "lookup repeated against the external service"),
		)
	} else if ok {
		logger.Debug("cache hit", logging.Args(logging.DecisionAttrs("cache", "hit", entry.Decision)...)...)
		return fromEntry(entry)
	}

	searcher := o.searchers[kind]
	value, err, shared := o.flights.Do(q.Key(), func() (any, error) {
		// In-flight calls finish and are cached even if the run is cancelled;
		// pending retries are abandoned.
		res, err := o.lookup(lookup.Detach(ctx), rec, q, searcher)
		if err != nil {
			return nil, err
		}
		return flightResult{result: res}, nil
	})
	if err != nil {
		logging.WarnWithContext(logger, "lookup failed", "lookup_failed",
			logging.String("service", searcher.Name()),
			logging.String("failure_class", string(lookup.Classify(err))),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "rerun later; failed lookups are not cached"),
		)
		return kindResult{outcome: Outcome{
			Status:   StatusError,
			Decision: matching.NoCandidates,
			Reason:   services.FailureKind(err),
			Err:      err.Error(),
		}}
	}
	res := value.(flightResult).result
	out := fromResult(res)
	out.outcome.FromCache = shared
	return out
}

// lookup searches, matches, fetches details for an accepted match, and stores
// the outcome. Errors are returned uncached.
func (o *Orchestrator) lookup(ctx context.Context, rec film.Record, q query.NormalizedQuery, searcher lookup.Searcher) (matching.Result, error) {
	logger := logging.WithContext(ctx, o.logger)
	candidates, err := searcher.Search(ctx, q)
	if err != nil {
		return matching.Result{}, err
	}
	result := o.matcher.Match(rec, q, candidates)

	if result.Decision == matching.Accepted {
		if detailer, ok := searcher.(lookup.Detailer); ok {
			detailed, detailErr := detailer.Details(ctx, *result.Candidate)
			if detailErr != nil {
				logging.WarnWithContext(logger, "detail fetch failed; keeping search result", "details_failed",
					logging.String("service", searcher.Name()),
					logging.String("candidate_id", result.Candidate.ExternalID),
					logging.Error(detailErr),
					logging.String(logging.FieldImpact, "production and distributor fields may be empty"),
				)
			} else {
				result.Candidate = &detailed
			}
		}
	}

	var value *lookup.Candidate
	if result.Decision == matching.Accepted {
		value = result.Candidate
	}
	if err := o.store.Put(ctx, q, value, string(result.Decision), result.Confidence, o.policy.TTLFor(value)); err != nil {
		logging.WarnWithContext(logger, "cache write failed", "cache_write_failed",
			logging.String("cache_key", q.Key()),
			logging.Error(err),
			logging.String(logging.FieldImpact, "next run repeats this lookup"),
		)
	}
	return result, nil
}

func fromEntry(entry lookupcache.Entry) kindResult {
	out := kindResult{outcome: Outcome{Confidence: entry.Confidence, FromCache: true}}
	switch {
	case entry.Value != nil:
		out.outcome.Status = StatusAccepted
		out.outcome.Decision = matching.Accepted
		out.candidate = entry.Value
	case entry.Decision == string(matching.RejectedLowConfidence):
		out.outcome.Status = StatusRejected
		out.outcome.Decision = matching.RejectedLowConfidence
		out.outcome.Reason = "cached low-confidence result"
	default:
		out.outcome.Status = StatusNoCandidates
		out.outcome.Decision = matching.NoCandidates
		out.outcome.Reason = "cached no-match"
	}
	return out
}

func fromResult(res matching.Result) kindResult {
	switch res.Decision {
	case matching.Accepted:
		return kindResult{
			outcome:   Outcome{Status: StatusAccepted, Decision: matching.Accepted, Confidence: res.Confidence},
			candidate: res.Candidate,
		}
	case matching.RejectedLowConfidence:
		return kindResult{outcome: Outcome{
			Status:     StatusRejected,
			Decision:   matching.RejectedLowConfidence,
			Confidence: res.Confidence,
			Reason:     fmt.Sprintf("best candidate %q below threshold", candidateTitle(res.Candidate)),
		}}
	default:
		return kindResult{outcome: Outcome{Status: StatusNoCandidates, Decision: matching.NoCandidates, Reason: "no matching candidates"}}
	}
}

func candidateTitle(c *lookup.Candidate) string {
	if c == nil {
		return ""
	}
	return c.Title
}

// ErrNoFilms is returned by callers that refuse to run on an empty batch.
var ErrNoFilms = errors.New("no films to enrich")
