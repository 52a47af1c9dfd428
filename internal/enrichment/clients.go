package enrichment

import (
	"fmt"
	"log/slog"
	"time"

	"marquee/internal/classify"
	"marquee/internal/config"
	"marquee/internal/lookup"
	"marquee/internal/lookup/omdb"
	"marquee/internal/lookup/tmdb"
	"marquee/internal/lookup/youtube"
	"marquee/internal/lookupcache"
	"marquee/internal/matching"
	"marquee/internal/services"
)

// Searchers holds the guarded clients for one run. Either field may be nil
// when that kind is disabled.
type Searchers struct {
	Metadata lookup.Searcher
	Video    lookup.Searcher
}

// RetryPolicyFor converts the retry section of cfg.
func RetryPolicyFor(cfg *config.Config) lookup.RetryPolicy {
	return lookup.RetryPolicy{
		MaxRateRetries:        cfg.Retry.MaxRateRetries,
		MaxUnavailableRetries: cfg.Retry.MaxUnavailableRetries,
		InitialBackoff:        cfg.InitialBackoff(),
		MaxBackoff:            cfg.MaxBackoff(),
	}
}

// BuildSearchers constructs the enabled lookup clients from cfg. Each client
// gets its own throttle so politeness intervals hold across all workers.
func BuildSearchers(cfg *config.Config, logger *slog.Logger) (Searchers, error) {
	var out Searchers
	policy := RetryPolicyFor(cfg)

	if cfg.MetadataEnabled() {
		var (
			inner    lookup.Searcher
			interval time.Duration
			err      error
		)
		switch cfg.Enrichment.MetadataProvider {
		case tmdb.Name:
			inner, err = tmdb.New(cfg.TMDB.APIKey, cfg.TMDB.BaseURL, cfg.TMDB.Language)
			interval = milliseconds(cfg.TMDB.PolitenessMS)
		case omdb.Name:
			inner, err = omdb.New(cfg.OMDb.APIKey, cfg.OMDb.BaseURL)
			interval = milliseconds(cfg.OMDb.PolitenessMS)
		default:
			err = fmt.Errorf("unknown metadata provider %q", cfg.Enrichment.MetadataProvider)
		}
		if err != nil {
			return Searchers{}, services.Wrap(services.ErrConfiguration, "enrichment", "build metadata client", "metadata client unavailable", err)
		}
		out.Metadata = lookup.Guard(inner, lookup.NewThrottle(interval), policy, logger)
	}

	if cfg.TrailersEnabled() {
		client, err := youtube.New(cfg.YouTube.APIKey, cfg.YouTube.BaseURL, youtube.WithMaxResults(cfg.YouTube.MaxResults))
		if err != nil {
			return Searchers{}, services.Wrap(services.ErrConfiguration, "enrichment", "build video client", "video client unavailable", err)
		}
		out.Video = lookup.Guard(client, lookup.NewThrottle(milliseconds(cfg.YouTube.PolitenessMS)), policy, logger)
	}
	return out, nil
}

// NewFromConfig wires an Orchestrator from cfg using store for caching.
func NewFromConfig(cfg *config.Config, store lookupcache.Store, logger *slog.Logger) (*Orchestrator, error) {
	searchers, err := BuildSearchers(cfg, logger)
	if err != nil {
		return nil, err
	}
	return New(Deps{
		Store:      store,
		Policy:     lookupcache.PolicyFor(cfg),
		Matcher:    matching.NewFromConfig(cfg, logger),
		Metadata:   searchers.Metadata,
		Video:      searchers.Video,
		Classifier: classify.New(cfg.Enrichment.ReferenceYear),
		Logger:     logger,
	})
}

// OptionsFromConfig returns the run options recorded in cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		SkipMetadata: cfg.Enrichment.SkipMetadata,
		SkipTrailers: cfg.Enrichment.SkipTrailers,
		Limit:        cfg.Enrichment.Limit,
		Workers:      cfg.Enrichment.Workers,
	}
}

func milliseconds(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
