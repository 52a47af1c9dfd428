package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable. Provider credentials are only
// required for the lookup kinds that are enabled.
func (c *Config) Validate() error {
	if err := c.validateProviders(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validateExport(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateProviders() error {
	if c.MetadataEnabled() {
		switch c.Enrichment.MetadataProvider {
		case "tmdb":
			if c.TMDB.APIKey == "" {
				return missingKeyError("tmdb.api_key", "TMDB_API_KEY", "--skip-metadata")
			}
		case "omdb":
			if c.OMDb.APIKey == "" {
				return missingKeyError("omdb.api_key", "OMDB_API_KEY", "--skip-metadata")
			}
		default:
			return fmt.Errorf("enrichment.metadata_provider must be tmdb or omdb, got %q", c.Enrichment.MetadataProvider)
		}
	}
	if c.TrailersEnabled() && c.YouTube.APIKey == "" {
		return missingKeyError("youtube.api_key", "YOUTUBE_API_KEY", "--skip-trailers")
	}
	for name, value := range map[string]int{
		"tmdb.politeness_ms":    c.TMDB.PolitenessMS,
		"omdb.politeness_ms":    c.OMDb.PolitenessMS,
		"youtube.politeness_ms": c.YouTube.PolitenessMS,
	} {
		if value < 0 {
			return fmt.Errorf("%s must be >= 0", name)
		}
	}
	return nil
}

func missingKeyError(field, env, flag string) error {
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	return fmt.Errorf("%s is required. Set %s, edit %s (create with 'marquee config init'), or pass %s", field, env, defaultPath, flag)
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case "files", "sqlite":
	default:
		return fmt.Errorf("cache.backend must be files or sqlite, got %q", c.Cache.Backend)
	}
	if c.Cache.NoMatchTTLHours <= 0 {
		return errors.New("cache.no_match_ttl_hours must be positive")
	}
	return nil
}

func (c *Config) validateMatching() error {
	m := c.Matching
	if m.AcceptThreshold <= 0 || m.AcceptThreshold > 1 {
		return errors.New("matching.accept_threshold must be between 0 (exclusive) and 1")
	}
	if m.TitleWeight < 0 || m.YearWeight < 0 {
		return errors.New("matching weights must be >= 0")
	}
	if sum := m.TitleWeight + m.YearWeight; sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("matching.title_weight + matching.year_weight must equal 1, got %.3f", sum)
	}
	return nil
}

func (c *Config) validateRetry() error {
	r := c.Retry
	if r.MaxRateRetries < 0 || r.MaxUnavailableRetries < 0 {
		return errors.New("retry counts must be >= 0")
	}
	if r.InitialBackoffMS <= 0 {
		return errors.New("retry.initial_backoff_ms must be positive")
	}
	if r.MaxBackoffMS < r.InitialBackoffMS {
		return errors.New("retry.max_backoff_ms must be >= retry.initial_backoff_ms")
	}
	return nil
}

func (c *Config) validateExport() error {
	for _, format := range c.Export.Formats {
		switch format {
		case "json", "csv", "markdown":
		default:
			return fmt.Errorf("export.formats: unsupported format %q (use json, csv, markdown)", format)
		}
	}
	if strings.ContainsAny(c.Export.BaseName, `/\`) {
		return errors.New("export.base_name must not contain path separators")
	}
	return nil
}
