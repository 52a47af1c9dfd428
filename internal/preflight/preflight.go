package preflight

import (
	"marquee/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes the checks that apply to cfg. Credential checks only run
// for lookup kinds that are enabled.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Cache directory (empty means memory-only)
	if cfg.Paths.CacheDir != "" {
		results = append(results, CheckDirectoryAccess("Cache directory", cfg.Paths.CacheDir))
	}

	results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))

	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}

	if cfg.MetadataEnabled() {
		switch cfg.Enrichment.MetadataProvider {
		case "omdb":
			results = append(results, CheckCredential("OMDb API key", cfg.OMDb.APIKey, "OMDB_API_KEY"))
		default:
			results = append(results, CheckCredential("TMDB API key", cfg.TMDB.APIKey, "TMDB_API_KEY"))
		}
	}
	if cfg.TrailersEnabled() {
		results = append(results, CheckCredential("YouTube API key", cfg.YouTube.APIKey, "YOUTUBE_API_KEY"))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
