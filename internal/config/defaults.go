package config

const (
	defaultConfigPath           = "~/.config/marquee/config.toml"
	defaultOutputDir            = "."
	defaultWorkers              = 4
	defaultMetadataProvider     = "tmdb"
	defaultCacheBackend         = "files"
	defaultNoMatchTTLHours      = 72
	defaultAcceptThreshold      = 0.75
	defaultTitleWeight          = 0.7
	defaultYearWeight           = 0.3
	defaultMaxRateRetries       = 4
	defaultMaxUnavailRetries    = 3
	defaultInitialBackoffMS     = 2000
	defaultMaxBackoffMS         = 60000
	defaultTMDBBaseURL          = "https://api.themoviedb.org/3"
	defaultTMDBLanguage         = "en-US"
	defaultOMDbBaseURL          = "https://www.omdbapi.com"
	defaultYouTubeBaseURL       = "https://www.googleapis.com/youtube/v3"
	defaultMetadataPolitenessMS = 1000
	defaultVideoPolitenessMS    = 2000
	defaultYouTubeMaxResults    = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultExportBaseName       = "lineup"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CacheDir:  defaultCacheDir(),
			OutputDir: defaultOutputDir,
		},
		Enrichment: Enrichment{
			Workers:          defaultWorkers,
			MetadataProvider: defaultMetadataProvider,
		},
		Cache: Cache{
			Backend:         defaultCacheBackend,
			NoMatchTTLHours: defaultNoMatchTTLHours,
		},
		Matching: Matching{
			AcceptThreshold: defaultAcceptThreshold,
			TitleWeight:     defaultTitleWeight,
			YearWeight:      defaultYearWeight,
		},
		Retry: Retry{
			MaxRateRetries:        defaultMaxRateRetries,
			MaxUnavailableRetries: defaultMaxUnavailRetries,
			InitialBackoffMS:      defaultInitialBackoffMS,
			MaxBackoffMS:          defaultMaxBackoffMS,
		},
		TMDB: TMDB{
			BaseURL:      defaultTMDBBaseURL,
			Language:     defaultTMDBLanguage,
			PolitenessMS: defaultMetadataPolitenessMS,
		},
		OMDb: OMDb{
			BaseURL:      defaultOMDbBaseURL,
			PolitenessMS: defaultMetadataPolitenessMS,
		},
		YouTube: YouTube{
			BaseURL:      defaultYouTubeBaseURL,
			PolitenessMS: defaultVideoPolitenessMS,
			MaxResults:   defaultYouTubeMaxResults,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Export: Export{
			Formats:  []string{"json", "csv", "markdown"},
			BaseName: defaultExportBaseName,
		},
	}
}
