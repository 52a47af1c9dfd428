package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	CacheDir  string `toml:"cache_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
}

// Enrichment contains run-level switches for the enrichment pipeline.
type Enrichment struct {
	SkipMetadata     bool   `toml:"skip_metadata"`
	SkipTrailers     bool   `toml:"skip_trailers"`
	Limit            int    `toml:"limit"`
	Workers          int    `toml:"workers"`
	MetadataProvider string `toml:"metadata_provider"`
	// ReferenceYear anchors the "older than five years" restoration rule.
	// Zero means the current calendar year.
	ReferenceYear int `toml:"reference_year"`
}

// Cache contains configuration for the lookup cache.
type Cache struct {
	Backend         string `toml:"backend"`
	NoMatchTTLHours int    `toml:"no_match_ttl_hours"`
}

// Matching contains candidate scoring knobs.
type Matching struct {
	AcceptThreshold float64 `toml:"accept_threshold"`
	TitleWeight     float64 `toml:"title_weight"`
	YearWeight      float64 `toml:"year_weight"`
}

// Retry contains backoff bounds shared by every lookup client.
type Retry struct {
	MaxRateRetries        int `toml:"max_rate_retries"`
	MaxUnavailableRetries int `toml:"max_unavailable_retries"`
	InitialBackoffMS      int `toml:"initial_backoff_ms"`
	MaxBackoffMS          int `toml:"max_backoff_ms"`
}

// TMDB contains configuration for The Movie Database API.
type TMDB struct {
	APIKey       string `toml:"api_key"`
	BaseURL      string `toml:"base_url"`
	Language     string `toml:"language"`
	PolitenessMS int    `toml:"politeness_ms"`
}

// OMDb contains configuration for the Open Movie Database API.
type OMDb struct {
	APIKey       string `toml:"api_key"`
	BaseURL      string `toml:"base_url"`
	PolitenessMS int    `toml:"politeness_ms"`
}

// YouTube contains configuration for the YouTube Data API.
type YouTube struct {
	APIKey       string `toml:"api_key"`
	BaseURL      string `toml:"base_url"`
	PolitenessMS int    `toml:"politeness_ms"`
	MaxResults   int    `toml:"max_results"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Export contains configuration for the lineup writers.
type Export struct {
	Formats  []string `toml:"formats"`
	BaseName string   `toml:"base_name"`
}

// Config encapsulates all configuration values for marquee.
//
// Configuration sections by subsystem:
//   - Paths: cache, output, and log directories
//   - Enrichment: which lookups run and how many at once
//   - Cache: lookup cache backend and no-match expiry
//   - Matching: candidate acceptance threshold and score weights
//   - Retry: backoff bounds for rate-limited or unavailable services
//   - TMDB / OMDb: metadata providers
//   - YouTube: trailer provider
//   - Logging: log format and level
//   - Export: output formats and file base name
type Config struct {
	Paths      Paths      `toml:"paths"`
	Enrichment Enrichment `toml:"enrichment"`
	Cache      Cache      `toml:"cache"`
	Matching   Matching   `toml:"matching"`
	Retry      Retry      `toml:"retry"`
	TMDB       TMDB       `toml:"tmdb"`
	OMDb       OMDb       `toml:"omdb"`
	YouTube    YouTube    `toml:"youtube"`
	Logging    Logging    `toml:"logging"`
	Export     Export     `toml:"export"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg, resolvedPath, exists, err := Read(path)
	if err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return cfg, resolvedPath, exists, nil
}

// Read locates and parses a configuration file without validating it, so
// callers can apply command-line overrides before calling Validate.
func Read(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("marquee.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the cache and output directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.CacheDir, c.Paths.OutputDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// NoMatchTTL returns how long a confirmed no-match stays fresh in the cache.
func (c *Config) NoMatchTTL() time.Duration {
	return time.Duration(c.Cache.NoMatchTTLHours) * time.Hour
}

// InitialBackoff returns the first retry delay.
func (c *Config) InitialBackoff() time.Duration {
	return time.Duration(c.Retry.InitialBackoffMS) * time.Millisecond
}

// MaxBackoff caps the exponential retry delay.
func (c *Config) MaxBackoff() time.Duration {
	return time.Duration(c.Retry.MaxBackoffMS) * time.Millisecond
}

// MetadataEnabled reports whether metadata lookups will run.
func (c *Config) MetadataEnabled() bool {
	return !c.Enrichment.SkipMetadata
}

// TrailersEnabled reports whether trailer lookups will run.
func (c *Config) TrailersEnabled() bool {
	return !c.Enrichment.SkipTrailers
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "marquee")
	}
	return "~/.cache/marquee"
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders cfg as TOML, masking API keys.
func (c *Config) Encode() ([]byte, error) {
	masked := *c
	masked.TMDB.APIKey = maskSecret(masked.TMDB.APIKey)
	masked.OMDb.APIKey = maskSecret(masked.OMDb.APIKey)
	masked.YouTube.APIKey = maskSecret(masked.YouTube.APIKey)
	return toml.Marshal(masked)
}

func maskSecret(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return "****"
	}
	return value[:2] + strings.Repeat("*", len(value)-4) + value[len(value)-2:]
}
