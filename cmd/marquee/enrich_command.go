package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"marquee/internal/config"
	"marquee/internal/enrichment"
	"marquee/internal/export"
	"marquee/internal/film"
	"marquee/internal/logging"
	"marquee/internal/lookupcache"
	"marquee/internal/preflight"
	"marquee/internal/query"
)

type enrichFlags struct {
	skipMetadata bool
	skipTrailers bool
	limit        int
	workers      int
	cacheDir     string
	cacheBackend string
	provider     string
	delay        time.Duration
	outputDir    string
	outputName   string
	formats      []string
	jsonOutput   bool
}

// enrichReport is the --json form of a run.
type enrichReport struct {
	Summary enrichment.Summary `json:"summary"`
	Outputs []string           `json:"outputs"`
}

func newEnrichCommand(ctx *commandContext) *cobra.Command {
	var flags enrichFlags

	cmd := &cobra.Command{
		Use:   "enrich <lineup.json|lineup.yaml>",
		Short: "Enrich a scraped lineup and write the exports",
		Long: `Resolve every film in the lineup against the metadata and trailer services,
reuse cached lookups from earlier runs, and write the merged lineup in the
configured formats. Interrupting the run keeps finished films and exports them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := applyEnrichFlags(cmd, cfg, flags); err != nil {
				return err
			}
			return runEnrich(cmd, ctx, cfg, args[0], flags.jsonOutput)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&flags.skipMetadata, "skip-metadata", false, "Skip production/distribution lookups")
	f.BoolVar(&flags.skipTrailers, "skip-trailers", false, "Skip trailer lookups")
	f.IntVar(&flags.limit, "limit", 0, "Only enrich the first N films")
	f.IntVar(&flags.workers, "workers", 0, "Films enriched concurrently")
	f.StringVar(&flags.cacheDir, "cache-dir", "", "Lookup cache directory (empty string for memory only)")
	f.StringVar(&flags.cacheBackend, "cache-backend", "", "Lookup cache backend (files or sqlite)")
	f.StringVar(&flags.provider, "provider", "", "Metadata provider (tmdb or omdb)")
	f.DurationVar(&flags.delay, "delay", 0, "Minimum spacing between requests to each service")
	f.StringVarP(&flags.outputDir, "output-dir", "o", "", "Directory for exported files")
	f.StringVar(&flags.outputName, "output-name", "", "Base name for exported files")
	f.StringSliceVarP(&flags.formats, "format", "f", nil, "Export formats (json, csv, markdown)")
	f.BoolVar(&flags.jsonOutput, "json", false, "Print the run summary as JSON")
	return cmd
}

// applyEnrichFlags copies explicitly set flags over cfg and revalidates it.
func applyEnrichFlags(cmd *cobra.Command, cfg *config.Config, flags enrichFlags) error {
	changed := cmd.Flags().Changed
	if changed("skip-metadata") {
		cfg.Enrichment.SkipMetadata = flags.skipMetadata
	}
	if changed("skip-trailers") {
		cfg.Enrichment.SkipTrailers = flags.skipTrailers
	}
	if changed("limit") {
		if flags.limit < 0 {
			return fmt.Errorf("--limit must be >= 0")
		}
		cfg.Enrichment.Limit = flags.limit
	}
	if changed("workers") {
		if flags.workers < 1 {
			return fmt.Errorf("--workers must be >= 1")
		}
		cfg.Enrichment.Workers = flags.workers
	}
	if changed("cache-dir") {
		dir := strings.TrimSpace(flags.cacheDir)
		if dir != "" {
			expanded, err := config.ExpandPath(dir)
			if err != nil {
				return fmt.Errorf("resolve --cache-dir: %w", err)
			}
			dir = expanded
		}
		cfg.Paths.CacheDir = dir
	}
	if changed("cache-backend") {
		cfg.Cache.Backend = strings.ToLower(strings.TrimSpace(flags.cacheBackend))
	}
	if changed("provider") {
		cfg.Enrichment.MetadataProvider = strings.ToLower(strings.TrimSpace(flags.provider))
	}
	if changed("delay") {
		if flags.delay < 0 {
			return fmt.Errorf("--delay must be >= 0")
		}
		ms := int(flags.delay / time.Millisecond)
		cfg.TMDB.PolitenessMS = ms
		cfg.OMDb.PolitenessMS = ms
		cfg.YouTube.PolitenessMS = ms
	}
	if changed("output-dir") {
		expanded, err := config.ExpandPath(strings.TrimSpace(flags.outputDir))
		if err != nil {
			return fmt.Errorf("resolve --output-dir: %w", err)
		}
		cfg.Paths.OutputDir = expanded
	}
	if changed("output-name") {
		cfg.Export.BaseName = strings.TrimSpace(flags.outputName)
	}
	if changed("format") {
		formats := make([]string, 0, len(flags.formats))
		for _, format := range flags.formats {
			format = strings.ToLower(strings.TrimSpace(format))
			if format == "md" {
				format = export.FormatMarkdown
			}
			formats = append(formats, format)
		}
		cfg.Export.Formats = formats
	}
	return cfg.Validate()
}

func runEnrich(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, inputPath string, jsonOutput bool) error {
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	if failed := preflight.Failed(preflight.RunAll(cfg)); len(failed) > 0 {
		parts := make([]string, 0, len(failed))
		for _, r := range failed {
			parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
		return fmt.Errorf("preflight failed: %s", strings.Join(parts, "; "))
	}

	logger, err := ctx.logger(cfg)
	if err != nil {
		return err
	}

	films, err := film.Load(inputPath)
	if err != nil {
		return fmt.Errorf("load lineup: %w", err)
	}
	if len(films) == 0 {
		return fmt.Errorf("%s: %w", inputPath, enrichment.ErrNoFilms)
	}

	store, err := lookupcache.Open(cfg, logger)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer store.Close()

	orch, err := enrichment.NewFromConfig(cfg, store, logger)
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(cmd.Context(), unix.SIGINT, unix.SIGTERM)
	defer stop()

	enriched, summary := orch.Enrich(runCtx, films, enrichment.OptionsFromConfig(cfg))

	// Finished films are exported even when the run was interrupted.
	outputs, err := export.WriteAll(cfg.Paths.OutputDir, cfg.Export.BaseName, cfg.Export.Formats, enriched)
	if err != nil {
		return fmt.Errorf("export lineup: %w", err)
	}
	logger.Info("lineup exported",
		logging.String(logging.FieldEventType, "export_complete"),
		logging.Int("films", len(enriched)),
		logging.Strings("files", outputs),
	)

	if jsonOutput {
		if err := writeJSON(cmd, enrichReport{Summary: summary, Outputs: outputs}); err != nil {
			return err
		}
	} else {
		printRunSummary(cmd.OutOrStdout(), summary, outputs)
	}

	if summary.Cancelled {
		return context.Canceled
	}
	return nil
}

func printRunSummary(out io.Writer, summary enrichment.Summary, outputs []string) {
	heading(out, fmt.Sprintf("Enriched %s films in %s", humanize.Comma(int64(len(summary.Films))), summary.Duration.Round(time.Millisecond)))

	headers := []string{"Lookup", "Accepted", "Rejected", "No match", "Errors", "Skipped", "Disabled", "Cancelled", "Cached"}
	aligns := []columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight}
	rows := make([][]string, 0, len(query.Kinds))
	for _, kind := range query.Kinds {
		c := summary.Counts[kind]
		rows = append(rows, []string{
			kindLabel(kind),
			strconv.Itoa(c.Accepted),
			strconv.Itoa(c.Rejected),
			strconv.Itoa(c.NoCandidates),
			strconv.Itoa(c.Errors),
			strconv.Itoa(c.Skipped),
			strconv.Itoa(c.Disabled),
			strconv.Itoa(c.Cancelled),
			strconv.Itoa(c.CacheHits),
		})
	}
	fmt.Fprintln(out, renderTable(out, headers, rows, aligns))

	if failed := summary.Failed(); len(failed) > 0 {
		fmt.Fprintln(out)
		heading(out, "Failed lookups (not cached; rerun to retry)")
		for _, f := range failed {
			for _, kind := range query.Kinds {
				if o := f.For(kind); o.Status == enrichment.StatusError {
					fmt.Fprintf(out, "  - %s [%s] %s\n", f.Title, kindLabel(kind), o.Err)
				}
			}
		}
	}
	if summary.Cancelled {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Run interrupted; unfinished films were exported without enrichment.")
	}

	fmt.Fprintln(out)
	heading(out, "Outputs")
	for _, path := range outputs {
		fmt.Fprintf(out, "  - %s\n", path)
	}
}

func kindLabel(kind query.Kind) string {
	if kind == query.KindVideo {
		return "trailer"
	}
	return "metadata"
}
