package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"marquee/internal/matching"
	"marquee/internal/preflight"
)

type statusReport struct {
	ConfigPath      string             `json:"config_path"`
	ConfigExists    bool               `json:"config_exists"`
	CacheBackend    string             `json:"cache_backend"`
	CacheDir        string             `json:"cache_dir"`
	CacheEntries    int                `json:"cache_entries"`
	AcceptThreshold float64            `json:"accept_threshold"`
	Checks          []preflight.Result `json:"checks"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show configuration, cache, and readiness checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			report := statusReport{
				ConfigPath:      ctx.configPath,
				ConfigExists:    ctx.configExists,
				CacheBackend:    cfg.Cache.Backend,
				CacheDir:        cfg.Paths.CacheDir,
				CacheEntries:    len(entries),
				AcceptThreshold: matching.NewFromConfig(cfg, nil).Threshold(),
				Checks:          preflight.RunAll(cfg),
			}
			if report.CacheDir == "" {
				report.CacheBackend = "memory"
			}
			if jsonOutput {
				return writeJSON(cmd, report)
			}

			out := cmd.OutOrStdout()
			heading(out, "Configuration")
			fmt.Fprintf(out, "Config file:   %s (exists: %s)\n", report.ConfigPath, yesNo(report.ConfigExists))
			fmt.Fprintf(out, "Cache backend: %s\n", report.CacheBackend)
			if report.CacheDir != "" {
				fmt.Fprintf(out, "Cache dir:     %s\n", report.CacheDir)
			}
			fmt.Fprintf(out, "Cache entries: %s\n", humanize.Comma(int64(report.CacheEntries)))
			fmt.Fprintf(out, "Match threshold: %.2f\n", report.AcceptThreshold)
			fmt.Fprintln(out)

			heading(out, "Checks")
			rows := make([][]string, 0, len(report.Checks))
			for _, r := range report.Checks {
				state := "ok"
				if !r.Passed {
					state = "FAIL"
				}
				rows = append(rows, []string{r.Name, state, r.Detail})
			}
			fmt.Fprintln(out, renderTable(out, []string{"Check", "State", "Detail"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the report as JSON")
	return cmd
}
