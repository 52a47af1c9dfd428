package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"marquee/internal/lookupcache"
	"marquee/internal/query"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the lookup cache",
	}

	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCacheInvalidateCommand(ctx))
	cacheCmd.AddCommand(newCachePruneCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))

	return cacheCmd
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	var kindFlag string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached lookups, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			var kind query.Kind
			if strings.TrimSpace(kindFlag) != "" {
				parsed, err := query.ParseKind(kindFlag)
				if err != nil {
					return err
				}
				kind = parsed
			}

			store, _, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if kind != "" {
				filtered := entries[:0]
				for _, e := range entries {
					if e.Query.Kind == kind {
						filtered = append(filtered, e)
					}
				}
				entries = filtered
			}

			if jsonOutput {
				if entries == nil {
					entries = []lookupcache.Entry{}
				}
				return writeJSON(cmd, entries)
			}
			printCacheEntries(cmd.OutOrStdout(), entries, time.Now())
			return nil
		},
	}

	cmd.Flags().StringVar(&kindFlag, "kind", "", "Only show one lookup kind (metadata or video)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print entries as JSON")
	return cmd
}

func printCacheEntries(out io.Writer, entries []lookupcache.Entry, now time.Time) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "Cached lookups: none")
		return
	}
	heading(out, fmt.Sprintf("Cached lookups: %s", humanize.Comma(int64(len(entries)))))

	headers := []string{"Kind", "Title", "Year", "Decision", "Confidence", "Match", "Fetched", "Expires"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft, alignLeft, alignLeft}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		match := "-"
		if e.Value != nil {
			match = e.Value.Title
			if e.Value.ExternalID != "" {
				match = fmt.Sprintf("%s (%s)", match, e.Value.ExternalID)
			}
		}
		expires := "never"
		if at, ok := e.ExpiresAt(); ok {
			if at.Before(now) {
				expires = "expired"
			} else {
				expires = humanize.RelTime(at, now, "ago", "from now")
			}
		}
		rows = append(rows, []string{
			string(e.Query.Kind),
			e.Query.CanonicalTitle,
			e.Query.YearString(),
			e.Decision,
			strconv.FormatFloat(e.Confidence, 'f', 3, 64),
			match,
			humanize.RelTime(e.FetchedAt, now, "ago", "from now"),
			expires,
		})
	}
	fmt.Fprintln(out, renderTable(out, headers, rows, aligns))
}

func newCacheInvalidateCommand(ctx *commandContext) *cobra.Command {
	var year int
	var kindFlag string

	cmd := &cobra.Command{
		Use:   "invalidate <title>",
		Short: "Drop the cached lookups for one title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := query.Kinds
			if strings.TrimSpace(kindFlag) != "" {
				kind, err := query.ParseKind(kindFlag)
				if err != nil {
					return err
				}
				kinds = []query.Kind{kind}
			}
			var yearPtr *int
			if cmd.Flags().Changed("year") {
				yearPtr = &year
			}

			store, _, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			for _, kind := range kinds {
				q := query.Normalize(args[0], yearPtr, kind)
				if err := store.Invalidate(cmd.Context(), q); err != nil {
					return err
				}
				fmt.Fprintf(out, "Invalidated %s\n", q.Key())
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "Release year the lookup was made with")
	cmd.Flags().StringVar(&kindFlag, "kind", "", "Only invalidate one lookup kind (metadata or video)")
	return cmd
}

func newCachePruneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove expired and unreadable cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Prune(cmd.Context())
			if err != nil {
				return err
			}
			if removed == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No cache entries pruned")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %s %s\n", humanize.Comma(int64(removed)), plural(removed, "entry", "entries"))
			return nil
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached lookup",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear the cache without --yes")
			}
			store, _, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Lookup cache cleared")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deleting every entry")
	return cmd
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
