package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"bindery/internal/cache"
	"bindery/internal/logging"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the artifact cache",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCachePruneCommand(ctx))
	cacheCmd.AddCommand(newCacheEvictCommand(ctx))

	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show artifact cache usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cacheStore(ctx)
			if err != nil {
				return err
			}

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Entries: %d\n", stats.Entries)
			if stats.MaxBytes > 0 {
				fmt.Fprintf(out, "Size:    %s / %s\n", humanBytes(stats.TotalBytes), humanBytes(stats.MaxBytes))
			} else {
				fmt.Fprintf(out, "Size:    %s (no cap)\n", humanBytes(stats.TotalBytes))
			}
			fmt.Fprintf(out, "Disk:    %s free (%.1f%%)\n", humanBytes(int64(stats.FreeBytes)), stats.FreeRatio*100)
			printCacheEntries(out, stats.Summaries)
			return nil
		},
	}
}

func printCacheEntries(out io.Writer, entries []cache.EntrySummary) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "Cached comics: none")
		return
	}
	const stampLayout = "2006-01-02 15:04"

	headers := []string{"ID", "Title", "Size", "Updated", "Complete"}
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		updated := "unknown"
		if !entry.ModifiedAt.IsZero() {
			updated = entry.ModifiedAt.Local().Format(stampLayout)
		}
		rows = append(rows, []string{
			entry.Identifier,
			entry.Title,
			humanBytes(entry.SizeBytes),
			updated,
			yesNo(entry.Complete),
		})
	}
	fmt.Fprintln(out, renderTable(out, headers, rows, []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft}))
}

func newCachePruneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Prune the artifact cache now",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cacheStore(ctx)
			if err != nil {
				return err
			}
			before, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if err := store.Prune(cmd.Context(), ""); err != nil {
				return err
			}
			after, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			freed := before.TotalBytes - after.TotalBytes
			if freed <= 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No cache entries pruned")
				return nil
			}
			if after.MaxBytes > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %s (now %s / %s)\n",
					humanBytes(freed), humanBytes(after.TotalBytes), humanBytes(after.MaxBytes))
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %s (now %s)\n",
					humanBytes(freed), humanBytes(after.TotalBytes))
			}
			return nil
		},
	}
}

func newCacheEvictCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "evict <id>",
		Short: "Remove one cached comic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cacheStore(ctx)
			if err != nil {
				return err
			}
			if err := store.Evict(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Evicted %s\n", args[0])
			return nil
		},
	}
}

func cacheStore(ctx *commandContext) (*cache.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Options{Level: "warn", Format: "console"})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return cache.NewStore(cfg, logger), nil
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
