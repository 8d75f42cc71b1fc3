package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"subburn/internal/tmcache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the translation memory",
	}
	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cached translations per language pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if _, err := os.Stat(cfg.Cache.Path); errors.Is(err, os.ErrNotExist) {
				fmt.Fprintf(out, "Translation memory is empty (%s not created yet)\n", cfg.Cache.Path)
				return nil
			}
			store, err := tmcache.Open(cmd.Context(), cfg.Cache.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Translation memory: %s\n", stats.Path)
			if !cfg.Cache.Enabled {
				fmt.Fprintln(out, "Caching is disabled in config; entries are kept but not used")
			}
			fmt.Fprintln(out, renderCacheStats(stats))
			if !stats.LastUsed.IsZero() {
				fmt.Fprintf(out, "Last used: %s\n", stats.LastUsed.Local().Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached translation",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if _, err := os.Stat(cfg.Cache.Path); errors.Is(err, os.ErrNotExist) {
				fmt.Fprintln(out, "Translation memory is already empty")
				return nil
			}
			store, err := tmcache.Open(cmd.Context(), cfg.Cache.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Removed %d cached translations from %s\n", removed, cfg.Cache.Path)
			return nil
		},
	}
}
