package cli

import (
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dshills/mender/internal/cache"
	"github.com/dshills/mender/internal/config"
)

var flagCacheJSON bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the resolution cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached resolution in the configured namespace",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(nil)
		if err != nil {
			return err
		}
		n, err := cache.ClearNamespace(cfg.Cache.Dir, cfg.Cache.Namespace)
		if err != nil {
			return fmt.Errorf("clearing cache: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cache cleared (%d entries removed).\n", n)
		return nil
	},
}

var cacheShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(nil)
		if err != nil {
			return err
		}
		c, err := cache.New(cache.Options{
			BaseDir:    cfg.Cache.Dir,
			Namespace:  cfg.Cache.Namespace,
			TTLHours:   cfg.Cache.TTLHours,
			MaxEntries: cfg.Cache.MaxEntries,
		})
		if err != nil {
			return fmt.Errorf("opening cache: %w", err)
		}
		stats, err := c.Stats()
		if err != nil {
			return fmt.Errorf("reading cache stats: %w", err)
		}

		w := cmd.OutOrStdout()
		if flagCacheJSON {
			data, err := json.MarshalIndent(stats, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(w, string(data))
			return nil
		}

		fmt.Fprintf(w, "Directory: %s\n", stats.Dir)
		fmt.Fprintf(w, "Entries:   %s (%s)\n", humanize.Comma(int64(stats.Entries)), humanize.Bytes(uint64(stats.TotalBytes)))
		fmt.Fprintf(w, "Expired:   %s\n", humanize.Comma(int64(stats.Expired)))
		if stats.Entries > 0 {
			fmt.Fprintf(w, "Oldest:    %s\n", humanize.Time(stats.Oldest))
			fmt.Fprintf(w, "Newest:    %s\n", humanize.Time(stats.Newest))
		}
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheShowCmd)
	cacheShowCmd.Flags().BoolVar(&flagCacheJSON, "json", false, "Print statistics as JSON")
}
