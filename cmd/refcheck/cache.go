package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/cwz-bot/reference-check/internal/cache"
	"github.com/cwz-bot/reference-check/internal/config"
)

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cachePruneCmd, cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or empty the API response cache",
	Long: `Successful API responses are cached in SQLite so re-checking the same
reference list does not repeat lookups. Entries older than cache_ttl are
ignored and removed by 'refcheck cache prune'.`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache size and age",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db := mustOpenCache()
		defer db.Close()

		s, err := db.Stats()
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		if !humanOutput {
			return outputJSON(struct {
				Path string `json:"path"`
				cache.Stats
			}{cfg.CachePath, s})
		}
		fmt.Printf("Cache:   %s\n", cfg.CachePath)
		fmt.Printf("Entries: %d (%d stale)\n", s.Entries, s.Stale)
		fmt.Printf("Size:    %s\n", humanize.Bytes(uint64(s.Bytes)))
		if !s.Oldest.IsZero() {
			fmt.Printf("Oldest:  %s\n", humanize.Time(s.Oldest))
		}
		return nil
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove stale cache entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db := mustOpenCache()
		defer db.Close()

		n, err := db.Prune()
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		return reportCacheChange(cfg, "pruned", n)
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cache entry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db := mustOpenCache()
		defer db.Close()

		n, err := db.Clear()
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		return reportCacheChange(cfg, "cleared", n)
	},
}

func reportCacheChange(cfg *config.GlobalConfig, status string, n int) error {
	if humanOutput {
		fmt.Printf("%s %d entries from %s\n", status, n, cfg.CachePath)
		return nil
	}
	return outputJSON(StatusResponse{Status: status, Count: n, Path: cfg.CachePath})
}

// mustOpenCache opens the configured cache, exits on error.
func mustOpenCache() (*config.GlobalConfig, *cache.DB) {
	cfg := mustLoadConfig()
	if cfg.CachePath == "" {
		exitWithError(ExitConfigError, "no cache_path configured")
	}
	if _, err := os.Stat(cfg.CachePath); err != nil {
		exitWithError(ExitConfigError, "cache not found at %s", cfg.CachePath)
	}
	db, err := cache.Open(cfg.CachePath, cfg.CacheTTL)
	if err != nil {
		exitWithError(ExitError, "opening cache: %v", err)
	}
	return cfg, db
}
