// Package main provides the refcheck CLI entry point.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cwz-bot/reference-check/internal/config"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

// logLevel overrides LOG_LEVEL when set
var logLevel string

func main() {
	if err := rootCmd.Execute(); err != nil {
		// SilenceErrors is set, so cobra errors are printed here
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "refcheck",
	Short: "Verify that bibliography entries refer to real publications",
	Long: `refcheck checks the reference list of a paper against bibliographic
services and reports, for each entry, where it was confirmed.

Sources are consulted in order: a local thesis catalogue (CJK titles),
Crossref, Scopus, OpenAlex, Semantic Scholar, Google Scholar, and finally
the entry's own URL. The first confident title match wins.

API keys are read from ~/.config/refcheck/config.yml, the environment
(SCOPUS_API_KEY, SERPAPI_KEY, S2_API_KEY), a .env file, or the legacy
scopus_key.txt / serpapi_key.txt files. Missing keys skip that source.

All commands output JSON by default. Use --human for readable output.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogger(logLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default from LOG_LEVEL)")
	rootCmd.Version = Version
}

// setupLogger installs a text slog handler on stderr. The flag wins over
// LOG_LEVEL; the default is WARN so JSON on stdout stays the only output.
func setupLogger(flagLevel string) {
	name := flagLevel
	if name == "" {
		name = os.Getenv("LOG_LEVEL")
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(name)})))
}

func parseLevel(name string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// workingDir returns the directory used for .env and key-file discovery.
func workingDir() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return cwd
}

// mustLoadConfig loads the effective configuration, exits on error.
func mustLoadConfig() *config.GlobalConfig {
	cfg, err := config.Load(workingDir())
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	return cfg
}
