package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cwz-bot/reference-check/internal/config"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Get or set configuration values",
	Long: `Get or set values in ~/.config/refcheck/config.yml.

Usage:
  refcheck config                           # Show effective config (keys masked)
  refcheck config threshold                 # Get specific value
  refcheck config serpapi_key abc123        # Set value
  refcheck config anystyle_command "docker exec anystyle anystyle"
  refcheck config disabled_sources scopus,scholar-text

Keys:
  ` + strings.Join(config.Keys(), "\n  "),
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

// UpdateResponse is the response for config set commands.
type UpdateResponse struct {
	Status string `json:"status"`
	Key    string `json:"key"`
	Path   string `json:"path"`
}

func runConfig(cmd *cobra.Command, args []string) error {
	// No args: show the effective config
	if len(args) == 0 {
		cfg := mustLoadConfig().Redacted()
		if humanOutput {
			fmt.Printf("config file: %s\n", config.GlobalConfigPath())
			for _, kv := range configPairs(&cfg) {
				fmt.Printf("%-22s %s\n", kv[0]+":", kv[1])
			}
			return nil
		}
		return outputJSON(configMap(&cfg))
	}

	key := strings.ReplaceAll(strings.ToLower(args[0]), "-", "_")

	// One arg: get specific value
	if len(args) == 1 {
		cfg := mustLoadConfig().Redacted()
		value, ok := configMap(&cfg)[key]
		if !ok {
			exitWithError(ExitError, "unknown configuration key: %s", args[0])
		}
		if humanOutput {
			fmt.Println(value)
			return nil
		}
		return outputJSON(map[string]string{key: value})
	}

	// Two args: set value in the file, not the effective config
	file, err := config.LoadGlobalConfig()
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	updated := *file
	if err := updated.Set(key, args[1]); err != nil {
		exitWithError(ExitError, "%v", err)
	}
	if err := config.SaveGlobalConfig(&updated); err != nil {
		exitWithError(ExitConfigError, "saving config: %v", err)
	}

	if humanOutput {
		fmt.Printf("Set %s in %s\n", key, config.GlobalConfigPath())
		return nil
	}
	return outputJSON(UpdateResponse{Status: "updated", Key: key, Path: config.GlobalConfigPath()})
}

// configPairs lists settings in display order.
func configPairs(c *config.GlobalConfig) [][2]string {
	return [][2]string{
		{"scopus_api_key", c.ScopusAPIKey},
		{"serpapi_key", c.SerpAPIKey},
		{"s2_api_key", c.S2APIKey},
		{"crossref_mailto", c.CrossrefMailto},
		{"local_csv", c.LocalCSV},
		{"local_column", c.LocalColumn},
		{"anystyle_command", strings.Join(c.AnyStyleCommand, " ")},
		{"threshold", fmt.Sprintf("%g", c.Threshold)},
		{"local_threshold", fmt.Sprintf("%g", c.LocalThreshold)},
		{"max_workers", fmt.Sprintf("%d", c.MaxWorkers)},
		{"timeout", c.Timeout.String()},
		{"cache_path", c.CachePath},
		{"cache_ttl", c.CacheTTL.String()},
		{"no_cache", fmt.Sprintf("%t", c.NoCache)},
		{"disable_text_fallback", fmt.Sprintf("%t", c.DisableTextFallback)},
		{"disabled_sources", strings.Join(c.DisabledSources, ",")},
	}
}

func configMap(c *config.GlobalConfig) map[string]string {
	m := make(map[string]string)
	for _, kv := range configPairs(c) {
		m[kv[0]] = kv[1]
	}
	return m
}
