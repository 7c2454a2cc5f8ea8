package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/cwz-bot/reference-check/internal/cache"
	"github.com/cwz-bot/reference-check/internal/localdb"
	"github.com/cwz-bot/reference-check/internal/match"
	"github.com/cwz-bot/reference-check/internal/parser"
	"github.com/cwz-bot/reference-check/internal/reference"
	"github.com/cwz-bot/reference-check/internal/scheduler"
	"github.com/cwz-bot/reference-check/internal/sources"
)

// Environment variables that override the config file.
const (
	EnvScopusKey      = "SCOPUS_API_KEY"
	EnvSerpAPIKey     = "SERPAPI_KEY"
	EnvS2Key          = "S2_API_KEY"
	EnvCrossrefMailto = "CROSSREF_MAILTO"
	EnvLocalCSV       = "REFCHECK_LOCAL_CSV"
	EnvCachePath      = "REFCHECK_CACHE"
)

// Key files read from the working directory when no other source provides
// the key.
const (
	ScopusKeyFile  = "scopus_key.txt"
	SerpAPIKeyFile = "serpapi_key.txt"
)

// DefaultLocalCSV is looked up in the working directory when local_csv is
// unset.
const DefaultLocalCSV = "112ndltd.csv"

// LoadDotEnv loads a .env file from dir if present. Variables already set in
// the environment win.
func LoadDotEnv(dir string) error {
	err := godotenv.Load(filepath.Join(dir, ".env"))
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Load returns the effective configuration for a run from dir: the global
// file, then .env and environment overrides, then key files, then defaults.
// Missing API keys are not an error; the affected sources report
// "No API Key".
func Load(dir string) (*GlobalConfig, error) {
	if err := LoadDotEnv(dir); err != nil {
		return nil, err
	}
	file, err := LoadGlobalConfig()
	if err != nil {
		return nil, err
	}
	cfg := *file
	cfg.AnyStyleCommand = append([]string(nil), file.AnyStyleCommand...)
	cfg.DisabledSources = append([]string(nil), file.DisabledSources...)

	applyEnv(&cfg)
	applyKeyFiles(&cfg, dir)
	applyDefaults(&cfg, dir)
	return &cfg, nil
}

func applyEnv(cfg *GlobalConfig) {
	override := func(dst *string, names ...string) {
		for _, name := range names {
			if v := strings.TrimSpace(os.Getenv(name)); v != "" {
				*dst = v
				return
			}
		}
	}
	override(&cfg.ScopusAPIKey, EnvScopusKey)
	override(&cfg.SerpAPIKey, EnvSerpAPIKey, "SERPAPI_API_KEY")
	override(&cfg.S2APIKey, EnvS2Key, "SEMANTIC_SCHOLAR_API_KEY")
	override(&cfg.CrossrefMailto, EnvCrossrefMailto)
	override(&cfg.LocalCSV, EnvLocalCSV)
	override(&cfg.CachePath, EnvCachePath)
}

func applyKeyFiles(cfg *GlobalConfig, dir string) {
	if cfg.ScopusAPIKey == "" {
		cfg.ScopusAPIKey = readKeyFile(filepath.Join(dir, ScopusKeyFile))
	}
	if cfg.SerpAPIKey == "" {
		cfg.SerpAPIKey = readKeyFile(filepath.Join(dir, SerpAPIKeyFile))
	}
}

func readKeyFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func applyDefaults(cfg *GlobalConfig, dir string) {
	if cfg.Threshold <= 0 {
		cfg.Threshold = match.DefaultThreshold
	}
	if cfg.LocalThreshold <= 0 {
		cfg.LocalThreshold = localdb.DefaultThreshold
	}
	if cfg.LocalColumn == "" {
		cfg.LocalColumn = localdb.DefaultColumn
	}
	if cfg.LocalCSV == "" {
		if p := filepath.Join(dir, DefaultLocalCSV); fileExists(p) {
			cfg.LocalCSV = p
		}
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = scheduler.DefaultMaxWorkers
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = sources.DefaultTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = cache.DefaultTTL
	}
	if cfg.CachePath == "" {
		cfg.CachePath = DefaultCachePath()
	}
	if len(cfg.AnyStyleCommand) == 0 {
		cfg.AnyStyleCommand = append([]string(nil), parser.DefaultCommand...)
	}
}

// DefaultCachePath returns the response cache location under the user cache
// directory, or "" when none is available.
func DefaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, GlobalConfigDir, "responses.db")
}

// sourceAliases maps short names accepted in disabled_sources to source
// names.
var sourceAliases = map[string]string{
	"local":        reference.SourceLocal,
	"crossref":     reference.SourceCrossref,
	"scopus":       reference.SourceScopus,
	"openalex":     reference.SourceOpenAlex,
	"s2":           reference.SourceS2,
	"scholar":      reference.SourceScholar,
	"scholar-text": reference.SourceScholarFallback,
	"website":      reference.SourceWebsite,
}

// SourceAliases returns the accepted short source names, sorted.
func SourceAliases() []string {
	out := make([]string, 0, len(sourceAliases))
	for k := range sourceAliases {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Disabled returns the disabled source names as a set. Entries may be short
// aliases ("s2", "scholar-text") or full source names.
func (c *GlobalConfig) Disabled() map[string]bool {
	set := make(map[string]bool, len(c.DisabledSources))
	for _, s := range c.DisabledSources {
		if name, ok := sourceAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
			s = name
		}
		set[s] = true
	}
	return set
}

// Redacted returns a copy safe to print: API keys are masked.
func (c *GlobalConfig) Redacted() GlobalConfig {
	r := *c
	r.ScopusAPIKey = mask(r.ScopusAPIKey)
	r.SerpAPIKey = mask(r.SerpAPIKey)
	r.S2APIKey = mask(r.S2APIKey)
	return r
}

func mask(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-2:]
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// RequestTimeout returns the per-request timeout, falling back to the
// default for zero values.
func (c *GlobalConfig) RequestTimeout() time.Duration {
	if c.Timeout <= 0 {
		return sources.DefaultTimeout
	}
	return c.Timeout
}
