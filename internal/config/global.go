// Package config handles the refcheck configuration file, environment
// overrides, and API key discovery.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// GlobalConfig represents configuration stored in ~/.config/refcheck/config.yml.
type GlobalConfig struct {
	ScopusAPIKey   string `yaml:"scopus_api_key,omitempty"`
	SerpAPIKey     string `yaml:"serpapi_key,omitempty"`
	S2APIKey       string `yaml:"s2_api_key,omitempty"`
	CrossrefMailto string `yaml:"crossref_mailto,omitempty"`

	LocalCSV    string `yaml:"local_csv,omitempty"`
	LocalColumn string `yaml:"local_column,omitempty"`

	AnyStyleCommand []string `yaml:"anystyle_command,omitempty"`

	Threshold      float64       `yaml:"threshold,omitempty"`
	LocalThreshold float64       `yaml:"local_threshold,omitempty"`
	MaxWorkers     int           `yaml:"max_workers,omitempty"`
	Timeout        time.Duration `yaml:"timeout,omitempty"`

	CachePath string        `yaml:"cache_path,omitempty"`
	CacheTTL  time.Duration `yaml:"cache_ttl,omitempty"`
	NoCache   bool          `yaml:"no_cache,omitempty"`

	DisableTextFallback bool     `yaml:"disable_text_fallback,omitempty"`
	DisabledSources     []string `yaml:"disabled_sources,omitempty"`
}

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "refcheck"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"
)

// globalConfigCache caches the loaded global config.
var globalConfigCache *GlobalConfig

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/refcheck/config.yml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// LoadGlobalConfig loads the global configuration file.
// Returns an empty config (not an error) if the file doesn't exist.
func LoadGlobalConfig() (*GlobalConfig, error) {
	if globalConfigCache != nil {
		return globalConfigCache, nil
	}

	path := GlobalConfigPath()
	if path == "" {
		return &GlobalConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &GlobalConfig{}, nil
		}
		return nil, fmt.Errorf("reading global config: %w", err)
	}

	var cfg GlobalConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing global config: %w", err)
	}

	cfg.LocalCSV = ExpandTilde(cfg.LocalCSV)
	cfg.CachePath = ExpandTilde(cfg.CachePath)

	globalConfigCache = &cfg
	return &cfg, nil
}

// ResetGlobalConfigCache clears the cached global config.
// Useful for testing.
func ResetGlobalConfigCache() {
	globalConfigCache = nil
}

// SaveGlobalConfig writes cfg to the global config path, creating the
// directory when needed.
func SaveGlobalConfig(cfg *GlobalConfig) error {
	path := GlobalConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding global config: %w", err)
	}
	// Keys live here, keep the file private
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing global config: %w", err)
	}

	globalConfigCache = cfg
	return nil
}

// Keys lists the settable configuration keys.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var setters = map[string]func(*GlobalConfig, string) error{
	"scopus_api_key":  func(c *GlobalConfig, v string) error { c.ScopusAPIKey = v; return nil },
	"serpapi_key":     func(c *GlobalConfig, v string) error { c.SerpAPIKey = v; return nil },
	"s2_api_key":      func(c *GlobalConfig, v string) error { c.S2APIKey = v; return nil },
	"crossref_mailto": func(c *GlobalConfig, v string) error { c.CrossrefMailto = v; return nil },
	"local_csv":       func(c *GlobalConfig, v string) error { c.LocalCSV = ExpandTilde(v); return nil },
	"local_column":    func(c *GlobalConfig, v string) error { c.LocalColumn = v; return nil },
	"cache_path":      func(c *GlobalConfig, v string) error { c.CachePath = ExpandTilde(v); return nil },
	"anystyle_command": func(c *GlobalConfig, v string) error {
		c.AnyStyleCommand = strings.Fields(v)
		return nil
	},
	"threshold": func(c *GlobalConfig, v string) error {
		f, err := parseThreshold(v)
		if err != nil {
			return err
		}
		c.Threshold = f
		return nil
	},
	"local_threshold": func(c *GlobalConfig, v string) error {
		f, err := parseThreshold(v)
		if err != nil {
			return err
		}
		c.LocalThreshold = f
		return nil
	},
	"max_workers": func(c *GlobalConfig, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return fmt.Errorf("max_workers must be a positive integer: %q", v)
		}
		c.MaxWorkers = n
		return nil
	},
	"timeout": func(c *GlobalConfig, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return fmt.Errorf("timeout must be a positive duration like 10s: %q", v)
		}
		c.Timeout = d
		return nil
	},
	"cache_ttl": func(c *GlobalConfig, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return fmt.Errorf("cache_ttl must be a positive duration like 168h: %q", v)
		}
		c.CacheTTL = d
		return nil
	},
	"no_cache": func(c *GlobalConfig, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("no_cache must be true or false: %q", v)
		}
		c.NoCache = b
		return nil
	},
	"disable_text_fallback": func(c *GlobalConfig, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("disable_text_fallback must be true or false: %q", v)
		}
		c.DisableTextFallback = b
		return nil
	},
	"disabled_sources": func(c *GlobalConfig, v string) error {
		c.DisabledSources = nil
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				c.DisabledSources = append(c.DisabledSources, s)
			}
		}
		return nil
	},
}

// Set assigns a value to a configuration key, validating numeric fields.
func (c *GlobalConfig) Set(key, value string) error {
	set, ok := setters[normalizeKey(key)]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return set(c, value)
}

func parseThreshold(v string) (float64, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 || f > 1 {
		return 0, fmt.Errorf("threshold must be in (0, 1]: %q", v)
	}
	return f, nil
}

// normalizeKey accepts both dash and underscore spellings.
func normalizeKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), "-", "_")
}

// ExpandTilde expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandTilde(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, path[1:])
}
