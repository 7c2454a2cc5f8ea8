package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// setupConfigHome points XDG_CONFIG_HOME at a temp dir and optionally writes
// a config file there.
func setupConfigHome(t *testing.T, yamlBody string) string {
	t.Helper()
	ResetGlobalConfigCache()
	t.Cleanup(ResetGlobalConfigCache)

	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	if yamlBody == "" {
		return home
	}

	dir := filepath.Join(home, GlobalConfigDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, GlobalConfigFile), []byte(yamlBody), 0o644); err != nil {
		t.Fatal(err)
	}
	return home
}

func TestGlobalConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	if got, want := GlobalConfigPath(), "/custom/config/refcheck/config.yml"; got != want {
		t.Errorf("GlobalConfigPath() = %q, want %q", got, want)
	}

	t.Setenv("XDG_CONFIG_HOME", "")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}
	want := filepath.Join(home, ".config", "refcheck", "config.yml")
	if got := GlobalConfigPath(); got != want {
		t.Errorf("GlobalConfigPath() = %q, want %q", got, want)
	}
}

func TestLoadGlobalConfig_NotFound(t *testing.T) {
	setupConfigHome(t, "")

	cfg, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("LoadGlobalConfig() error = %v", err)
	}
	if diff := cmp.Diff(&GlobalConfig{}, cfg); diff != "" {
		t.Errorf("LoadGlobalConfig() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadGlobalConfig_Valid(t *testing.T) {
	setupConfigHome(t, `
scopus_api_key: scopus-test
serpapi_key: serp-test
crossref_mailto: me@example.org
local_csv: ~/data/112ndltd.csv
anystyle_command: [docker, exec, anystyle, anystyle]
threshold: 0.92
max_workers: 8
timeout: 15s
cache_ttl: 48h
disabled_sources: [scopus, Google Scholar]
`)

	cfg, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("LoadGlobalConfig() error = %v", err)
	}

	home, _ := os.UserHomeDir()
	want := &GlobalConfig{
		ScopusAPIKey:    "scopus-test",
		SerpAPIKey:      "serp-test",
		CrossrefMailto:  "me@example.org",
		LocalCSV:        filepath.Join(home, "data/112ndltd.csv"),
		AnyStyleCommand: []string{"docker", "exec", "anystyle", "anystyle"},
		Threshold:       0.92,
		MaxWorkers:      8,
		Timeout:         15 * time.Second,
		CacheTTL:        48 * time.Hour,
		DisabledSources: []string{"scopus", "Google Scholar"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("LoadGlobalConfig() mismatch (-want +got):\n%s", diff)
	}

	// Second call is served from the cache
	again, _ := LoadGlobalConfig()
	if again != cfg {
		t.Error("LoadGlobalConfig() did not return the cached config")
	}
}

func TestLoadGlobalConfig_InvalidYAML(t *testing.T) {
	setupConfigHome(t, "threshold: [not, a, number\n")

	if _, err := LoadGlobalConfig(); err == nil {
		t.Error("LoadGlobalConfig() should return error for invalid YAML")
	}
}

func TestGlobalConfig_Set(t *testing.T) {
	var cfg GlobalConfig

	tests := []struct {
		key     string
		value   string
		wantErr bool
	}{
		{"scopus_api_key", "abc", false},
		{"serpapi-key", "def", false},
		{"threshold", "0.95", false},
		{"threshold", "1.5", true},
		{"local_threshold", "zero", true},
		{"max_workers", "3", false},
		{"max_workers", "0", true},
		{"timeout", "20s", false},
		{"timeout", "soon", true},
		{"anystyle_command", "docker exec anystyle anystyle", false},
		{"disabled_sources", "scopus, s2,", false},
		{"no_cache", "true", false},
		{"no_cache", "maybe", true},
		{"nexus_path", "/x", true},
	}
	for _, tt := range tests {
		err := cfg.Set(tt.key, tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("Set(%q, %q) error = %v, wantErr %v", tt.key, tt.value, err, tt.wantErr)
		}
	}

	if cfg.ScopusAPIKey != "abc" || cfg.SerpAPIKey != "def" {
		t.Errorf("keys = %q, %q", cfg.ScopusAPIKey, cfg.SerpAPIKey)
	}
	if cfg.Threshold != 0.95 || cfg.MaxWorkers != 3 || cfg.Timeout != 20*time.Second || !cfg.NoCache {
		t.Errorf("cfg = %+v", cfg)
	}
	if diff := cmp.Diff([]string{"docker", "exec", "anystyle", "anystyle"}, cfg.AnyStyleCommand); diff != "" {
		t.Errorf("AnyStyleCommand mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"scopus", "s2"}, cfg.DisabledSources); diff != "" {
		t.Errorf("DisabledSources mismatch (-want +got):\n%s", diff)
	}
}

func TestGlobalConfig_SetRejectedValueKeepsPrevious(t *testing.T) {
	cfg := GlobalConfig{Threshold: 0.9, LocalThreshold: 0.85, DisableTextFallback: true}

	for key, value := range map[string]string{
		"threshold":             "1.5",
		"local_threshold":       "-1",
		"disable_text_fallback": "sometimes",
	} {
		if err := cfg.Set(key, value); err == nil {
			t.Errorf("Set(%q, %q) succeeded, want error", key, value)
		}
	}

	want := GlobalConfig{Threshold: 0.9, LocalThreshold: 0.85, DisableTextFallback: true}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("cfg changed by rejected values (-want +got):\n%s", diff)
	}
}

func TestSaveGlobalConfig(t *testing.T) {
	setupConfigHome(t, "")

	cfg := &GlobalConfig{SerpAPIKey: "serp", Timeout: 12 * time.Second, MaxWorkers: 2}
	if err := SaveGlobalConfig(cfg); err != nil {
		t.Fatalf("SaveGlobalConfig() error = %v", err)
	}

	info, err := os.Stat(GlobalConfigPath())
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config file mode = %o, want 600", perm)
	}

	ResetGlobalConfigCache()
	got, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("LoadGlobalConfig() error = %v", err)
	}
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Errorf("saved config mismatch (-want +got):\n%s", diff)
	}
}

func TestKeys(t *testing.T) {
	keys := Keys()
	if len(keys) != len(setters) {
		t.Fatalf("Keys() = %d entries, want %d", len(keys), len(setters))
	}
	for i := 1; i < len(keys); i++ {
		if keys[i-1] > keys[i] {
			t.Errorf("Keys() not sorted: %v", keys)
			break
		}
	}
}

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"/abs/path", "/abs/path"},
		{"~/x/y.csv", filepath.Join(home, "x/y.csv")},
	}
	for _, tt := range tests {
		if got := ExpandTilde(tt.input); got != tt.want {
			t.Errorf("ExpandTilde(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
