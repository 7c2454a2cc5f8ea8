package main

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"slices"

	"github.com/cwz-bot/reference-check/internal/cache"
	"github.com/cwz-bot/reference-check/internal/cascade"
	"github.com/cwz-bot/reference-check/internal/config"
	"github.com/cwz-bot/reference-check/internal/localdb"
	"github.com/cwz-bot/reference-check/internal/sources"
)

// pipeline bundles the resolver with the resources it holds open.
type pipeline struct {
	resolver *cascade.Resolver
	cache    *cache.DB
}

func (p *pipeline) Close() {
	if p.cache != nil {
		p.cache.Close()
	}
}

// openCache opens the response cache. Failures are logged and the run
// continues uncached.
func openCache(cfg *config.GlobalConfig) *cache.DB {
	if cfg.NoCache || cfg.CachePath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.CachePath), 0o755); err != nil {
		slog.Warn("response cache disabled", "path", cfg.CachePath, "error", err)
		return nil
	}
	db, err := cache.Open(cfg.CachePath, cfg.CacheTTL)
	if err != nil {
		slog.Warn("response cache disabled", "path", cfg.CachePath, "error", err)
		return nil
	}
	return db
}

// loadLocalIndex loads the local catalogue. A configured but unreadable
// catalogue is logged and skipped.
func loadLocalIndex(cfg *config.GlobalConfig) *localdb.Index {
	if cfg.LocalCSV == "" {
		return nil
	}
	table, err := localdb.Load(cfg.LocalCSV)
	if err != nil {
		slog.Warn("local catalogue unavailable", "path", cfg.LocalCSV, "error", err)
		return nil
	}
	ix, err := table.Index(cfg.LocalColumn)
	if err != nil {
		slog.Warn("local catalogue unavailable", "path", cfg.LocalCSV, "column", cfg.LocalColumn, "error", err)
		return nil
	}
	slog.Info("local catalogue loaded", "path", cfg.LocalCSV, "rows", table.Len())
	return ix
}

// buildSources wires every adapter from cfg. db may be nil.
func buildSources(cfg *config.GlobalConfig, db *cache.DB, local *localdb.Index) cascade.Sources {
	hc := &http.Client{Timeout: cfg.RequestTimeout()}
	common := []sources.Option{
		sources.WithHTTPClient(hc),
		sources.WithThreshold(cfg.Threshold),
	}
	if db != nil {
		common = append(common, sources.WithCache(db))
	}
	with := func(extra ...sources.Option) []sources.Option {
		return append(slices.Clone(common), extra...)
	}

	return cascade.Sources{
		Local:           sources.NewLocal(local, cfg.LocalThreshold),
		Crossref:        sources.NewCrossref(with(sources.WithMailto(cfg.CrossrefMailto))...),
		Scopus:          sources.NewScopus(with(sources.WithAPIKey(cfg.ScopusAPIKey))...),
		OpenAlex:        sources.NewOpenAlex(with(sources.WithMailto(cfg.CrossrefMailto))...),
		SemanticScholar: sources.NewSemanticScholar(with(sources.WithAPIKey(cfg.S2APIKey))...),
		Scholar:         sources.NewScholar(with(sources.WithAPIKey(cfg.SerpAPIKey))...),
		Website:         sources.NewWebsite(sources.WithHTTPClient(hc)),
	}
}

// newPipeline builds a resolver from cfg.
func newPipeline(cfg *config.GlobalConfig) *pipeline {
	db := openCache(cfg)
	src := buildSources(cfg, db, loadLocalIndex(cfg))
	r := cascade.New(src, cascade.Options{
		EnableRefTextFallback: !cfg.DisableTextFallback,
		Disabled:              cfg.Disabled(),
		Logger:                slog.Default(),
	})
	return &pipeline{resolver: r, cache: db}
}
