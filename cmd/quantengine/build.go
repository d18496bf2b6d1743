package main

import (
	"fmt"

	"github.com/planetquant/quant-engine/internal/analyzer"
	"github.com/planetquant/quant-engine/internal/archive"
	"github.com/planetquant/quant-engine/internal/config"
	"github.com/planetquant/quant-engine/internal/inference"
	"github.com/planetquant/quant-engine/internal/llm/factory"
	"github.com/planetquant/quant-engine/internal/metrics"
	"github.com/planetquant/quant-engine/internal/scrape/finnhub"
	"github.com/planetquant/quant-engine/internal/scrape/polymarket"
	"github.com/planetquant/quant-engine/internal/scrape/wikipedia"
	"go.uber.org/zap"
)

// loadConfig reads the config file when one is given, or falls back to
// defaults.
func loadConfig(log *zap.Logger) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.Defaults()
		log.Warn("no config file specified, using defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// buildAnalyzer wires the data sources and scorer. A missing LLM key is not
// fatal: the analyzer then answers with an error-shaped inference result.
func buildAnalyzer(cfg *config.Config, reg *metrics.Registry, log *zap.Logger) *analyzer.Analyzer {
	wiki := wikipedia.New(cfg.Sources.Wikipedia.BaseURL, log)
	markets := polymarket.New(cfg.Sources.Polymarket.BaseURL, cfg.Sources.Polymarket.Limit, log)
	finance := finnhub.New(cfg.Sources.Finnhub.BaseURL, cfg.Sources.Finnhub.APIKey, log)

	provider, err := factory.New(cfg.LLM)
	if err != nil {
		log.Warn("LLM provider unavailable, inference will report an error", zap.Error(err))
		provider = nil
	}
	scorer := inference.NewScorer(provider, log)

	return analyzer.New(wiki, markets, finance, scorer, analyzer.Config{
		LookupTimeout:  cfg.Sources.LookupTimeout,
		WikiMaxResults: cfg.Sources.Wikipedia.MaxResults,
		NewsDaysBack:   cfg.Sources.Finnhub.NewsDaysBack,
		MarketLimit:    cfg.Sources.Polymarket.Limit,
	}, reg, log)
}

// buildArchiver returns nil when archiving is disabled.
func buildArchiver(cfg *config.Config, log *zap.Logger) (*archive.Archiver, error) {
	if !cfg.Archive.Enabled {
		return nil, nil
	}

	var storage archive.Storage
	var err error
	switch cfg.Archive.Type {
	case "s3":
		storage, err = archive.NewS3(archive.S3Config{
			Bucket:    cfg.Archive.S3.Bucket,
			Endpoint:  cfg.Archive.S3.Endpoint,
			Region:    cfg.Archive.S3.Region,
			AccessKey: cfg.Archive.S3.AccessKey,
			SecretKey: cfg.Archive.S3.SecretKey,
			Prefix:    cfg.Archive.S3.Prefix,
		})
	default:
		storage, err = archive.NewLocalFS(cfg.Archive.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("creating archive storage: %w", err)
	}
	return archive.NewArchiver(storage, log), nil
}
