// Package app wires configuration into the process-wide components shared by
// the API server and the CLI.
package app

import (
	"context"
	"fmt"

	"github.com/timmy/mojiscan/internal/config"
	"github.com/timmy/mojiscan/internal/inference"
	"github.com/timmy/mojiscan/internal/logger"
	"github.com/timmy/mojiscan/internal/observe"
	"github.com/timmy/mojiscan/internal/service"
)

// App holds the long-lived components. Construct it once per process.
type App struct {
	Config    *config.Config
	Generator inference.Generator
	Cache     *service.ResultCache // nil when caching is disabled
	Metrics   *observe.Metrics
	Scans     *service.ScanService
}

// Build validates cfg, creates the inference client and wires the services.
// Returns an error wrapping domain.ErrConfiguration when the service must not start.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger, metrics *observe.Metrics) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	gen, err := inference.NewGenerator(&inference.Config{
		Provider:    inference.ProviderType(cfg.Inference.Provider),
		Model:       cfg.Inference.Model,
		APIKey:      cfg.Inference.APIKey,
		BaseURL:     cfg.Inference.BaseURL,
		Timeout:     cfg.Inference.Timeout,
		MaxTokens:   cfg.Inference.MaxTokens,
		Temperature: cfg.Inference.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create inference client: %w", err)
	}

	return BuildWithGenerator(ctx, cfg, gen, log, metrics)
}

// BuildWithGenerator wires the services around an existing generator.
func BuildWithGenerator(ctx context.Context, cfg *config.Config, gen inference.Generator, log *logger.Logger, metrics *observe.Metrics) (*App, error) {
	if log == nil {
		log = logger.GetDefault()
	}
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}

	if cfg.Inference.VerifyOnStartup {
		if err := gen.Verify(ctx); err != nil {
			return nil, fmt.Errorf("inference backend rejected %s/%s: %w", gen.Name(), gen.Model(), err)
		}
		log.WithFields(logger.Fields{
			logger.FieldProvider: gen.Name(),
			logger.FieldModel:    gen.Model(),
		}).Info("Inference credential verified")
	}

	var cache *service.ResultCache
	if cfg.Transcribe.CacheEnabled {
		cache = service.NewResultCache()
	}

	transcriber := service.NewTranscriber(gen, cache, metrics, log, &service.TranscriberConfig{
		CallTimeout: cfg.Transcribe.CallTimeout,
	})
	engine := service.NewConsensusEngine(transcriber, metrics, log, &service.ConsensusConfig{
		Parallel: cfg.Consensus.Parallel,
	})
	scans := service.NewScanService(engine, cfg.Consensus.PromptSet(), metrics, log)

	return &App{
		Config:    cfg,
		Generator: gen,
		Cache:     cache,
		Metrics:   metrics,
		Scans:     scans,
	}, nil
}
