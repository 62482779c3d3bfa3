// Package main provides the API router setup.
package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/drawsight-ai/drawsight/libs/tag-engine/cmd/tag-engine-api/handlers"
	"github.com/drawsight-ai/drawsight/libs/tag-engine/cmd/tag-engine-api/middleware"
	"github.com/drawsight-ai/drawsight/libs/tag-engine/internal/cache"
	"github.com/drawsight-ai/drawsight/libs/tag-engine/internal/config"
	"github.com/drawsight-ai/drawsight/libs/tag-engine/internal/extract"
	"github.com/drawsight-ai/drawsight/libs/tag-engine/internal/observability"
)

// NewRouter creates the main API router with all routes configured.
func NewRouter(logger *observability.Logger, cfg *config.Config) (http.Handler, error) {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(chimiddleware.Timeout(cfg.Server.ReadTimeout))

	// Health check (unauthenticated)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"tag-engine"}`))
	})

	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ready"}`))
	})

	// Create service dependencies
	dict, err := extract.LoadDictionaries(cfg.Extraction.DictionaryPath)
	if err != nil {
		return nil, err
	}

	engine := extract.NewEngine(dict, extract.Config{
		MergeLookahead:   cfg.Extraction.MergeLookahead,
		KeywordScanRange: cfg.Extraction.KeywordScanRange,
		UnitScanRange:    cfg.Extraction.UnitScanRange,
		MinLineLength:    cfg.Extraction.MinLineLength,
	})

	processor := extract.NewBatchProcessor(logger, engine, extract.BatchConfig{
		MaxWorkers: cfg.Extraction.MaxWorkers,
	})

	var cacheClient cache.Client
	if cfg.Cache.Driver == "redis" {
		cacheClient, err = cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			PoolSize: cfg.Cache.Redis.PoolSize,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable, falling back to memory cache")
			cacheClient = cache.NewMemoryClient(cfg.Cache.MaxEntries)
		}
	} else {
		cacheClient = cache.NewMemoryClient(cfg.Cache.MaxEntries)
	}

	// Initialize handlers
	extractionHandler := handlers.NewExtractionHandler(logger, engine, processor, cacheClient, cfg.Cache.TTL)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(middleware.AuthConfig{
			Enabled: cfg.Auth.Enabled,
			APIKey:  cfg.Auth.APIKey,
		}))

		r.Route("/extract", func(r chi.Router) {
			r.Post("/", extractionHandler.Extract)
			r.Post("/pages", extractionHandler.ExtractPages)
		})
	})

	return r, nil
}
