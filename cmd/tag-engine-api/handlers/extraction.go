// Package handlers provides HTTP handlers for the tag engine API.
package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/drawsight-ai/drawsight/libs/tag-engine/internal/cache"
	"github.com/drawsight-ai/drawsight/libs/tag-engine/internal/extract"
	"github.com/drawsight-ai/drawsight/libs/tag-engine/internal/observability"
)

// ExtractionHandler handles OCR word extraction requests.
type ExtractionHandler struct {
	logger    *observability.Logger
	engine    *extract.Engine
	processor *extract.BatchProcessor
	cache     cache.Client
	cacheTTL  time.Duration
}

// NewExtractionHandler creates a new extraction handler.
func NewExtractionHandler(
	logger *observability.Logger,
	engine *extract.Engine,
	processor *extract.BatchProcessor,
	cacheClient cache.Client,
	cacheTTL time.Duration,
) *ExtractionHandler {
	return &ExtractionHandler{
		logger:    logger,
		engine:    engine,
		processor: processor,
		cache:     cacheClient,
		cacheTTL:  cacheTTL,
	}
}

// ExtractRequestDTO represents the API request for a single page.
type ExtractRequestDTO struct {
	Words []string `json:"words"`
}

// ExtractResponseDTO represents the API response for a single page.
type ExtractResponseDTO struct {
	ExtractionID string              `json:"extractionId"`
	Equipment    []string            `json:"equipment"`
	Lines        []string            `json:"lines"`
	Specs        []extract.SpecEntry `json:"specs"`
	Cached       bool                `json:"cached"`
}

// ExtractPagesRequestDTO represents the API request for a page batch.
type ExtractPagesRequestDTO struct {
	Pages [][]string `json:"pages"`
}

// PageResultDTO represents one page of a batch response.
type PageResultDTO struct {
	Page         int                 `json:"page"`
	ExtractionID string              `json:"extractionId"`
	Equipment    []string            `json:"equipment"`
	Lines        []string            `json:"lines"`
	Specs        []extract.SpecEntry `json:"specs"`
	WordCount    int                 `json:"wordCount"`
}

// ExtractPagesResponseDTO represents the API response for a page batch.
type ExtractPagesResponseDTO struct {
	Pages []PageResultDTO `json:"pages"`
}

// Extract handles POST /api/v1/extract.
func (h *ExtractionHandler) Extract(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ExtractRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// The engine is total over its input; an empty word list is a valid
	// "nothing recognized" request, not an error.
	key := cacheKey(req.Words)
	if cached, err := h.cache.Get(ctx, key); err == nil {
		var resp ExtractResponseDTO
		if err := json.Unmarshal(cached, &resp); err == nil {
			resp.Cached = true
			h.writeJSON(w, http.StatusOK, resp)
			return
		}
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		h.logger.Warn().Err(err).Msg("Cache lookup failed")
	}

	start := time.Now()
	tags := h.engine.Extract(req.Words)

	resp := ExtractResponseDTO{
		ExtractionID: extract.ExtractionID(req.Words).String(),
		Equipment:    emptyIfNil(tags.Equipment),
		Lines:        emptyIfNil(tags.Lines),
		Specs:        emptySpecsIfNil(tags.Specs),
	}

	if data, err := json.Marshal(resp); err == nil {
		if err := h.cache.Set(ctx, key, data, h.cacheTTL); err != nil {
			h.logger.Warn().Err(err).Msg("Cache store failed")
		}
	}

	h.logger.WithContext(ctx).Info().
		Int("words", len(req.Words)).
		Int("equipment", len(tags.Equipment)).
		Int("lines", len(tags.Lines)).
		Int("specs", len(tags.Specs)).
		Dur("duration", time.Since(start)).
		Msg("Extraction completed")

	h.writeJSON(w, http.StatusOK, resp)
}

// ExtractPages handles POST /api/v1/extract/pages.
func (h *ExtractionHandler) ExtractPages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ExtractPagesRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	results, err := h.processor.ProcessPages(ctx, req.Pages)
	if err != nil {
		h.writeError(w, http.StatusRequestTimeout, "batch cancelled")
		return
	}

	resp := ExtractPagesResponseDTO{Pages: make([]PageResultDTO, len(results))}
	for i, res := range results {
		resp.Pages[i] = PageResultDTO{
			Page:         res.Page,
			ExtractionID: res.ExtractionID.String(),
			Equipment:    emptyIfNil(res.Tags.Equipment),
			Lines:        emptyIfNil(res.Tags.Lines),
			Specs:        emptySpecsIfNil(res.Tags.Specs),
			WordCount:    res.WordCount,
		}
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *ExtractionHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *ExtractionHandler) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// cacheKey hashes the input words so identical pages share a cache entry.
func cacheKey(words []string) string {
	sum := sha256.Sum256([]byte(strings.Join(words, "\x1f")))
	return "extract:" + hex.EncodeToString(sum[:])
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func emptySpecsIfNil(s []extract.SpecEntry) []extract.SpecEntry {
	if s == nil {
		return []extract.SpecEntry{}
	}
	return s
}
