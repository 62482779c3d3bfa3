package extract

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/drawsight-ai/drawsight/libs/tag-engine/internal/observability"
)

// Namespace for deterministic extraction IDs.
var extractionNamespace = uuid.MustParse("8c5f1f6e-3f2a-5e4b-9c7d-2a1b3c4d5e6f")

// BatchConfig holds batch processor settings. OnPage, when set, is invoked
// from worker goroutines as each page completes; it must be safe for
// concurrent use.
type BatchConfig struct {
	MaxWorkers int
	OnPage     func(PageResult)
}

// PageResult is the outcome of extracting one page.
type PageResult struct {
	Page         int           `json:"page"`
	ExtractionID uuid.UUID     `json:"extractionId"`
	Tags         ParsedTags    `json:"tags"`
	WordCount    int           `json:"wordCount"`
	Duration     time.Duration `json:"-"`
}

// BatchProcessor fans per-page extractions out over a bounded worker pool.
// The engine itself is pure and synchronous; cancellation lives here, at
// the per-page batch level.
type BatchProcessor struct {
	logger *observability.Logger
	engine *Engine
	cfg    BatchConfig
}

// NewBatchProcessor creates a batch processor.
func NewBatchProcessor(logger *observability.Logger, engine *Engine, cfg BatchConfig) *BatchProcessor {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 4
	}
	return &BatchProcessor{
		logger: logger,
		engine: engine,
		cfg:    cfg,
	}
}

// ProcessPages extracts every page and returns results in input order.
// Pages not yet started when ctx is cancelled are skipped; the context
// error is returned alongside the results completed so far.
func (b *BatchProcessor) ProcessPages(ctx context.Context, pages [][]string) ([]PageResult, error) {
	results := make([]PageResult, len(pages))

	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < b.cfg.MaxWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = b.processPage(i, pages[i])
				if b.cfg.OnPage != nil {
					b.cfg.OnPage(results[i])
				}
			}
		}()
	}

	var ctxErr error
dispatch:
	for i := range pages {
		select {
		case <-ctx.Done():
			ctxErr = ctx.Err()
			break dispatch
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	return results, ctxErr
}

func (b *BatchProcessor) processPage(page int, words []string) PageResult {
	start := time.Now()
	tags := b.engine.Extract(words)
	elapsed := time.Since(start)

	if b.logger != nil {
		b.logger.Debug().
			Int("page", page+1).
			Int("words", len(words)).
			Int("equipment", len(tags.Equipment)).
			Int("lines", len(tags.Lines)).
			Int("specs", len(tags.Specs)).
			Dur("duration", elapsed).
			Msg("Page extracted")
	}

	return PageResult{
		Page:         page + 1,
		ExtractionID: ExtractionID(words),
		Tags:         tags,
		WordCount:    len(words),
		Duration:     elapsed,
	}
}

// ExtractionID derives a deterministic UUID from the input words, so the
// same page always maps to the same result identity.
func ExtractionID(words []string) uuid.UUID {
	return uuid.NewSHA1(extractionNamespace, []byte(strings.Join(words, "\x1f")))
}
