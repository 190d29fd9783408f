package pagination

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// BatchConfig holds the FetchAll configuration.
type BatchConfig struct {
	// MaxConcurrency is the maximum number of sequences drained in parallel.
	// Each sequence owns its executor and rate limit tracker.
	MaxConcurrency int

	// MaxItems caps the items collected per sequence. 0 means no limit.
	MaxItems int
}

// DefaultBatchConfig returns a conservative default configuration.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		MaxConcurrency: 4,
	}
}

// Job names one sequence of a batch.
type Job[T any] struct {
	Name     string
	Iterator *Iterator[T]
}

// FetchAll drains every job's iterator, running up to MaxConcurrency at once.
// A failing job does not stop the others. Results hold every job's items,
// including those read before a failure; the error reports the first failure.
func FetchAll[T any](ctx context.Context, jobs []Job[T], cfg BatchConfig) (map[string][]T, error) {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultBatchConfig().MaxConcurrency
	}

	start := time.Now()
	log.Info().
		Int("jobs", len(jobs)).
		Int("max_concurrency", cfg.MaxConcurrency).
		Msg("Starting batch fetch")

	results := make(map[string][]T, len(jobs))
	var mu sync.Mutex
	failed := 0

	var g errgroup.Group
	g.SetLimit(cfg.MaxConcurrency)

	for _, job := range jobs {
		g.Go(func() error {
			items, err := job.Iterator.Collect(ctx, cfg.MaxItems)

			mu.Lock()
			results[job.Name] = items
			if err != nil {
				failed++
			}
			mu.Unlock()

			if err != nil {
				log.Warn().
					Err(err).
					Str("job", job.Name).
					Int("items", len(items)).
					Msg("Batch job failed")
				return fmt.Errorf("job %s: %w", job.Name, err)
			}
			return nil
		})
	}

	err := g.Wait()

	log.Info().
		Int("jobs", len(jobs)).
		Int("failed", failed).
		Dur("duration", time.Since(start)).
		Msg("Batch fetch complete")

	if err != nil {
		return results, fmt.Errorf("batch fetch (partial data: %d/%d jobs): %w", len(jobs)-failed, len(jobs), err)
	}
	return results, nil
}
