package pagination

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/Sternrassler/twitterapi-client/pkg/checkpoint"
	"github.com/Sternrassler/twitterapi-client/pkg/client"
	"github.com/Sternrassler/twitterapi-client/pkg/decode"
	"github.com/Sternrassler/twitterapi-client/pkg/metrics"
	"github.com/rs/zerolog"
)

// ErrNoDecoder is returned when Config.Decode is nil.
var ErrNoDecoder = errors.New("pagination: decode function is required")

// Config holds the iterator configuration.
type Config[T any] struct {
	// Request is the first page request. The cursor parameter is added to
	// copies of it for later pages.
	Request client.Request

	// CursorParam names the request parameter carrying the cursor.
	// Default: next_token.
	CursorParam string

	// Decode maps items to records (REQUIRED).
	Decode DecodeFunc[T]

	// Classifier maps statuses to dispositions. The zero value treats only
	// 400 as fatal.
	Classifier client.Classifier

	// Policy is the retry policy. The zero value means BatchRetryPolicy.
	Policy client.RetryPolicy

	// StartCursor resumes from a known cursor instead of the first page.
	StartCursor string

	// MaxPages stops after this many pages. 0 means no limit.
	MaxPages int

	// Checkpoint, when set, stores the cursor of every page before it is
	// fetched and deletes it once the sequence completes.
	Checkpoint checkpoint.Store

	// CheckpointKey defaults to the request's endpoint label and query.
	CheckpointKey checkpoint.Key
}

// Iterator is a lazy sequence over every item of a paginated endpoint.
// It is not safe for concurrent use.
type Iterator[T any] struct {
	cfg      Config[T]
	exec     *client.Executor
	label    string
	logger   zerolog.Logger
	key      checkpoint.Key
	buffer   []T
	pos      int
	item     T
	err      error
	cursor   string
	started  bool
	done     bool
	pages    int
	requests int
}

// New creates an iterator on c. No request is issued until Next is called.
func New[T any](c *client.Client, cfg Config[T]) *Iterator[T] {
	if cfg.CursorParam == "" {
		cfg.CursorParam = ParamNextToken
	}
	if cfg.Policy == (client.RetryPolicy{}) {
		cfg.Policy = client.BatchRetryPolicy()
	}

	label := cfg.Request.Label()
	exec := c.NewExecutor(label, cfg.Classifier, cfg.Policy)

	key := cfg.CheckpointKey
	if key.Endpoint == "" {
		key = checkpoint.Key{
			Kind:     checkpoint.KindCursor,
			Endpoint: label,
			Params:   cfg.Request.Query,
		}
	}

	it := &Iterator[T]{
		cfg:    cfg,
		exec:   exec,
		label:  label,
		logger: exec.Logger(),
		key:    key,
		cursor: cfg.StartCursor,
	}
	if cfg.Decode == nil {
		it.err = ErrNoDecoder
	}
	return it
}

// Next advances to the next item, fetching pages as needed. It returns false
// when the sequence is complete or an error occurred; check Err to tell
// them apart.
func (it *Iterator[T]) Next(ctx context.Context) bool {
	for {
		if it.pos < len(it.buffer) {
			it.item = it.buffer[it.pos]
			it.pos++
			return true
		}
		if it.done || it.err != nil {
			var zero T
			it.item = zero
			return false
		}
		if err := it.fetch(ctx); err != nil {
			it.err = err
		}
	}
}

// Item returns the current item.
func (it *Iterator[T]) Item() T {
	return it.item
}

// Err returns the error that ended the sequence, or nil if it completed.
func (it *Iterator[T]) Err() error {
	return it.err
}

// Cursor returns the cursor of the next page to fetch. It is empty once the
// last page has been fetched.
func (it *Iterator[T]) Cursor() string {
	return it.cursor
}

// Requests returns the number of page requests issued. Retries of the same
// page are not counted.
func (it *Iterator[T]) Requests() int {
	return it.requests
}

// Pages returns the number of pages fetched successfully.
func (it *Iterator[T]) Pages() int {
	return it.pages
}

// All returns the remaining items as a range-over-func sequence. A terminal
// error is yielded once, with the zero item, after the last good item.
func (it *Iterator[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for it.Next(ctx) {
			if !yield(it.Item(), nil) {
				return
			}
		}
		if err := it.Err(); err != nil {
			var zero T
			yield(zero, err)
		}
	}
}

// Collect drains up to max items (all when max <= 0). Items read before an
// error are returned with it.
func (it *Iterator[T]) Collect(ctx context.Context, max int) ([]T, error) {
	var items []T
	for (max <= 0 || len(items) < max) && it.Next(ctx) {
		items = append(items, it.Item())
	}
	return items, it.Err()
}

// fetch requests and decodes the next page into the buffer.
func (it *Iterator[T]) fetch(ctx context.Context) error {
	if !it.started {
		it.started = true
		it.resume(ctx)
	}

	if it.cfg.MaxPages > 0 && it.pages >= it.cfg.MaxPages {
		it.logger.Info().
			Int("pages", it.pages).
			Str("cursor", it.cursor).
			Msg("Page limit reached")
		it.done = true
		return nil
	}

	req := it.cfg.Request
	if it.cursor != "" {
		req = req.WithQuery(it.cfg.CursorParam, it.cursor)
		it.save(ctx)
	}

	it.requests++
	out, err := it.exec.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("fetch page %d: %w", it.pages+1, err)
	}

	page, err := ParsePage(out.Body)
	if err != nil {
		if !decode.IsDrift(err) {
			return fmt.Errorf("page %d: %w", it.pages+1, err)
		}
		it.logger.Warn().Err(err).Int("page", it.pages+1).Msg("Page envelope drifted from schema")
	}

	it.pages++
	metrics.PagesTotal.WithLabelValues(it.label).Inc()

	for _, pe := range page.Errors {
		it.logger.Warn().
			Str("title", pe.Title).
			Str("detail", pe.Detail).
			Str("value", pe.Value).
			Msg("Page reported partial error")
	}

	it.buffer = it.buffer[:0]
	it.pos = 0
	for i, raw := range page.Items {
		v, err := it.cfg.Decode(raw, page)
		switch {
		case err == nil:
		case decode.IsDrift(err):
			it.logger.Warn().Err(err).Int("page", it.pages).Int("index", i).Msg("Item drifted from schema, forwarding partial record")
			metrics.ItemsSkippedTotal.WithLabelValues(it.label, "drift_forwarded").Inc()
		default:
			it.logger.Warn().Err(err).Int("page", it.pages).Int("index", i).Msg("Skipping item that failed to decode")
			metrics.ItemsSkippedTotal.WithLabelValues(it.label, "decode_error").Inc()
			continue
		}
		it.buffer = append(it.buffer, v)
	}
	metrics.ItemsTotal.WithLabelValues(it.label).Add(float64(len(it.buffer)))

	it.logger.Debug().
		Int("page", it.pages).
		Int("items", len(it.buffer)).
		Str("next_token", page.Meta.NextToken).
		Msg("Page fetched")

	it.cursor = page.Meta.NextToken
	if it.cursor == "" {
		it.done = true
		it.complete(ctx)
	}
	return nil
}

// resume loads the stored cursor when no start cursor was given.
func (it *Iterator[T]) resume(ctx context.Context) {
	if it.cfg.Checkpoint == nil || it.cursor != "" {
		return
	}

	entry, err := it.cfg.Checkpoint.Get(ctx, it.key)
	switch {
	case errors.Is(err, checkpoint.ErrNotFound):
	case err != nil:
		it.logger.Warn().Err(err).Str("key", it.key.String()).Msg("Failed to load checkpoint, starting from first page")
	case entry.Cursor != "":
		it.cursor = entry.Cursor
		it.logger.Info().Str("cursor", entry.Cursor).Dur("age", entry.Age()).Msg("Resuming from checkpoint")
	}
}

func (it *Iterator[T]) save(ctx context.Context) {
	if it.cfg.Checkpoint == nil {
		return
	}
	if err := it.cfg.Checkpoint.Set(ctx, it.key, &checkpoint.Entry{Cursor: it.cursor}); err != nil {
		it.logger.Warn().Err(err).Str("cursor", it.cursor).Msg("Failed to save checkpoint")
	}
}

func (it *Iterator[T]) complete(ctx context.Context) {
	if it.cfg.Checkpoint == nil {
		return
	}
	if err := it.cfg.Checkpoint.Delete(ctx, it.key); err != nil {
		it.logger.Warn().Err(err).Msg("Failed to clear checkpoint")
	}
}
