// Package stream reads the vendor's long-lived NDJSON streams as one
// infinite sequence of decoded events.
//
// A Reader connects, reads one line at a time, drops bare keep-alive lines,
// decodes the rest and hands them to the caller. On end-of-stream, read error
// or a stalled connection it reconnects, asking the server to backfill the
// gap. Only cancellation of the context or a fatal response to a connect
// attempt ends a session.
package stream

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strconv"
	"sync"
	"time"

	"github.com/Sternrassler/twitterapi-client/pkg/checkpoint"
	"github.com/Sternrassler/twitterapi-client/pkg/client"
	"github.com/Sternrassler/twitterapi-client/pkg/decode"
	"github.com/Sternrassler/twitterapi-client/pkg/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// DefaultStallTimeout is how long a connection may stay silent. The vendor
	// sends a keep-alive at least every 20 seconds.
	DefaultStallTimeout = 90 * time.Second

	DefaultReconnectBackoff    = 1 * time.Second
	DefaultMaxReconnectBackoff = 1 * time.Minute

	// DefaultMaxLineSize bounds a single event line.
	DefaultMaxLineSize = 4 << 20
)

// ErrNoDecoder is returned when Config.Decode is nil.
var ErrNoDecoder = errors.New("stream: decode function is required")

// errStalled marks a connection closed for silence.
var errStalled = errors.New("stream stalled")

// DecodeFunc maps one event line to a record. Returning a *decode.DriftError
// forwards the value with a warning; any other error skips the line.
type DecodeFunc[T any] func(line []byte) (T, error)

// Config holds the reader configuration.
type Config[T any] struct {
	// Request opens the stream. backfill_minutes is managed by the reader on
	// reconnects and overrides any value set here.
	Request client.Request

	// Decode maps lines to records (REQUIRED).
	Decode DecodeFunc[T]

	// Classifier for connect attempts. The zero value treats only 400 as fatal.
	Classifier client.Classifier

	// Policy for connect attempts. The zero value means LiveRetryPolicy.
	Policy client.RetryPolicy

	// StallTimeout closes a connection that delivered nothing, not even a
	// keep-alive, for this long. 0 means DefaultStallTimeout, negative disables.
	StallTimeout time.Duration

	// ReconnectBackoff is the pause before the first reconnect. It doubles up
	// to MaxReconnectBackoff and resets once a connection delivers data.
	ReconnectBackoff    time.Duration
	MaxReconnectBackoff time.Duration

	// DisableBackfill never adds backfill_minutes on reconnect.
	DisableBackfill bool

	// MaxLineSize bounds one event line. 0 means DefaultMaxLineSize.
	MaxLineSize int

	// Checkpoint, when set, stores the time of the last event so a restarted
	// process backfills from it on its first connect.
	Checkpoint checkpoint.Store

	// CheckpointKey defaults to the request's endpoint label and query.
	CheckpointKey checkpoint.Key
}

// Reader maintains one streaming session. It is not safe for concurrent use;
// run one Reader per stream or partition.
type Reader[T any] struct {
	cfg       Config[T]
	exec      *client.Executor
	label     string
	key       checkpoint.Key
	sessionID string
	logger    zerolog.Logger
	now       func() time.Time

	mu           sync.Mutex
	attempt      int
	lastActivity time.Time
	lastEvent    time.Time
}

// NewReader creates a reader on c. Nothing is opened until Run.
func NewReader[T any](c *client.Client, cfg Config[T]) *Reader[T] {
	if cfg.Policy == (client.RetryPolicy{}) {
		cfg.Policy = client.LiveRetryPolicy()
	}
	if cfg.StallTimeout == 0 {
		cfg.StallTimeout = DefaultStallTimeout
	}
	if cfg.ReconnectBackoff <= 0 {
		cfg.ReconnectBackoff = DefaultReconnectBackoff
	}
	if cfg.MaxReconnectBackoff < cfg.ReconnectBackoff {
		cfg.MaxReconnectBackoff = max(DefaultMaxReconnectBackoff, cfg.ReconnectBackoff)
	}
	if cfg.MaxLineSize <= 0 {
		cfg.MaxLineSize = DefaultMaxLineSize
	}

	label := cfg.Request.Label()
	sessionID := uuid.NewString()
	exec := c.NewExecutor(label, cfg.Classifier, cfg.Policy)

	key := cfg.CheckpointKey
	if key.Endpoint == "" {
		key = checkpoint.Key{
			Kind:     checkpoint.KindStream,
			Endpoint: label,
			Params:   cfg.Request.Query,
		}
	}

	return &Reader[T]{
		cfg:       cfg,
		exec:      exec,
		label:     label,
		key:       key,
		sessionID: sessionID,
		logger:    exec.Logger().With().Str("session_id", sessionID).Logger(),
		now:       time.Now,
	}
}

// SessionID identifies this reader in logs.
func (r *Reader[T]) SessionID() string {
	return r.sessionID
}

// Session is a snapshot of the reader's connection state.
type Session struct {
	ID           string
	Attempt      int
	LastActivity time.Time
	LastEvent    time.Time
}

// Session returns the current session state. It may be called concurrently
// with Run.
func (r *Reader[T]) Session() Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Session{
		ID:           r.sessionID,
		Attempt:      r.attempt,
		LastActivity: r.lastActivity,
		LastEvent:    r.lastEvent,
	}
}

// Run connects and calls handle for every event until ctx is done, a connect
// attempt fails fatally or handle returns an error. After cancellation it
// returns the context's error.
func (r *Reader[T]) Run(ctx context.Context, handle func(T) error) error {
	if r.cfg.Decode == nil {
		return ErrNoDecoder
	}

	r.resume(ctx)
	wait := r.cfg.ReconnectBackoff

	for {
		req := r.request()

		r.logger.Info().
			Int("attempt", r.currentAttempt()).
			Str(ParamBackfillMinutes, req.Query.Get(ParamBackfillMinutes)).
			Msg("Connecting to stream")

		resp, err := r.exec.Open(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if client.IsFatal(err) {
				metrics.StreamConnectsTotal.WithLabelValues(r.label, "fatal").Inc()
				r.logger.Error().Err(err).Msg("Stream connect failed fatally")
				return fmt.Errorf("open stream: %w", err)
			}
			metrics.StreamConnectsTotal.WithLabelValues(r.label, "error").Inc()
			r.logger.Warn().Err(err).Dur("wait", wait).Msg("Stream connect failed, retrying")
		} else {
			metrics.StreamConnectsTotal.WithLabelValues(r.label, "ok").Inc()
			r.touch(false)

			delivered, readErr := r.read(ctx, resp.Body, handle)
			resp.Body.Close()

			var handlerErr *handlerError
			if errors.As(readErr, &handlerErr) {
				return handlerErr.err
			}
			if ctx.Err() != nil {
				r.logger.Info().Msg("Stream closed by caller")
				return ctx.Err()
			}

			reason := "eof"
			switch {
			case errors.Is(readErr, errStalled):
				reason = "stall"
			case readErr != nil:
				reason = "error"
			}
			metrics.StreamReconnectsTotal.WithLabelValues(r.label, reason).Inc()

			if delivered {
				wait = r.cfg.ReconnectBackoff
			}
			event := r.logger.Warn().Str("reason", reason).Dur("wait", wait)
			if readErr != nil {
				event = event.Err(readErr)
			}
			event.Msg("Stream disconnected, reconnecting")
		}

		if err := client.Sleep(ctx, wait); err != nil {
			return err
		}
		wait = min(wait*2, r.cfg.MaxReconnectBackoff)

		r.mu.Lock()
		r.attempt++
		r.mu.Unlock()
	}
}

// Events runs the reader in a goroutine and delivers events on the first
// channel. The error channel receives Run's result once, then both close.
func (r *Reader[T]) Events(ctx context.Context) (<-chan T, <-chan error) {
	events := make(chan T)
	errc := make(chan error, 1)

	go func() {
		defer close(errc)
		defer close(events)

		errc <- r.Run(ctx, func(v T) error {
			select {
			case events <- v:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()

	return events, errc
}

// All returns the stream as a range-over-func sequence. Breaking out of the
// loop closes the connection. A terminal error other than the caller's own
// cancellation is yielded once with the zero value.
func (r *Reader[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		events, errc := r.Events(ctx)
		for v := range events {
			if !yield(v, nil) {
				return
			}
		}
		if err := <-errc; err != nil && ctx.Err() == nil {
			var zero T
			yield(zero, err)
		}
	}
}

// request builds the connect request, adding backfill on reconnects.
func (r *Reader[T]) request() client.Request {
	req := r.cfg.Request
	if r.cfg.DisableBackfill {
		return req
	}

	r.mu.Lock()
	attempt, last := r.attempt, r.lastActivity
	r.mu.Unlock()

	if attempt == 0 && last.IsZero() {
		return req
	}

	minutes := BackfillMinutes(last, r.now())
	metrics.StreamBackfillMinutes.WithLabelValues(r.label).Observe(float64(minutes))
	return req.WithQuery(ParamBackfillMinutes, strconv.Itoa(minutes))
}

// read consumes one connection. It reports whether any event was delivered.
func (r *Reader[T]) read(ctx context.Context, body io.ReadCloser, handle func(T) error) (bool, error) {
	stalled := make(chan struct{})
	var once sync.Once
	var stall *time.Timer
	if r.cfg.StallTimeout > 0 {
		stall = time.AfterFunc(r.cfg.StallTimeout, func() {
			once.Do(func() { close(stalled) })
			body.Close()
		})
		defer stall.Stop()
	}

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), r.cfg.MaxLineSize)

	delivered := false
	for scanner.Scan() {
		if stall != nil {
			stall.Reset(r.cfg.StallTimeout)
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			metrics.StreamKeepAlivesTotal.WithLabelValues(r.label).Inc()
			r.touch(false)
			continue
		}

		v, err := r.cfg.Decode(line)
		switch {
		case err == nil:
		case decode.IsDrift(err):
			r.logger.Warn().Err(err).Bytes("line", truncate(line)).Msg("Event drifted from schema, forwarding partial record")
		default:
			r.logger.Warn().Err(err).Bytes("line", truncate(line)).Msg("Skipping event that failed to decode")
			metrics.ItemsSkippedTotal.WithLabelValues(r.label, "decode_error").Inc()
			r.touch(false)
			continue
		}

		metrics.StreamEventsTotal.WithLabelValues(r.label).Inc()
		r.touch(true)
		delivered = true

		if err := handle(v); err != nil {
			return delivered, &handlerError{err: err}
		}
		r.save(context.WithoutCancel(ctx))
	}

	select {
	case <-stalled:
		return delivered, errStalled
	default:
	}
	return delivered, scanner.Err()
}

// touch records activity on the connection.
func (r *Reader[T]) touch(event bool) {
	now := r.now()
	r.mu.Lock()
	r.lastActivity = now
	if event {
		r.lastEvent = now
	}
	r.mu.Unlock()
}

func (r *Reader[T]) currentAttempt() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempt
}

// resume seeds the last activity from the checkpoint so the first connect
// of a restarted process backfills.
func (r *Reader[T]) resume(ctx context.Context) {
	if r.cfg.Checkpoint == nil {
		return
	}

	entry, err := r.cfg.Checkpoint.Get(ctx, r.key)
	switch {
	case errors.Is(err, checkpoint.ErrNotFound):
	case err != nil:
		r.logger.Warn().Err(err).Msg("Failed to load stream checkpoint")
	case !entry.LastEventAt.IsZero():
		r.mu.Lock()
		r.lastActivity = entry.LastEventAt
		r.lastEvent = entry.LastEventAt
		r.mu.Unlock()
		r.logger.Info().Time("last_event_at", entry.LastEventAt).Msg("Resuming stream from checkpoint")
	}
}

func (r *Reader[T]) save(ctx context.Context) {
	if r.cfg.Checkpoint == nil {
		return
	}

	r.mu.Lock()
	last := r.lastEvent
	r.mu.Unlock()

	if err := r.cfg.Checkpoint.Set(ctx, r.key, &checkpoint.Entry{LastEventAt: last}); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to save stream checkpoint")
	}
}

// handlerError carries an error returned by the caller's handler.
type handlerError struct {
	err error
}

func (e *handlerError) Error() string { return e.err.Error() }

func truncate(line []byte) []byte {
	const limit = 512
	if len(line) > limit {
		return line[:limit]
	}
	return line
}
