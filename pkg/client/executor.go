package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Sternrassler/twitterapi-client/pkg/metrics"
	"github.com/Sternrassler/twitterapi-client/pkg/ratelimit"
	"github.com/rs/zerolog"
)

// Outcome is the classified result of one HTTP attempt.
type Outcome struct {
	Disposition Disposition
	StatusCode  int
	Header      http.Header
	Body        []byte

	// Err is set for transport failures, which have no status code.
	Err error
}

// Executor issues requests for one logical request stream. It owns a
// rate limit tracker and must not be shared between concurrent callers.
type Executor struct {
	client     *Client
	tracker    *ratelimit.Tracker
	classifier Classifier
	policy     RetryPolicy
	endpoint   string
	logger     zerolog.Logger
}

// NewExecutor creates an executor for one endpoint.
func (c *Client) NewExecutor(endpoint string, classifier Classifier, policy RetryPolicy) *Executor {
	logger := c.logger.With().Str("endpoint", endpoint).Logger()
	return &Executor{
		client:     c,
		tracker:    ratelimit.NewTracker(endpoint, logger),
		classifier: classifier,
		policy:     policy,
		endpoint:   endpoint,
		logger:     logger,
	}
}

// Tracker returns the executor's rate limit tracker.
func (e *Executor) Tracker() *ratelimit.Tracker {
	return e.tracker
}

// Logger returns the executor's endpoint-scoped logger.
func (e *Executor) Logger() zerolog.Logger {
	return e.logger
}

// Execute performs exactly one attempt and returns its classified outcome.
// The response body is read fully. An error is returned only when the
// request could not be built.
func (e *Executor) Execute(ctx context.Context, r Request) (Outcome, error) {
	_, out, err := e.attempt(ctx, r, false)
	return out, err
}

// Do performs the request, waiting out rate limits and retrying transient
// failures per the executor's policy. It returns the Success outcome, or an
// *APIError for Fatal outcomes, or an error wrapping ErrRetryExhausted or
// ErrContextCancelled.
func (e *Executor) Do(ctx context.Context, r Request) (Outcome, error) {
	_, out, err := e.run(ctx, r, false)
	return out, err
}

// Open performs the request like Do but returns the successful response with
// its body unread. Closing the body releases the connection.
func (e *Executor) Open(ctx context.Context, r Request) (*http.Response, error) {
	resp, _, err := e.run(ctx, r, true)
	return resp, err
}

func (e *Executor) label(r Request) string {
	if e.endpoint != "" {
		return e.endpoint
	}
	return r.Label()
}

// run is the retry loop shared by Do and Open.
func (e *Executor) run(ctx context.Context, r Request, keepOpen bool) (*http.Response, Outcome, error) {
	label := e.label(r)
	bo := newBackoff(e.policy)
	transientRetries, rateLimitRetries := 0, 0
	skipThrottle := false

	for {
		if !skipThrottle {
			if err := e.throttle(ctx); err != nil {
				return nil, Outcome{}, cancelled(err)
			}
		}
		skipThrottle = false

		resp, out, err := e.attempt(ctx, r, keepOpen)
		if err != nil {
			return nil, out, err
		}

		switch out.Disposition {
		case Success:
			if transientRetries+rateLimitRetries > 0 {
				e.logger.Info().
					Int("transient_retries", transientRetries).
					Int("rate_limit_retries", rateLimitRetries).
					Msg("Request succeeded after retry")
			}
			return resp, out, nil

		case Fatal:
			apiErr := newAPIError(label, out)
			e.logger.Error().
				Int("status", out.StatusCode).
				Str("message", apiErr.Message).
				Msg("Request failed with fatal response")
			return nil, out, apiErr
		}

		if ctx.Err() != nil {
			return nil, out, cancelled(ctx.Err())
		}

		if out.Disposition == RateLimited {
			if !allows(e.policy.MaxRateLimitRetries, rateLimitRetries) {
				return nil, out, e.exhausted(label, out, rateLimitRetries)
			}
			rateLimitRetries++
			metrics.RetriesTotal.WithLabelValues(label, out.Disposition.String()).Inc()

			if err := e.tracker.WaitForReset(ctx); err != nil {
				return nil, out, cancelled(err)
			}
			// The wait above already covered the window this response reported.
			skipThrottle = true
			continue
		}

		if !allows(e.policy.MaxTransientRetries, transientRetries) {
			return nil, out, e.exhausted(label, out, transientRetries)
		}
		transientRetries++
		metrics.RetriesTotal.WithLabelValues(label, out.Disposition.String()).Inc()

		wait := bo.Next()
		event := e.logger.Warn().
			Int("status", out.StatusCode).
			Int("attempt", transientRetries).
			Dur("backoff", wait)
		if out.Err != nil {
			event = event.Err(out.Err)
		}
		event.Msg("Transient failure, retrying after backoff")

		if err := Sleep(ctx, wait); err != nil {
			return nil, out, cancelled(err)
		}
	}
}

// throttle waits for an exhausted window and then for the pacing limiter.
func (e *Executor) throttle(ctx context.Context) error {
	if e.tracker.ShouldWait() {
		if err := e.tracker.WaitForReset(ctx); err != nil {
			return err
		}
	}
	return e.client.pace(ctx)
}

// attempt issues one HTTP request. Response headers always reach the tracker
// before the outcome is returned, whatever the status.
func (e *Executor) attempt(ctx context.Context, r Request, keepOpen bool) (*http.Response, Outcome, error) {
	label := e.label(r)

	attemptCtx, cancel := context.WithCancel(ctx)
	var headerTimer *time.Timer
	if keepOpen {
		headerTimer = time.AfterFunc(e.client.config.StreamHeaderTimeout, cancel)
	}

	req, err := e.client.build(attemptCtx, r)
	if err != nil {
		cancel()
		return nil, Outcome{}, err
	}

	hc := e.client.httpClient
	if keepOpen {
		hc = e.client.streamClient
	}

	e.logger.Debug().
		Str("method", req.Method).
		Str("url", req.URL.Redacted()).
		Msg("Executing request")

	start := time.Now()
	resp, err := hc.Do(req)
	metrics.RequestDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	if headerTimer != nil {
		headerTimer.Stop()
	}

	if err != nil {
		cancel()
		out := Outcome{Disposition: Transient, Err: err}
		metrics.RequestsTotal.WithLabelValues(label, "network_error").Inc()
		return nil, out, nil
	}

	if err := e.tracker.Update(resp.Header); err != nil {
		e.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
	}

	out := Outcome{
		Disposition: e.classifier.Classify(resp.StatusCode),
		StatusCode:  resp.StatusCode,
		Header:      resp.Header,
	}
	metrics.RequestsTotal.WithLabelValues(label, out.Disposition.String()).Inc()

	if keepOpen && out.Disposition == Success {
		resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
		return resp, out, nil
	}

	var reader io.Reader = resp.Body
	if out.Disposition != Success {
		reader = io.LimitReader(resp.Body, maxErrorBody)
	}
	body, readErr := io.ReadAll(reader)
	resp.Body.Close()
	cancel()

	out.Body = body
	if readErr != nil && out.Disposition == Success {
		out.Disposition = Transient
		out.Err = fmt.Errorf("read response body: %w", readErr)
	}

	return nil, out, nil
}

// exhausted builds the terminal error for a bounded policy.
func (e *Executor) exhausted(label string, out Outcome, retries int) error {
	metrics.RetryExhaustedTotal.WithLabelValues(label, out.Disposition.String()).Inc()
	e.logger.Error().
		Str("disposition", out.Disposition.String()).
		Int("status", out.StatusCode).
		Int("retries", retries).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d retries: %w", ErrRetryExhausted, retries, newAPIError(label, out))
}

func cancelled(err error) error {
	return fmt.Errorf("%w: %w", ErrContextCancelled, err)
}

// cancelOnClose releases the per-attempt context when a streaming body is closed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
