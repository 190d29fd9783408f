// Package client provides the request executor shared by every endpoint:
// bearer authentication, timeouts, rate limit throttling, response
// classification and retry.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the vendor API root.
const DefaultBaseURL = "https://api.twitter.com/2/"

// Config holds the client configuration. It is read once by New and never
// mutated afterwards.
type Config struct {
	// BaseURL is the API root relative request paths resolve against.
	BaseURL string

	// Credentials supplies the bearer token (REQUIRED).
	Credentials CredentialProvider

	// UserAgent header sent with every request.
	UserAgent string

	// RequestTimeout bounds a complete non-streaming request.
	RequestTimeout time.Duration

	// StreamHeaderTimeout bounds the wait for a streaming response's headers.
	// The body itself is unbounded.
	StreamHeaderTimeout time.Duration

	// RequestsPerMinute paces outgoing requests across all executors of this
	// client. 0 disables pacing.
	RequestsPerMinute int

	// HTTPClient overrides the transport (for testing). Its Timeout is ignored.
	HTTPClient *http.Client

	// Logger overrides the component logger.
	Logger *zerolog.Logger
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(credentials CredentialProvider) Config {
	return Config{
		BaseURL:             DefaultBaseURL,
		Credentials:         credentials,
		UserAgent:           "twitterapi-client/0.1.0",
		RequestTimeout:      30 * time.Second,
		StreamHeaderTimeout: 30 * time.Second,
	}
}

// Client carries the process-wide pieces of the engine: transport,
// credentials and pacing. Per-stream state lives in Executor.
type Client struct {
	baseURL      *url.URL
	httpClient   *http.Client
	streamClient *http.Client
	credentials  CredentialProvider
	limiter      *rate.Limiter
	config       Config
	logger       zerolog.Logger
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.Credentials == nil {
		return nil, fmt.Errorf("credential provider is required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if !strings.HasSuffix(baseURL.Path, "/") {
		baseURL.Path += "/"
	}

	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.StreamHeaderTimeout <= 0 {
		cfg.StreamHeaderTimeout = 30 * time.Second
	}
	if cfg.RequestsPerMinute < 0 {
		return nil, fmt.Errorf("requests_per_minute must be >= 0 (got %d)", cfg.RequestsPerMinute)
	}

	logger := log.With().Str("component", "twitterapi-client").Logger()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	base := cfg.HTTPClient
	if base == nil {
		base = &http.Client{}
	}
	httpClient := *base
	httpClient.Timeout = cfg.RequestTimeout
	streamClient := *base
	streamClient.Timeout = 0

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1)
	}

	return &Client{
		baseURL:      baseURL,
		httpClient:   &httpClient,
		streamClient: &streamClient,
		credentials:  cfg.Credentials,
		limiter:      limiter,
		config:       cfg,
		logger:       logger,
	}, nil
}

// Logger returns the client's logger so engines built on it log alike.
func (c *Client) Logger() zerolog.Logger {
	return c.logger
}

// Request describes one logical API call. It is rebuilt into a fresh
// *http.Request on every attempt.
type Request struct {
	// Method defaults to GET.
	Method string

	// Path is resolved against BaseURL; absolute URLs are used as-is.
	Path string

	// Query parameters.
	Query url.Values

	// JSONBody is marshalled as the request body when non-nil.
	JSONBody any

	// RawBody is sent verbatim with ContentType when JSONBody is nil.
	RawBody     []byte
	ContentType string

	// Unauthenticated omits the Authorization header (pre-signed URLs).
	Unauthenticated bool

	// Endpoint labels logs and metrics; defaults to Path.
	Endpoint string
}

// Label returns the endpoint label for logs and metrics.
func (r Request) Label() string {
	if r.Endpoint != "" {
		return r.Endpoint
	}
	return r.Path
}

// WithQuery returns a copy of r with key set to value, leaving r untouched.
func (r Request) WithQuery(key, value string) Request {
	q := url.Values{}
	for k, v := range r.Query {
		q[k] = append([]string(nil), v...)
	}
	q.Set(key, value)
	r.Query = q
	return r
}

// build creates the *http.Request for one attempt.
func (c *Client) build(ctx context.Context, r Request) (*http.Request, error) {
	u, err := c.baseURL.Parse(strings.TrimPrefix(r.Path, "/"))
	if err != nil {
		return nil, fmt.Errorf("resolve path %q: %w", r.Path, err)
	}
	if len(r.Query) > 0 {
		u.RawQuery = r.Query.Encode()
	}

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	contentType := ""
	switch {
	case r.JSONBody != nil:
		data, err := json.Marshal(r.JSONBody)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	case r.RawBody != nil:
		body = bytes.NewReader(r.RawBody)
		contentType = r.ContentType
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	if !r.Unauthenticated {
		token, err := c.credentials.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("get bearer token: %w", err)
		}
		if token == "" {
			return nil, ErrNoCredentials
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req, nil
}

// pace blocks on the shared token bucket when pacing is enabled.
func (c *Client) pace(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}
