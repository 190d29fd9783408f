// Package testutil provides a scriptable mock of the vendor API for tests.
package testutil

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// APIPrefix is the path prefix of the mock API; pass BaseURL() to the client.
const APIPrefix = "/2/"

// MockResponse defines one scripted REST response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// StreamConnection scripts one streaming connection.
type StreamConnection struct {
	// StatusCode defaults to 200.
	StatusCode int

	// Lines are written in order, each followed by "\r\n". An empty string
	// produces a bare keep-alive line.
	Lines []string

	// Hold keeps the connection open after Lines until the client goes away.
	// Otherwise the server closes it cleanly.
	Hold bool
}

// RecordedRequest captures what the mock received.
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   string
}

// MockAPI is a configurable mock vendor server.
type MockAPI struct {
	server *httptest.Server

	mu       sync.Mutex
	scripts  map[string][]MockResponse
	streams  map[string][]StreamConnection
	handlers map[string]http.HandlerFunc
	requests []RecordedRequest
}

// NewMockAPI starts a new mock server.
func NewMockAPI() *MockAPI {
	m := &MockAPI{
		scripts:  make(map[string][]MockResponse),
		streams:  make(map[string][]StreamConnection),
		handlers: make(map[string]http.HandlerFunc),
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.serve))
	return m
}

// URL returns the server root URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// BaseURL returns the API root to configure the client with.
func (m *MockAPI) BaseURL() string {
	return m.server.URL + APIPrefix
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.CloseClientConnections()
	m.server.Close()
}

// SetHandler installs a custom handler for path.
func (m *MockAPI) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponses scripts path to answer with responses in order. The last
// response repeats once the script is exhausted.
func (m *MockAPI) SetResponses(path string, responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[path] = responses
}

// SetStream scripts successive connections to a streaming path. Once the
// script is exhausted further connections are held open silently.
func (m *MockAPI) SetStream(path string, connections ...StreamConnection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streams[path] = connections
}

// Requests returns the requests received for path ("" for all).
func (m *MockAPI) Requests(path string) []RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []RecordedRequest
	for _, r := range m.requests {
		if path == "" || r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// RequestCount returns the number of requests received for path ("" for all).
func (m *MockAPI) RequestCount(path string) int {
	return len(m.Requests(path))
}

func (m *MockAPI) serve(w http.ResponseWriter, r *http.Request) {
	var body []byte
	if r.Body != nil {
		body, _ = io.ReadAll(r.Body)
	}

	m.mu.Lock()
	m.requests = append(m.requests, RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   string(body),
	})

	if handler, ok := m.handlers[r.URL.Path]; ok {
		m.mu.Unlock()
		handler(w, r)
		return
	}

	if conns, ok := m.streams[r.URL.Path]; ok {
		var conn *StreamConnection
		if len(conns) > 0 {
			conn = &conns[0]
			m.streams[r.URL.Path] = conns[1:]
		}
		m.mu.Unlock()
		serveStream(w, r, conn)
		return
	}

	script, ok := m.scripts[r.URL.Path]
	if !ok || len(script) == 0 {
		m.mu.Unlock()
		WriteJSON(w, http.StatusNotFound, `{"title":"Not Found Error","detail":"no mock for `+r.URL.Path+`"}`, nil)
		return
	}
	resp := script[0]
	if len(script) > 1 {
		m.scripts[r.URL.Path] = script[1:]
	}
	m.mu.Unlock()

	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-r.Context().Done():
			return
		}
	}
	WriteJSON(w, resp.StatusCode, resp.Body, resp.Headers)
}

func serveStream(w http.ResponseWriter, r *http.Request, conn *StreamConnection) {
	flusher, _ := w.(http.Flusher)

	if conn == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if flusher != nil {
			flusher.Flush()
		}
		<-r.Context().Done()
		return
	}

	status := conn.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	if status != http.StatusOK {
		WriteJSON(w, status, `{"title":"stream error"}`, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	for _, line := range conn.Lines {
		fmt.Fprintf(w, "%s\r\n", line)
		if flusher != nil {
			flusher.Flush()
		}
	}

	if conn.Hold {
		<-r.Context().Done()
	}
}

// WriteJSON writes a JSON response with optional extra headers.
func WriteJSON(w http.ResponseWriter, status int, body string, headers map[string]string) {
	for k, v := range headers {
		w.Header().Set(k, v)
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}
	w.WriteHeader(status)
	if body != "" {
		_, _ = w.Write([]byte(body))
	}
}

// NewPageResponse creates a 200 page response with an open rate limit window.
func NewPageResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers:    RateLimitHeaders(449, time.Now().Add(15*time.Minute)),
	}
}

// NewRateLimitResponse creates a 429 whose window resets at resetAt.
func NewRateLimitResponse(resetAt time.Time) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"title":"Too Many Requests","detail":"Too Many Requests","type":"about:blank","status":429}`,
		Headers:    RateLimitHeaders(0, resetAt),
	}
}

// NewServerErrorResponse creates a response with the given 5xx status.
func NewServerErrorResponse(status int) MockResponse {
	return MockResponse{
		StatusCode: status,
		Body:       `{"title":"Service Unavailable","detail":"Service Unavailable","status":` + strconv.Itoa(status) + `}`,
	}
}

// NewErrorResponse creates an error response in the vendor's problem format.
func NewErrorResponse(status int, detail string) MockResponse {
	return MockResponse{
		StatusCode: status,
		Body:       `{"title":"Error","detail":"` + detail + `","status":` + strconv.Itoa(status) + `}`,
	}
}

// RateLimitHeaders returns the vendor's rate limit headers.
func RateLimitHeaders(remaining int, resetAt time.Time) map[string]string {
	return map[string]string{
		"x-rate-limit-limit":     "450",
		"x-rate-limit-remaining": strconv.Itoa(remaining),
		"x-rate-limit-reset":     strconv.FormatInt(resetAt.Unix(), 10),
	}
}
