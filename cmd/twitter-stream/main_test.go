package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/twitterapi-client/internal/testutil"
	"github.com/Sternrassler/twitterapi-client/pkg/config"
)

func TestHealthEndpoint(t *testing.T) {
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	healthHandler(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if string(body) != "OK" {
		t.Errorf("Expected body 'OK', got %s", string(body))
	}
}

func TestReadyEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		ready      func(context.Context) error
		wantStatus int
	}{
		{name: "ready", ready: func(context.Context) error { return nil }, wantStatus: http.StatusOK},
		{name: "store_down", ready: func(context.Context) error { return errors.New("dial tcp: refused") }, wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			readyHandler(tt.ready)(w, httptest.NewRequest("GET", "/ready", nil))

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	newMux(func(context.Context) error { return nil }).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "# HELP") || !strings.Contains(body, "# TYPE") {
		t.Error("Expected Prometheus format metrics output")
	}
}

func TestEventWriter_Concurrent(t *testing.T) {
	var buf bytes.Buffer
	w := newEventWriter(&buf)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Write(map[string]int{"n": i}); err != nil {
				t.Errorf("Write() error = %v", err)
			}
		}()
	}
	wg.Wait()

	lines := readLines(t, &buf)
	if len(lines) != 50 {
		t.Fatalf("Expected 50 lines, got %d", len(lines))
	}
	for _, line := range lines {
		if !json.Valid([]byte(line)) {
			t.Errorf("Interleaved output line %q", line)
		}
	}
}

// writeConfig writes a config pointing the daemon at the mock API with the
// metrics listener disabled.
func writeConfig(t *testing.T, mock *testutil.MockAPI) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := "bearer_token: test-token\n" +
		"api:\n  base_url: " + mock.BaseURL() + "\n" +
		"log:\n  level: error\n" +
		"metrics:\n  addr: \"\"\n"
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func execute(t *testing.T, timeout time.Duration, args ...string) (string, error) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)

	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func readLines(t *testing.T, r io.Reader) []string {
	t.Helper()
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines
}

func TestFilteredCommand(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetStream("/2/tweets/search/stream", testutil.StreamConnection{
		Lines: []string{
			`{"data":{"id":"1","text":"a"},"matching_rules":[{"id":"5","tag":"go"}]}`,
			"",
			`{"data":{"id":"2","text":"b"}}`,
		},
		Hold: true,
	})

	out, err := execute(t, 500*time.Millisecond, "filtered", "--config", writeConfig(t, mock), "--backfill-minutes", "2")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	lines := readLines(t, strings.NewReader(out))
	if len(lines) != 2 {
		t.Fatalf("Expected 2 events, got %d: %q", len(lines), out)
	}

	var first struct {
		Tweet         struct{ ID string } `json:"tweet"`
		MatchingRules []struct{ Tag string } `json:"matching_rules"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if first.Tweet.ID != "1" || len(first.MatchingRules) != 1 || first.MatchingRules[0].Tag != "go" {
		t.Errorf("Unexpected first event %s", lines[0])
	}

	req := mock.Requests("/2/tweets/search/stream")[0]
	if got := req.Query.Get("backfill_minutes"); got != "2" {
		t.Errorf("Expected backfill_minutes=2, got %q", got)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer test-token" {
		t.Errorf("Expected bearer token, got %q", got)
	}
}

func TestComplianceCommand(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetStream("/2/tweets/compliance/stream",
		testutil.StreamConnection{
			Lines: []string{`{"data":{"delete":{"tweet":{"id":"10"},"event_at":"2021-07-06T18:40:40.000Z"}}}`},
			Hold:  true,
		},
		testutil.StreamConnection{
			Lines: []string{`{"data":{"withheld":{"tweet":{"id":"11"},"event_at":"2021-07-06T18:40:41.000Z"}}}`},
			Hold:  true,
		},
	)

	out, err := execute(t, 500*time.Millisecond, "compliance", "--config", writeConfig(t, mock), "--kind", "tweets", "--partitions", "1,3")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	lines := readLines(t, strings.NewReader(out))
	if len(lines) != 2 {
		t.Fatalf("Expected 2 events, got %d: %q", len(lines), out)
	}

	partitions := map[string]bool{}
	for _, r := range mock.Requests("/2/tweets/compliance/stream") {
		partitions[r.Query.Get("partition")] = true
	}
	if !partitions["1"] || !partitions["3"] || len(partitions) != 2 {
		t.Errorf("Expected partitions 1 and 3, got %v", partitions)
	}
}

func TestComplianceCommand_InvalidArgs(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	path := writeConfig(t, mock)

	tests := []struct {
		name string
		args []string
	}{
		{name: "partition_out_of_range", args: []string{"--partitions", "5"}},
		{name: "unknown_kind", args: []string{"--kind", "lists"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"compliance", "--config", path}, tt.args...)
			if _, err := execute(t, time.Second, args...); err == nil {
				t.Error("Expected an error")
			}
		})
	}
	if n := mock.RequestCount(""); n != 0 {
		t.Errorf("Expected no requests, got %d", n)
	}
}

func TestFilteredCommand_FatalConnect(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetStream("/2/tweets/search/stream", testutil.StreamConnection{StatusCode: http.StatusBadRequest})

	_, err := execute(t, 5*time.Second, "filtered", "--config", writeConfig(t, mock))
	if err == nil {
		t.Fatal("Expected a fatal connect error")
	}
}

func TestRootCommand_MissingToken(t *testing.T) {
	t.Setenv("BEARER_TOKEN", "")
	t.Setenv("TWITTERAPI_BEARER_TOKEN", "")

	_, err := execute(t, time.Second, "filtered")
	if !errors.Is(err, config.ErrNoBearerToken) {
		t.Errorf("Expected ErrNoBearerToken, got %v", err)
	}
}
