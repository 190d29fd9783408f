// Package logging configures zerolog for the client and the stream daemon.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel is a minimum log level.
type LogLevel string

const (
	// LevelDebug logs request flow and everything above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs connects, reconnects and completions.
	LevelInfo LogLevel = "info"

	// LevelWarn logs retries, rate limit waits and schema drift.
	LevelWarn LogLevel = "warn"

	// LevelError logs fatal responses and exhausted retries only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output instead of JSON.
	Pretty bool

	// Output receives the log lines (default: os.Stderr). The daemon writes
	// events to stdout, so logs must stay off it.
	Output io.Writer
}

// DefaultConfig returns JSON logging at info level on stderr.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	level, err := ParseLevel(string(cfg.Level))
	if err != nil {
		level = LevelInfo
	}
	zerolog.SetGlobalLevel(zerologLevel(level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// ParseLevel validates a level name. "warning" is accepted for warn; the
// empty string means info.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

func zerologLevel(level LogLevel) zerolog.Level {
	switch level {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a logger tagged with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: request flow
//   - every attempt (endpoint, status, disposition, duration)
//   - rate limit header updates
//   - checkpoint reads and writes
//
// Info: lifecycle
//   - stream connects and reconnects
//   - iterator completion (pages, requests)
//   - daemon startup and shutdown
//
// Warn: degraded but continuing
//   - transient retries and rate limit waits
//   - schema drift and skipped items
//   - checkpoint store failures
//
// Error: the operation ends
//   - fatal responses
//   - exhausted retries
//   - configuration errors
//
// Context Fields:
//   - endpoint: logical endpoint label
//   - status: HTTP status code
//   - disposition: success, rate_limited, transient or fatal
//   - attempt: retry or reconnect counter
//   - wait: sleep before the next attempt
//   - cursor: pagination cursor
//   - backfill_minutes: backfill requested on connect
//   - session_id: stream session id
