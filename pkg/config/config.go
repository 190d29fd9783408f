// Package config loads the stream daemon's configuration once at startup.
//
// Values come from, in increasing precedence: built-in defaults, an optional
// YAML file and TWITTERAPI_* environment variables (nested keys join with
// "_", e.g. TWITTERAPI_REDIS_ADDR). The bearer token is also read from
// BEARER_TOKEN.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/twitterapi-client/pkg/logging"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "TWITTERAPI"

// ErrNoBearerToken is returned when no bearer token is configured.
var ErrNoBearerToken = errors.New("bearer token is required (set BEARER_TOKEN)")

// Config is the daemon configuration. It is a value; nothing mutates it
// after Load.
type Config struct {
	BearerToken string        `mapstructure:"bearer_token"`
	API         APIConfig     `mapstructure:"api"`
	Stream      StreamConfig  `mapstructure:"stream"`
	Log         LogConfig     `mapstructure:"log"`
	Redis       RedisConfig   `mapstructure:"redis"`
	Metrics     MetricsConfig `mapstructure:"metrics"`
}

// APIConfig configures the HTTP client.
type APIConfig struct {
	BaseURL             string        `mapstructure:"base_url"`
	UserAgent           string        `mapstructure:"user_agent"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`
	StreamHeaderTimeout time.Duration `mapstructure:"stream_header_timeout"`
	RequestsPerMinute   int           `mapstructure:"requests_per_minute"`
	FailFastOn503       bool          `mapstructure:"fail_fast_on_503"`
}

// StreamConfig configures the stream readers.
type StreamConfig struct {
	BackfillMinutes int           `mapstructure:"backfill_minutes"`
	DisableBackfill bool          `mapstructure:"disable_backfill"`
	StallTimeout    time.Duration `mapstructure:"stall_timeout"`
}

// LogConfig configures zerolog.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// RedisConfig configures checkpoint persistence. An empty Addr disables it.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// Enabled reports whether checkpoints are persisted.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// MetricsConfig configures the /health and /metrics listener. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bearer_token", "")

	v.SetDefault("api.base_url", "https://api.twitter.com/2/")
	v.SetDefault("api.user_agent", "twitterapi-client/0.1.0")
	v.SetDefault("api.request_timeout", 30*time.Second)
	v.SetDefault("api.stream_header_timeout", 30*time.Second)
	v.SetDefault("api.requests_per_minute", 0)
	v.SetDefault("api.fail_fast_on_503", false)

	v.SetDefault("stream.backfill_minutes", 0)
	v.SetDefault("stream.disable_backfill", false)
	v.SetDefault("stream.stall_timeout", 90*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 24*time.Hour)

	v.SetDefault("metrics.addr", ":9090")
}

// Load reads the configuration. path names an optional YAML file; when empty
// only defaults and the environment apply.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("bearer_token", EnvPrefix+"_BEARER_TOKEN", "BEARER_TOKEN"); err != nil {
		return Config{}, fmt.Errorf("bind bearer token: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the client would reject.
func (c Config) Validate() error {
	if strings.TrimSpace(c.BearerToken) == "" {
		return ErrNoBearerToken
	}
	if c.API.RequestsPerMinute < 0 {
		return fmt.Errorf("api.requests_per_minute must be >= 0 (got %d)", c.API.RequestsPerMinute)
	}
	if c.Stream.BackfillMinutes < 0 {
		return fmt.Errorf("stream.backfill_minutes must be >= 0 (got %d)", c.Stream.BackfillMinutes)
	}
	if c.Redis.TTL < 0 {
		return fmt.Errorf("redis.ttl must be >= 0 (got %s)", c.Redis.TTL)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// Logging returns the logger configuration.
func (c Config) Logging() logging.Config {
	level, _ := logging.ParseLevel(c.Log.Level)
	cfg := logging.DefaultConfig()
	cfg.Level = level
	cfg.Pretty = c.Log.Pretty
	return cfg
}
