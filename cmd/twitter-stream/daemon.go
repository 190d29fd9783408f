package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Sternrassler/twitterapi-client/pkg/checkpoint"
	"github.com/Sternrassler/twitterapi-client/pkg/client"
	"github.com/Sternrassler/twitterapi-client/pkg/config"
	"github.com/Sternrassler/twitterapi-client/pkg/logging"
	"github.com/Sternrassler/twitterapi-client/pkg/twitter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

type daemon struct {
	cfg    config.Config
	api    *twitter.API
	redis  *redis.Client
	logger zerolog.Logger
}

func newDaemon(ctx context.Context, cfg config.Config) (*daemon, error) {
	logger := logging.NewLogger("twitter-stream")

	d := &daemon{cfg: cfg, logger: logger}

	var store checkpoint.Store
	if cfg.Redis.Enabled() {
		d.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := d.redis.Ping(ctx).Err(); err != nil {
			d.redis.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		store = checkpoint.NewRedisStore(d.redis, cfg.Redis.TTL)
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("Checkpoints persisted to Redis")
	}

	clientLogger := logging.NewLogger("twitterapi-client")
	c, err := client.New(client.Config{
		BaseURL:             cfg.API.BaseURL,
		Credentials:         client.StaticToken(cfg.BearerToken),
		UserAgent:           cfg.API.UserAgent,
		RequestTimeout:      cfg.API.RequestTimeout,
		StreamHeaderTimeout: cfg.API.StreamHeaderTimeout,
		RequestsPerMinute:   cfg.API.RequestsPerMinute,
		Logger:              &clientLogger,
	})
	if err != nil {
		d.close()
		return nil, fmt.Errorf("create client: %w", err)
	}

	d.api = twitter.NewAPI(c, twitter.Options{
		FailFastOn503: cfg.API.FailFastOn503,
		Checkpoint:    store,
	})
	return d, nil
}

func (d *daemon) close() {
	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			d.logger.Warn().Err(err).Msg("Failed to close Redis client")
		}
	}
}

// run serves /health and /metrics while fn consumes the streams. A cancelled
// context is a clean shutdown.
func (d *daemon) run(ctx context.Context, out io.Writer, fn func(context.Context, *twitter.API, *eventWriter) error) error {
	var srv *http.Server
	if d.cfg.Metrics.Addr != "" {
		ln, err := net.Listen("tcp", d.cfg.Metrics.Addr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", d.cfg.Metrics.Addr, err)
		}
		srv = &http.Server{Handler: newMux(d.ready), ReadHeaderTimeout: 10 * time.Second}
		d.logger.Info().Str("addr", ln.Addr().String()).Msg("Serving /health and /metrics")

		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				d.logger.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	d.logger.Info().Msg("Starting stream consumer")
	err := fn(ctx, d.api, newEventWriter(out))
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		err = nil
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			d.logger.Warn().Err(serr).Msg("Metrics server shutdown failed")
		}
	}

	if err != nil {
		d.logger.Error().Err(err).Msg("Stream consumer stopped")
		return err
	}
	d.logger.Info().Msg("Stream consumer stopped")
	return nil
}

// ready fails when the checkpoint store is configured but unreachable.
func (d *daemon) ready(ctx context.Context) error {
	if d.redis == nil {
		return nil
	}
	return d.redis.Ping(ctx).Err()
}

func newMux(ready func(context.Context) error) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler(ready))
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func readyHandler(ready func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := ready(ctx); err != nil {
			http.Error(w, "checkpoint store unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	}
}

// eventWriter serializes events from concurrent readers as NDJSON.
type eventWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func newEventWriter(w io.Writer) *eventWriter {
	return &eventWriter{enc: json.NewEncoder(w)}
}

func (w *eventWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.Encode(v); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

func runFiltered(ctx context.Context, api *twitter.API, opts twitter.StreamOptions, out *eventWriter) error {
	reader := api.FilteredStream(opts)
	return reader.Run(ctx, func(t twitter.TweetResponse) error {
		return out.Write(t)
	})
}

// runCompliance runs one reader per partition. The first reader to fail
// stops the others.
func runCompliance(ctx context.Context, api *twitter.API, kind twitter.ComplianceJobType, partitions []int, opts twitter.StreamOptions, out *eventWriter) error {
	readers := make([]func(context.Context) error, 0, len(partitions))
	for _, p := range partitions {
		reader, err := api.ComplianceStream(kind, p, opts)
		if err != nil {
			return err
		}
		readers = append(readers, func(ctx context.Context) error {
			return reader.Run(ctx, func(ev twitter.ComplianceEvent) error {
				return out.Write(ev)
			})
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, run := range readers {
		g.Go(func() error {
			return run(gctx)
		})
	}
	return g.Wait()
}
