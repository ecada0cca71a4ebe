// Package app assembles the registry, HTTP facade and worker from config.
// The cmd binaries and the CLI's serve and worker commands share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	scs "github.com/alexedwards/scs/v2"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/researchdata/internal/config"
	"github.com/briangreenhill/researchdata/internal/http/routes"
	"github.com/briangreenhill/researchdata/internal/jobs"
	"github.com/briangreenhill/researchdata/internal/providers"
	"github.com/briangreenhill/researchdata/internal/store"
	"github.com/briangreenhill/researchdata/pkg/apiclient"
)

// NewLogger returns a timestamped logger at cfg's level.
func NewLogger(w io.Writer, cfg *config.Config) zerolog.Logger {
	return zerolog.New(w).Level(cfg.Level()).With().Timestamp().Logger()
}

// Registry builds the source registry with logging and, when reg is not
// nil, request metrics registered on reg.
func Registry(cfg *config.Config, logger zerolog.Logger, reg prometheus.Registerer, extra ...apiclient.Option) *providers.Registry {
	opts := []apiclient.Option{apiclient.WithLogger(logger)}
	if reg != nil {
		opts = append(opts, apiclient.WithMetrics(apiclient.NewMetrics(reg)))
	}
	return providers.Setup(cfg, append(opts, extra...)...)
}

// Serve runs the HTTP facade until ctx is cancelled.
func Serve(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	promReg := prometheus.NewRegistry()
	registry := Registry(cfg, logger, promReg)

	sess := scs.New()
	sess.Lifetime = 12 * time.Hour
	sess.Cookie.HttpOnly = true
	sess.Cookie.SameSite = http.SameSiteLaxMode

	opts := routes.ServerOptions{Sess: sess, Registry: registry, Logger: logger, Gatherer: promReg}
	if cfg.HasQueue() {
		client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() {
			if err := client.Close(); err != nil {
				logger.Error().Err(err).Msg("close asynq client")
			}
		}()
		opts.Queue = client
	}
	s := routes.New(opts)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("starting api")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	}
}

// Work runs the background worker until ctx is cancelled.
func Work(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	if !cfg.HasQueue() {
		return apiclient.Configf("worker needs REDIS_ADDR")
	}
	h := &jobs.Handlers{
		Runner:  Registry(cfg, logger, nil),
		Options: []apiclient.Option{apiclient.WithLogger(logger)},
		Logger:  logger,
	}
	if cfg.HasDatabase() {
		st, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer st.Close()
		h.Store = st
	} else {
		logger.Warn().Msg("DATABASE_URL not set, capture outcomes are only logged")
	}

	srv := asynq.NewServer(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, asynq.Config{
		Concurrency: 8,
		Queues: map[string]int{
			jobs.QueueCapture: 10,
			jobs.QueueDefault: 5,
		},
		Logger:   asynqLogger{logger},
		LogLevel: asynq.InfoLevel,
	})
	if err := srv.Start(h.Mux()); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	logger.Info().Str("redis", cfg.RedisAddr).Msg("worker running")
	<-ctx.Done()
	srv.Shutdown()
	return nil
}

// asynqLogger routes asynq's internal logging through zerolog.
type asynqLogger struct{ l zerolog.Logger }

func (a asynqLogger) Debug(args ...any) { a.l.Debug().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Info(args ...any)  { a.l.Info().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Warn(args ...any)  { a.l.Warn().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Error(args ...any) { a.l.Error().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Fatal(args ...any) { a.l.Fatal().Msg(fmt.Sprint(args...)) }
