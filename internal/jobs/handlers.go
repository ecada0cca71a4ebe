// Package jobs defines the background tasks the API enqueues and the worker
// runs.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/researchdata/internal/providers"
	"github.com/briangreenhill/researchdata/internal/store"
	"github.com/briangreenhill/researchdata/pkg/apiclient"
	"github.com/briangreenhill/researchdata/pkg/archive"
)

// Runner dispatches a named source operation. *providers.Registry is one.
type Runner interface {
	Run(ctx context.Context, source, op string, args providers.Args) (apiclient.Result, error)
}

type Handlers struct {
	// Runner serves census prefetches.
	Runner Runner
	// Options configure the Wayback client used for captures.
	Options []apiclient.Option
	// Store is optional. Without it capture outcomes are only logged.
	Store  store.Recorder
	Logger zerolog.Logger
}

// Mux routes every task type to its handler.
func (h *Handlers) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskArchiveCapture, h.HandleArchiveCapture)
	mux.HandleFunc(TaskCensusPrefetch, h.HandleCensusPrefetch)
	return mux
}

func (h *Handlers) HandleArchiveCapture(ctx context.Context, t *asynq.Task) error {
	var p ArchiveCapturePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		h.Logger.Error().Err(err).Str("task", t.Type()).Msg("bad payload")
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	log := h.Logger.With().Str("task", t.Type()).Str("url", p.URL).Str("request_id", p.RequestID).Logger()
	log.Info().Msg("capture start")
	start := time.Now()

	res, err := archive.New(h.Options...).ArchiveURL(ctx, p.URL, archive.CaptureOptions{Wait: p.Wait, Delay: p.delay()})
	duration := time.Since(start)
	if err != nil {
		return h.fail(log, err, duration)
	}

	if h.Store != nil {
		if err := h.Store.RecordCapture(ctx, store.Capture{
			URL:        p.URL,
			Provider:   res.Provider,
			Success:    res.Success,
			ArchiveURL: res.ArchiveURL,
			Error:      res.Error,
			RequestID:  p.RequestID,
		}); err != nil {
			log.Error().Err(err).Msg("record capture")
			return err
		}
	}
	log.Info().Bool("success", res.Success).Str("archive_url", res.ArchiveURL).Dur("duration", duration).Msg("capture done")
	return nil
}

func (h *Handlers) HandleCensusPrefetch(ctx context.Context, t *asynq.Task) error {
	var p CensusPrefetchPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		h.Logger.Error().Err(err).Str("task", t.Type()).Msg("bad payload")
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	log := h.Logger.With().Str("task", t.Type()).Str("op", p.Op).Str("request_id", p.RequestID).Logger()
	start := time.Now()

	res, err := h.Runner.Run(ctx, "census", p.Op, providers.Args(p.Args))
	if err != nil {
		return h.fail(log, err, time.Since(start))
	}
	log.Info().Str("kind", res.Kind()).Dur("duration", time.Since(start)).Msg("prefetch done")
	return nil
}

// fail keeps transient failures retryable and archives the rest.
func (h *Handlers) fail(log zerolog.Logger, err error, d time.Duration) error {
	if Retryable(err) {
		log.Warn().Err(err).Dur("duration", d).Msg("retryable error")
		return err
	}
	log.Error().Err(err).Dur("duration", d).Msg("permanent error, dropping task")
	return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
}

// Retryable reports whether a task failure may succeed on a later attempt:
// transport failures, upstream 5xx and context deadlines.
func Retryable(err error) bool {
	return errors.Is(err, apiclient.ErrNetwork) ||
		errors.Is(err, apiclient.ErrServer) ||
		errors.Is(err, context.DeadlineExceeded)
}
