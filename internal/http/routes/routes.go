package routes

import (
	"context"
	"net/http"

	scs "github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/briangreenhill/researchdata/cache"
	"github.com/briangreenhill/researchdata/internal/http/middleware"
	"github.com/briangreenhill/researchdata/internal/jobs"
	"github.com/briangreenhill/researchdata/internal/providers"
	"github.com/briangreenhill/researchdata/pkg/apiclient"
)

// sessionMetadata is the session key holding the census collection record.
const sessionMetadata = "census_metadata"

// Enqueuer is the part of *asynq.Client the server uses.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type Server struct {
	Router   *chi.Mux
	Sess     *scs.SessionManager
	Registry *providers.Registry
	Queue    Enqueuer
	Logger   zerolog.Logger
}

type ServerOptions struct {
	Sess     *scs.SessionManager
	Registry *providers.Registry
	// Queue is optional. Without it capture requests are refused.
	Queue  Enqueuer
	Logger zerolog.Logger
	// Gatherer backs /metrics. Nil means the default registry.
	Gatherer prometheus.Gatherer
}

func New(opts ServerOptions) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(hlog.NewHandler(opts.Logger))
	r.Use(middleware.AccessLog)
	r.Use(chimw.Recoverer)

	s := &Server{Router: r, Sess: opts.Sess, Registry: opts.Registry, Queue: opts.Queue, Logger: opts.Logger}

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("write health check response")
		}
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/sources", s.handleSources)

	r.Route("/v1", func(v chi.Router) {
		v.Get("/census/metadata", s.handleCensusMetadata)
		v.Delete("/census/metadata", s.handleResetMetadata)
		v.Post("/archive/capture", s.handleEnqueueCapture)
		v.Post("/census/prefetch", s.handleEnqueuePrefetch)
		v.Get("/{source}/{op}", s.handleRun)
	})

	return s
}

// Handler wraps the router with session loading.
func (s *Server) Handler() http.Handler {
	return s.Sess.LoadAndSave(s.Router)
}

type sourceInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Aliases     []string `json:"aliases,omitempty"`
	Operations  []string `json:"operations"`
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	names := s.Registry.List()
	out := make([]sourceInfo, 0, len(names))
	for _, name := range names {
		p, _ := s.Registry.Get(name)
		out = append(out, sourceInfo{
			Name:        name,
			Description: p.Description(),
			Aliases:     s.Registry.Aliases(name),
			Operations:  p.Operations(),
		})
	}
	s.writeJSON(w, r, http.StatusOK, out)
}

type runResponse struct {
	Source string         `json:"source"`
	Op     string         `json:"op"`
	Kind   string         `json:"kind"`
	Fields map[string]any `json:"fields"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	source, op := chi.URLParam(r, "source"), chi.URLParam(r, "op")
	canon, ok := s.Registry.Resolve(source)
	if !ok {
		s.writeError(w, r, http.StatusNotFound, apiclient.Configf("unknown source %q", source))
		return
	}

	args := providers.Args{}
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			args[k] = v[0]
		}
	}

	ctx := r.Context()
	var meta *cache.Metadata
	if canon == "census" {
		meta = s.metadata(ctx)
		ctx = providers.WithCensusMetadata(ctx, meta)
	}

	res, err := s.Registry.Run(ctx, canon, op, args)
	if meta != nil {
		s.saveMetadata(ctx, meta)
	}
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, runResponse{Source: canon, Op: op, Kind: res.Kind(), Fields: res.Fields()})
}

func (s *Server) handleCensusMetadata(w http.ResponseWriter, r *http.Request) {
	meta := s.metadata(r.Context())
	s.saveMetadata(r.Context(), meta)
	s.writeJSON(w, r, http.StatusOK, meta.Snapshot())
}

func (s *Server) handleResetMetadata(w http.ResponseWriter, r *http.Request) {
	s.Sess.Remove(r.Context(), sessionMetadata)
	w.WriteHeader(http.StatusNoContent)
}

type queued struct {
	TaskID    string `json:"task_id"`
	Queue     string `json:"queue"`
	RequestID string `json:"request_id"`
}

func (s *Server) handleEnqueueCapture(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := jobs.ArchiveCapturePayload{
		URL:       q.Get("url"),
		Wait:      q.Get("wait") == "true",
		RequestID: requestID(r),
	}
	task, err := jobs.NewArchiveCaptureTask(p)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	s.enqueue(w, r, task, p.RequestID)
}

func (s *Server) handleEnqueuePrefetch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := jobs.CensusPrefetchPayload{Op: q.Get("op"), Args: map[string]string{}, RequestID: requestID(r)}
	for k, v := range q {
		if k != "op" && len(v) > 0 {
			p.Args[k] = v[0]
		}
	}
	task, err := jobs.NewCensusPrefetchTask(p)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	s.enqueue(w, r, task, p.RequestID)
}

func (s *Server) enqueue(w http.ResponseWriter, r *http.Request, task *asynq.Task, reqID string) {
	if s.Queue == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, apiclient.Configf("background queue is not configured"))
		return
	}
	info, err := s.Queue.Enqueue(task)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("task", task.Type()).Msg("enqueue failed")
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	hlog.FromRequest(r).Info().Str("task", task.Type()).Str("task_id", info.ID).Msg("task queued")
	s.writeJSON(w, r, http.StatusAccepted, queued{TaskID: info.ID, Queue: info.Queue, RequestID: reqID})
}

// metadata restores the session's collection record, or starts one.
func (s *Server) metadata(ctx context.Context) *cache.Metadata {
	if raw := s.Sess.GetBytes(ctx, sessionMetadata); len(raw) > 0 {
		var snap cache.MetadataSnapshot
		if err := json.Unmarshal(raw, &snap); err == nil {
			return cache.RestoreMetadata(snap)
		}
	}
	return cache.NewMetadata()
}

func (s *Server) saveMetadata(ctx context.Context, m *cache.Metadata) {
	raw, err := json.Marshal(m.Snapshot())
	if err != nil {
		s.Logger.Error().Err(err).Msg("encode census metadata")
		return
	}
	s.Sess.Put(ctx, sessionMetadata, raw)
}

// statusFor maps a provider failure onto the facade's HTTP status.
func statusFor(err error) int {
	switch apiclient.StatusOf(err) {
	case apiclient.StatusNotFound:
		return http.StatusNotFound
	case apiclient.StatusServerError:
		return http.StatusBadGateway
	case apiclient.StatusNetworkError:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadRequest
	}
}

type errorBody struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, code int, err error) {
	s.writeJSON(w, r, code, errorBody{Status: string(apiclient.StatusOf(err)), Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("encode response")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(body); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("write response")
	}
}

// requestID reuses chi's request id, falling back to a fresh uuid.
func requestID(r *http.Request) string {
	if id := chimw.GetReqID(r.Context()); id != "" {
		return id
	}
	return uuid.NewString()
}
