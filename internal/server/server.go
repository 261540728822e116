// Package server exposes the analysis pipeline over HTTP.
//
// # Routes
//
//   - POST /v1/adjacency: analyze GeoJSON geometries, see [Request]
//   - GET /healthz: liveness probe
//   - GET /metrics: Prometheus metrics, when enabled
//
// Errors are returned as {"code": ..., "error": ...} with status 400 for
// invalid input or options and 500 otherwise.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/geoadjacency/pkg/buildinfo"
	"github.com/matzehuels/geoadjacency/pkg/core/adjacency"
	"github.com/matzehuels/geoadjacency/pkg/errors"
	gio "github.com/matzehuels/geoadjacency/pkg/io"
	"github.com/matzehuels/geoadjacency/pkg/observability"
	"github.com/matzehuels/geoadjacency/pkg/pipeline"
)

// DefaultMaxBodyBytes limits the size of an analysis request.
const DefaultMaxBodyBytes = 32 << 20

// Request is the body of POST /v1/adjacency. Each collection is a GeoJSON
// FeatureCollection, Feature or geometry; feature order gives the indices.
type Request struct {
	Sources   json.RawMessage  `json:"sources"`
	Targets   json.RawMessage  `json:"targets,omitempty"`
	Obstacles json.RawMessage  `json:"obstacles,omitempty"`
	Options   pipeline.Options `json:"options"`
}

// Response is the body of a successful analysis.
type Response struct {
	RunID     string              `json:"run_id"`
	Mapping   any                 `json:"mapping"`
	Stats     pipeline.Stats      `json:"stats"`
	Cache     pipeline.CacheInfo  `json:"cache"`
	Artifacts map[string]Artifact `json:"artifacts,omitempty"`
}

// Artifact holds one rendered format. JSON formats are embedded as JSON,
// text formats as strings and images as base64.
type Artifact struct {
	JSON  json.RawMessage `json:"json,omitempty"`
	Text  string          `json:"text,omitempty"`
	Bytes []byte          `json:"bytes,omitempty"`
}

type errorResponse struct {
	Code  errors.Code `json:"code"`
	Error string      `json:"error"`
}

// Server handles analysis requests.
type Server struct {
	runner       *pipeline.Runner
	logger       *log.Logger
	metrics      *Metrics
	maxBodyBytes int64
}

// Option customizes a [Server].
type Option func(*Server)

// WithMetrics serves m on /metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithMaxBodyBytes overrides [DefaultMaxBodyBytes].
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// New creates a server around runner.
func New(runner *pipeline.Runner, logger *log.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{runner: runner, logger: logger, maxBodyBytes: DefaultMaxBodyBytes}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", s.handleHealth)
	r.Post("/v1/adjacency", s.handleAdjacency)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	return r
}

// observe reports each request to the HTTP hooks under its route pattern.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		hooks := observability.HTTP()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		hooks.OnRequest(r.Context(), r.Method, r.URL.Path)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		hooks.OnResponse(r.Context(), r.Method, route, code, time.Since(start))
		s.logger.Debug("request", "method", r.Method, "route", route, "status", code,
			"id", middleware.GetReqID(r.Context()), "duration", time.Since(start))
	})
}

type health struct {
	Status string `json:"status"`
	buildinfo.Info
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, health{Status: "ok", Info: buildinfo.Get()})
}

func (s *Server) handleAdjacency(w http.ResponseWriter, r *http.Request) {
	var req Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.fail(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request"))
		return
	}

	in, err := req.input()
	if err != nil {
		s.fail(w, err)
		return
	}

	opts := req.Options
	opts.Logger = s.logger
	res, err := s.runner.Execute(r.Context(), in, opts)
	if err != nil {
		s.fail(w, err)
		return
	}

	resp := Response{
		RunID:   res.RunID,
		Mapping: res.Mapping,
		Stats:   res.Stats,
		Cache:   res.CacheInfo,
	}
	if len(res.Artifacts) > 0 {
		resp.Artifacts = make(map[string]Artifact, len(res.Artifacts))
		for format, data := range res.Artifacts {
			resp.Artifacts[format] = artifact(format, data)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (req Request) input() (adjacency.Input, error) {
	var in adjacency.Input
	var err error
	if in.Sources, err = gio.DecodeGeoJSON(req.Sources); err != nil {
		return in, errors.Wrap(errors.ErrCodeInvalidInput, err, "sources")
	}
	if in.Targets, err = gio.DecodeGeoJSON(req.Targets); err != nil {
		return in, errors.Wrap(errors.ErrCodeInvalidInput, err, "targets")
	}
	if in.Obstacles, err = gio.DecodeGeoJSON(req.Obstacles); err != nil {
		return in, errors.Wrap(errors.ErrCodeInvalidInput, err, "obstacles")
	}
	return in, nil
}

func artifact(format string, data []byte) Artifact {
	switch format {
	case pipeline.FormatJSON, pipeline.FormatArtifacts, pipeline.FormatGeoJSON:
		return Artifact{JSON: data}
	case pipeline.FormatDOT, pipeline.FormatSVG:
		return Artifact{Text: string(data)}
	}
	return Artifact{Bytes: data}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	statusCode := http.StatusInternalServerError
	if errors.IsClientError(err) {
		statusCode = http.StatusBadRequest
	} else {
		s.logger.Error("analysis failed", "error", err)
	}
	writeJSON(w, statusCode, errorResponse{Code: code, Error: errors.UserMessage(err)})
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}
