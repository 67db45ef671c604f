// Package api provides the HTTP server and the service layer for StoryPipe.
//
// It exposes RESTful endpoints for recording conversation turns, evaluating
// story readiness, synthesizing stories, and generating format artifacts.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sentimental-labs/StoryPipe/internal/format"
	"github.com/sentimental-labs/StoryPipe/internal/genai"
	"github.com/sentimental-labs/StoryPipe/internal/models"
	"github.com/sentimental-labs/StoryPipe/internal/store"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

// Opts holds configuration options for the API server.
type Opts struct {
	Addr string
}

// Option configures API server options.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// Server serves the StoryPipe HTTP API.
type Server struct {
	svc  *Service
	addr string
}

// NewServer creates a server around a service.
func NewServer(svc *Service, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	return &Server{svc: svc, addr: cfg.Addr}
}

// Handler builds the chi router with all routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.healthHandler)
	r.Get("/formats", s.formatsHandler)

	r.Route("/conversations/{userID}", func(r chi.Router) {
		r.Post("/turns", s.recordTurnHandler)
		r.Get("/readiness", s.readinessHandler)
		r.Post("/story", s.synthesizeHandler)
	})

	r.Route("/users/{userID}", func(r chi.Router) {
		r.Get("/stories", s.listStoriesHandler)
	})

	r.Route("/stories/{storyID}", func(r chi.Router) {
		r.Get("/", s.getStoryHandler)
		r.Patch("/", s.updateStoryHandler)
		r.Post("/formats", s.generateFormatsHandler)
		r.Post("/formats/{formatID}", s.generateFormatHandler)
	})

	return r
}

// Run starts the API server with the given store, genai, and API options.
// A missing generative backend is not fatal; the service runs in degraded
// mode with rule-based analysis and template guidance.
func Run(storeOpts []store.Option, genaiOpts []genai.Option, apiOpts []Option) error {
	st, err := store.NewStoreFromOptions(storeOpts...)
	if err != nil {
		return err
	}
	defer st.Close()

	client, err := genai.NewClient(genaiOpts...)
	if err != nil {
		slog.Warn("Run: generative backend unavailable, running in degraded mode", "error", err)
		client = nil
	}

	srv := NewServer(NewService(st, client), apiOpts...)
	httpServer := &http.Server{
		Addr:              srv.addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("Run: StoryPipe API listening", "addr", srv.addr, "generative", client != nil)
	return httpServer.ListenAndServe()
}

// statusForError maps service errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, store.ErrStoryNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrEmptyInput), errors.Is(err, models.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, models.ErrBackendCallFailed), errors.Is(err, models.ErrParseFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) formatsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.Success(format.SupportedFormats()))
}
