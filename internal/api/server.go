// Package api exposes the ingest, analysis and story pipeline over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"datastory/app"
	"datastory/internal"
	"datastory/internal/usage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Services are the application services the handlers call.
type Services struct {
	Ingest   *app.IngestService
	Analysis *app.AnalysisService
	Stories  *app.StoryService
	Usage    *usage.Service
}

// Server is the HTTP server for the pipeline API.
type Server struct {
	svc           Services
	router        *chi.Mux
	server        *http.Server
	log           *internal.Logger
	maxUploadSize int64
}

// NewServer creates a new Server. maxUploadSize bounds request bodies on the
// upload route; 0 leaves them unbounded.
func NewServer(svc Services, logger *internal.Logger, maxUploadSize int64) *Server {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	s := &Server{
		svc:           svc,
		router:        chi.NewRouter(),
		log:           logger.With("API"),
		maxUploadSize: maxUploadSize,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/sources", s.handleListSources)
		r.Post("/sources", s.handleUpload)
		r.Get("/sources/{id}", s.handleGetSource)
		r.Post("/sources/{id}/analyses", s.handleRunAnalysis)
		r.Get("/sources/{id}/analyses", s.handleListAnalyses)

		r.Get("/analyses/{id}", s.handleGetAnalysis)
		r.Post("/analyses/{id}/drafts", s.handleRunStory)
		r.Get("/analyses/{id}/drafts", s.handleListDrafts)

		r.Get("/drafts/{id}", s.handleGetDraft)
		r.Get("/drafts/{id}/html", s.handleDraftHTML)

		r.Get("/usage", s.handleUsageSummary)
		r.Get("/usage/{recordID}", s.handleRecordUsage)
	})
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		// Generation requests wait on providers; no write timeout.
		IdleTimeout: 60 * time.Second,
	}
	s.log.Info("Starting server on %s", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
