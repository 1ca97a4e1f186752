package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/markdave123-py/vectordb/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/vectordb/internal/api/middlewares"
	"github.com/markdave123-py/vectordb/internal/config"
	"github.com/markdave123-py/vectordb/internal/core/ingestion_engine"
)

const (
	requestTimeout  = 60 * time.Second
	shutdownTimeout = 15 * time.Second
	queueCapacity   = 64
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	jobs       *ingestion_engine.JobQueue
	workers    int
	logger     *zap.Logger
}

// NewServer builds and wires all routes for a. Every /api route requires a
// bearer token, so an empty api_jwt_secret is rejected.
func NewServer(a *App, port string) (*Server, error) {
	if a.Config.JWTSecret == "" {
		return nil, fmt.Errorf("%w: api_jwt_secret is required to serve the API", config.ErrInvalidConfig)
	}

	logger := a.Logger.Named("http")
	jobs := ingestion_engine.NewJobQueue(a.Ingestor, queueCapacity, logger)

	docHandler := handlers.NewDocumentHandler(a.Documents, jobs, logger)
	searchHandler := handlers.NewSearchHandler(a.Documents, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.Config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", handlers.Health(a.Ingestor))

	r.Route("/api", func(api chi.Router) {
		api.Use(appMiddleware.JWTMiddleware([]byte(a.Config.JWTSecret)))
		api.Post("/ingest", docHandler.IngestPath)
		api.Get("/jobs/{id}", docHandler.GetJob)
		api.Get("/documents", docHandler.ListDocuments)
		api.Get("/documents/{hash}", docHandler.GetDocument)
		api.Delete("/documents/{hash}", docHandler.DeleteDocument)
		api.Post("/search", searchHandler.Search)
	})

	workers := a.Config.IngestConcurrency
	if workers <= 0 {
		workers = 1
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + port,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
		jobs:    jobs,
		workers: workers,
		logger:  logger,
	}, nil
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start runs the ingest workers and the HTTP server until ctx is done, then
// shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.jobs.Start(ctx, s.workers)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", ln.Addr().String()))
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
