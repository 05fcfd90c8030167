package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/vk/gradplan/internal/catalog"
	"github.com/vk/gradplan/internal/ctxlog"
	"github.com/vk/gradplan/internal/engine"
	"github.com/vk/gradplan/internal/metrics"
	"github.com/vk/gradplan/internal/store"
)

// Options holds the collaborators of a Server. Engine and Store are
// required. Source is used by the reload route. Metrics and Logger may be nil.
type Options struct {
	Engine  *engine.Engine
	Store   store.Store
	Source  catalog.Source
	Metrics *metrics.Collector
	Logger  *slog.Logger
}

// Server routes HTTP requests to the engine and the store.
type Server struct {
	engine  *engine.Engine
	store   store.Store
	source  catalog.Source
	metrics *metrics.Collector
	logger  *slog.Logger
	mounts  map[string]http.Handler
}

// New creates a server.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		engine:  opts.Engine,
		store:   opts.Store,
		source:  opts.Source,
		metrics: opts.Metrics,
		logger:  logger,
		mounts:  make(map[string]http.Handler),
	}
}

// Mount registers an extra handler, such as the realtime endpoint, to be
// served next to the API routes. It must be called before Handler.
func (s *Server) Mount(pattern string, h http.Handler) {
	s.mounts[pattern] = h
}

// Handler builds the routing table wrapped in the request middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.healthHandler)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	mux.HandleFunc("GET /api/graph", s.handleGraph)
	mux.HandleFunc("POST /api/plan", s.handlePlan)
	mux.HandleFunc("GET /api/courses", s.handleListCourses)
	mux.HandleFunc("GET /api/courses/{code}", s.handleGetCourse)
	mux.HandleFunc("POST /api/courses/reload", s.handleReload)
	mux.HandleFunc("GET /api/programs", s.handlePrograms)

	mux.HandleFunc("GET /api/users/{id}", s.handleGetUser)
	mux.HandleFunc("PUT /api/users/{id}", s.handleSaveUser)
	mux.HandleFunc("POST /api/users/{id}/plan", s.handleUserPlan)
	mux.HandleFunc("GET /api/users/{id}/history", s.handleHistory)
	mux.HandleFunc("POST /api/users/{id}/history", s.handleAddHistory)
	mux.HandleFunc("PUT /api/users/{id}/history/{code}", s.handleUpdateHistory)
	mux.HandleFunc("DELETE /api/users/{id}/history/{code}", s.handleRemoveHistory)

	for pattern, h := range s.mounts {
		mux.Handle(pattern, h)
	}
	return s.withRequestContext(mux)
}

// healthHandler answers liveness probes.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctxlog.FromContext(r.Context()).Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// Serve runs an HTTP server on addr until ctx is cancelled, then shuts it
// down with a five second grace period.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	logger := ctxlog.FromContext(ctx)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting.", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	logger.Info("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
		return err
	}
	logger.Debug("HTTP server shut down gracefully.")
	return nil
}
