// Package server exposes the read-only status API: liveness, version, and
// job status lookups backed by the on-disk job registry.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	apperrors "github.com/3leaps/navconv/internal/errors"
	"github.com/3leaps/navconv/pkg/jobs"
)

// VersionInfo is reported by the /version endpoint.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// Server is the status HTTP server.
type Server struct {
	host    string
	port    int
	store   *jobs.Store
	version VersionInfo
	log     *zap.Logger

	httpServer *http.Server
}

// New creates a server over the job store. A nil store disables the jobs
// API (endpoints return 404).
func New(host string, port int, store *jobs.Store, version VersionInfo, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		host:    host,
		port:    port,
		store:   store,
		version: version,
		log:     logger,
	}
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.port
}

// Handler builds the router. Exposed for tests.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.NotFound(apperrors.NotFoundHandler)
	r.MethodNotAllowed(apperrors.MethodNotAllowedHandler)

	r.Get("/healthz", s.handleHealth)
	r.Get("/version", s.handleVersion)

	if s.store != nil {
		r.Route("/api/v1/jobs", func(r chi.Router) {
			r.Get("/", s.handleListJobs)
			r.Get("/{jobID}", s.handleGetJob)
		})
	}

	return r
}

// ListenAndServe runs the server until the context is cancelled, then
// shuts down gracefully within shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, readTimeout, writeTimeout, idleTimeout, shutdownTimeout time.Duration) error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.host, s.port),
		Handler:      s.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("status server listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return <-errCh
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.version)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.List()
	if err != nil {
		s.log.Error("list jobs", zap.Error(err))
		apperrors.RespondWithError(w, http.StatusInternalServerError, apperrors.CodeInternal, "failed to list jobs")
		return
	}
	if records == nil {
		records = []jobs.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": records})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	rec, err := s.store.Get(jobID)
	if err != nil {
		if os.IsNotExist(err) {
			apperrors.RespondWithError(w, http.StatusNotFound, apperrors.CodeNotFound, "job not found")
			return
		}
		s.log.Error("get job", zap.String("job_id", jobID), zap.Error(err))
		apperrors.RespondWithError(w, http.StatusInternalServerError, apperrors.CodeInternal, "failed to load job")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
