// Package server exposes the service's HTTP surface: the download endpoint
// that drives fetch-or-get, plus status, cache, and history views for
// operators.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"bindery/internal/cache"
	"bindery/internal/config"
	"bindery/internal/history"
	"bindery/internal/logging"
	"bindery/internal/services"
	"bindery/internal/upstream"
)

// Converter abstracts the fetch-convert orchestrator so tests can observe
// or fail conversion attempts without spawning processes.
type Converter interface {
	Convert(ctx context.Context, id, artifactPath string) error
}

// Server handles download requests against the artifact cache, delegating
// misses to the orchestrator.
type Server struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *cache.Store
	metadata  *upstream.Client
	converter Converter
	journal   *history.Store
	inflight  *inflightGuard
	started   time.Time

	listener net.Listener
	server   *http.Server
}

// New wires the request handler to its collaborators. journal may be nil;
// history recording is then skipped.
func New(cfg *config.Config, store *cache.Store, metadata *upstream.Client, converter Converter, journal *history.Store, logger *slog.Logger) *Server {
	srv := &Server{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "server"),
		store:     store,
		metadata:  metadata,
		converter: converter,
		journal:   journal,
		inflight:  newInflightGuard(),
		started:   time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/download/", srv.handleDownload)
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/cache", srv.handleCache)
	mux.HandleFunc("/api/history", srv.handleHistory)

	srv.server = &http.Server{
		Handler:           srv.withRequestID(mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// Handler exposes the configured handler for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins serving on the configured bind address. The server shuts
// down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Paths.APIBind)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Paths.APIBind, err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound listen address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down outside of context cancellation.
func (s *Server) Stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// withRequestID attaches a correlation id to every request's context and
// echoes it in the response headers.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := services.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) record(ctx context.Context, id, outcome, detail string, duration time.Duration) {
	if s.journal == nil {
		return
	}
	s.journal.Record(ctx, id, outcome, detail, duration)
}

func pid() int {
	return os.Getpid()
}
