package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/mikhailv/fnstream/internal/catalog"
	"github.com/mikhailv/fnstream/internal/config"
	"github.com/mikhailv/fnstream/internal/log"
	"github.com/mikhailv/fnstream/internal/metrics"
	"github.com/mikhailv/fnstream/stream"
)

type FilterFunc[T any] func(val T) bool

// Loop is the event loop the served streams live on.
type Loop interface {
	Do(ctx context.Context, fn func()) error
	Post(fn func())
}

type HTTPServer struct {
	logger    *slog.Logger
	server    http.Server
	loop      Loop
	catalog   *catalog.Catalog
	logStream *stream.Stream[log.Entry]
	ws        config.WS
	pprof     bool
}

func NewHTTPServer(
	cfg *config.Config,
	logger *slog.Logger,
	loop Loop,
	catalog *catalog.Catalog,
	logStream *stream.Stream[log.Entry],
) *HTTPServer {
	return &HTTPServer{
		logger: logger,
		server: http.Server{
			Addr:              cfg.HTTPAddr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		loop:      loop,
		catalog:   catalog,
		logStream: logStream,
		ws:        cfg.WS,
		pprof:     cfg.Pprof,
	}
}

func (s *HTTPServer) Serve(ctx context.Context) error {
	s.server.Handler = s.createHandler()

	context.AfterFunc(ctx, func() {
		s.logger.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("failed to shutdown server", "err", err)
		}
	})

	s.logger.Info("server starting...", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *HTTPServer) createHandler() http.Handler {
	wsLogger := log.WithPrefix(s.logger, "ws")

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("GET /api/streams", s.wrapHandler(s.handleStreams))
	mux.Handle("GET /api/streams/{name}/ws", s.wrapHandler(func(w http.ResponseWriter, req *http.Request) (int, error) {
		name := req.PathValue("name")
		st, ok := s.catalog.Get(name)
		if !ok {
			return http.StatusNotFound, fmt.Errorf("unknown stream %q", name)
		}
		serveStream(s, wsLogger.With("stream", name), w, req, st, nil)
		return http.StatusSwitchingProtocols, nil
	}))
	mux.Handle("GET /api/logs/ws", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		serveStream(s, wsLogger.With("stream", "logs"), w, req, s.logStream, s.filterLogs(req))
	}))
	if s.pprof {
		registerPprof(mux)
	}

	return cors.Default().Handler(mux)
}

func (s *HTTPServer) wrapHandler(handler func(w http.ResponseWriter, req *http.Request) (statusCode int, err error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path := r.Method, r.Pattern
		operation := fmt.Sprintf("%s %s", method, path)
		defer metrics.TrackDuration(operation)()
		statusCode, err := handler(w, r)
		if err != nil {
			http.Error(w, err.Error(), statusCode)
			s.logger.Error(err.Error(), "method", method, "path", r.URL.Path, "statusCode", statusCode)
		}
		metrics.TrackStatus(operation, strconv.Itoa(statusCode))
	})
}

func (s *HTTPServer) handleStreams(w http.ResponseWriter, _ *http.Request) (int, error) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.catalog.Names()); err != nil {
		return http.StatusInternalServerError, fmt.Errorf("failed to encode stream names: %w", err)
	}
	return http.StatusOK, nil
}

func registerPprof(mux *http.ServeMux) {
	mux.HandleFunc("GET /debug/pprof/", pprof.Index)
	mux.HandleFunc("GET /debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("GET /debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("GET /debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("GET /debug/pprof/trace", pprof.Trace)
}
