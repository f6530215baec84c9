// Package api serves the curated layer of the lakehouse over a read-only HTTP API.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nomadiq-labs/parklake/pkg/core"
	"golang.org/x/sync/errgroup"
)

const (
	queryTimeout    = 30 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Querier runs read queries against the catalog.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (*core.Rows, error)
}

// Config holds configuration for the API server.
type Config struct {
	Addr    string
	Catalog Querier
	Logger  *slog.Logger
}

// Server is the query API server.
type Server struct {
	addr    string
	catalog Querier
	logger  *slog.Logger
}

// NewServer creates a new API server instance.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		addr:    cfg.Addr,
		catalog: cfg.Catalog,
		logger:  logger,
	}
}

// Handler returns the router with every endpoint mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
		s.logRequests,
	)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})
	for _, ep := range Endpoints {
		r.Get(ep.Path, s.handle(ep))
	}
	return r
}

// Serve starts the API server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting API server", "addr", s.addr)

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		s.logger.Debug("shutting down API server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func (s *Server) handle(ep Endpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query, args, err := ep.Build(r.URL.Query())
		if err != nil {
			s.fail(w, ep.Path, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
		defer cancel()

		records, err := s.fetch(ctx, query, args)
		if err != nil {
			s.fail(w, ep.Path, err)
			return
		}

		if ep.Column == "" {
			writeJSON(w, records)
			return
		}
		values := make([]any, 0, len(records))
		for _, rec := range records {
			values = append(values, rec[ep.Column])
		}
		writeJSON(w, values)
	}
}

func (s *Server) fetch(ctx context.Context, query string, args []any) ([]map[string]any, error) {
	rows, err := s.catalog.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanRecords(rows.Rows)
}

// fail reports an error in the response body; the status stays 200.
func (s *Server) fail(w http.ResponseWriter, path string, err error) {
	s.logger.Error("query failed", "endpoint", path, "error", err)
	writeJSON(w, map[string]string{"error": err.Error()})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
