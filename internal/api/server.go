// Package api exposes the ledger read-only over HTTP: run orders,
// their runs, per-run detail with section logs, and output file
// download. It never mutates the ledger.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/sylva-labs/algorun/internal/ledger"
)

// Server serves the read-only query API.
type Server struct {
	store      ledger.Store
	outputPath string
	port       int
	logger     *slog.Logger
}

// Config holds configuration for the API server.
type Config struct {
	Store      ledger.Store
	OutputPath string
	Port       int
	Logger     *slog.Logger
}

// NewServer creates a new API server instance.
func NewServer(cfg Config) *Server {
	return &Server{
		store:      cfg.Store,
		outputPath: cfg.OutputPath,
		port:       cfg.Port,
		logger:     cfg.Logger,
	}
}

// Routes builds the router. Exposed separately so tests can drive the
// handlers without binding a socket.
func (s *Server) Routes() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
	)

	r.Get("/runOrders", s.handleListOrders)
	r.Get("/runOrders/{orderID}/runs", s.handleListRuns)
	r.Get("/runOrders/{orderID}/runs/{runID}", s.handleGetRun)
	r.Get("/runs/{runID}/files/*", s.handleDownloadFile)

	return r
}

// Serve starts the API server and blocks until the context is
// cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting API server", "addr", addr)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
