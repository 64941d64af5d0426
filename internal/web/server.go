// Package web serves the listing catalog as a JSON HTTP API.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/HansLove/HouzeMaster-front/internal/auth"
	"github.com/HansLove/HouzeMaster-front/internal/catalog"
	"github.com/HansLove/HouzeMaster-front/internal/logging"
)

// Options configures a Server.
type Options struct {
	// AdminToken, when set, is required as a bearer token to refresh.
	AdminToken string
	Logger     *zap.Logger
}

// Server is the API HTTP server.
type Server struct {
	catalog *catalog.Service
	logger  *zap.Logger
	mux     *http.ServeMux
	handler http.Handler
}

// NewServer wires the routes for svc.
func NewServer(svc *catalog.Service, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		catalog: svc,
		logger:  logger,
		mux:     http.NewServeMux(),
	}

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/cache", s.apiCacheStatus)
	s.mux.HandleFunc("GET /api/listings", s.apiListings)
	s.mux.HandleFunc("GET /api/listings/all", s.apiAllListings)
	s.mux.HandleFunc("GET /api/listings/featured", s.apiFeatured)
	s.mux.HandleFunc("GET /api/listings/search", s.apiSearch)
	s.mux.HandleFunc("GET /api/listings/filter", s.apiFilter)
	s.mux.HandleFunc("GET /api/listings/{slug}", s.apiGetListing)
	s.mux.Handle("POST /api/listings/refresh", auth.RequireToken(opts.AdminToken, http.HandlerFunc(s.apiRefresh)))
	s.mux.HandleFunc("/", s.handleNotFound)

	s.handler = logging.RequestLogger(logger, s.mux)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe serves on port until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting api server", zap.String("addr", "http://localhost"+srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down api server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	apiJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	apiError(w, "not found", http.StatusNotFound)
}
