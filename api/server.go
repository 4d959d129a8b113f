// Package api exposes stored listings and their similar-listing sets over
// HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"airbnb-similarity/services"
	"airbnb-similarity/utils"
)

const shutdownTimeout = 10 * time.Second

// Server is the query HTTP surface.
type Server struct {
	query  *services.QueryService
	logger *utils.Logger
	router chi.Router
	http   *http.Server
}

// NewServer builds the router. Call ListenAndServe to start it.
func NewServer(addr string, query *services.QueryService, logger *utils.Logger) *Server {
	s := &Server{query: query, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/listings", s.handleListListings)
		r.Get("/listing/{id}", s.handleGetListing)
		r.Get("/listing/{id}/similar", s.handleGetSimilar)
	})

	s.router = r
	s.http = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("[api] Listening on %s", s.http.Addr)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("[api] Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("[api] %s %s → %d (%v)", r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}
