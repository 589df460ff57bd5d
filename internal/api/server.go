// Package api exposes intake, matching, client records and the assistant over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/spigell/broker-genie/internal/activity"
	"github.com/spigell/broker-genie/internal/ai"
	"github.com/spigell/broker-genie/internal/catalog"
	"github.com/spigell/broker-genie/internal/clients"
	"github.com/spigell/broker-genie/internal/intake"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
)

type Options struct {
	Catalog   catalog.Source
	Intake    *intake.Service
	Clients   clients.Repository
	Activity  activity.Store
	Assistant ai.Assistant
	// AllowedOrigins are passed to CORS. Empty allows any origin.
	AllowedOrigins []string
	Logger         *zap.Logger
}

type Server struct {
	catalog   catalog.Source
	intake    *intake.Service
	clients   clients.Repository
	activity  activity.Store
	assistant ai.Assistant
	origins   []string
	logger    *zap.Logger
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Server{
		catalog:   opts.Catalog,
		intake:    opts.Intake,
		clients:   opts.Clients,
		activity:  opts.Activity,
		assistant: opts.Assistant,
		origins:   origins,
		logger:    logger,
	}
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(withUser)
	r.Use(logRequests(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", userIDHeader},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/plans", s.listPlans)
		r.Post("/match", s.match)
		r.Post("/intake", s.submit)

		r.Route("/clients", func(r chi.Router) {
			r.Get("/", s.listClients)
			r.Get("/{id}", s.getClient)
		})

		r.Post("/chat", s.chat)
		r.Get("/activity/time-saved", s.timeSaved)
	})

	return r
}

// ListenAndServe serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}
