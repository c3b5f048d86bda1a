// Package web serves the JSON API.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/reviewlink/reviewlink/web/handlers"
	"github.com/reviewlink/reviewlink/web/middleware"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

type Config struct {
	Addr           string
	AllowedOrigins []string
	Logger         *zap.Logger
	Deps           handlers.Dependencies
}

type Server struct {
	srv    *http.Server
	logger *zap.Logger
}

// NewRouter returns the API handler with the middleware stack applied.
func NewRouter(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if cfg.Deps.Logger == nil {
		cfg.Deps.Logger = logger
	}

	router := mux.NewRouter().UseEncodedPath()

	handlers.NewHandlerGroup(cfg.Deps).RegisterRoutes(router)

	return middleware.Chain(router,
		middleware.Recovery(logger),
		middleware.RequestLogger(logger),
		middleware.CORS(cfg.AllowedOrigins),
		middleware.SecurityHeaders,
	)
}

func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           NewRouter(cfg),
			ReadHeaderTimeout: readHeaderTimeout,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
		},
		logger: logger,
	}
}

// Start serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errc := make(chan error, 1)

	go func() {
		s.logger.Info("http server starting", zap.String("addr", s.srv.Addr))

		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("http server error: %w", err)
		}

		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down http server")

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	return <-errc
}
