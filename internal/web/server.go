// Package web serves the address predictor over HTTP.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/address-predictor/internal/config"
	"github.com/address-predictor/internal/metrics"
	"github.com/address-predictor/internal/predictor"
	"github.com/address-predictor/internal/web/handlers"
	"github.com/address-predictor/internal/web/middleware"
)

// Server represents the web server
type Server struct {
	config     config.ServerConfig
	predictor  *predictor.Predictor
	metrics    *metrics.Metrics
	log        *zap.Logger
	httpServer *http.Server
	router     *mux.Router
}

// NewServer creates a new web server instance. m may be nil, in which case
// /metrics is not served.
func NewServer(cfg config.ServerConfig, p *predictor.Predictor, m *metrics.Metrics, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	server := &Server{
		config:    cfg,
		predictor: p,
		metrics:   m,
		log:       log.Named("web"),
	}

	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      server.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()

	predictHandler := &handlers.PredictHandler{Predictor: s.predictor, Log: s.log}

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/predict", predictHandler.Predict).Methods("POST", "OPTIONS")
	api.HandleFunc("/predict/batch", predictHandler.PredictBatch).Methods("POST", "OPTIONS")
	api.HandleFunc("/health", predictHandler.Health).Methods("GET")

	if s.metrics != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})).Methods("GET")
	}

	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.CORS())
	s.router.Use(middleware.RequestLogging(s.log))
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting server", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.log.Info("server stopped")
	return nil
}
