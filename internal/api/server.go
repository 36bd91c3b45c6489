package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wellsgz/mcpulse/internal/collector"
	"github.com/wellsgz/mcpulse/internal/config"
	"github.com/wellsgz/mcpulse/internal/logging"
	"github.com/wellsgz/mcpulse/internal/notify"
)

// Server represents the API server
type Server struct {
	config     *config.Config
	router     *gin.Engine
	httpServer *http.Server
	handler    *Handler
	hub        *Hub
}

// NewServer creates a new API server with the given configuration
func NewServer(cfg *config.Config) *Server {
	// Set Gin mode based on environment
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Apply middleware
	router.Use(ErrorHandler())
	router.Use(RequestLogger())
	router.Use(CORS())

	// Create handler
	handler := NewHandler(cfg)

	// Create WebSocket hub
	hub := NewHub()

	// Setup routes (including WebSocket)
	SetupRoutes(router, handler, hub)

	return &Server{
		config:  cfg,
		router:  router,
		handler: handler,
		hub:     hub,
	}
}

// Attach wires the collector and notifier into the handlers and the
// websocket hub. Call it before Run.
func (s *Server) Attach(c *collector.Collector, n *notify.Notifier) {
	s.handler.SetCollector(c)
	s.hub.SetCollector(c)
	if n != nil {
		s.handler.SetNotifier(n)
		n.AddSink(s.hub)
	}
}

// Run serves the API on address until ctx is cancelled, then shuts the
// server down within shutdownTimeout
func (s *Server) Run(ctx context.Context, address string, shutdownTimeout time.Duration) error {
	s.httpServer = &http.Server{
		Addr:         address,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start WebSocket hub
	go s.hub.Run()

	errCh := make(chan error, 1)
	go func() {
		logging.Info("API", "Starting server on "+address, nil)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server error: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		s.hub.Stop()
		return err
	case <-ctx.Done():
		return s.Shutdown(shutdownTimeout)
	}
}

// Shutdown gracefully shuts down the server with a timeout
func (s *Server) Shutdown(timeout time.Duration) error {
	// Stop WebSocket hub first (closes all client connections)
	if s.hub != nil {
		s.hub.Stop()
	}

	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logging.Info("API", "Shutting down server", nil)
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logging.Info("API", "Server stopped", nil)
	return nil
}
