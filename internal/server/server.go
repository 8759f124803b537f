// Package server exposes the terminal over HTTP and WebSocket for the
// browser frontend.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/hyperterm/internal/server/handler"
	"github.com/alanyoungcy/hyperterm/internal/server/middleware"
	"github.com/alanyoungcy/hyperterm/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
	RateLimit   int    // requests per minute per client, 0 disables
}

// Handlers aggregates all HTTP handlers that the server needs to register.
// A nil Orders handler leaves the order route unregistered (readonly mode).
type Handlers struct {
	Health  *handler.HealthHandler
	Market  *handler.MarketHandler
	Account *handler.AccountHandler
	Orders  *handler.OrderHandler
}

// Server is the headless HTTP + WebSocket API server for the terminal.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth, rate limiting) and attaches
// the WebSocket hub.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required by convention, but kept behind the same
	// chain for simplicity; probes carry the key when one is configured).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Market data.
	mux.HandleFunc("GET /api/universe", handlers.Market.ListUniverse)
	mux.HandleFunc("GET /api/market/book", handlers.Market.GetBook)
	mux.HandleFunc("GET /api/market/trades", handlers.Market.GetTrades)
	mux.HandleFunc("POST /api/market/symbol", handlers.Market.SetSymbol)

	// Account view.
	mux.HandleFunc("GET /api/account", handlers.Account.GetAccount)

	// Order placement; absent entirely in readonly mode.
	if handlers.Orders != nil {
		mux.HandleFunc("POST /api/orders", handlers.Orders.PlaceOrder)
	}

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain, innermost first.
	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.RateLimit(cfg.RateLimit, time.Minute)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
