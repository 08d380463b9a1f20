// Package server provides the HTTP server and routing for the dashboard API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/config"
	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/database"
	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/domain"
	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/events"
	tradinghandlers "github.com/Mohitkundu360/jp-morgan-dashboard/internal/modules/trading/handlers"
)

// ownerHeader carries the authenticated user identity. The reverse proxy
// in front of the API sets it after session validation.
const ownerHeader = "X-User-ID"

// Config holds server configuration
type Config struct {
	Log             zerolog.Logger
	PortfolioDB     *database.DB
	Config          *config.Config
	Port            int
	DevMode         bool
	EventManager    *events.Manager
	TradingHandlers *tradinghandlers.TradingHandlers
}

// Server represents the HTTP server
type Server struct {
	router          *chi.Mux
	server          *http.Server
	log             zerolog.Logger
	portfolioDB     *database.DB
	cfg             *config.Config
	eventManager    *events.Manager
	tradingHandlers *tradinghandlers.TradingHandlers
	systemHandlers  *SystemHandlers
	streamHandler   *StreamHandler
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:          chi.NewRouter(),
		log:             cfg.Log.With().Str("component", "server").Logger(),
		portfolioDB:     cfg.PortfolioDB,
		cfg:             cfg.Config,
		eventManager:    cfg.EventManager,
		tradingHandlers: cfg.TradingHandlers,
		systemHandlers:  NewSystemHandlers(cfg.Log, cfg.PortfolioDB),
		streamHandler:   NewStreamHandler(cfg.EventManager, cfg.Log),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", ownerHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	// Health check (no identity required)
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(s.identityMiddleware)

		// Trade execution and portfolio read surface
		s.tradingHandlers.RegisterRoutes(r)

		// Live trade event stream
		r.Get("/stream/trades", s.streamHandler.ServeHTTP)

		// System monitoring
		r.Get("/system/status", s.systemHandlers.HandleSystemStatus)
	})
}

// identityMiddleware resolves the caller identity from the owner header
// and stores it on the request context. Handlers never read the header
// themselves.
func (s *Server) identityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := r.Header.Get(ownerHeader)
		if owner == "" {
			s.writeError(w, http.StatusUnauthorized, "unauthenticated", "missing "+ownerHeader+" header")
			return
		}

		next.ServeHTTP(w, r.WithContext(domain.WithOwner(r.Context(), owner)))
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	s.streamHandler.Close()
	return s.server.Shutdown(ctx)
}

// Router exposes the chi router, used by tests
func (s *Server) Router() http.Handler {
	return s.router
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
