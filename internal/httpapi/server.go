package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jarvis-chat/bugstream/internal/stream"
)

// Server represents the HTTP API server: REST ingestion endpoints plus the
// WebSocket streaming entrypoint.
type Server struct {
	service    *stream.Service
	jwtAuth    *JWTAuth
	handlers   *Handlers
	middleware *Middleware
	ws         *WSHandler
	server     *http.Server
	log        *zap.Logger
}

// Config holds server configuration
type Config struct {
	Addr            string
	SecretKey       string
	AllowedOrigins  []string
	MaxMessageBytes int64

	// Registry receives the /metrics handler's metrics. Nil uses the
	// default registerer.
	Registry *prometheus.Registry
}

// NewServer creates a new HTTP API server
func NewServer(service *stream.Service, config Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Addr == "" {
		config.Addr = ":8080"
	}
	// Default secret key keeps local development working; production
	// deployments must set their own.
	secretKey := config.SecretKey
	if secretKey == "" {
		secretKey = "bugstream-dev-secret-key-change-in-production"
	}
	if len(config.AllowedOrigins) == 0 {
		config.AllowedOrigins = []string{"*"}
	}

	jwtAuth := NewJWTAuth(secretKey)
	handlers := NewHandlers(service, jwtAuth, logger)
	middleware := NewMiddleware(jwtAuth, logger)
	ws := NewWSHandler(service, logger, config.MaxMessageBytes)

	s := &Server{
		service:    service,
		jwtAuth:    jwtAuth,
		handlers:   handlers,
		middleware: middleware,
		ws:         ws,
		log:        logger.Named("httpapi"),
	}

	s.server = &http.Server{
		Addr:           config.Addr,
		Handler:        s.setupRoutes(config),
		ReadTimeout:    30 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	return s
}

// Auth returns the server's token validator, for wiring into the streaming
// service.
func (s *Server) Auth() *JWTAuth {
	return s.jwtAuth
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info("http server starting", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(config Config) http.Handler {
	r := chi.NewRouter()

	r.Use(s.middleware.Recovery)
	r.Use(s.middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", s.handlers.Login)
		r.Get("/health", s.handlers.Health)
		r.Get("/stats", s.handlers.Stats)

		// Ingestion is for internal producers only.
		r.Post("/events/bugs", s.middleware.AuthRequired(s.handlers.PublishBugEvent))
		r.Post("/events/analytics", s.middleware.AuthRequired(s.handlers.PublishAnalyticsEvent))
	})

	// WebSocket streaming entrypoint. Auth happens in-band via the
	// authenticate action or the token query parameter.
	r.Get("/ws", s.ws.ServeHTTP)

	if config.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(config.Registry, promhttp.HandlerOpts{}))
	} else {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}
