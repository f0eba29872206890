// Package api provides the HTTP API server and page routes for Layar.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/layarapp/layar-server/internal/ratelimit"
	"github.com/layarapp/layar-server/internal/replicas"
	"github.com/layarapp/layar-server/internal/sse"
	"github.com/layarapp/layar-server/internal/store"
)

// Options holds the HTTP-facing settings of the server.
type Options struct {
	CORSAllowedOrigins []string
	AuthRateLimit      int  // sign-in attempts per minute per IP
	SecureCookies      bool // set Secure on the client cookie
	// APIKey, when set, must accompany programmatic client creation.
	// Page loads create their clients without it.
	APIKey string
	// SettleTimeout bounds how long a request waits for a session change
	// (sign-in, sign-out, page load) to reach the replica state.
	SettleTimeout time.Duration
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store           *store.Store
	services        *Services
	registry        *replicas.Registry
	sseManager      *sse.Manager
	sseHandler      *sse.Handler
	router          *chi.Mux
	api             huma.API
	logger          *slog.Logger
	authRateLimiter *ratelimit.KeyedRateLimiter
	opts            Options
}

// NewServer creates the HTTP server with all routes configured.
func NewServer(db *store.Store, services *Services, registry *replicas.Registry, sseManager *sse.Manager, opts Options, logger *slog.Logger) *Server {
	if opts.SettleTimeout <= 0 {
		opts.SettleTimeout = 5 * time.Second
	}
	if opts.AuthRateLimit <= 0 {
		opts.AuthRateLimit = 10
	}

	router := chi.NewRouter()

	s := &Server{
		store:           db,
		services:        services,
		registry:        registry,
		sseManager:      sseManager,
		sseHandler:      sse.NewHandler(sseManager, logger.With("component", "sse")),
		router:          router,
		logger:          logger,
		authRateLimiter: ratelimit.PerMinute(opts.AuthRateLimit),
		opts:            opts,
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("Layar API", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"client": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	s.api = humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerClientRoutes()
	s.registerAuthRoutes()
	s.registerViewRoutes()
	s.registerSearchRoutes()
	s.registerAdminRoutes()
	s.registerStreamRoute()
	s.registerPageRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases background resources owned by the server.
func (s *Server) Close() {
	s.authRateLimiter.Stop()
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Api-Key"},
		ExposedHeaders:   []string{"Location"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	s.router.Use(s.clientMiddleware)
}

// requestLogger logs each request through slog.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())))
	})
}
