// Package web provides the HTTP server, JSON API and HTML UI of the data
// sweeper.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/cors"

	"github.com/JonMunkholm/datasweeper/internal/config"
	"github.com/JonMunkholm/datasweeper/internal/core"
	"github.com/JonMunkholm/datasweeper/internal/metrics"
	mw "github.com/JonMunkholm/datasweeper/internal/web/middleware"
)

// errRateLimited is rendered when a client exceeds its request budget.
var errRateLimited = errors.New("rate limit exceeded")

// Server is the HTTP server for the data sweeper.
type Server struct {
	service  *core.Service
	cfg      *config.Config
	metrics  *metrics.Metrics
	validate *validator.Validate
	limiter  *mw.RateLimiter
	router   *chi.Mux
	server   *http.Server
}

// NewServer creates a new Server instance. m may be nil to disable metrics.
func NewServer(service *core.Service, cfg *config.Config, m *metrics.Metrics) *Server {
	s := &Server{
		service:  service,
		cfg:      cfg,
		metrics:  m,
		validate: newValidator(),
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	if s.metrics != nil {
		s.router.Use(s.metrics.Middleware)
	}
	s.router.Use(middleware.Compress(5))
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	}

	// Security hardening
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if len(s.cfg.Security.CORSAllowedOrigins) > 0 {
		s.router.Use(cors.New(cors.Options{
			AllowedOrigins: s.cfg.Security.CORSAllowedOrigins,
			AllowedMethods: []string{
				http.MethodGet,
				http.MethodPost,
				http.MethodPut,
				http.MethodDelete,
				http.MethodOptions,
			},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"Content-Disposition"},
			AllowCredentials: false,
		}).Handler)
	}

	if s.cfg.Rate.Enabled {
		s.limiter = mw.NewRateLimiter(s.cfg.Rate.RequestsPerMinute, s.cfg.Rate.Burst,
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				s.respondError(w, r, errRateLimited)
			}))
		s.router.Use(s.limiter.Middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Operational
	s.router.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	// Pages
	s.router.Get("/", s.handleIndex)
	s.router.Post("/sessions", s.handleCreateSessionForm)
	s.router.Route("/sessions/{sid}", func(r chi.Router) {
		r.Get("/", s.handleSessionPage)
		r.Post("/files", s.handleUploadForm)
		r.Route("/files/{fid}", func(r chi.Router) {
			r.Post("/clean", s.handleCleanForm)
			r.Post("/columns", s.handleColumnsForm)
			r.Post("/merge-key", s.handleMergeKeyForm)
			r.Post("/delete", s.handleDeleteFileForm)
		})
	})

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/formats", s.handleListFormats)

		// Sessions
		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{sid}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)

			// Upload
			r.Post("/files", s.handleUpload)

			// Per-file operations
			r.Route("/files/{fid}", func(r chi.Router) {
				r.Get("/", s.handleGetFile)
				r.Delete("/", s.handleDeleteFile)

				r.Get("/preview", s.handlePreview)
				r.Get("/summary", s.handleSummary)
				r.Get("/correlation", s.handleCorrelation)

				r.Post("/clean", s.handleClean)
				r.Put("/columns", s.handleSelectColumns)
				r.Put("/merge-key", s.handleSetMergeKey)

				r.Get("/charts/{kind}", s.handleChart)
				r.Get("/export", s.handleExport)
			})

			// Merge
			r.Get("/merged", s.handleMergedPreview)
			r.Get("/merged/export", s.handleMergedExport)
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// StartBackground starts the rate limiter's visitor cleanup. It stops when
// ctx is cancelled.
func (s *Server) StartBackground(ctx context.Context) {
	if s.limiter != nil {
		go s.limiter.Cleanup(ctx, time.Minute, 10*time.Minute)
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// contentSecurityPolicy allows the chart pages to load the ECharts assets.
const contentSecurityPolicy = "default-src 'self'; " +
	"script-src 'self' 'unsafe-inline' https://go-echarts.github.io; " +
	"style-src 'self' 'unsafe-inline'; img-src 'self' data:; font-src 'self'"

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Prevent MIME type sniffing
			w.Header().Set("X-Content-Type-Options", "nosniff")

			// Prevent clickjacking
			w.Header().Set("X-Frame-Options", "DENY")

			if enableCSP {
				w.Header().Set("Content-Security-Policy", contentSecurityPolicy)
			}

			// Control referrer information
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			next.ServeHTTP(w, r)
		})
	}
}
