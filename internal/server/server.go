// Package server exposes the chat pipeline and its admin API over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/storehouse-ng/storefront-chat/internal/health"
	"github.com/storehouse-ng/storefront-chat/internal/language"
	"github.com/storehouse-ng/storefront-chat/internal/metrics"
	"github.com/storehouse-ng/storefront-chat/internal/requestid"
)

// Config holds configuration for the HTTP server.
type Config struct {
	ListenAddr  string
	Auth        AuthConfig
	RateLimit   RateLimitConfig
	CORSOrigins string
}

// Deps are the server's collaborators. Events and Metrics may be nil.
type Deps struct {
	Chat     ChatHandler
	Sessions SessionManager
	Events   EventLister
	Checker  *health.Checker
	Metrics  *metrics.Metrics
	Langs    *language.Table
}

// Server is the storefront chat Fiber application.
type Server struct {
	app     *fiber.App
	limiter *ipLimiter
	logger  zerolog.Logger
	config  Config
}

// New creates and configures the server.
func New(cfg Config, deps Deps, logger zerolog.Logger) *Server {
	logger = logger.With().Str("component", "http").Logger()
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler(logger),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		BodyLimit:             64 * 1024,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
	})

	if deps.Langs == nil {
		deps.Langs = language.Default()
	}
	h := &Handlers{
		chat:     deps.Chat,
		sessions: deps.Sessions,
		events:   deps.Events,
		langs:    deps.Langs,
		logger:   logger,
	}

	s := &Server{
		app:    app,
		logger: logger,
		config: cfg,
	}
	if cfg.RateLimit.RPS > 0 {
		s.limiter = newIPLimiter(cfg.RateLimit)
	}

	s.setupMiddleware(cfg, deps.Metrics)
	s.setupRoutes(cfg, h, deps)
	return s
}

func (s *Server) setupMiddleware(cfg Config, m *metrics.Metrics) {
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	// Request ID, honouring a sane incoming header.
	s.app.Use(func(c *fiber.Ctx) error {
		ctx, reqID := requestid.Ensure(c.UserContext(), c.Get(requestid.Header))
		c.SetUserContext(ctx)
		c.Set(requestid.Header, reqID)
		c.Locals("request_id", reqID)
		return c.Next()
	})

	// Access log and request counter.
	s.app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		route := c.Route().Path
		if m != nil {
			m.RecordHTTP(c.Method(), route, strconv.Itoa(status))
		}
		if !isProbe(c.Path()) {
			reqID, _ := c.Locals("request_id").(string)
			s.logger.Info().
				Str("method", c.Method()).
				Str("route", route).
				Int("status", status).
				Str("ip", c.IP()).
				Str("request_id", reqID).
				Dur("elapsed", time.Since(start)).
				Msg("http request")
		}
		return err
	})

	if cfg.CORSOrigins != "" {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins:  cfg.CORSOrigins,
			AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Request-ID",
			AllowMethods:  "GET, POST, DELETE, OPTIONS",
			ExposeHeaders: "X-Request-ID, Retry-After",
		}))
	}

	if s.limiter != nil {
		s.app.Use(s.limiter.handler())
	}
}

func (s *Server) setupRoutes(cfg Config, h *Handlers, deps Deps) {
	s.app.Get("/healthz", adaptor.HTTPHandlerFunc(health.LivenessHandler()))
	if deps.Checker != nil {
		s.app.Get("/readyz", adaptor.HTTPHandlerFunc(deps.Checker.ReadinessHandler()))
	} else {
		s.app.Get("/readyz", adaptor.HTTPHandlerFunc(health.LivenessHandler()))
	}
	if deps.Metrics != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))
	}

	v1 := s.app.Group("/api/v1")
	v1.Post("/chat", h.Chat)

	admin := v1.Group("/admin", NewAuthMiddleware(cfg.Auth, s.logger))
	admin.Get("/sessions/:id", requireRole(RoleReadOnly), h.GetSession)
	admin.Delete("/sessions/:id", requireRole(RoleOperator), h.ResetSession)
	admin.Post("/classify", requireRole(RoleReadOnly), h.Classify)
	admin.Get("/events", requireRole(RoleReadOnly), h.ListEvents)
}

// Start starts the server. Blocks until stopped.
func (s *Server) Start() error {
	addr := s.config.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	if s.limiter != nil {
		go s.limiter.run()
	}
	s.logger.Info().Str("addr", addr).Msg("http server starting")
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("http server shutting down")
	if s.limiter != nil {
		s.limiter.close()
	}
	return s.app.ShutdownWithContext(ctx)
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}
