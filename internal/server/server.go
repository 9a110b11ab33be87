// Package server assembles the weather tool server: the MCP endpoint, session
// administration, health and metrics, behind one chi router.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"weather-agent/internal/config"
	"weather-agent/internal/mcp"
	"weather-agent/internal/session"
	"weather-agent/internal/telemetry"
	"weather-agent/internal/tools"
	"weather-agent/internal/tools/weather"
)

const systemMetricsInterval = 15 * time.Second

// Server owns the router and the background workers of the tool server.
type Server struct {
	cfg      *config.Config
	router   chi.Router
	store    session.SessionStore
	sessions session.SessionManager
	metrics  *telemetry.Metrics
	logger   zerolog.Logger
}

// New builds the server. The session store is Redis when cfg.Session.RedisURL
// is set and in-memory otherwise.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	logger = logger.With().Str("component", "server").Logger()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := telemetry.NewMetrics(reg)

	var store session.SessionStore
	if cfg.Session.RedisURL != "" {
		rs, err := session.DialRedisStore(ctx, cfg.Session.RedisURL, cfg.Session.RedisPrefix, logger)
		if err != nil {
			return nil, err
		}
		store = rs
	} else {
		store = session.NewMemoryStore(logger)
	}
	logger.Info().Str("store", store.Kind()).Msg("Session store ready")

	sessions := telemetry.NewSessionManagerWrapper(
		session.NewManager(store, cfg.Session.Timeout, logger),
		metrics,
	)

	client := weather.NewClient(cfg.Weather.BaseURL, cfg.Weather.APIKey, logger,
		weather.WithTimeout(cfg.Weather.Timeout),
		weather.WithObserver(metrics.RecordWeatherRequest),
	)
	if cfg.Weather.APIKey == "" {
		logger.Warn().Msg("WEATHER_API_KEY is not set; get_weather will report a configuration error")
	}

	registry := tools.NewRegistry()
	registry.Register(weather.NewTool(client, logger))
	for _, def := range registry.Definitions() {
		logger.Info().Str("tool", def.Name).Msg("Registered tool")
	}

	opts := []mcp.Option{mcp.WithRecorder(metrics)}
	if !cfg.Session.Required {
		opts = append(opts, mcp.WithoutSessionRequirement())
	}
	mcpHandler := mcp.NewHandler(
		telemetry.NewToolRegistryWrapper(registry, metrics),
		sessions,
		mcp.ServerInfo{
			Name:         cfg.Server.Name,
			Version:      cfg.Server.Version,
			Instructions: cfg.Server.Instructions,
		},
		logger,
		opts...,
	)

	sessionHandler := session.NewHandler(sessions, logger)
	sessionMiddleware := session.NewMiddleware(sessions, cfg.Session.Required, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(telemetry.HTTPMetricsMiddleware(metrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", session.HeaderName, "Mcp-Protocol-Version"},
		ExposedHeaders:   []string{"Link", "Content-Type", session.HeaderName},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		count, err := sessions.GetActiveSessionCount(r.Context())
		if err != nil {
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, render.M{"status": "unavailable", "error": err.Error()})
			return
		}
		render.JSON(w, r, render.M{"status": "ok", "sessions": count, "store": store.Kind()})
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Post("/mcp", mcpHandler.HandlePost)
	r.Delete("/mcp", mcpHandler.HandleDelete)
	r.Get("/mcp", mcpHandler.HandleGet)

	r.Post("/sessions", sessionHandler.Create)
	r.Group(func(r chi.Router) {
		r.Use(sessionMiddleware.Handler)
		r.Get("/sessions", sessionHandler.Get)
		r.Delete("/sessions", sessionHandler.Delete)
		r.Put("/sessions/refresh", sessionHandler.Refresh)
		r.Get("/sessions/stats", sessionHandler.Stats)
	})

	return &Server{
		cfg:      cfg,
		router:   r,
		store:    store,
		sessions: sessions,
		metrics:  metrics,
		logger:   logger,
	}, nil
}

// Handler returns the HTTP handler serving all routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

// RunBackground runs session cleanup and system metrics collection until ctx
// is cancelled.
func (s *Server) RunBackground(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return session.NewCleaner(s.sessions, s.cfg.Session.CleanupInterval, s.logger).Run(ctx)
	})
	g.Go(func() error {
		return telemetry.NewSystemMetricsCollector(s.metrics, s.sessions, s.logger, systemMetricsInterval).Run(ctx)
	})
	return g.Wait()
}

// Close releases the session store.
func (s *Server) Close() error {
	return s.store.Close()
}
