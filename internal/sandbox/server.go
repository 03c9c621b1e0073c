package sandbox

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/Multiverse88/Dentalpro/internal/platform/auth"
	"github.com/Multiverse88/Dentalpro/internal/platform/db"
	"github.com/Multiverse88/Dentalpro/internal/platform/middleware"
	"github.com/Multiverse88/Dentalpro/internal/platform/websocket"
)

// MaxBodySize caps request bodies; a full chart with treatments is a few KB.
const MaxBodySize = "1M"

type ServerConfig struct {
	Store       Store
	Tokens      *auth.Issuer
	Logger      zerolog.Logger
	CORSOrigins []string
}

// NewServer wires the sandbox API onto a fresh echo instance. Everything
// under /api except login and register needs a bearer token, including the
// /api/ws change feed.
func NewServer(cfg ServerConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	metrics := middleware.NewMetrics("dentalpro_sandbox")

	e.Use(middleware.Recovery(cfg.Logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(cfg.Logger, "/health", "/metrics"))
	e.Use(metrics.Middleware())
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(MaxBodySize))
	if len(cfg.CORSOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins: cfg.CORSOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		}))
	}
	e.Use(auth.JWTMiddleware(cfg.Tokens, auth.AuthSkipper))

	e.GET("/health", db.HealthHandler(cfg.Store.Kind(), cfg.Store))
	e.GET("/metrics", metrics.Handler())

	hub := websocket.NewHub(cfg.Logger)
	metrics.Registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "dentalpro_sandbox",
		Name:      "feed_clients",
		Help:      "Connected change feed clients.",
	}, func() float64 { return float64(hub.ClientCount()) }))
	svc := NewService(cfg.Store, cfg.Tokens, cfg.Logger, WithPublisher(hub))
	api := e.Group("/api")
	NewHandler(svc).RegisterRoutes(api)
	api.GET("/ws", websocket.NewHandler(hub, cfg.CORSOrigins, cfg.Logger).Connect)
	return e
}

// Serve runs e on addr until ctx is cancelled, then drains for up to ten
// seconds.
func Serve(ctx context.Context, e *echo.Echo, addr string, logger zerolog.Logger) error {
	e.Server.ReadHeaderTimeout = 10 * time.Second
	e.Server.IdleTimeout = 2 * time.Minute

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("starting sandbox server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down sandbox server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info().Msg("sandbox server stopped")
	return nil
}
