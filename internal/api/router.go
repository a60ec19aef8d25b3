package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/fitnessapp/identity-sync/docs"
	"github.com/fitnessapp/identity-sync/internal/api/handler"
	"github.com/fitnessapp/identity-sync/internal/api/middleware"
	"github.com/fitnessapp/identity-sync/internal/core/ports"
	"github.com/fitnessapp/identity-sync/pkg/logger"
)

// Deps are the collaborators the HTTP layer needs. The composition root
// builds them; the router only wires routes.
type Deps struct {
	Log           zerolog.Logger
	SyncService   ports.SyncService
	UserService   ports.UserService
	Verifier      ports.TokenVerifier
	VerifyTimeout time.Duration
	HealthChecks  map[string]handler.Check
	// Registry receives the HTTP metrics; nil means the default registry.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(logger.Component(deps.Log, "http")))
	var registerer prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if deps.Registry != nil {
		registerer, gatherer = deps.Registry, deps.Registry
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "identity_sync",
		Registerer: registerer,
	}))

	syncHandler := handler.NewSyncHandler(deps.SyncService, deps.Log)
	userHandler := handler.NewUserHandler(deps.UserService, deps.Log)
	healthHandler := handler.NewHealthHandler(deps.HealthChecks)
	auth := middleware.Auth(deps.Verifier, deps.VerifyTimeout)

	// --- Identity sync ---
	e.POST("/api/v1/auth/sync", syncHandler.Sync)

	// --- Users ---
	e.POST("/users/register", userHandler.Register)
	e.GET("/users", userHandler.List, auth)
	e.GET("/users/:id", userHandler.Get, auth)

	// --- Health probes, metrics and docs (no auth required) ---
	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthHandler.Readiness)     // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
