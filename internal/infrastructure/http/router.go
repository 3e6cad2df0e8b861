package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/brewline/console/docs"
	"github.com/brewline/console/internal/api"
	"github.com/brewline/console/internal/api/handler"
	apimiddleware "github.com/brewline/console/internal/api/middleware"
	"github.com/brewline/console/internal/core/ports"
	"github.com/brewline/console/internal/infrastructure/http/handlers"
)

// NewRouter builds the local identity backend: the credential exchange the
// console talks to, plus health probes and API docs.
func NewRouter(identity ports.IdentityService, jwtSecret string, log zerolog.Logger, checks ...handlers.Check) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = api.NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(apimiddleware.RequestLogger(log))

	// --- Health probes (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(checks...)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Identity API ---
	identityHandler := handler.NewIdentityHandler(identity)
	v1 := e.Group("/api/v1")
	v1.POST("/login", identityHandler.Login)
	v1.POST("/register", identityHandler.Register)
	v1.GET("/me", identityHandler.Me, apimiddleware.Auth(jwtSecret))

	return e
}
