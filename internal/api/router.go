package api

import (
	"fmt"
	"strings"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/brewline/console/docs"
	"github.com/brewline/console/internal/api/handler"
	"github.com/brewline/console/internal/api/middleware"
	"github.com/brewline/console/internal/core/credential"
	"github.com/brewline/console/internal/core/domain"
	"github.com/brewline/console/internal/core/ports"
	"github.com/brewline/console/internal/infrastructure/cookie"
	"github.com/brewline/console/internal/infrastructure/http/handlers"
)

// Options wires the console router to its collaborators.
type Options struct {
	API     ports.IdentityAPI
	Decoder *credential.Decoder
	Audit   ports.AuditSink
	Cookie  cookie.Options
	// Checks are probed by /health/ready.
	Checks []handlers.Check
	// Registerer receives the HTTP request metrics. Defaults to the global registry.
	Registerer prometheus.Registerer
	Log        zerolog.Logger
}

// NewRouter builds the console Echo instance with all routes registered.
func NewRouter(opts Options) (*echo.Echo, error) {
	renderer, err := handler.NewRenderer()
	if err != nil {
		return nil, err
	}

	if opts.Cookie.Name == "" {
		opts.Cookie.Name = cookie.DefaultName
	}
	if opts.Registerer == nil {
		opts.Registerer = prometheus.DefaultRegisterer
	}
	reqMetrics, err := echoprometheus.MiddlewareConfig{
		Subsystem:  "console",
		Registerer: opts.Registerer,
	}.ToMiddleware()
	if err != nil {
		return nil, fmt.Errorf("request metrics: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Renderer = renderer
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(opts.Log)

	// --- Perimeter: runs before routing so no protected handler executes ---
	e.Pre(middleware.RouteGuard(opts.Cookie.Name))

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(opts.Log))
	e.Use(reqMetrics)

	// --- Operational routes (no session) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(opts.Checks...)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Pages: one Session Store per request ---
	web := e.Group("", middleware.Session(middleware.SessionConfig{
		API:     opts.API,
		Decoder: opts.Decoder,
		Audit:   opts.Audit,
		Cookie:  opts.Cookie,
		Log:     opts.Log,
	}))

	sessionHandler := handler.NewSessionHandler()
	web.GET(domain.PublicEntryPath, sessionHandler.Landing)
	web.GET(domain.LoginPath, sessionHandler.LoginPage)
	web.POST(domain.LoginPath, sessionHandler.Login)
	web.GET(domain.RegisterPath, sessionHandler.RegisterPage)
	web.POST(domain.RegisterPath, sessionHandler.Register)
	web.POST("/logout", sessionHandler.Logout)

	// --- Dashboard: any signed-in role, sections narrowed further ---
	dashboardHandler := handler.NewDashboardHandler()
	dash := web.Group(domain.DashboardPath, middleware.RoleGate("dashboard", domain.AllRoles...))
	dash.GET("", dashboardHandler.Dashboard)
	dash.GET("/session", dashboardHandler.Session)

	admin := dash.Group("/admin", middleware.RoleGate("admin", domain.RoleSuperAdmin))
	for _, s := range handler.Sections {
		rel := strings.TrimPrefix(s.Path, domain.DashboardPath)
		if after, ok := strings.CutPrefix(rel, "/admin"); ok {
			admin.GET(after, dashboardHandler.Section(s))
			continue
		}
		dash.GET(rel, dashboardHandler.Section(s), middleware.RoleGate(s.Key, s.Roles...))
	}

	return e, nil
}
