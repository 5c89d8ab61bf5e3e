package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/99minutos/inventory-web/internal/api/handler"
	"github.com/99minutos/inventory-web/internal/api/metrics"
	"github.com/99minutos/inventory-web/internal/api/middleware"
	"github.com/99minutos/inventory-web/internal/core/ports"
	"github.com/99minutos/inventory-web/internal/infrastructure/http/handlers"
)

// Deps is everything the router wires into handlers.
type Deps struct {
	States   middleware.AuthStates
	Products ports.ProductService
	Profiles ports.ProfileService
	Renderer echo.Renderer
	Checks   map[string]handlers.Check
	Cookie   middleware.CookieOptions
	Logger   zerolog.Logger

	// Registry receives the HTTP request metrics; nil means the default
	// Prometheus registry.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Logger)
	e.Validator = handler.NewValidator()
	e.Renderer = d.Renderer

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Logger))
	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if d.Registry != nil {
		registerer, gatherer = d.Registry, d.Registry
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  metrics.Namespace,
		Registerer: registerer,
	}))

	// --- Health probes and ops (no session required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(d.Checks)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Everything below runs with the caller's auth state ---
	withState := middleware.Auth(d.States, d.Cookie)
	page := middleware.GuardPage(false)
	managerPage := middleware.GuardPage(true)
	api := middleware.GuardAPI(false)
	managerAPI := middleware.GuardAPI(true)

	authHandler := handler.NewAuthHandler()
	pages := handler.NewPageHandler(d.Products, d.Profiles, d.Logger)
	products := handler.NewProductHandler(d.Products)
	dashboard := handler.NewDashboardHandler(d.Products, d.Profiles)

	// Pages
	e.GET("/login", pages.LoginPage, withState)
	e.POST("/login", pages.LoginSubmit, withState)
	e.POST("/signup", pages.SignupSubmit, withState)
	e.POST("/logout", pages.Logout, withState)

	e.GET("/", pages.Dashboard, withState, managerPage)
	e.GET("/products", pages.Products, withState, page)
	e.POST("/products", pages.ProductCreate, withState, page)
	e.POST("/products/:id", pages.ProductUpdate, withState, page)
	e.POST("/products/:id/delete", pages.ProductDelete, withState, page)

	// JSON API
	e.GET("/api/session", authHandler.Session, withState)
	e.POST("/api/auth/signin", authHandler.SignIn, withState)
	e.POST("/api/auth/signup", authHandler.SignUp, withState)
	e.POST("/api/auth/signout", authHandler.SignOut, withState)

	e.GET("/api/dashboard", dashboard.Stats, withState, managerAPI)
	e.GET("/api/profiles", dashboard.Profiles, withState, managerAPI)

	e.GET("/api/products", products.List, withState, api)
	e.POST("/api/products", products.Create, withState, api)
	e.GET("/api/products/:id", products.Get, withState, api)
	e.PUT("/api/products/:id", products.Update, withState, api)
	e.DELETE("/api/products/:id", products.Delete, withState, api)

	e.RouteNotFound("/*", notFound)

	return e
}

// notFound sends unknown page URLs to the home page; API and non-GET
// requests get a 404.
func notFound(c echo.Context) error {
	if c.Request().Method == http.MethodGet && !strings.HasPrefix(c.Request().URL.Path, "/api/") {
		return c.Redirect(http.StatusFound, "/")
	}
	return echo.ErrNotFound
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
