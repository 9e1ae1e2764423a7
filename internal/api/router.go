package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/studyon/coursehub/internal/api/handler"
	"github.com/studyon/coursehub/internal/api/middleware"
	"github.com/studyon/coursehub/internal/core/domain"
	"github.com/studyon/coursehub/internal/core/ports"
	"github.com/studyon/coursehub/internal/pkg/validation"

	_ "github.com/studyon/coursehub/docs"
)

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Auth     ports.AuthService
	Courses  ports.CourseService
	Lessons  ports.LessonService
	Sessions ports.SessionStore
	Limiter  middleware.Limiter
	Health   map[string]handler.Pinger

	Session middleware.SessionConfig
	Log     zerolog.Logger

	// Registry receives the HTTP metrics. The default Prometheus registry is
	// used when nil.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validation.New()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	promCfg := echoprometheus.MiddlewareConfig{Subsystem: "coursehub_http"}
	metricsHandler := echoprometheus.NewHandler()
	if d.Registry != nil {
		promCfg.Registerer = d.Registry
		metricsHandler = echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: d.Registry})
	}

	sessions := middleware.NewSessions(d.Sessions, d.Auth, d.Session, d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(promCfg))
	e.Use(sessions.Middleware())
	e.Use(middleware.CSRF(d.Session.Secure))

	authHandler := handler.NewAuthHandler(d.Auth, sessions)
	courseHandler := handler.NewCourseHandler(d.Courses)
	lessonHandler := handler.NewLessonHandler(d.Lessons)
	healthHandler := handler.NewHealthHandler(d.Health)

	requireUser := middleware.RequireRole(domain.RoleUser)
	requireAdmin := middleware.RequireRole(domain.RoleSuperAdmin)

	// --- Auth routes ---
	limited := middleware.RateLimit(d.Limiter, "auth")
	e.POST("/login", authHandler.Login, limited)
	e.POST("/register", authHandler.Register, limited)
	e.POST("/logout", authHandler.Logout)
	e.GET("/profile", authHandler.Profile, requireUser)
	e.GET("/transactions", authHandler.Transactions, requireUser)

	// --- Courses ---
	e.GET("/courses", courseHandler.List)
	e.GET("/courses/:id", courseHandler.Show)
	e.POST("/courses", courseHandler.Create, requireAdmin)
	e.PUT("/courses/:id", courseHandler.Update, requireAdmin)
	e.DELETE("/courses/:id", courseHandler.Delete, requireAdmin)
	e.POST("/courses/:id/pay", courseHandler.Pay, requireUser)

	// --- Lessons ---
	e.GET("/lessons/:id", lessonHandler.Show, requireUser)
	e.POST("/courses/:id/lessons", lessonHandler.Create, requireAdmin)
	e.PUT("/lessons/:id", lessonHandler.Update, requireAdmin)
	e.DELETE("/lessons/:id", lessonHandler.Delete, requireAdmin)

	// --- Health checks, metrics and docs (no auth required) ---
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)
	e.GET("/metrics", metricsHandler)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Status >= 500 {
				evt = log.Error().Err(v.Error)
			}
			evt.
				Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
