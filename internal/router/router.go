package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-school-api/internal/config"
	"github.com/noah-isme/gema-school-api/internal/handler"
	"github.com/noah-isme/gema-school-api/internal/middleware"
	"github.com/noah-isme/gema-school-api/internal/models"
	"github.com/noah-isme/gema-school-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	GradingSystemHandler *handler.GradingSystemHandler
	AssessmentHandler    *handler.AssessmentHandler
	ResultHandler        *handler.ResultHandler
	AnalyticsHandler     *handler.AnalyticsHandler
	BroadsheetHandler    *handler.BroadsheetHandler
	ActivityHandler      *handler.ActivityHandler
	SeedHandler          *handler.SeedHandler
	HealthChecks         []handler.DependencyCheck
	JWTMiddleware        fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthChecks...))

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	staff := middleware.RequireRole(models.StaffRoles...)
	admins := middleware.RequireRole(models.AdminRoles...)
	writeLimit := middleware.RateLimit("scores", cfg.RateLimitMax, cfg.RateLimitWindow)

	// Administration
	if deps.GradingSystemHandler != nil {
		deps.GradingSystemHandler.Register(api.Group("/admin/grading-systems", jwtMiddleware))
	}
	if deps.AnalyticsHandler != nil {
		deps.AnalyticsHandler.Register(api.Group("/admin/analytics", jwtMiddleware, admins))
	}
	if deps.ActivityHandler != nil {
		deps.ActivityHandler.Register(api.Group("/admin/activity", jwtMiddleware, admins))
	}

	if deps.SeedHandler != nil {
		deps.SeedHandler.Register(api.Group("/admin/seed"))
	}

	// Score entry
	if deps.AssessmentHandler != nil {
		deps.AssessmentHandler.Register(api.Group("/assessments", jwtMiddleware, staff, writeLimit))
	}
	if deps.BroadsheetHandler != nil {
		deps.BroadsheetHandler.Register(api.Group("/broadsheets", jwtMiddleware, staff, writeLimit))
	}

	// Results, role checks per route
	if deps.ResultHandler != nil {
		deps.ResultHandler.Register(api.Group("/results", jwtMiddleware))
	}
}
