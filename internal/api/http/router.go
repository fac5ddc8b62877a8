package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/crm-service/internal/api/http/handlers"
	"github.com/spec-kit/crm-service/internal/auth"
	"github.com/spec-kit/crm-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	Customers      *handlers.CustomersHandler
	Interactions   *handlers.InteractionsHandler
	Reviews        *handlers.ReviewsHandler
	Metrics        *handlers.MetricsHandler
	AuthMiddleware *auth.AuthMiddleware
	Authorizer     *auth.Authorizer
}

// NewServer builds the fiber app with global middlewares and every route registered.
func NewServer(appName string, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration, routes RouteConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               appName,
		ErrorHandler:          ErrorHandler(logger),
		DisableStartupMessage: true,
	})
	RegisterMiddlewares(app, logger, metrics, timeout)
	RegisterRoutes(app, routes)
	return app
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	requireAuth := cfg.AuthMiddleware.Handle
	allow := func(resource, action string) fiber.Handler {
		return auth.RequirePermission(cfg.Authorizer, resource, action)
	}

	app.Get("/metrics", requireAuth, allow(auth.ResourceMetrics, auth.ActionRead), cfg.Metrics.Get)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.AuthMiddleware.Optional, cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/refresh", cfg.Auth.Refresh)
	authGroup.Post("/logout", cfg.Auth.Logout)

	users := authGroup.Group("/users", requireAuth)
	users.Get("", allow(auth.ResourceUsers, auth.ActionList), cfg.Users.List)
	users.Get("/:id", cfg.Users.Get)
	users.Put("/:id", cfg.Users.Update)
	users.Delete("/:id", cfg.Users.Delete)

	customers := app.Group("/customers", requireAuth)
	customers.Get("", cfg.Customers.List)
	customers.Get("/search", cfg.Customers.List)
	customers.Get("/export", allow(auth.ResourceCustomers, auth.ActionExport), cfg.Customers.Export)
	customers.Post("", allow(auth.ResourceCustomers, auth.ActionCreate), cfg.Customers.Create)
	customers.Get("/:id", cfg.Customers.Get)
	customers.Put("/:id", cfg.Customers.Update)
	customers.Delete("/:id", cfg.Customers.Delete)

	customers.Get("/:id/interactions", cfg.Interactions.List)
	customers.Post("/:id/interactions", cfg.Interactions.Create)

	customers.Get("/:id/rating", cfg.Reviews.GetRating)
	customers.Put("/:id/rating", cfg.Reviews.SetRating)

	customers.Get("/:id/reviews", cfg.Reviews.List)
	customers.Post("/:id/reviews", cfg.Reviews.Create)
	customers.Put("/:id/reviews/:review_id", cfg.Reviews.Update)
	customers.Delete("/:id/reviews/:review_id", cfg.Reviews.Delete)
}
