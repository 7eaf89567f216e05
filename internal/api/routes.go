package api

import (
	"time"

	"github.com/bilgisen/newstrust/internal/config"
	"github.com/bilgisen/newstrust/internal/middleware"
	"github.com/bilgisen/newstrust/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// NewApp creates the fiber application with the global middleware and
// every route mounted.
func NewApp(cfg *config.Config, h *Handlers) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: middleware.NewErrorHandler(cfg.IsDevelopment()),
	})

	app.Use(middleware.RequestLogger())
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, " + middleware.RequestIDHeader,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	SetupRoutes(app, h, cfg.JWTSecret)
	return app
}

// SetupRoutes configures all the routes for the application
func SetupRoutes(app *fiber.App, h *Handlers, secret string) {
	api := app.Group("/api", middleware.JWTAuth(middleware.AuthConfig{Secret: secret}))
	auth := middleware.RequireAuth()
	editors := middleware.RequireRole(models.RoleAdmin, models.RoleFactChecker)
	admins := middleware.RequireRole(models.RoleAdmin)

	api.Get("/health", h.HealthCheck)

	news := api.Group("/news")
	{
		news.Get("", h.ListNews)
		news.Post("", editors, h.CreateNews)
		news.Get("/:id", h.GetNews)
		news.Put("/:id", editors, h.UpdateNews)
		news.Delete("/:id", admins, h.DeleteNews)
		news.Post("/:id/vote", auth, h.Vote)
		news.Put("/:id/credibility", editors, h.UpdateCredibility)
		news.Get("/:newsId/comments", h.ListComments)
		news.Post("/:newsId/comments", auth, h.CreateComment)
	}

	comments := api.Group("/comments", auth)
	{
		comments.Put("/:id", h.UpdateComment)
		comments.Delete("/:id", h.DeleteComment)
		comments.Post("/:id/react", h.React)
		comments.Post("/:id/report", h.Report)
	}

	sources := api.Group("/sources")
	{
		sources.Get("", h.ListSources)
		sources.Get("/top", h.TopSources)
		sources.Post("", editors, h.CreateSource)
		sources.Get("/:id", h.GetSource)
		sources.Put("/:id", editors, h.UpdateSource)
		sources.Delete("/:id", admins, h.DeleteSource)
		sources.Put("/:id/verify", admins, h.VerifySource)
	}

	admin := api.Group("/admin", admins)
	{
		admin.Post("/import", h.ImportFeeds)
		admin.Post("/reconcile", h.Reconcile)
	}

	// 404 Handler
	app.Use(middleware.NotFound)
}
