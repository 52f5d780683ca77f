package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ksmp-platform/contact-api/internal/config"
	"github.com/ksmp-platform/contact-api/internal/handler"
	"github.com/ksmp-platform/contact-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	SettingsHandler     *handler.SettingsHandler
	RequestHandler      *handler.RequestHandler
	ConversationHandler *handler.ConversationHandler
	MessageHandler      *handler.MessageHandler
	NotificationHandler *handler.NotificationHandler
	JWTMiddleware       fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	api.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.SettingsHandler != nil {
		settings := api.Group("/contact/settings", jwtMiddleware)
		deps.SettingsHandler.Register(settings)
	}

	if deps.RequestHandler != nil {
		requests := api.Group("/contact/requests", jwtMiddleware)
		deps.RequestHandler.Register(requests)
	}

	if deps.ConversationHandler != nil {
		conversations := api.Group("/conversations", jwtMiddleware)
		deps.ConversationHandler.Register(conversations)
	}

	if deps.MessageHandler != nil {
		messages := api.Group("/messages", jwtMiddleware)
		deps.MessageHandler.Register(messages)
	}

	if deps.NotificationHandler != nil {
		notifications := api.Group("/notifications", jwtMiddleware)
		deps.NotificationHandler.Register(notifications)
	}
}
