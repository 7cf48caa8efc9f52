package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/PhilDL/shuken/app/controllers"
)

// registerPublicRoutes installs the routes that must not go through CSRF.
func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	// Billing provider webhooks (no CSRF, signature-verified in controller)
	app.Post("/webhooks/stripe", controllers.HandleStripeWebhook)
}
