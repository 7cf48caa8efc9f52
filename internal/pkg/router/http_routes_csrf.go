package router

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/csrf"

	"github.com/PhilDL/shuken/app/controllers"
	"github.com/PhilDL/shuken/internal/pkg/env"
	"github.com/PhilDL/shuken/internal/pkg/middleware"
)

func (h HttpRouter) registerCSRFProtectedRoutes(app *fiber.App) {
	csrfConf := csrf.Config{
		KeyLookup:      "form:_csrf",
		ContextKey:     "csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		Expiration:     1 * time.Hour,
		CookieSecure:   !env.IsDev(),
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/") || strings.HasPrefix(c.Path(), "/webhooks/")
		},
	}

	group := app.Group("", cors.New(), csrf.New(csrfConf))

	// Public site
	group.Get("/", controllers.HandleHome)
	group.Get("/plans", controllers.HandlePlans)
	group.Get("/articles", controllers.HandleArticles)
	group.Get("/articles/:slug", controllers.HandleArticleShow)

	// Member sign-in
	group.Get("/join", controllers.HandleJoin)
	group.Post("/join", authLimiter(), controllers.HandleJoinPost)
	group.Get("/verify", controllers.HandleVerify)
	group.Post("/verify", authLimiter(), controllers.HandleVerifyPost)
	group.Post("/logout", middleware.RequireCustomer, controllers.HandleLogout)
	group.Get("/account", middleware.RequireCustomer, controllers.HandleAccount)
	group.Post("/checkout", middleware.RequireCustomer, controllers.HandleCheckout)
	group.Post("/account/portal", middleware.RequireCustomer, controllers.HandlePortal)

	// Staff sign-in, registered before the guarded admin group
	group.Get("/admin/login", controllers.HandleAdminLogin)
	group.Post("/admin/login", authLimiter(), controllers.HandleAdminLoginPost)

	h.registerAdminRoutes(group)
}
