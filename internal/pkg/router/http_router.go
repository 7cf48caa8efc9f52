package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/PhilDL/shuken/app/controllers"
	"github.com/PhilDL/shuken/internal/pkg/env"
	"github.com/PhilDL/shuken/internal/pkg/middleware"
	"github.com/PhilDL/shuken/internal/pkg/session"
)

type HttpRouter struct {
	deps controllers.Dependencies
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session unless a store was installed already (tests)
	if session.GetSessionStore() == nil {
		session.NewSessionStore()
	}

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	controllers.InitializeControllers(h.deps)

	h.registerPublicRoutes(app)
	h.registerCSRFProtectedRoutes(app)
}

func NewHttpRouter(deps controllers.Dependencies) *HttpRouter {
	return &HttpRouter{deps: deps}
}

// authLimiter throttles sign-in attempts per client address.
func authLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:          env.GetInt("AUTH_RATE_LIMIT", 10),
		Expiration:   time.Minute,
		KeyGenerator: controllers.GetClientIP,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() != fiber.MethodPost
		},
	})
}
