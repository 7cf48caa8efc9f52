package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/PhilDL/shuken/app/controllers"
)

// Router registers a set of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// Options are the inputs the routers need beyond the controllers.
type Options struct {
	Deps            controllers.Dependencies
	OpenAPISpecPath string
}

func InstallRouter(app *fiber.App, opts Options) error {
	// Install HttpRouter first so the session store and the UserContext
	// middleware exist before the API routes that depend on them.
	api, err := NewApiRouter(opts)
	if err != nil {
		return err
	}
	setup(app, NewHttpRouter(opts.Deps), api)
	return nil
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
