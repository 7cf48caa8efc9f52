package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	apiv1 "github.com/PhilDL/shuken/internal/api/v1"
)

type ApiRouter struct {
	server   *apiv1.APIServer
	validate fiber.Handler
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// API v1 routes
	v1 := api.Group("/v1", h.validate)
	apiv1.RegisterHandlers(v1, h.server)
}

// NewApiRouter loads the OpenAPI document the v1 requests are validated against.
func NewApiRouter(opts Options) (*ApiRouter, error) {
	doc, err := apiv1.LoadSpec(opts.OpenAPISpecPath)
	if err != nil {
		return nil, err
	}
	validate, err := apiv1.RequestValidator(doc)
	if err != nil {
		return nil, err
	}
	return &ApiRouter{
		server:   apiv1.NewAPIServer(opts.Deps.Plans, opts.Deps.Repos.Customer),
		validate: validate,
	}, nil
}
