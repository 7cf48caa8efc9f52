package controllers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/PhilDL/shuken/app/models"
	"github.com/PhilDL/shuken/internal/pkg/flash"
	"github.com/PhilDL/shuken/internal/pkg/usercontext"
)

// requestTimeout bounds the work a handler starts on behalf of one request,
// provider calls included.
const requestTimeout = 30 * time.Second

const defaultPerPage = 25

// requestContext derives a bounded context from the request.
func requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), requestTimeout)
}

// render adds the data every layout needs and renders the view.
func render(c *fiber.Ctx, view, title string, data fiber.Map, layout string) error {
	bind := fiber.Map{
		"Title":    title,
		"Settings": models.GetAppSettings(),
		"User":     usercontext.GetUserContext(c),
		"Flash":    flash.Get(c),
		"CSRF":     csrfToken(c),
		"Path":     c.Path(),
	}
	for k, v := range data {
		bind[k] = v
	}
	return c.Render(view, bind, layout)
}

func csrfToken(c *fiber.Ctx) string {
	if token, ok := c.Locals("csrf").(string); ok {
		return token
	}
	return ""
}

// formValues returns the url-encoded or multipart form as a plain map.
func formValues(c *fiber.Ctx) map[string][]string {
	values := map[string][]string{}
	if form, err := c.MultipartForm(); err == nil && form != nil {
		for k, v := range form.Value {
			values[k] = v
		}
		return values
	}
	c.Request().PostArgs().VisitAll(func(key, value []byte) {
		k := string(key)
		values[k] = append(values[k], string(value))
	})
	return values
}

// pageParam reads ?page= and returns the page number and SQL offset.
func pageParam(c *fiber.Ctx, perPage int) (int, int) {
	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	return page, (page - 1) * perPage
}

// pagination builds the previous/next links shown under lists.
func pagination(page, perPage int, total int64) fiber.Map {
	return fiber.Map{
		"Page":    page,
		"HasPrev": page > 1,
		"HasNext": int64(page*perPage) < total,
		"Prev":    page - 1,
		"Next":    page + 1,
		"Total":   total,
	}
}

// GetClientIP determines the client address, honouring the usual proxy headers.
func GetClientIP(c *fiber.Ctx) string {
	if ip := strings.TrimSpace(c.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if xff := c.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	if ip := strings.TrimSpace(c.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return strings.TrimPrefix(c.IP(), "::ffff:")
}

// baseURL is the public origin used for links sent to Stripe and by mail.
func baseURL(c *fiber.Ctx, configured string) string {
	if configured != "" {
		return strings.TrimRight(configured, "/")
	}
	return c.BaseURL()
}
