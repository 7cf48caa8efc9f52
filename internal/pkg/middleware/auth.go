package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/PhilDL/shuken/internal/pkg/usercontext"
)

// RequireStaff ensures a logged-in back-office user; redirects to the admin login otherwise.
func RequireStaff(c *fiber.Ctx) error {
	if !usercontext.GetUserContext(c).IsStaff() {
		return c.Redirect("/admin/login", fiber.StatusSeeOther)
	}
	return c.Next()
}

// RequireAdmin ensures a logged-in admin; editors are sent back to the dashboard.
func RequireAdmin(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsStaff() {
		return c.Redirect("/admin/login", fiber.StatusSeeOther)
	}
	if !userCtx.IsAdmin() {
		return c.Redirect("/admin", fiber.StatusSeeOther)
	}
	return c.Next()
}

// RequireCustomer ensures a signed-in member; redirects to /join otherwise.
func RequireCustomer(c *fiber.Ctx) error {
	if !usercontext.GetUserContext(c).IsCustomer() {
		return c.Redirect("/join", fiber.StatusSeeOther)
	}
	return c.Next()
}

// RequireCustomerAPI is RequireCustomer for JSON routes, answering 401 instead of redirecting.
func RequireCustomerAPI(c *fiber.Ctx) error {
	if !usercontext.GetUserContext(c).IsCustomer() {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "login required",
		})
	}
	return c.Next()
}
