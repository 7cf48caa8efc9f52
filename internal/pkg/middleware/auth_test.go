package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	fibersession "github.com/gofiber/fiber/v2/middleware/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PhilDL/shuken/internal/pkg/session"
	"github.com/PhilDL/shuken/internal/pkg/usercontext"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	session.SetSessionStore(fibersession.New(fibersession.Config{KeyLookup: "cookie:session_id"}))
	t.Cleanup(func() { session.SetSessionStore(nil) })

	app := fiber.New()
	app.Use(UserContextMiddleware)
	app.Get("/login/staff", func(c *fiber.Ctx) error {
		return session.Login(c, map[string]interface{}{
			usercontext.KeyStaffID:   uint(7),
			usercontext.KeyStaffName: "Ada",
			usercontext.KeyStaffRole: c.Query("role", "editor"),
		})
	})
	app.Get("/login/customer", func(c *fiber.Ctx) error {
		return session.Login(c, map[string]interface{}{
			usercontext.KeyCustomerID:    "cus-1",
			usercontext.KeyCustomerEmail: "member@example.com",
		})
	})
	app.Get("/admin", RequireStaff, func(c *fiber.Ctx) error {
		return c.SendString(usercontext.GetUserContext(c).StaffName)
	})
	app.Get("/admin/settings", RequireAdmin, func(c *fiber.Ctx) error {
		return c.SendString("settings")
	})
	app.Get("/account", RequireCustomer, func(c *fiber.Ctx) error {
		return c.SendString(usercontext.GetCustomerID(c))
	})
	app.Get("/api/me", RequireCustomerAPI, func(c *fiber.Ctx) error {
		return c.SendString("me")
	})
	return app
}

func login(t *testing.T, app *fiber.App, path string) string {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest("GET", path, nil))
	require.NoError(t, err)
	for _, c := range resp.Cookies() {
		if c.Name == "session_id" {
			return c.Value
		}
	}
	t.Fatalf("no session cookie after %s", path)
	return ""
}

func get(t *testing.T, app *fiber.App, path, cookie string) (int, string) {
	t.Helper()

	req := httptest.NewRequest("GET", path, nil)
	if cookie != "" {
		req.Header.Set("Cookie", "session_id="+cookie)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode, resp.Header.Get("Location")
}

func TestAnonymousIsRedirected(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		path     string
		status   int
		location string
	}{
		{"/admin", fiber.StatusSeeOther, "/admin/login"},
		{"/admin/settings", fiber.StatusSeeOther, "/admin/login"},
		{"/account", fiber.StatusSeeOther, "/join"},
		{"/api/me", fiber.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		status, location := get(t, app, tt.path, "")
		if status != tt.status || location != tt.location {
			t.Fatalf("%s: got %d %q, want %d %q", tt.path, status, location, tt.status, tt.location)
		}
	}
}

func TestStaffSession(t *testing.T) {
	app := newTestApp(t)

	editor := login(t, app, "/login/staff?role=editor")
	status, _ := get(t, app, "/admin", editor)
	assert.Equal(t, fiber.StatusOK, status)

	status, location := get(t, app, "/admin/settings", editor)
	assert.Equal(t, fiber.StatusSeeOther, status)
	assert.Equal(t, "/admin", location)

	// staff are not customers
	status, _ = get(t, app, "/account", editor)
	assert.Equal(t, fiber.StatusSeeOther, status)

	admin := login(t, app, "/login/staff?role=admin")
	status, _ = get(t, app, "/admin/settings", admin)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestCustomerSession(t *testing.T) {
	app := newTestApp(t)

	customer := login(t, app, "/login/customer")
	status, _ := get(t, app, "/account", customer)
	assert.Equal(t, fiber.StatusOK, status)
	status, _ = get(t, app, "/api/me", customer)
	assert.Equal(t, fiber.StatusOK, status)

	status, location := get(t, app, "/admin", customer)
	assert.Equal(t, fiber.StatusSeeOther, status)
	assert.Equal(t, "/admin/login", location)
}
