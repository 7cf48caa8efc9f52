package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/PhilDL/shuken/internal/pkg/session"
	"github.com/PhilDL/shuken/internal/pkg/usercontext"
)

// UserContextMiddleware sets up the complete user context for every request
// This centralizes session handling for staff and customers
func UserContextMiddleware(c *fiber.Ctx) error {
	store := session.GetSessionStore()
	if store == nil {
		usercontext.SetUserContext(c, usercontext.UserContext{})
		return c.Next()
	}

	sess, err := store.Get(c)
	if err != nil {
		// On error: set as anonymous user
		usercontext.SetUserContext(c, usercontext.UserContext{})
		return c.Next()
	}

	userCtx := usercontext.UserContext{
		StaffID:       toUint(sess.Get(usercontext.KeyStaffID)),
		StaffName:     toString(sess.Get(usercontext.KeyStaffName)),
		StaffRole:     toString(sess.Get(usercontext.KeyStaffRole)),
		CustomerID:    toString(sess.Get(usercontext.KeyCustomerID)),
		CustomerEmail: toString(sess.Get(usercontext.KeyCustomerEmail)),
	}
	usercontext.SetUserContext(c, userCtx)

	return c.Next()
}

func toUint(v interface{}) uint {
	switch id := v.(type) {
	case uint:
		return id
	case uint64:
		return uint(id)
	case int:
		if id > 0 {
			return uint(id)
		}
	}
	return 0
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
