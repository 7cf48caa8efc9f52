package usercontext

import "github.com/gofiber/fiber/v2"

// UserContext represents the identities attached to a request. Staff and
// customers are separate populations and may both be present.
type UserContext struct {
	StaffID       uint   `json:"staff_id"`
	StaffName     string `json:"staff_name"`
	StaffRole     string `json:"staff_role"`
	CustomerID    string `json:"customer_id"`
	CustomerEmail string `json:"customer_email"`
}

// IsStaff reports whether a back-office user is signed in.
func (u UserContext) IsStaff() bool {
	return u.StaffID != 0
}

// IsAdmin reports whether the signed-in staff member has the admin role.
func (u UserContext) IsAdmin() bool {
	return u.IsStaff() && u.StaffRole == "admin"
}

// IsCustomer reports whether a member of the public site is signed in.
func (u UserContext) IsCustomer() bool {
	return u.CustomerID != ""
}

// GetUserContext retrieves the user context from fiber context
// Returns a default anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx, ok := c.Locals(ContextKey).(UserContext); ok {
		return ctx
	}
	return UserContext{}
}

// SetUserContext stores the context for the rest of the request.
func SetUserContext(c *fiber.Ctx, u UserContext) {
	c.Locals(ContextKey, u)
}

func GetStaffID(c *fiber.Ctx) uint {
	return GetUserContext(c).StaffID
}

func GetCustomerID(c *fiber.Ctx) string {
	return GetUserContext(c).CustomerID
}
