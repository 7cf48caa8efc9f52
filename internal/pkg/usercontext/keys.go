package usercontext

// Shared Locals/session keys used across controllers and middlewares
const (
	ContextKey = "USER_CONTEXT"

	KeyStaffID       = "staff_id"
	KeyStaffName     = "staff_name"
	KeyStaffRole     = "staff_role"
	KeyCustomerID    = "customer_id"
	KeyCustomerEmail = "customer_email"
)
