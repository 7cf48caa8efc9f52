package flash

import (
	"github.com/gofiber/fiber/v2"
	sflash "github.com/sujit-baniya/flash"
)

// Flash message types understood by the layout template.
const (
	TypeSuccess = "success"
	TypeError   = "error"
	TypeInfo    = "info"
)

// Success queues a success message for the next request and returns the ctx
// for chaining with Redirect.
func Success(c *fiber.Ctx, message string) *fiber.Ctx {
	return sflash.WithSuccess(c, fiber.Map{"type": TypeSuccess, "message": message})
}

// Error queues an error message for the next request.
func Error(c *fiber.Ctx, message string) *fiber.Ctx {
	return sflash.WithError(c, fiber.Map{"type": TypeError, "message": message})
}

// Info queues an informational message for the next request.
func Info(c *fiber.Ctx, message string) *fiber.Ctx {
	return sflash.WithInfo(c, fiber.Map{"type": TypeInfo, "message": message})
}

// Get returns the message carried over from the previous request, or nil.
func Get(c *fiber.Ctx) fiber.Map {
	msg := sflash.Get(c)
	if len(msg) == 0 {
		return nil
	}
	return msg
}
