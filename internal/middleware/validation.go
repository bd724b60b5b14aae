package middleware

import (
	"strings"

	"openlet/internal/domain"
	"openlet/internal/util"

	"github.com/gofiber/fiber/v2"
)

// RecordIDLocal is the fiber.Locals key holding a validated record id.
const RecordIDLocal = "validated_record_id"

// ValidateRecordID rejects a malformed :id path parameter before it reaches the handler.
func ValidateRecordID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Params("id"))
		if id == "" {
			return domain.NewValidationError("id is required")
		}
		if !util.IsULID(id) {
			return domain.NewValidationError("id must be a ULID")
		}

		c.Locals(RecordIDLocal, id)
		return c.Next()
	}
}

// RequireJSON rejects request bodies that are not declared as JSON.
func RequireJSON() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !c.Is("json") {
			return fiber.NewError(fiber.StatusUnsupportedMediaType, "Content-Type must be application/json")
		}
		return c.Next()
	}
}
