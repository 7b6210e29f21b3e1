package observability

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	HeaderRequestID = "X-Request-ID"
	requestIDKey    = "request_id"
)

// RequestID keeps an incoming X-Request-ID or generates one, and echoes it
// on the response.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Locals(requestIDKey, id)
		c.Set(HeaderRequestID, id)
		return c.Next()
	}
}

// RequestIDFromContext returns the id assigned by RequestID.
func RequestIDFromContext(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDKey).(string)
	return id
}
