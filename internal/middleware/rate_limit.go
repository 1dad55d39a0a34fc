package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/noah-isme/gema-school-api/internal/utils"
)

// RateLimit limits score writes and spreadsheet jobs per authenticated user,
// falling back to the client IP for anonymous callers. Rejected requests get
// the standard error envelope with a Retry-After header.
func RateLimit(identifier string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Second
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return fmt.Sprintf("%s:%s", identifier, rateLimitSubject(c))
		},
		LimitReached: func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(window.Seconds())))
			return utils.SendError(c, fiber.StatusTooManyRequests, "too many requests, slow down")
		},
	})
}

func rateLimitSubject(c *fiber.Ctx) string {
	if userID, ok := c.Locals("user_id").(uint); ok && userID > 0 {
		return "user:" + strconv.FormatUint(uint64(userID), 10)
	}
	return "ip:" + c.IP()
}
