package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/digistore/internal/models"
)

// Rate limit actions and their fixed-window thresholds.
const (
	RateActionAPI     = "api"
	RateActionOTPSend = "otp_send"

	APILimit      = 10
	APIWindow     = 60 * time.Second
	OTPSendLimit  = 5
	OTPSendWindow = 300 * time.Second
)

// IdentifierFunc extracts the counter key for a request, usually the client
// IP or a submitted email.
type IdentifierFunc func(c *fiber.Ctx) string

// ByIP keys the counter on the client address.
func ByIP(c *fiber.Ctx) string {
	return c.IP()
}

// RateLimit enforces a fixed-window counter per (identifier, action). The
// counter is a plain read-modify-write row; two racing requests may both
// slip under the threshold.
func RateLimit(db *gorm.DB, action string, limit int, window time.Duration, identify IdentifierFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identifier := identify(c)
		if identifier == "" {
			identifier = c.IP()
		}

		windowStart := time.Now().Truncate(window)

		var counter models.RateLimitCounter
		err := db.Where("identifier = ? AND action = ? AND window_start = ?",
			identifier, action, windowStart).First(&counter).Error
		if err == gorm.ErrRecordNotFound {
			counter = models.RateLimitCounter{
				Identifier:  identifier,
				Action:      action,
				WindowStart: windowStart,
				Count:       1,
			}
			if err := db.Create(&counter).Error; err != nil {
				return err
			}
			return c.Next()
		}
		if err != nil {
			return err
		}

		if counter.Count >= limit {
			return fiber.NewError(fiber.StatusTooManyRequests, "too many requests, try again later")
		}

		if err := db.Model(&models.RateLimitCounter{}).Where("id = ?", counter.ID).
			Update("count", counter.Count+1).Error; err != nil {
			return err
		}

		return c.Next()
	}
}
