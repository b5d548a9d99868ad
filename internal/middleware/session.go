package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/digistore/internal/models"
)

// SessionCookieName is the customer session cookie.
const SessionCookieName = "customer_session"

const (
	customerContextKey = "currentCustomerID"
	sessionContextKey  = "currentSessionID"
)

// SessionAuth resolves the bearer token from the customer_session cookie or
// the Authorization header against the customer_sessions table. Revoked and
// expired sessions are rejected; suspended customers are refused outright.
func SessionAuth(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(SessionCookieName)
		if token == "" {
			authHeader := c.Get("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				token = parts[1]
			}
		}

		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
		}

		var session models.CustomerSession
		if err := db.Where("token = ?", token).First(&session).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fiber.NewError(fiber.StatusUnauthorized, "invalid session")
			}
			return err
		}

		if !session.Live(time.Now()) {
			return fiber.NewError(fiber.StatusUnauthorized, "session expired or revoked")
		}

		var customer models.Customer
		if err := db.First(&customer, "id = ?", session.CustomerID).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid session")
		}

		if customer.Status == models.CustomerStatusSuspended {
			return fiber.NewError(fiber.StatusForbidden, "account suspended")
		}

		if err := db.Model(&models.CustomerSession{}).Where("id = ?", session.ID).
			Update("last_activity_at", time.Now()).Error; err != nil {
			return err
		}

		c.Locals(customerContextKey, session.CustomerID)
		c.Locals(sessionContextKey, session.ID)
		return c.Next()
	}
}

// GetCurrentCustomerID extracts the authenticated customer ID from context.
func GetCurrentCustomerID(c *fiber.Ctx) (uuid.UUID, bool) {
	value := c.Locals(customerContextKey)
	if value == nil {
		return uuid.Nil, false
	}

	if id, ok := value.(uuid.UUID); ok {
		return id, true
	}

	return uuid.Nil, false
}

// GetCurrentSessionID extracts the session ID backing the current request.
func GetCurrentSessionID(c *fiber.Ctx) (uuid.UUID, bool) {
	value := c.Locals(sessionContextKey)
	if value == nil {
		return uuid.Nil, false
	}

	if id, ok := value.(uuid.UUID); ok {
		return id, true
	}

	return uuid.Nil, false
}
