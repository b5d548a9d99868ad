package middleware

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"

	"github.com/gofiber/fiber/v2"
)

// PaystackWebhook validates the X-Paystack-Signature header: an HMAC-SHA512
// of the raw body keyed with the merchant secret.
func PaystackWebhook(secretKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		signature := c.Get("X-Paystack-Signature")
		if signature == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing signature")
		}

		mac := hmac.New(sha512.New, []byte(secretKey))
		mac.Write(c.Body())
		expected := hex.EncodeToString(mac.Sum(nil))

		if !hmac.Equal([]byte(signature), []byte(expected)) {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid signature")
		}

		return c.Next()
	}
}
