package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/digistore/internal/middleware"
	"github.com/example/digistore/internal/models"
	"github.com/example/digistore/internal/utils"
)

// Download token defaults.
const (
	downloadTokenTTL     = 24 * time.Hour
	downloadTokenMaxUses = 5
)

// DownloadHandler issues and redeems bounded download tokens.
type DownloadHandler struct {
	db *gorm.DB
}

// NewDownloadHandler constructs DownloadHandler.
func NewDownloadHandler(db *gorm.DB) *DownloadHandler {
	return &DownloadHandler{db: db}
}

type issueTokenRequest struct {
	DeliveryID string `json:"delivery_id"`
}

// IssueToken creates a download token for one of the customer's deliveries.
// Only tool deliveries with files attached qualify.
func (h *DownloadHandler) IssueToken(c *fiber.Ctx) error {
	customerID, ok := middleware.GetCurrentCustomerID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req issueTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	deliveryID, err := uuid.Parse(req.DeliveryID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid delivery id")
	}

	var delivery models.Delivery
	if err := h.db.First(&delivery, "id = ? AND customer_id = ?", deliveryID, customerID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "delivery not found")
		}
		return err
	}

	if delivery.ProductType != models.ProductTypeTool || len(delivery.DownloadLinks) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "delivery has no downloadable files")
	}

	if delivery.AccessExpiresAt != nil && delivery.AccessExpiresAt.Before(time.Now()) {
		return fiber.NewError(fiber.StatusForbidden, "download access has expired")
	}

	tokenValue, err := utils.GenerateSessionToken()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate token")
	}

	token := models.DownloadToken{
		Token:        tokenValue,
		DeliveryID:   delivery.ID,
		CustomerID:   customerID,
		MaxDownloads: downloadTokenMaxUses,
		ExpiresAt:    time.Now().Add(downloadTokenTTL),
	}

	if err := h.db.Create(&token).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":       true,
		"token":         token.Token,
		"max_downloads": token.MaxDownloads,
		"expires_at":    token.ExpiresAt,
	})
}

// Redeem exchanges a live token for the delivery's download links and burns
// one use. The token itself is the credential, so no session is required.
func (h *DownloadHandler) Redeem(c *fiber.Ctx) error {
	tokenValue := c.Params("token")

	var token models.DownloadToken
	if err := h.db.Where("token = ?", tokenValue).First(&token).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "download token not found")
		}
		return err
	}

	if token.IsExpired(time.Now()) {
		return fiber.NewError(fiber.StatusForbidden, "download token expired")
	}

	var delivery models.Delivery
	if err := h.db.First(&delivery, "id = ?", token.DeliveryID).Error; err != nil {
		return err
	}

	now := time.Now()
	// Guard the counter so the budget holds even when a stale read raced.
	res := h.db.Model(&models.DownloadToken{}).
		Where("id = ? AND download_count < max_downloads", token.ID).
		Updates(map[string]interface{}{
			"download_count": gorm.Expr("download_count + 1"),
			"last_used_at":   now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusForbidden, "download token expired")
	}

	return c.JSON(fiber.Map{
		"success":        true,
		"download_links": delivery.DownloadLinks,
	})
}
