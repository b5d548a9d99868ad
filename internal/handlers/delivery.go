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

// DeliveryHandler serves per-item fulfillment records.
type DeliveryHandler struct {
	db *gorm.DB
}

// NewDeliveryHandler constructs DeliveryHandler.
func NewDeliveryHandler(db *gorm.DB) *DeliveryHandler {
	return &DeliveryHandler{db: db}
}

// ListDeliveries returns the customer's deliveries newest-first.
func (h *DeliveryHandler) ListDeliveries(c *fiber.Ctx) error {
	customerID, ok := middleware.GetCurrentCustomerID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pg := utils.ParsePagination(c)

	query := h.db.Model(&models.Delivery{}).Where("customer_id = ?", customerID)
	if status := c.Query("status"); status != "" {
		query = query.Where("delivery_status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var deliveries []models.Delivery
	if err := query.Limit(pg.Limit).Offset(pg.Offset).Order("created_at desc").
		Find(&deliveries).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    deliveries,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// GetDelivery returns one delivery owned by the customer.
func (h *DeliveryHandler) GetDelivery(c *fiber.Ctx) error {
	customerID, ok := middleware.GetCurrentCustomerID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	deliveryID, err := uuid.Parse(c.Params("id"))
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

	return c.JSON(fiber.Map{"success": true, "data": delivery})
}

// ConfirmDelivery lets the customer acknowledge receipt: ready or sent moves
// to delivered.
func (h *DeliveryHandler) ConfirmDelivery(c *fiber.Ctx) error {
	customerID, ok := middleware.GetCurrentCustomerID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	deliveryID, err := uuid.Parse(c.Params("id"))
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

	if delivery.DeliveryStatus != models.DeliveryStatusReady &&
		delivery.DeliveryStatus != models.DeliveryStatusSent {
		return fiber.NewError(fiber.StatusConflict, "delivery cannot be confirmed in its current state")
	}

	now := time.Now()
	if err := h.db.Model(&models.Delivery{}).Where("id = ?", delivery.ID).
		Updates(map[string]interface{}{
			"delivery_status": models.DeliveryStatusDelivered,
			"delivered_at":    now,
		}).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "message": "delivery confirmed"})
}
