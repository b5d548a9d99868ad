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

// OrderHandler serves the customer's order history.
type OrderHandler struct {
	db *gorm.DB
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(db *gorm.DB) *OrderHandler {
	return &OrderHandler{db: db}
}

// ListOrders returns the customer's orders newest-first, each annotated with
// its derived health badge.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	customerID, ok := middleware.GetCurrentCustomerID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pg := utils.ParsePagination(c)

	var total int64
	if err := h.db.Model(&models.PendingOrder{}).Where("customer_id = ?", customerID).
		Count(&total).Error; err != nil {
		return err
	}

	var orders []models.PendingOrder
	if err := h.db.Preload("Items").Preload("Deliveries").
		Where("customer_id = ?", customerID).
		Limit(pg.Limit).Offset(pg.Offset).Order("created_at desc").
		Find(&orders).Error; err != nil {
		return err
	}

	now := time.Now()
	data := make([]fiber.Map, 0, len(orders))
	for _, order := range orders {
		data = append(data, fiber.Map{
			"order":  order,
			"health": models.OrderHealth(order.Deliveries, now),
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// GetOrder returns one order with items, deliveries and health.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	customerID, ok := middleware.GetCurrentCustomerID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}

	var order models.PendingOrder
	if err := h.db.Preload("Items").Preload("Deliveries").
		First(&order, "id = ? AND customer_id = ?", orderID, customerID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"order":  order,
			"health": models.OrderHealth(order.Deliveries, time.Now()),
		},
	})
}
