package handlers

import (
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/digistore/internal/config"
	"github.com/example/digistore/internal/models"
	"github.com/example/digistore/internal/services"
	"github.com/example/digistore/internal/utils"
)

// CheckoutHandler manages order creation and payment confirmation.
type CheckoutHandler struct {
	db       *gorm.DB
	cfg      *config.Config
	paystack *services.PaystackService
}

// NewCheckoutHandler constructs CheckoutHandler.
func NewCheckoutHandler(db *gorm.DB, cfg *config.Config, paystack *services.PaystackService) *CheckoutHandler {
	return &CheckoutHandler{db: db, cfg: cfg, paystack: paystack}
}

type checkoutItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type checkoutRequest struct {
	Email          string                `json:"email"`
	Items          []checkoutItemRequest `json:"items"`
	AffiliateCode  string                `json:"affiliate_code"`
	DiscountAmount float64               `json:"discount_amount"`
}

// Checkout creates a pending order for a verified email and initializes the
// card payment at the gateway. The email must have passed OTP verification.
func (h *CheckoutHandler) Checkout(c *fiber.Ctx) error {
	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email is required")
	}
	if len(req.Items) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "at least one item is required")
	}

	var customer models.Customer
	if err := h.db.Where("email = ?", req.Email).First(&customer).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusBadRequest, "email has not been verified")
		}
		return err
	}
	if !customer.EmailVerified {
		return fiber.NewError(fiber.StatusBadRequest, "email has not been verified")
	}
	if customer.Status == models.CustomerStatusSuspended {
		return fiber.NewError(fiber.StatusForbidden, "account suspended")
	}

	orderNumber, err := utils.GenerateOrderNumber()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate order number")
	}

	var items []models.OrderItem
	var originalPrice float64
	for _, line := range req.Items {
		productID, err := uuid.Parse(line.ProductID)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid product id")
		}

		var product models.Product
		if err := h.db.Where("id = ? AND is_active = ?", productID, true).First(&product).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fiber.NewError(fiber.StatusNotFound, "product not found")
			}
			return err
		}

		quantity := line.Quantity
		if quantity <= 0 {
			quantity = 1
		}

		lineTotal := product.Price * float64(quantity)
		originalPrice += lineTotal

		items = append(items, models.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			ProductType: product.ProductType,
			Quantity:    quantity,
			UnitPrice:   product.Price,
			LineTotal:   lineTotal,
		})
	}

	discount := req.DiscountAmount
	if discount < 0 || discount > originalPrice {
		return fiber.NewError(fiber.StatusBadRequest, "invalid discount amount")
	}
	finalAmount := originalPrice - discount

	order := models.PendingOrder{
		CustomerID:       customer.ID,
		OrderNumber:      orderNumber,
		Status:           models.OrderStatusPending,
		OriginalPrice:    originalPrice,
		DiscountAmount:   discount,
		FinalAmount:      finalAmount,
		Currency:         "NGN",
		AffiliateCode:    strings.TrimSpace(req.AffiliateCode),
		PaymentReference: uuid.NewString(),
	}

	if err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		return tx.Create(&items).Error
	}); err != nil {
		return err
	}

	authorizationURL, err := h.paystack.InitializeTransaction(
		customer.Email, order.FinalAmount, order.PaymentReference, order.Currency)
	if err != nil {
		log.Printf("payment initialize failed for order %s: %v", order.OrderNumber, err)
		return fiber.NewError(fiber.StatusBadGateway, "payment gateway unavailable")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":           true,
		"order_number":      order.OrderNumber,
		"payment_reference": order.PaymentReference,
		"amount":            order.FinalAmount,
		"currency":          order.Currency,
		"authorization_url": authorizationURL,
	})
}

// VerifyPayment confirms a charge by reference against the gateway and, on
// success, marks the order paid and creates its deliveries.
func (h *CheckoutHandler) VerifyPayment(c *fiber.Ctx) error {
	reference := c.Params("reference")
	if reference == "" {
		return fiber.NewError(fiber.StatusBadRequest, "reference is required")
	}

	var order models.PendingOrder
	if err := h.db.Preload("Items").Where("payment_reference = ?", reference).First(&order).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}

	if order.Status == models.OrderStatusPaid || order.Status == models.OrderStatusCompleted {
		return c.JSON(fiber.Map{"success": true, "status": order.Status})
	}

	chargeStatus, err := h.paystack.VerifyTransaction(reference)
	if err != nil {
		log.Printf("payment verify failed for %s: %v", reference, err)
		return fiber.NewError(fiber.StatusBadGateway, "payment gateway unavailable")
	}

	switch chargeStatus {
	case "success":
		if err := h.markOrderPaid(&order); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "status": models.OrderStatusPaid})
	case "failed", "reversed":
		if err := h.db.Model(&models.PendingOrder{}).Where("id = ?", order.ID).
			Update("status", models.OrderStatusFailed).Error; err != nil {
			return err
		}
		return fiber.NewError(fiber.StatusBadRequest, "payment not successful")
	default:
		// Still in flight at the gateway (pending, abandoned); the order stays
		// open for a later verify or the webhook.
		return fiber.NewError(fiber.StatusBadRequest, "payment not yet confirmed")
	}
}

type webhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
	} `json:"data"`
}

// Webhook handles gateway callbacks. Only charge.success moves an order.
func (h *CheckoutHandler) Webhook(c *fiber.Ctx) error {
	var event webhookEvent
	if err := json.Unmarshal(c.Body(), &event); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}

	if event.Event != "charge.success" || event.Data.Reference == "" {
		return c.JSON(fiber.Map{"success": true})
	}

	var order models.PendingOrder
	if err := h.db.Preload("Items").Where("payment_reference = ?", event.Data.Reference).First(&order).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}

	if order.Status == models.OrderStatusPaid || order.Status == models.OrderStatusCompleted {
		return c.JSON(fiber.Map{"success": true})
	}

	if err := h.markOrderPaid(&order); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true})
}

// markOrderPaid flips the order to paid, creates one delivery per item and
// accrues the affiliate commission when the order carries a referral code.
func (h *CheckoutHandler) markOrderPaid(order *models.PendingOrder) error {
	now := time.Now()

	return h.db.Transaction(func(tx *gorm.DB) error {
		// A failed order may still be recovered: the gateway can report a
		// charge failed or in flight before the real success arrives.
		res := tx.Model(&models.PendingOrder{}).
			Where("id = ? AND status IN ?", order.ID,
				[]string{models.OrderStatusPending, models.OrderStatusFailed}).
			Updates(map[string]interface{}{"status": models.OrderStatusPaid, "paid_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Another confirmation won the transition.
			return nil
		}

		for _, item := range order.Items {
			delivery := models.Delivery{
				OrderID:     order.ID,
				OrderItemID: item.ID,
				CustomerID:  order.CustomerID,
				ProductID:   item.ProductID,
				ProductName: item.ProductName,
				ProductType: item.ProductType,
			}

			if item.ProductType == models.ProductTypeTool {
				var product models.Product
				if err := tx.First(&product, "id = ?", item.ProductID).Error; err == nil && len(product.FileLinks) > 0 {
					expires := now.Add(365 * 24 * time.Hour)
					delivery.DeliveryStatus = models.DeliveryStatusReady
					delivery.DownloadLinks = product.FileLinks
					delivery.AccessExpiresAt = &expires
				} else {
					delivery.DeliveryStatus = models.DeliveryStatusPending
				}
			} else {
				// Template hosting is provisioned by operations.
				delivery.DeliveryStatus = models.DeliveryStatusPending
			}

			if err := tx.Create(&delivery).Error; err != nil {
				return err
			}
		}

		if order.AffiliateCode != "" {
			var profile models.AffiliateProfile
			err := tx.Where("referral_code = ? AND status = ?", order.AffiliateCode, "active").First(&profile).Error
			if err == nil && profile.CustomerID != order.CustomerID {
				commission := models.ReferralCommission{
					AffiliateID: profile.ID,
					OrderID:     order.ID,
					Amount:      order.FinalAmount * h.cfg.CommissionPercent / 100,
					Status:      models.CommissionStatusPending,
				}
				if err := tx.Create(&commission).Error; err != nil {
					return err
				}
			} else if err != nil && err != gorm.ErrRecordNotFound {
				return err
			}
		}

		return nil
	})
}
