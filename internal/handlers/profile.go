package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/digistore/internal/middleware"
	"github.com/example/digistore/internal/models"
	"github.com/example/digistore/internal/utils"
)

// ProfileHandler manages customer profile and onboarding endpoints.
type ProfileHandler struct {
	db *gorm.DB
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(db *gorm.DB) *ProfileHandler {
	return &ProfileHandler{db: db}
}

// GetProfile returns the authenticated customer's profile.
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	customerID, ok := middleware.GetCurrentCustomerID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var customer models.Customer
	if err := h.db.First(&customer, "id = ?", customerID).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"id":                customer.ID,
			"email":             customer.Email,
			"username":          customer.Username,
			"first_name":        customer.FirstName,
			"last_name":         customer.LastName,
			"phone":             customer.Phone,
			"whatsapp_phone":    customer.WhatsappPhone,
			"email_verified":    customer.EmailVerified,
			"phone_verified":    customer.PhoneVerified,
			"status":            customer.Status,
			"registration_step": customer.RegistrationStep,
			"account_complete":  customer.AccountComplete,
			"created_at":        customer.CreatedAt,
			"updated_at":        customer.UpdatedAt,
		},
	})
}

type updateProfileRequest struct {
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Phone         string `json:"phone"`
	WhatsappPhone string `json:"whatsapp_phone"`
}

// UpdateProfile updates mutable profile fields. Changing the phone number
// clears its verified flag until a new OTP confirms it.
func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	customerID, ok := middleware.GetCurrentCustomerID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	updates := map[string]interface{}{}
	if req.FirstName != "" {
		updates["first_name"] = req.FirstName
	}
	if req.LastName != "" {
		updates["last_name"] = req.LastName
	}
	if req.Phone != "" {
		updates["phone"] = req.Phone
		updates["phone_verified"] = false
	}
	if req.WhatsappPhone != "" {
		updates["whatsapp_phone"] = req.WhatsappPhone
	}
	if len(updates) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no fields to update")
	}
	updates["updated_at"] = time.Now()

	if err := h.db.Model(&models.Customer{}).Where("id = ?", customerID).Updates(updates).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "message": "profile updated"})
}

type setUsernameRequest struct {
	Username string `json:"username"`
}

// SetUsername claims a unique username for the account.
func (h *ProfileHandler) SetUsername(c *fiber.Ctx) error {
	customerID, ok := middleware.GetCurrentCustomerID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req setUsernameRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	if len(username) < 3 {
		return fiber.NewError(fiber.StatusBadRequest, "username must be at least 3 characters")
	}

	var existing models.Customer
	if err := h.db.Where("username = ? AND id <> ?", username, customerID).First(&existing).Error; err == nil {
		return fiber.NewError(fiber.StatusConflict, "username already taken")
	} else if err != gorm.ErrRecordNotFound {
		return err
	}

	if err := h.db.Model(&models.Customer{}).Where("id = ?", customerID).
		Update("username", username).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "username": username})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword sets new credentials and revokes every other session.
func (h *ProfileHandler) ChangePassword(c *fiber.Ctx) error {
	customerID, ok := middleware.GetCurrentCustomerID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}
	sessionID, _ := middleware.GetCurrentSessionID(c)

	var req changePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if len(req.NewPassword) < 6 {
		return fiber.NewError(fiber.StatusBadRequest, "password must be at least 6 characters")
	}

	var customer models.Customer
	if err := h.db.First(&customer, "id = ?", customerID).Error; err != nil {
		return err
	}

	if customer.HasPassword() && !utils.CheckPassword(*customer.PasswordHash, req.CurrentPassword) {
		return fiber.NewError(fiber.StatusUnauthorized, "current password is incorrect")
	}

	passwordHash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to hash password")
	}

	if err := h.db.Model(&models.Customer{}).Where("id = ?", customerID).
		Update("password_hash", passwordHash).Error; err != nil {
		return err
	}

	// Revoke every other live session; the current one stays usable.
	now := time.Now()
	if err := h.db.Model(&models.CustomerSession{}).
		Where("customer_id = ? AND is_active = ? AND id <> ?", customerID, true, sessionID).
		Updates(map[string]interface{}{
			"is_active":     false,
			"revoked_at":    now,
			"revoke_reason": models.RevokeReasonPasswordReset,
		}).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "message": "password changed"})
}

type completeSetupRequest struct {
	Password  string `json:"password"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// CompleteSetup finishes the onboarding wizard for accounts created at
// checkout: sets credentials and names, then activates the account.
func (h *ProfileHandler) CompleteSetup(c *fiber.Ctx) error {
	customerID, ok := middleware.GetCurrentCustomerID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req completeSetupRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	var customer models.Customer
	if err := h.db.First(&customer, "id = ?", customerID).Error; err != nil {
		return err
	}

	if customer.AccountComplete {
		return fiber.NewError(fiber.StatusConflict, "account setup already complete")
	}

	updates := map[string]interface{}{}

	if !customer.HasPassword() {
		if len(req.Password) < 6 {
			return fiber.NewError(fiber.StatusBadRequest, "password must be at least 6 characters")
		}
		passwordHash, err := utils.HashPassword(req.Password)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to hash password")
		}
		updates["password_hash"] = passwordHash
	}

	if req.Username != "" {
		username := strings.ToLower(strings.TrimSpace(req.Username))
		var existing models.Customer
		if err := h.db.Where("username = ? AND id <> ?", username, customerID).First(&existing).Error; err == nil {
			return fiber.NewError(fiber.StatusConflict, "username already taken")
		} else if err != gorm.ErrRecordNotFound {
			return err
		}
		updates["username"] = username
	}

	if req.FirstName != "" {
		updates["first_name"] = req.FirstName
	}
	if req.LastName != "" {
		updates["last_name"] = req.LastName
	}

	updates["registration_step"] = customer.RegistrationStep + 1
	updates["account_complete"] = true
	updates["status"] = models.CustomerStatusActive

	if err := h.db.Model(&models.Customer{}).Where("id = ?", customerID).Updates(updates).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "message": "account setup complete"})
}
