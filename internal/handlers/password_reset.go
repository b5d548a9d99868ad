package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/digistore/internal/config"
	"github.com/example/digistore/internal/models"
	"github.com/example/digistore/internal/services"
	"github.com/example/digistore/internal/utils"
)

// PasswordResetHandler manages forgot-password endpoints.
type PasswordResetHandler struct {
	db     *gorm.DB
	cfg    *config.Config
	mailer *services.MailService
}

// NewPasswordResetHandler constructs a PasswordResetHandler.
func NewPasswordResetHandler(db *gorm.DB, cfg *config.Config, mailer *services.MailService) *PasswordResetHandler {
	return &PasswordResetHandler{db: db, cfg: cfg, mailer: mailer}
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword initiates the reset flow: emails a 6-digit code and returns
// a signed reset token pinned to a single use.
func (h *PasswordResetHandler) ForgotPassword(c *fiber.Ctx) error {
	var req forgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email is required")
	}

	var customer models.Customer
	if err := h.db.Where("email = ?", req.Email).First(&customer).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "no account with that email")
		}
		return err
	}

	code, err := utils.GenerateOTPCode()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate code")
	}

	resetToken, err := utils.GenerateResetToken(h.cfg.ResetTokenSecret, req.Email, h.cfg.ResetTokenExpires)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate token")
	}

	// Expire any previous unused reset tokens for this email.
	if err := h.db.Model(&models.PasswordResetToken{}).
		Where("email = ? AND used_at IS NULL", req.Email).
		Update("expires_at", time.Now()).Error; err != nil {
		return err
	}

	record := models.PasswordResetToken{
		Email:     req.Email,
		Token:     resetToken,
		Code:      code,
		ExpiresAt: time.Now().Add(h.cfg.ResetTokenExpires),
	}
	if err := h.db.Create(&record).Error; err != nil {
		return err
	}

	if err := h.mailer.Send(req.Email, "Reset your password",
		"Your password reset code is "+code+". It expires in 10 minutes."); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to send reset code")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"token":   resetToken,
	})
}

type verifyResetCodeRequest struct {
	Token string `json:"token"`
	Code  string `json:"code"`
}

// VerifyResetCode verifies the emailed code against the reset record.
func (h *PasswordResetHandler) VerifyResetCode(c *fiber.Ctx) error {
	var req verifyResetCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Token == "" || req.Code == "" {
		return fiber.NewError(fiber.StatusBadRequest, "token and code are required")
	}

	record, err := h.loadResetRecord(req.Token)
	if err != nil {
		return err
	}

	if record.Code != req.Code {
		return fiber.NewError(fiber.StatusBadRequest, "invalid verification code")
	}

	if err := h.db.Model(&models.PasswordResetToken{}).Where("id = ?", record.ID).
		Update("verified", true).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"verified": true,
		"token":    record.Token,
	})
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// ResetPassword sets the new password after code verification and revokes
// every live session for the account.
func (h *PasswordResetHandler) ResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Token == "" || req.NewPassword == "" {
		return fiber.NewError(fiber.StatusBadRequest, "token and new_password are required")
	}

	if len(req.NewPassword) < 6 {
		return fiber.NewError(fiber.StatusBadRequest, "password must be at least 6 characters")
	}

	record, err := h.loadResetRecord(req.Token)
	if err != nil {
		return err
	}

	if !record.Verified {
		return fiber.NewError(fiber.StatusBadRequest, "code has not been verified")
	}

	var customer models.Customer
	if err := h.db.Where("email = ?", record.Email).First(&customer).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "no account with that email")
		}
		return err
	}

	passwordHash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to hash password")
	}

	now := time.Now()
	if err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Customer{}).Where("id = ?", customer.ID).
			Update("password_hash", passwordHash).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.PasswordResetToken{}).Where("id = ?", record.ID).
			Update("used_at", now).Error; err != nil {
			return err
		}
		return tx.Model(&models.CustomerSession{}).
			Where("customer_id = ? AND is_active = ?", customer.ID, true).
			Updates(map[string]interface{}{
				"is_active":     false,
				"revoked_at":    now,
				"revoke_reason": models.RevokeReasonPasswordReset,
			}).Error
	}); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "message": "password reset"})
}

// loadResetRecord validates the signed token and fetches its live DB record.
func (h *PasswordResetHandler) loadResetRecord(token string) (*models.PasswordResetToken, error) {
	if _, err := utils.ParseResetToken(h.cfg.ResetTokenSecret, token); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid reset token")
	}

	var record models.PasswordResetToken
	if err := h.db.Where("token = ?", token).First(&record).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fiber.NewError(fiber.StatusNotFound, "invalid reset token")
		}
		return nil, err
	}

	if record.UsedAt != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "token already used")
	}

	if record.ExpiresAt.Before(time.Now()) {
		return nil, fiber.NewError(fiber.StatusBadRequest, "token expired")
	}

	return &record, nil
}
