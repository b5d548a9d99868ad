package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/digistore/internal/models"
	"github.com/example/digistore/internal/services"
	"github.com/example/digistore/internal/utils"
)

// OTPHandler manages issue/verify endpoints for one-time codes.
type OTPHandler struct {
	db     *gorm.DB
	mailer *services.MailService
	sms    *services.SMSService
}

// NewOTPHandler constructs an OTPHandler.
func NewOTPHandler(db *gorm.DB, mailer *services.MailService, sms *services.SMSService) *OTPHandler {
	return &OTPHandler{db: db, mailer: mailer, sms: sms}
}

type requestOTPRequest struct {
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	OTPType        string `json:"otp_type"`
	DeliveryMethod string `json:"delivery_method"`
	Context        string `json:"context"`
}

// RequestOTP issues a fresh 6-digit code and invalidates outstanding codes of
// the same type for the target. In the login context the email must already
// belong to an account; checkout may request codes for brand-new emails.
func (h *OTPHandler) RequestOTP(c *fiber.Ctx) error {
	var req requestOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if req.OTPType == "" {
		req.OTPType = models.OTPTypeEmailVerify
	}
	if req.OTPType != models.OTPTypeEmailVerify && req.OTPType != models.OTPTypePhoneVerify {
		return fiber.NewError(fiber.StatusBadRequest, "unknown otp_type")
	}

	if req.OTPType == models.OTPTypeEmailVerify && req.Email == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email is required")
	}
	if req.OTPType == models.OTPTypePhoneVerify && req.Phone == "" {
		return fiber.NewError(fiber.StatusBadRequest, "phone is required")
	}

	var customer models.Customer
	customerFound := false
	if req.Email != "" {
		if err := h.db.Where("email = ?", req.Email).First(&customer).Error; err == nil {
			customerFound = true
		} else if err != gorm.ErrRecordNotFound {
			return err
		}
	}

	if req.Context == "login" && !customerFound {
		return fiber.NewError(fiber.StatusBadRequest, "no account with that email")
	}

	code, err := utils.GenerateOTPCode()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate code")
	}

	// Invalidate outstanding codes of the same type for this target.
	invalidate := h.db.Model(&models.OTPCode{}).
		Where("otp_type = ? AND is_used = ?", req.OTPType, false)
	if req.OTPType == models.OTPTypeEmailVerify {
		invalidate = invalidate.Where("email = ?", req.Email)
	} else {
		invalidate = invalidate.Where("phone = ?", req.Phone)
	}
	if err := invalidate.Update("expires_at", time.Now()).Error; err != nil {
		return err
	}

	delivery := req.DeliveryMethod
	if delivery == "" {
		if req.OTPType == models.OTPTypeEmailVerify {
			delivery = models.OTPDeliveryEmail
		} else {
			delivery = models.OTPDeliverySMS
		}
	}

	otp := models.OTPCode{
		Email:          req.Email,
		Phone:          req.Phone,
		OTPType:        req.OTPType,
		DeliveryMethod: delivery,
		Code:           code,
		ExpiresAt:      time.Now().Add(models.OTPTTL),
		MaxAttempts:    models.OTPMaxAttempts,
	}
	if customerFound {
		otp.CustomerID = &customer.ID
	}

	if err := h.db.Create(&otp).Error; err != nil {
		return err
	}

	switch delivery {
	case models.OTPDeliveryEmail:
		if err := h.mailer.SendOTP(req.Email, code); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to send code")
		}
	case models.OTPDeliverySMS:
		if err := h.sms.SendOTP(req.Phone, code, "generic"); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to send code")
		}
	case models.OTPDeliveryWhatsapp:
		if err := h.sms.SendOTP(req.Phone, code, "whatsapp"); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to send code")
		}
	default:
		return fiber.NewError(fiber.StatusBadRequest, "unknown delivery_method")
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"message":    "verification code sent",
		"expires_at": otp.ExpiresAt,
	})
}

type verifyOTPRequest struct {
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	OTPType string `json:"otp_type"`
	Code    string `json:"code"`
}

// VerifyOTP accepts a code only when a matching, unexpired, unused row exists
// with attempts to spare. A mismatch burns one attempt on the latest row.
func (h *OTPHandler) VerifyOTP(c *fiber.Ctx) error {
	var req verifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if req.OTPType == "" {
		req.OTPType = models.OTPTypeEmailVerify
	}
	if req.Code == "" {
		return fiber.NewError(fiber.StatusBadRequest, "code is required")
	}

	query := h.db.Where("otp_type = ? AND is_used = ?", req.OTPType, false)
	if req.OTPType == models.OTPTypeEmailVerify {
		if req.Email == "" {
			return fiber.NewError(fiber.StatusBadRequest, "email is required")
		}
		query = query.Where("email = ?", req.Email)
	} else {
		if req.Phone == "" {
			return fiber.NewError(fiber.StatusBadRequest, "phone is required")
		}
		query = query.Where("phone = ?", req.Phone)
	}

	var otp models.OTPCode
	if err := query.Order("created_at desc").First(&otp).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "verification code not found")
		}
		return err
	}

	if otp.Attempts >= otp.MaxAttempts {
		return fiber.NewError(fiber.StatusTooManyRequests, "too many attempts, request a new code")
	}

	if otp.ExpiresAt.Before(time.Now()) {
		return fiber.NewError(fiber.StatusBadRequest, "verification code expired")
	}

	if otp.Code != req.Code {
		if err := h.db.Model(&models.OTPCode{}).Where("id = ?", otp.ID).
			Update("attempts", otp.Attempts+1).Error; err != nil {
			return err
		}
		return fiber.NewError(fiber.StatusBadRequest, "invalid verification code")
	}

	// Phone codes must belong to an existing account; resolve it before the
	// code is consumed.
	var phoneCustomer models.Customer
	if req.OTPType == models.OTPTypePhoneVerify {
		if err := h.db.Where("phone = ?", req.Phone).First(&phoneCustomer).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fiber.NewError(fiber.StatusNotFound, "no account with that phone")
			}
			return err
		}
	}

	now := time.Now()
	// Flip is_used atomically: only one verify may win the row.
	res := h.db.Model(&models.OTPCode{}).
		Where("id = ? AND is_used = ?", otp.ID, false).
		Updates(map[string]interface{}{"is_used": true, "used_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "verification code already used")
	}

	// Mark the customer verified; checkout creates accounts on first email
	// verification, so a missing row is created here.
	var customer models.Customer
	if req.OTPType == models.OTPTypeEmailVerify {
		err := h.db.Where("email = ?", req.Email).First(&customer).Error
		if err == gorm.ErrRecordNotFound {
			customer = models.Customer{
				Email:         req.Email,
				EmailVerified: true,
				Status:        models.CustomerStatusPendingSetup,
			}
			if err := h.db.Create(&customer).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		} else if err := h.db.Model(&models.Customer{}).Where("id = ?", customer.ID).
			Update("email_verified", true).Error; err != nil {
			return err
		}
	} else {
		if err := h.db.Model(&models.Customer{}).Where("id = ?", phoneCustomer.ID).
			Update("phone_verified", true).Error; err != nil {
			return err
		}
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"verified": true,
	})
}

// OTPIdentifier keys the send-OTP rate limit on the submitted email when
// present, falling back to the client IP.
func OTPIdentifier(c *fiber.Ctx) string {
	var req requestOTPRequest
	if err := c.BodyParser(&req); err == nil && req.Email != "" {
		return strings.ToLower(strings.TrimSpace(req.Email))
	}
	return c.IP()
}
