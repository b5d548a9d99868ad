package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/digistore/internal/config"
	"github.com/example/digistore/internal/middleware"
	"github.com/example/digistore/internal/models"
	"github.com/example/digistore/internal/utils"
)

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	db  *gorm.DB
	cfg *config.Config
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, cfg *config.Config) *AuthHandler {
	return &AuthHandler{db: db, cfg: cfg}
}

// issueSession creates a session row for the customer and mirrors the token
// in the customer_session cookie.
func issueSession(c *fiber.Ctx, db *gorm.DB, customer models.Customer, ttl time.Duration) (*models.CustomerSession, error) {
	token, err := utils.GenerateSessionToken()
	if err != nil {
		return nil, err
	}

	session := models.CustomerSession{
		CustomerID:     customer.ID,
		Token:          token,
		IsActive:       true,
		ExpiresAt:      time.Now().Add(ttl),
		LastActivityAt: time.Now(),
		IPAddress:      c.IP(),
		UserAgent:      c.Get("User-Agent"),
	}

	if err := db.Create(&session).Error; err != nil {
		return nil, err
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Expires:  session.ExpiresAt,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})

	return &session, nil
}

// revokeAllSessions soft-revokes every live session for the customer.
func revokeAllSessions(db *gorm.DB, customerID uuid.UUID, reason string) error {
	return db.Model(&models.CustomerSession{}).
		Where("customer_id = ? AND is_active = ?", customerID, true).
		Updates(map[string]interface{}{
			"is_active":     false,
			"revoked_at":    time.Now(),
			"revoke_reason": reason,
		}).Error
}

func clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Register creates a new customer account with credentials set up front.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return fiber.NewError(fiber.StatusBadRequest, "valid email is required")
	}
	if len(req.Password) < 6 {
		return fiber.NewError(fiber.StatusBadRequest, "password must be at least 6 characters")
	}

	var existing models.Customer
	if err := h.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return fiber.NewError(fiber.StatusConflict, "account already exists")
	} else if err != gorm.ErrRecordNotFound {
		return err
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to hash password")
	}

	customer := models.Customer{
		Email:            req.Email,
		PasswordHash:     &passwordHash,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Status:           models.CustomerStatusPendingSetup,
		RegistrationStep: 1,
	}

	if err := h.db.Create(&customer).Error; err != nil {
		return err
	}

	session, err := issueSession(c, h.db, customer, h.cfg.SessionExpires)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to create session")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"customer": fiber.Map{
			"id":                customer.ID,
			"email":             customer.Email,
			"first_name":        customer.FirstName,
			"last_name":         customer.LastName,
			"status":            customer.Status,
			"registration_step": customer.RegistrationStep,
		},
		"token": session.Token,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates an existing customer and issues a fresh session.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	var customer models.Customer
	if err := h.db.Where("email = ?", req.Email).First(&customer).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
		}
		return err
	}

	if customer.Status == models.CustomerStatusSuspended {
		return fiber.NewError(fiber.StatusForbidden, "account suspended")
	}

	if !customer.HasPassword() || !utils.CheckPassword(*customer.PasswordHash, req.Password) {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
	}

	now := time.Now()
	if err := h.db.Model(&models.Customer{}).Where("id = ?", customer.ID).
		Update("last_login_at", now).Error; err != nil {
		return err
	}

	session, err := issueSession(c, h.db, customer, h.cfg.SessionExpires)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to create session")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"customer": fiber.Map{
			"id":               customer.ID,
			"email":            customer.Email,
			"username":         customer.Username,
			"account_complete": customer.AccountComplete,
		},
		"token": session.Token,
	})
}

// Logout revokes the current session and clears the cookie.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	sessionID, ok := middleware.GetCurrentSessionID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	now := time.Now()
	if err := h.db.Model(&models.CustomerSession{}).Where("id = ?", sessionID).
		Updates(map[string]interface{}{
			"is_active":     false,
			"revoked_at":    now,
			"revoke_reason": models.RevokeReasonLogout,
		}).Error; err != nil {
		return err
	}

	clearSessionCookie(c)

	return c.JSON(fiber.Map{"success": true, "message": "logged out"})
}

// LogoutAll revokes every active session belonging to the customer.
func (h *AuthHandler) LogoutAll(c *fiber.Ctx) error {
	customerID, ok := middleware.GetCurrentCustomerID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	if err := revokeAllSessions(h.db, customerID, models.RevokeReasonLogoutAll); err != nil {
		return err
	}

	clearSessionCookie(c)

	return c.JSON(fiber.Map{"success": true, "message": "all sessions revoked"})
}
