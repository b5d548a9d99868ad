package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/digistore/internal/middleware"
	"github.com/example/digistore/internal/models"
	"github.com/example/digistore/internal/utils"
)

// AffiliateHandler manages the referral program endpoints.
type AffiliateHandler struct {
	db *gorm.DB
}

// NewAffiliateHandler constructs AffiliateHandler.
func NewAffiliateHandler(db *gorm.DB) *AffiliateHandler {
	return &AffiliateHandler{db: db}
}

// Join enrolls the customer in the affiliate program and mints their code.
func (h *AffiliateHandler) Join(c *fiber.Ctx) error {
	customerID, ok := middleware.GetCurrentCustomerID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var existing models.AffiliateProfile
	if err := h.db.Where("customer_id = ?", customerID).First(&existing).Error; err == nil {
		return c.JSON(fiber.Map{
			"success":       true,
			"referral_code": existing.ReferralCode,
		})
	} else if err != gorm.ErrRecordNotFound {
		return err
	}

	code, err := utils.GenerateReferralCode()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate code")
	}

	profile := models.AffiliateProfile{
		CustomerID:   customerID,
		ReferralCode: code,
		Status:       "active",
	}

	if err := h.db.Create(&profile).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":       true,
		"referral_code": profile.ReferralCode,
	})
}

type trackClickRequest struct {
	Code        string `json:"code"`
	LandingPage string `json:"landing_page"`
}

// TrackClick records one attributed landing for a referral code.
func (h *AffiliateHandler) TrackClick(c *fiber.Ctx) error {
	var req trackClickRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Code == "" {
		return fiber.NewError(fiber.StatusBadRequest, "code is required")
	}

	var profile models.AffiliateProfile
	if err := h.db.Where("referral_code = ?", req.Code).First(&profile).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "unknown referral code")
		}
		return err
	}

	click := models.ReferralClick{
		ReferralCode: req.Code,
		IPAddress:    c.IP(),
		LandingPage:  req.LandingPage,
		UserAgent:    c.Get("User-Agent"),
	}

	if err := h.db.Create(&click).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true})
}

// affiliateBalance derives the ledger position for one affiliate profile.
func affiliateBalance(db *gorm.DB, affiliateID uuid.UUID) (models.AffiliateBalance, error) {
	var totalEarned, totalPaid, inProgress float64

	err := db.Model(&models.ReferralCommission{}).
		Where("affiliate_id = ? AND status IN ?", affiliateID,
			[]string{models.CommissionStatusApproved, models.CommissionStatusPaid}).
		Select("COALESCE(SUM(amount), 0)").Scan(&totalEarned).Error
	if err != nil {
		return models.AffiliateBalance{}, err
	}

	err = db.Model(&models.Withdrawal{}).
		Where("affiliate_id = ? AND status = ?", affiliateID, models.WithdrawalStatusPaid).
		Select("COALESCE(SUM(amount), 0)").Scan(&totalPaid).Error
	if err != nil {
		return models.AffiliateBalance{}, err
	}

	err = db.Model(&models.Withdrawal{}).
		Where("affiliate_id = ? AND status IN ?", affiliateID,
			[]string{models.WithdrawalStatusPending, models.WithdrawalStatusApproved}).
		Select("COALESCE(SUM(amount), 0)").Scan(&inProgress).Error
	if err != nil {
		return models.AffiliateBalance{}, err
	}

	return models.ComputeBalance(totalEarned, totalPaid, inProgress), nil
}

// requireProfile loads the affiliate profile for the authenticated customer.
func (h *AffiliateHandler) requireProfile(c *fiber.Ctx) (*models.AffiliateProfile, error) {
	customerID, ok := middleware.GetCurrentCustomerID(c)
	if !ok {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var profile models.AffiliateProfile
	if err := h.db.Where("customer_id = ?", customerID).First(&profile).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fiber.NewError(fiber.StatusNotFound, "not enrolled in the affiliate program")
		}
		return nil, err
	}

	return &profile, nil
}

// GetBalance returns the affiliate's running balance.
func (h *AffiliateHandler) GetBalance(c *fiber.Ctx) error {
	profile, err := h.requireProfile(c)
	if err != nil {
		return err
	}

	balance, err := affiliateBalance(h.db, profile.ID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":       true,
		"referral_code": profile.ReferralCode,
		"data":          balance,
	})
}

// ListCommissions returns the affiliate's commission rows newest-first.
func (h *AffiliateHandler) ListCommissions(c *fiber.Ctx) error {
	profile, err := h.requireProfile(c)
	if err != nil {
		return err
	}

	pg := utils.ParsePagination(c)

	var total int64
	if err := h.db.Model(&models.ReferralCommission{}).
		Where("affiliate_id = ?", profile.ID).Count(&total).Error; err != nil {
		return err
	}

	var commissions []models.ReferralCommission
	if err := h.db.Where("affiliate_id = ?", profile.ID).
		Limit(pg.Limit).Offset(pg.Offset).Order("created_at desc").
		Find(&commissions).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    commissions,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

type withdrawalRequest struct {
	Amount      float64 `json:"amount"`
	BankName    string  `json:"bank_name"`
	AccountName string  `json:"account_name"`
	AccountNo   string  `json:"account_no"`
}

// RequestWithdrawal creates a pending payout if the amount clears the minimum
// and fits inside the available balance. Rejections insert nothing.
func (h *AffiliateHandler) RequestWithdrawal(c *fiber.Ctx) error {
	profile, err := h.requireProfile(c)
	if err != nil {
		return err
	}

	var req withdrawalRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Amount < models.MinWithdrawalAmount {
		return fiber.NewError(fiber.StatusBadRequest, "amount is below the minimum withdrawal")
	}

	balance, err := affiliateBalance(h.db, profile.ID)
	if err != nil {
		return err
	}

	if req.Amount > balance.Available {
		return fiber.NewError(fiber.StatusBadRequest, "amount exceeds available balance")
	}

	withdrawal := models.Withdrawal{
		AffiliateID: profile.ID,
		Amount:      req.Amount,
		Status:      models.WithdrawalStatusPending,
		BankName:    req.BankName,
		AccountName: req.AccountName,
		AccountNo:   req.AccountNo,
	}

	if err := h.db.Create(&withdrawal).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    withdrawal,
	})
}

// ListWithdrawals returns the affiliate's payout requests newest-first.
func (h *AffiliateHandler) ListWithdrawals(c *fiber.Ctx) error {
	profile, err := h.requireProfile(c)
	if err != nil {
		return err
	}

	var withdrawals []models.Withdrawal
	if err := h.db.Where("affiliate_id = ?", profile.ID).
		Order("created_at desc").Find(&withdrawals).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": withdrawals})
}
