package models

import (
	"time"

	"github.com/google/uuid"
)

// Commission and withdrawal statuses.
const (
	CommissionStatusPending  = "pending"
	CommissionStatusApproved = "approved"
	CommissionStatusPaid     = "paid"

	WithdrawalStatusPending  = "pending"
	WithdrawalStatusApproved = "approved"
	WithdrawalStatusPaid     = "paid"
	WithdrawalStatusRejected = "rejected"

	// MinWithdrawalAmount is the smallest payout the ledger accepts, in NGN.
	MinWithdrawalAmount = 100
)

// AffiliateProfile links a customer to their referral code.
type AffiliateProfile struct {
	BaseModel
	CustomerID   uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"customer_id"`
	ReferralCode string    `gorm:"uniqueIndex;not null" json:"referral_code"`
	Status       string    `gorm:"default:active" json:"status"`
}

// ReferralClick records one attributed landing for a referral code.
type ReferralClick struct {
	BaseModel
	ReferralCode string `gorm:"index;not null" json:"referral_code"`
	IPAddress    string `json:"ip_address"`
	LandingPage  string `json:"landing_page"`
	UserAgent    string `json:"user_agent"`
}

// ReferralCommission accrues earnings against an affiliate for one paid order.
type ReferralCommission struct {
	BaseModel
	AffiliateID uuid.UUID `gorm:"type:uuid;index;not null" json:"affiliate_id"`
	OrderID     uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"order_id"`
	Amount      float64   `json:"amount"`
	Status      string    `gorm:"index;default:pending" json:"status"`
}

// Withdrawal is a payout request against the affiliate's running balance.
// Rows are created pending and transition only via admin action.
type Withdrawal struct {
	BaseModel
	AffiliateID uuid.UUID  `gorm:"type:uuid;index;not null" json:"affiliate_id"`
	Amount      float64    `json:"amount"`
	Status      string     `gorm:"index;default:pending" json:"status"`
	BankName    string     `json:"bank_name"`
	AccountName string     `json:"account_name"`
	AccountNo   string     `json:"account_no"`
	PaidAt      *time.Time `json:"paid_at"`
}

// AffiliateBalance summarizes an affiliate's ledger position.
type AffiliateBalance struct {
	TotalEarned float64 `json:"total_earned"`
	TotalPaid   float64 `json:"total_paid"`
	InProgress  float64 `json:"in_progress"`
	Available   float64 `json:"available_balance"`
}

// ComputeBalance derives available_balance = total_earned - total_paid -
// in_progress, floored at zero.
func ComputeBalance(totalEarned, totalPaid, inProgress float64) AffiliateBalance {
	available := totalEarned - totalPaid - inProgress
	if available < 0 {
		available = 0
	}
	return AffiliateBalance{
		TotalEarned: totalEarned,
		TotalPaid:   totalPaid,
		InProgress:  inProgress,
		Available:   available,
	}
}
