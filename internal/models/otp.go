package models

import (
	"time"

	"github.com/google/uuid"
)

// OTP purposes and delivery methods.
const (
	OTPTypeEmailVerify = "email_verify"
	OTPTypePhoneVerify = "phone_verify"

	OTPDeliveryEmail    = "email"
	OTPDeliverySMS      = "sms"
	OTPDeliveryWhatsapp = "whatsapp"

	// OTPMaxAttempts is the default lockout threshold per code.
	OTPMaxAttempts = 5

	// OTPTTL is how long an issued code stays valid.
	OTPTTL = 10 * time.Minute
)

// OTPCode keeps track of one-time verification codes sent to customers.
// A row is addressed by email or phone depending on the OTP type; the
// customer link is optional because checkout issues codes before an
// account exists.
type OTPCode struct {
	BaseModel
	CustomerID     *uuid.UUID `gorm:"type:uuid;index" json:"customer_id"`
	Email          string     `gorm:"index" json:"email"`
	Phone          string     `gorm:"index" json:"phone"`
	OTPType        string     `gorm:"index;not null" json:"otp_type"`
	DeliveryMethod string     `json:"delivery_method"`
	Code           string     `json:"-"`
	ExpiresAt      time.Time  `json:"expires_at"`
	Attempts       int        `json:"attempts"`
	MaxAttempts    int        `json:"max_attempts"`
	IsUsed         bool       `json:"is_used"`
	UsedAt         *time.Time `json:"used_at"`
}

// Verifiable reports whether the code can still be accepted.
func (o *OTPCode) Verifiable(now time.Time) bool {
	return !o.IsUsed && o.Attempts < o.MaxAttempts && now.Before(o.ExpiresAt)
}
