package models

import (
	"time"
)

// Customer account statuses.
const (
	CustomerStatusPendingSetup = "pending_setup"
	CustomerStatusActive       = "active"
	CustomerStatusSuspended    = "suspended"
)

// Customer represents a storefront account. Accounts may be created with
// nothing but a verified email (checkout flow) and completed later through
// the onboarding steps, so password hash and username stay optional.
type Customer struct {
	BaseModel
	Email            string            `gorm:"uniqueIndex;not null" json:"email"`
	Username         *string           `gorm:"uniqueIndex" json:"username"`
	PasswordHash     *string           `json:"-"`
	FirstName        string            `json:"first_name"`
	LastName         string            `json:"last_name"`
	Phone            string            `gorm:"index" json:"phone"`
	WhatsappPhone    string            `json:"whatsapp_phone"`
	EmailVerified    bool              `json:"email_verified"`
	PhoneVerified    bool              `json:"phone_verified"`
	Status           string            `gorm:"index;default:pending_setup" json:"status"`
	RegistrationStep int               `json:"registration_step"`
	AccountComplete  bool              `json:"account_complete"`
	LastLoginAt      *time.Time        `json:"last_login_at"`
	Sessions         []CustomerSession `gorm:"foreignKey:CustomerID" json:"-"`
	Orders           []PendingOrder    `gorm:"foreignKey:CustomerID" json:"orders,omitempty"`
}

// HasPassword reports whether credentials have been set on the account.
func (c *Customer) HasPassword() bool {
	return c.PasswordHash != nil && *c.PasswordHash != ""
}
