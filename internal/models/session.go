package models

import (
	"time"

	"github.com/google/uuid"
)

// Session revocation reasons recorded on soft revoke.
const (
	RevokeReasonLogout        = "logout"
	RevokeReasonLogoutAll     = "logout_all"
	RevokeReasonPasswordReset = "password_reset"
)

// CustomerSession is an opaque bearer token mirrored in the customer_session
// cookie. Revocation is a soft flag; rows are never deleted.
type CustomerSession struct {
	BaseModel
	CustomerID     uuid.UUID  `gorm:"type:uuid;index;not null" json:"customer_id"`
	Token          string     `gorm:"uniqueIndex;not null" json:"-"`
	IsActive       bool       `gorm:"default:true" json:"is_active"`
	ExpiresAt      time.Time  `json:"expires_at"`
	LastActivityAt time.Time  `json:"last_activity_at"`
	RevokedAt      *time.Time `json:"revoked_at"`
	RevokeReason   string     `json:"revoke_reason"`
	IPAddress      string     `json:"ip_address"`
	UserAgent      string     `json:"user_agent"`
}

// Live reports whether the session authenticates requests at the given time.
func (s *CustomerSession) Live(now time.Time) bool {
	return s.IsActive && now.Before(s.ExpiresAt)
}
