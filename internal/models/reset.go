package models

import (
	"time"
)

// PasswordResetToken tracks one forgot-password flow. The token itself is a
// signed JWT; the row pins it to a single use.
type PasswordResetToken struct {
	BaseModel
	Email     string     `gorm:"index;not null" json:"email"`
	Token     string     `gorm:"uniqueIndex;not null" json:"-"`
	Code      string     `json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	Verified  bool       `json:"verified"`
	UsedAt    *time.Time `json:"used_at"`
}
