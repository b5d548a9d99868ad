package models

import "time"

// RateLimitCounter is a fixed-window request counter keyed by
// (identifier, action, window_start). Identifier is a client IP or an email.
type RateLimitCounter struct {
	BaseModel
	Identifier  string    `gorm:"index:idx_rl_key;not null" json:"identifier"`
	Action      string    `gorm:"index:idx_rl_key;not null" json:"action"`
	WindowStart time.Time `gorm:"index:idx_rl_key;not null" json:"window_start"`
	Count       int       `json:"count"`
}
