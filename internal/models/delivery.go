package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Delivery statuses.
const (
	DeliveryStatusPending   = "pending"
	DeliveryStatusSent      = "sent"
	DeliveryStatusReady     = "ready"
	DeliveryStatusDelivered = "delivered"
	DeliveryStatusFailed    = "failed"
)

// Delivery is the fulfillment record for one purchased line item. Templates
// carry a hosted domain and login URL; tools carry a JSON list of download
// links.
type Delivery struct {
	BaseModel
	OrderID         uuid.UUID      `gorm:"type:uuid;index;not null" json:"order_id"`
	OrderItemID     uuid.UUID      `gorm:"type:uuid;index" json:"order_item_id"`
	CustomerID      uuid.UUID      `gorm:"type:uuid;index;not null" json:"customer_id"`
	ProductID       uuid.UUID      `gorm:"type:uuid" json:"product_id"`
	ProductName     string         `json:"product_name"`
	ProductType     string         `json:"product_type"`
	DeliveryStatus  string         `gorm:"index;default:pending" json:"delivery_status"`
	HostedDomain    string         `json:"hosted_domain"`
	LoginURL        string         `json:"login_url"`
	DownloadLinks   datatypes.JSON `json:"download_links"`
	AccessExpiresAt *time.Time     `json:"access_expires_at"`
	DeliveredAt     *time.Time     `json:"delivered_at"`
	FailureReason   string         `json:"failure_reason"`
}

// DownloadToken is a bounded-use, time-limited credential gating access to a
// delivery's files.
type DownloadToken struct {
	BaseModel
	Token         string    `gorm:"uniqueIndex;not null" json:"token"`
	DeliveryID    uuid.UUID `gorm:"type:uuid;index;not null" json:"delivery_id"`
	CustomerID    uuid.UUID `gorm:"type:uuid;index;not null" json:"customer_id"`
	MaxDownloads  int       `json:"max_downloads"`
	DownloadCount int       `json:"download_count"`
	ExpiresAt     time.Time `json:"expires_at"`
	LastUsedAt    *time.Time `json:"last_used_at"`
}

// IsExpired is a derived property, never stored: a token is spent once its
// deadline passes or its download budget is used up.
func (t *DownloadToken) IsExpired(now time.Time) bool {
	return t.ExpiresAt.Before(now) || t.DownloadCount >= t.MaxDownloads
}
