package models

import (
	"time"

	"github.com/google/uuid"
)

// Order statuses.
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
	OrderStatusFailed    = "failed"
)

// Order health labels derived from delivery states.
const (
	OrderHealthGood    = "good"
	OrderHealthExpired = "expired"
	OrderHealthIssue   = "issue"
)

// stalledAfter marks how long a delivery may sit in pending before the
// order is surfaced as having an issue.
const stalledAfter = 72 * time.Hour

// PendingOrder records a cart-to-purchase transition. The payment reference
// ties the row to the card gateway transaction.
type PendingOrder struct {
	BaseModel
	CustomerID       uuid.UUID   `gorm:"type:uuid;index;not null" json:"customer_id"`
	OrderNumber      string      `gorm:"uniqueIndex;not null" json:"order_number"`
	Status           string      `gorm:"index;default:pending" json:"status"`
	OriginalPrice    float64     `json:"original_price"`
	DiscountAmount   float64     `json:"discount_amount"`
	FinalAmount      float64     `json:"final_amount"`
	Currency         string      `gorm:"default:NGN" json:"currency"`
	AffiliateCode    string      `gorm:"index" json:"affiliate_code"`
	PaymentReference string      `gorm:"index" json:"payment_reference"`
	PaidAt           *time.Time  `json:"paid_at"`
	Items            []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	Deliveries       []Delivery  `gorm:"foreignKey:OrderID" json:"deliveries,omitempty"`
}

// OrderItem snapshots one purchased product line.
type OrderItem struct {
	BaseModel
	OrderID     uuid.UUID `gorm:"type:uuid;index;not null" json:"order_id"`
	ProductID   uuid.UUID `gorm:"type:uuid" json:"product_id"`
	ProductName string    `json:"product_name"`
	ProductType string    `json:"product_type"`
	Quantity    int       `json:"quantity"`
	UnitPrice   float64   `json:"unit_price"`
	LineTotal   float64   `json:"line_total"`
}

// OrderHealth folds delivery states into the order's displayed health: a
// failed or stalled delivery outranks an expired download window, which
// outranks the default good. A max-priority fold, not a state machine.
func OrderHealth(deliveries []Delivery, now time.Time) string {
	rank := 0
	for _, d := range deliveries {
		switch {
		case d.DeliveryStatus == DeliveryStatusFailed:
			rank = 2
		case d.DeliveryStatus == DeliveryStatusPending && now.Sub(d.CreatedAt) > stalledAfter:
			rank = 2
		case d.AccessExpiresAt != nil && d.AccessExpiresAt.Before(now):
			if rank < 1 {
				rank = 1
			}
		}
	}

	switch rank {
	case 2:
		return OrderHealthIssue
	case 1:
		return OrderHealthExpired
	default:
		return OrderHealthGood
	}
}
