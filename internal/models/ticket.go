package models

import (
	"github.com/google/uuid"
)

// Ticket statuses and reply author roles.
const (
	TicketStatusOpen          = "open"
	TicketStatusAwaitingReply = "awaiting_reply"
	TicketStatusInProgress    = "in_progress"
	TicketStatusResolved      = "resolved"
	TicketStatusClosed        = "closed"

	ReplyAuthorCustomer = "customer"
	ReplyAuthorSupport  = "support"
)

// SupportTicket is a customer support request with threaded replies.
type SupportTicket struct {
	BaseModel
	CustomerID uuid.UUID     `gorm:"type:uuid;index;not null" json:"customer_id"`
	Subject    string        `gorm:"not null" json:"subject"`
	Body       string        `json:"body"`
	Status     string        `gorm:"index;default:open" json:"status"`
	Priority   string        `gorm:"default:normal" json:"priority"`
	Replies    []TicketReply `gorm:"foreignKey:TicketID" json:"replies,omitempty"`
}

// TicketReply is one message in a ticket thread.
type TicketReply struct {
	BaseModel
	TicketID   uuid.UUID `gorm:"type:uuid;index;not null" json:"ticket_id"`
	AuthorRole string    `gorm:"not null" json:"author_role"`
	Body       string    `gorm:"not null" json:"body"`
}
