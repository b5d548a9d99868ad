package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/digistore/internal/middleware"
	"github.com/example/digistore/internal/models"
	"github.com/example/digistore/internal/utils"
)

// TicketHandler manages support tickets and their reply threads.
type TicketHandler struct {
	db *gorm.DB
}

// NewTicketHandler constructs TicketHandler.
func NewTicketHandler(db *gorm.DB) *TicketHandler {
	return &TicketHandler{db: db}
}

type createTicketRequest struct {
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	Priority string `json:"priority"`
}

// CreateTicket opens a new support ticket.
func (h *TicketHandler) CreateTicket(c *fiber.Ctx) error {
	customerID, ok := middleware.GetCurrentCustomerID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req createTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Subject == "" {
		return fiber.NewError(fiber.StatusBadRequest, "subject is required")
	}

	priority := req.Priority
	if priority == "" {
		priority = "normal"
	}

	ticket := models.SupportTicket{
		CustomerID: customerID,
		Subject:    req.Subject,
		Body:       req.Body,
		Status:     models.TicketStatusOpen,
		Priority:   priority,
	}

	if err := h.db.Create(&ticket).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": ticket})
}

// ListTickets returns the customer's tickets newest-first.
func (h *TicketHandler) ListTickets(c *fiber.Ctx) error {
	customerID, ok := middleware.GetCurrentCustomerID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pg := utils.ParsePagination(c)

	var total int64
	if err := h.db.Model(&models.SupportTicket{}).Where("customer_id = ?", customerID).
		Count(&total).Error; err != nil {
		return err
	}

	var tickets []models.SupportTicket
	if err := h.db.Where("customer_id = ?", customerID).
		Limit(pg.Limit).Offset(pg.Offset).Order("created_at desc").
		Find(&tickets).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    tickets,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// GetTicket returns one ticket with its reply thread.
func (h *TicketHandler) GetTicket(c *fiber.Ctx) error {
	customerID, ok := middleware.GetCurrentCustomerID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	ticketID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid ticket id")
	}

	var ticket models.SupportTicket
	if err := h.db.Preload("Replies", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at asc")
	}).First(&ticket, "id = ? AND customer_id = ?", ticketID, customerID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "ticket not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": ticket})
}

type replyRequest struct {
	Body string `json:"body"`
}

// ReplyTicket appends a customer reply and flags the ticket awaiting_reply.
// Closed tickets reject replies.
func (h *TicketHandler) ReplyTicket(c *fiber.Ctx) error {
	customerID, ok := middleware.GetCurrentCustomerID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	ticketID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid ticket id")
	}

	var req replyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Body == "" {
		return fiber.NewError(fiber.StatusBadRequest, "body is required")
	}

	var ticket models.SupportTicket
	if err := h.db.First(&ticket, "id = ? AND customer_id = ?", ticketID, customerID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "ticket not found")
		}
		return err
	}

	if ticket.Status == models.TicketStatusClosed {
		return fiber.NewError(fiber.StatusConflict, "ticket is closed")
	}

	reply := models.TicketReply{
		TicketID:   ticket.ID,
		AuthorRole: models.ReplyAuthorCustomer,
		Body:       req.Body,
	}

	if err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&reply).Error; err != nil {
			return err
		}
		return tx.Model(&models.SupportTicket{}).Where("id = ?", ticket.ID).
			Update("status", models.TicketStatusAwaitingReply).Error
	}); err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": reply})
}

// CloseTicket lets the customer close their own ticket.
func (h *TicketHandler) CloseTicket(c *fiber.Ctx) error {
	customerID, ok := middleware.GetCurrentCustomerID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	ticketID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid ticket id")
	}

	var ticket models.SupportTicket
	if err := h.db.First(&ticket, "id = ? AND customer_id = ?", ticketID, customerID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "ticket not found")
		}
		return err
	}

	if ticket.Status == models.TicketStatusClosed {
		return fiber.NewError(fiber.StatusConflict, "ticket already closed")
	}

	if err := h.db.Model(&models.SupportTicket{}).Where("id = ?", ticket.ID).
		Update("status", models.TicketStatusClosed).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "message": "ticket closed"})
}
