package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/digistore/internal/models"
)

func TestTicketLifecycle(t *testing.T) {
	app, db, _ := newTestApp(t)
	customer := seedCustomer(t, db, "support@example.com", "secret-pa55")
	session := seedSession(t, db, customer)

	status, body := doJSON(t, app, http.MethodPost, "/api/customer/tickets", map[string]interface{}{
		"subject": "Download link broken",
		"body":    "The toolkit zip 404s.",
	}, session.Token)
	require.Equal(t, http.StatusCreated, status)
	data := body["data"].(map[string]interface{})
	ticketID := data["id"].(string)
	assert.Equal(t, models.TicketStatusOpen, data["status"])

	// A customer reply flags the ticket awaiting_reply.
	status, _ = doJSON(t, app, http.MethodPost, "/api/customer/tickets/"+ticketID+"/replies", map[string]interface{}{
		"body": "Still broken today.",
	}, session.Token)
	require.Equal(t, http.StatusCreated, status)

	var ticket models.SupportTicket
	require.NoError(t, db.First(&ticket, "id = ?", ticketID).Error)
	assert.Equal(t, models.TicketStatusAwaitingReply, ticket.Status)

	status, _ = doJSON(t, app, http.MethodPost, "/api/customer/tickets/"+ticketID+"/close", nil, session.Token)
	require.Equal(t, http.StatusOK, status)

	// Closed tickets reject replies.
	status, body = doJSON(t, app, http.MethodPost, "/api/customer/tickets/"+ticketID+"/replies", map[string]interface{}{
		"body": "One more thing...",
	}, session.Token)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, false, body["success"])

	// And cannot be closed twice.
	status, _ = doJSON(t, app, http.MethodPost, "/api/customer/tickets/"+ticketID+"/close", nil, session.Token)
	assert.Equal(t, http.StatusConflict, status)
}

func TestTicketOwnership(t *testing.T) {
	app, db, _ := newTestApp(t)
	owner := seedCustomer(t, db, "owner@example.com", "secret-pa55")
	ownerSession := seedSession(t, db, owner)
	other := seedCustomer(t, db, "other@example.com", "secret-pa55")
	otherSession := seedSession(t, db, other)

	status, body := doJSON(t, app, http.MethodPost, "/api/customer/tickets", map[string]interface{}{
		"subject": "Billing question",
	}, ownerSession.Token)
	require.Equal(t, http.StatusCreated, status)
	ticketID := body["data"].(map[string]interface{})["id"].(string)

	status, _ = doJSON(t, app, http.MethodGet, "/api/customer/tickets/"+ticketID, nil, otherSession.Token)
	assert.Equal(t, http.StatusNotFound, status)
}
