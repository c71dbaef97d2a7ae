package handler

import (
	"github.com/gin-gonic/gin"

	appmailbox "github.com/floworx/backend/internal/application/mailbox"
)

// MailboxHandler exposes mailbox discovery and provisioning
type MailboxHandler struct {
	BaseHandler
	mailboxService *appmailbox.Service
}

// NewMailboxHandler creates a new mailbox handler
func NewMailboxHandler(mailboxService *appmailbox.Service) *MailboxHandler {
	return &MailboxHandler{
		mailboxService: mailboxService,
	}
}

// Discover lists the user's mailbox folders and categories
func (h *MailboxHandler) Discover(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	result, err := h.mailboxService.Discover(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Provision creates folders and categories in the user's mailbox
func (h *MailboxHandler) Provision(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req appmailbox.ProvisionRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		h.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.mailboxService.Provision(c.Request.Context(), userID, req.Items)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Statistics summarizes the mailbox for the wizard header
func (h *MailboxHandler) Statistics(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	stats, err := h.mailboxService.Statistics(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, stats)
}
