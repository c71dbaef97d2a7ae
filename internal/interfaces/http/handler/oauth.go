package handler

import (
	"github.com/gin-gonic/gin"

	appmailbox "github.com/floworx/backend/internal/application/mailbox"
)

// OAuthHandler runs the mailbox OAuth consent flow
type OAuthHandler struct {
	BaseHandler
	connectService *appmailbox.ConnectService
}

// NewOAuthHandler creates a new OAuth handler
func NewOAuthHandler(connectService *appmailbox.ConnectService) *OAuthHandler {
	return &OAuthHandler{
		connectService: connectService,
	}
}

// Connect returns the provider consent URL for the authenticated user
func (h *OAuthHandler) Connect(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	authURL, err := h.connectService.StartConnect(c.Request.Context(), userID, c.Param("provider"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"authUrl": authURL})
}

// Callback completes the consent flow. It is unauthenticated: the
// single-use state parameter identifies the user who started the flow.
func (h *OAuthHandler) Callback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		h.BadRequest(c, "Missing state or code parameter")
		return
	}

	info, err := h.connectService.CompleteConnect(c.Request.Context(), state, code)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, info)
}

// Status reports whether the provider is linked
func (h *OAuthHandler) Status(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	info, err := h.connectService.ConnectionStatus(c.Request.Context(), userID, c.Param("provider"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, info)
}

// Disconnect removes the stored grant
func (h *OAuthHandler) Disconnect(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	if err := h.connectService.Disconnect(c.Request.Context(), userID, c.Param("provider")); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}
