package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/floworx/backend/internal/application/identity"
)

// PasswordResetHandler handles the reset-link flow
type PasswordResetHandler struct {
	BaseHandler
	resetService *identity.PasswordResetService
	logger       *zap.Logger
}

// NewPasswordResetHandler creates a new password reset handler
func NewPasswordResetHandler(resetService *identity.PasswordResetService, logger *zap.Logger) *PasswordResetHandler {
	return &PasswordResetHandler{
		resetService: resetService,
		logger:       logger,
	}
}

// Request sends a reset link when the account exists. The response is
// identical for known and unknown emails so the endpoint cannot be
// used to enumerate accounts.
func (h *PasswordResetHandler) Request(c *gin.Context) {
	var req PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.resetService.RequestReset(c.Request.Context(), req.Email); err != nil {
		// Delivery failures are logged server-side; the caller still
		// gets the uniform answer.
		h.logger.Error("Password reset request failed", zap.Error(err))
	}

	h.Success(c, MessageResponse{
		Message: "If an account exists for that email, a reset link has been sent",
	})
}

// Confirm redeems a reset link and sets the new password
func (h *PasswordResetHandler) Confirm(c *gin.Context) {
	var req PasswordResetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	err := h.resetService.ResetPassword(c.Request.Context(), identity.ResetPasswordInput{
		Token:       req.Token,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, MessageResponse{Message: "Password has been reset"})
}
