package handler

import (
	"encoding/json"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/floworx/backend/internal/application/onboarding"
)

// maxStepPayload bounds a single wizard step body
const maxStepPayload = 256 * 1024

// OnboardingHandler drives the onboarding wizard endpoints
type OnboardingHandler struct {
	BaseHandler
	stateService *onboarding.StateService
}

// NewOnboardingHandler creates a new onboarding handler
func NewOnboardingHandler(stateService *onboarding.StateService) *OnboardingHandler {
	return &OnboardingHandler{
		stateService: stateService,
	}
}

// GetStatus returns the wizard state, creating it on first access
func (h *OnboardingHandler) GetStatus(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	status, err := h.stateService.GetStatus(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, status)
}

// SetStep stores one wizard step. The step name in the path selects the
// payload schema; the raw body is handed to the service so unknown
// fields can be rejected there.
func (h *OnboardingHandler) SetStep(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	stepName := c.Param("step")

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxStepPayload))
	if err != nil {
		h.BadRequest(c, "Could not read request body")
		return
	}

	status, err := h.stateService.SetStep(c.Request.Context(), userID, stepName, json.RawMessage(payload))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, status)
}

// Complete activates the configuration
func (h *OnboardingHandler) Complete(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	status, err := h.stateService.Complete(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, status)
}
