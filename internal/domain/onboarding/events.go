package onboarding

import (
	"github.com/floworx/backend/internal/domain/shared"
)

// Event types for the onboarding context
const (
	EventTypeCompleted = "onboarding.completed"
)

// CompletedEvent is raised exactly once when a user activates their
// configuration. The workflow-deployment handler consumes it; the
// idempotency store keyed by user ID guards against duplicate
// deployments if the event is ever re-delivered.
type CompletedEvent struct {
	shared.BaseDomainEvent
	Provider      string `json:"provider,omitempty"`
	CategoryCount int    `json:"category_count"`
}

// NewCompletedEvent creates an onboarding completed event
func NewCompletedEvent(state *State) *CompletedEvent {
	provider := ""
	if state.Provider != nil {
		provider = string(*state.Provider)
	}
	return &CompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCompleted, state.ID, "OnboardingState", state.GetUserID()),
		Provider:        provider,
		CategoryCount:   len(state.Categories),
	}
}
