package onboarding

import (
	"time"

	"github.com/google/uuid"

	"github.com/floworx/backend/internal/domain/onboarding"
)

// EmailProviderPayload is the email-provider step body
type EmailProviderPayload struct {
	Provider string `json:"provider"`
}

// BusinessTypePayload is the business-type step body
type BusinessTypePayload struct {
	BusinessTypeID uuid.UUID `json:"businessTypeId"`
}

// CategoryInput is one category in the business-categories step body
type CategoryInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// BusinessCategoriesPayload is the business-categories step body
type BusinessCategoriesPayload struct {
	Categories []CategoryInput `json:"categories"`
}

// MappingInput relates a category to a mailbox label. The category may
// be referenced by ID or by name; names are resolved here at the edge.
type MappingInput struct {
	CategoryID   *uuid.UUID `json:"categoryId,omitempty"`
	CategoryName string     `json:"categoryName,omitempty"`
	Label        string     `json:"label"`
}

// LabelMappingPayload is the label-mapping step body
type LabelMappingPayload struct {
	Mappings []MappingInput `json:"mappings"`
}

// MemberInput is one colleague in the team-setup step body
type MemberInput struct {
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	CategoryID    *uuid.UUID `json:"categoryId,omitempty"`
	CategoryName  string     `json:"categoryName,omitempty"`
	Notifications *bool      `json:"notifications,omitempty"`
}

// TeamSetupPayload is the team-setup step body. An empty member list is
// a valid "skip for now".
type TeamSetupPayload struct {
	Members []MemberInput `json:"members"`
}

// CategoryDTO is the outward shape of a business category
type CategoryDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Position    int       `json:"position"`
}

// MappingDTO is the outward shape of a label mapping
type MappingDTO struct {
	ID         uuid.UUID `json:"id"`
	CategoryID uuid.UUID `json:"categoryId"`
	Label      string    `json:"label"`
}

// MemberDTO is the outward shape of a team member
type MemberDTO struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	CategoryID    *uuid.UUID `json:"categoryId,omitempty"`
	Notifications bool       `json:"notifications"`
}

// StatusResult is the wizard status answer
type StatusResult struct {
	NextStep       string        `json:"nextStep"`
	Completed      bool          `json:"completed"`
	CompletedAt    *time.Time    `json:"completedAt,omitempty"`
	Provider       string        `json:"provider,omitempty"`
	BusinessTypeID *uuid.UUID    `json:"businessTypeId,omitempty"`
	Categories     []CategoryDTO `json:"categories"`
	LabelMappings  []MappingDTO  `json:"labelMappings"`
	TeamMembers    []MemberDTO   `json:"teamMembers"`
}

// NewStatusResult maps the state aggregate to its outward shape
func NewStatusResult(state *onboarding.State) *StatusResult {
	result := &StatusResult{
		NextStep:       string(state.NextStep()),
		Completed:      state.Completed,
		CompletedAt:    state.CompletedAt,
		BusinessTypeID: state.BusinessTypeID,
		Categories:     make([]CategoryDTO, 0, len(state.Categories)),
		LabelMappings:  make([]MappingDTO, 0, len(state.LabelMappings)),
		TeamMembers:    make([]MemberDTO, 0, len(state.TeamMembers)),
	}
	if state.Provider != nil {
		result.Provider = string(*state.Provider)
	}
	for _, c := range state.Categories {
		result.Categories = append(result.Categories, CategoryDTO{
			ID:          c.ID,
			Name:        c.Name,
			Description: c.Description,
			Position:    c.Position,
		})
	}
	for _, m := range state.LabelMappings {
		result.LabelMappings = append(result.LabelMappings, MappingDTO{
			ID:         m.ID,
			CategoryID: m.CategoryID,
			Label:      m.MailboxLabelName,
		})
	}
	for _, m := range state.TeamMembers {
		result.TeamMembers = append(result.TeamMembers, MemberDTO{
			ID:            m.ID,
			Name:          m.Name,
			Email:         m.Email,
			CategoryID:    m.CategoryID,
			Notifications: m.NotificationEnabled,
		})
	}
	return result
}
