package onboarding

import (
	"fmt"
	"strings"
	"time"

	"github.com/floworx/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Provider identifies the connected mailbox service
type Provider string

const (
	ProviderGmail   Provider = "gmail"
	ProviderOutlook Provider = "outlook"
)

// ParseProvider validates a provider name
func ParseProvider(name string) (Provider, bool) {
	switch Provider(strings.ToLower(name)) {
	case ProviderGmail:
		return ProviderGmail, true
	case ProviderOutlook:
		return ProviderOutlook, true
	}
	return "", false
}

// State is the per-user onboarding record. One row per user, created on
// the first status request and mutated slice-by-slice as the wizard
// progresses. Each step owns a disjoint slice; re-submitting a step
// overwrites that slice (last-write-wins).
type State struct {
	shared.OwnedAggregateRoot
	Provider       *Provider      `gorm:"type:varchar(20)"`
	BusinessTypeID *uuid.UUID     `gorm:"type:uuid"`
	Categories     []Category     `gorm:"foreignKey:StateID;constraint:OnDelete:CASCADE"`
	LabelMappings  []LabelMapping `gorm:"foreignKey:StateID;constraint:OnDelete:CASCADE"`
	TeamMembers    []TeamMember   `gorm:"foreignKey:StateID;constraint:OnDelete:CASCADE"`
	TeamSetupDone  bool           `gorm:"not null;default:false"`
	Completed      bool           `gorm:"not null;default:false"`
	CompletedAt    *time.Time
}

// TableName returns the table name for GORM
func (State) TableName() string {
	return "onboarding_states"
}

// NewState creates an empty onboarding state for a user
func NewState(userID uuid.UUID) *State {
	return &State{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(userID),
	}
}

// NextStep computes the wizard step the frontend should render next.
// It is a hint derived from which slices are populated, not a state
// machine: earlier steps stay editable after later ones are filled.
func (s *State) NextStep() Step {
	switch {
	case s.Completed:
		return StepComplete
	case s.Provider == nil:
		return StepEmailProvider
	case s.BusinessTypeID == nil:
		return StepBusinessType
	case len(s.Categories) == 0:
		return StepBusinessCategories
	case len(s.LabelMappings) == 0:
		return StepLabelMapping
	case !s.TeamSetupDone:
		return StepTeamSetup
	default:
		return StepReview
	}
}

// SetProvider records the chosen mailbox provider
func (s *State) SetProvider(p Provider) {
	s.Provider = &p
	s.touch()
}

// SetBusinessType records the selected business type
func (s *State) SetBusinessType(businessTypeID uuid.UUID) {
	s.BusinessTypeID = &businessTypeID
	s.touch()
}

// ReplaceCategories overwrites the category slice. Duplicate names
// (case-insensitive) are rejected. Mappings and team members that
// reference a removed category lose the reference only if the caller
// already confirmed there are no dependents; the service layer enforces
// that before calling.
func (s *State) ReplaceCategories(categories []*Category) error {
	seen := make(map[string]struct{}, len(categories))
	replacement := make([]Category, 0, len(categories))
	for i, c := range categories {
		key := strings.ToLower(c.Name)
		if _, dup := seen[key]; dup {
			return shared.NewDomainError("ALREADY_EXISTS", fmt.Sprintf("Duplicate category name %q", c.Name))
		}
		seen[key] = struct{}{}
		c.Position = i
		replacement = append(replacement, *c)
	}
	s.Categories = replacement
	s.touch()
	return nil
}

// AddCategory appends a category, enforcing case-insensitive uniqueness
func (s *State) AddCategory(name, description string) (*Category, error) {
	if existing := s.FindCategoryByName(name); existing != nil {
		return nil, shared.NewDomainError("ALREADY_EXISTS", fmt.Sprintf("Category %q already exists", existing.Name))
	}
	category, err := NewCategory(s.ID, name, description, len(s.Categories))
	if err != nil {
		return nil, err
	}
	s.Categories = append(s.Categories, *category)
	s.touch()
	return category, nil
}

// RemoveCategory deletes a category by name. It fails with a conflict
// naming the dependents when a label mapping or team member still
// references the category.
func (s *State) RemoveCategory(name string) error {
	category := s.FindCategoryByName(name)
	if category == nil {
		return shared.NewDomainError("NOT_FOUND", fmt.Sprintf("Category %q not found", strings.TrimSpace(name)))
	}

	if dependents := s.categoryDependents(category.ID); len(dependents) > 0 {
		return shared.NewDomainError("CONFLICT",
			fmt.Sprintf("Category %q is still referenced by %s", category.Name, strings.Join(dependents, ", ")))
	}

	kept := make([]Category, 0, len(s.Categories)-1)
	for _, c := range s.Categories {
		if c.ID != category.ID {
			c.Position = len(kept)
			kept = append(kept, c)
		}
	}
	s.Categories = kept
	s.touch()
	return nil
}

// FindCategoryByName looks a category up case-insensitively
func (s *State) FindCategoryByName(name string) *Category {
	for i := range s.Categories {
		if s.Categories[i].NameEquals(name) {
			return &s.Categories[i]
		}
	}
	return nil
}

// FindCategoryByID looks a category up by ID
func (s *State) FindCategoryByID(id uuid.UUID) *Category {
	for i := range s.Categories {
		if s.Categories[i].ID == id {
			return &s.Categories[i]
		}
	}
	return nil
}

// ReplaceLabelMappings overwrites the mapping slice. Every mapping must
// reference an existing category.
func (s *State) ReplaceLabelMappings(mappings []*LabelMapping) error {
	replacement := make([]LabelMapping, 0, len(mappings))
	for _, m := range mappings {
		if s.FindCategoryByID(m.CategoryID) == nil {
			return shared.NewDomainError("INVALID_INPUT", "Label mapping references an unknown category")
		}
		replacement = append(replacement, *m)
	}
	s.LabelMappings = replacement
	s.touch()
	return nil
}

// ReplaceTeamMembers overwrites the team slice. Emails must be unique
// and category references must resolve. An empty slice is valid: team
// setup is an optional step with a "skip for now" escape hatch.
func (s *State) ReplaceTeamMembers(members []*TeamMember) error {
	seen := make(map[string]struct{}, len(members))
	replacement := make([]TeamMember, 0, len(members))
	for _, m := range members {
		if _, dup := seen[m.Email]; dup {
			return shared.NewDomainError("ALREADY_EXISTS", fmt.Sprintf("Duplicate team member email %q", m.Email))
		}
		seen[m.Email] = struct{}{}
		if m.CategoryID != nil && s.FindCategoryByID(*m.CategoryID) == nil {
			return shared.NewDomainError("INVALID_INPUT", "Team member references an unknown category")
		}
		replacement = append(replacement, *m)
	}
	s.TeamMembers = replacement
	s.TeamSetupDone = true
	s.touch()
	return nil
}

// Complete marks onboarding finished. At least one category must exist.
// Calling Complete on an already-completed state is a no-op that raises
// no further event, which keeps activation retries safe.
func (s *State) Complete() error {
	if s.Completed {
		return nil
	}
	if len(s.Categories) == 0 {
		return shared.NewDomainError("VALIDATION_ERROR", "At least one business category is required before activation")
	}

	now := time.Now()
	s.Completed = true
	s.CompletedAt = &now
	s.touch()

	s.AddDomainEvent(NewCompletedEvent(s))
	return nil
}

// categoryDependents lists human-readable references holding a category in place
func (s *State) categoryDependents(categoryID uuid.UUID) []string {
	var dependents []string
	for _, m := range s.LabelMappings {
		if m.CategoryID == categoryID {
			dependents = append(dependents, fmt.Sprintf("label mapping %q", m.MailboxLabelName))
		}
	}
	for _, t := range s.TeamMembers {
		if t.CategoryID != nil && *t.CategoryID == categoryID {
			dependents = append(dependents, fmt.Sprintf("team member %q", t.Email))
		}
	}
	return dependents
}

func (s *State) touch() {
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
}
