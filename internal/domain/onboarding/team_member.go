package onboarding

import (
	"strings"

	"github.com/floworx/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// TeamMember is a colleague who receives notifications for a category.
// Unique by email within a user's team. CategoryID is optional; when set
// it must reference one of the user's categories.
type TeamMember struct {
	shared.BaseEntity
	StateID             uuid.UUID  `gorm:"type:uuid;not null;index"`
	Name                string     `gorm:"type:varchar(200);not null"`
	Email               string     `gorm:"type:varchar(255);not null"`
	CategoryID          *uuid.UUID `gorm:"type:uuid;index"`
	NotificationEnabled bool       `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (TeamMember) TableName() string {
	return "onboarding_team_members"
}

// NewTeamMember creates a team member entry
func NewTeamMember(stateID uuid.UUID, name, email string, categoryID *uuid.UUID, notify bool) (*TeamMember, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Team member name is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, shared.NewDomainError("INVALID_EMAIL", "Team member email is not valid")
	}
	return &TeamMember{
		BaseEntity:          shared.NewBaseEntity(),
		StateID:             stateID,
		Name:                name,
		Email:               email,
		CategoryID:          categoryID,
		NotificationEnabled: notify,
	}, nil
}
