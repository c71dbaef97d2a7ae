package onboarding

import (
	"strings"
	"time"

	"github.com/floworx/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Category is a user-defined class of incoming email, e.g. "Sales Inquiries".
// Names are unique per user, case-insensitively.
type Category struct {
	shared.BaseEntity
	StateID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Name        string    `gorm:"type:varchar(100);not null"`
	Description string    `gorm:"type:text"`
	Position    int       `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (Category) TableName() string {
	return "onboarding_categories"
}

// NewCategory creates a category attached to an onboarding state
func NewCategory(stateID uuid.UUID, name, description string, position int) (*Category, error) {
	if err := ValidateCategoryName(name); err != nil {
		return nil, err
	}
	return &Category{
		BaseEntity:  shared.NewBaseEntity(),
		StateID:     stateID,
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		Position:    position,
	}, nil
}

// NameEquals compares category names case-insensitively
func (c *Category) NameEquals(name string) bool {
	return strings.EqualFold(c.Name, strings.TrimSpace(name))
}

// UpdateDescription replaces the category description
func (c *Category) UpdateDescription(description string) {
	c.Description = strings.TrimSpace(description)
	c.UpdatedAt = time.Now()
}

// ValidateCategoryName validates a category name
func ValidateCategoryName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return shared.NewDomainError("INVALID_NAME", "Category name cannot be empty")
	}
	if len(trimmed) > 100 {
		return shared.NewDomainError("INVALID_NAME", "Category name cannot exceed 100 characters")
	}
	return nil
}
