package onboarding

import (
	"strings"

	"github.com/floworx/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// LabelMapping relates a category to a concrete mailbox label or folder.
// The category reference is by ID; names are resolved at the API edge.
type LabelMapping struct {
	shared.BaseEntity
	StateID          uuid.UUID `gorm:"type:uuid;not null;index"`
	CategoryID       uuid.UUID `gorm:"type:uuid;not null;index"`
	MailboxLabelName string    `gorm:"type:varchar(255);not null"`
}

// TableName returns the table name for GORM
func (LabelMapping) TableName() string {
	return "onboarding_label_mappings"
}

// NewLabelMapping creates a mapping between a category and a mailbox label
func NewLabelMapping(stateID, categoryID uuid.UUID, mailboxLabelName string) (*LabelMapping, error) {
	mailboxLabelName = strings.TrimSpace(mailboxLabelName)
	if mailboxLabelName == "" {
		return nil, shared.NewDomainError("INVALID_LABEL", "Mailbox label name is required")
	}
	return &LabelMapping{
		BaseEntity:       shared.NewBaseEntity(),
		StateID:          stateID,
		CategoryID:       categoryID,
		MailboxLabelName: mailboxLabelName,
	}, nil
}
