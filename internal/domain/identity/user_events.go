package identity

import (
	"github.com/floworx/backend/internal/domain/shared"
)

// Event types for the identity context
const (
	EventTypeUserRegistered      = "identity.user.registered"
	EventTypeUserPasswordChanged = "identity.user.password_changed"
	EventTypeUserPasswordReset   = "identity.user.password_reset"
)

// UserRegisteredEvent is raised when a new account is created
type UserRegisteredEvent struct {
	shared.BaseDomainEvent
	Email       string `json:"email"`
	CompanyName string `json:"company_name,omitempty"`
}

// NewUserRegisteredEvent creates a new user registered event
func NewUserRegisteredEvent(user *User) *UserRegisteredEvent {
	return &UserRegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserRegistered, user.ID, "User", user.ID),
		Email:           user.Email,
		CompanyName:     user.CompanyName,
	}
}

// UserPasswordChangedEvent is raised when a password is updated
type UserPasswordChangedEvent struct {
	shared.BaseDomainEvent
}

// NewUserPasswordChangedEvent creates a new password changed event
func NewUserPasswordChangedEvent(user *User) *UserPasswordChangedEvent {
	return &UserPasswordChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserPasswordChanged, user.ID, "User", user.ID),
	}
}
