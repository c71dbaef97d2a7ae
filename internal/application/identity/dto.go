package identity

import (
	"time"

	"github.com/google/uuid"

	"github.com/floworx/backend/internal/domain/identity"
	"github.com/floworx/backend/internal/infrastructure/auth"
)

// RegisterInput carries the registration form
type RegisterInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	CompanyName string `json:"companyName"`
}

// LoginInput carries login credentials
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	IP       string `json:"-"`
}

// ChangePasswordInput carries a password change request
type ChangePasswordInput struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// ResetPasswordInput carries the reset link token and the new password
type ResetPasswordInput struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// UserInfo is the outward shape of a user account
type UserInfo struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	CompanyName   string    `json:"companyName,omitempty"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
}

// NewUserInfo maps a user aggregate to its outward shape
func NewUserInfo(user *identity.User) UserInfo {
	return UserInfo{
		ID:            user.ID,
		Email:         user.Email,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		CompanyName:   user.CompanyName,
		EmailVerified: user.EmailVerified,
		CreatedAt:     user.CreatedAt,
	}
}

// AuthResult bundles the user with a fresh token pair
type AuthResult struct {
	User   UserInfo       `json:"user"`
	Tokens auth.TokenPair `json:"tokens"`
}
