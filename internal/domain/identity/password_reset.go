package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/floworx/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// DefaultResetTokenTTL is how long a reset token stays valid
const DefaultResetTokenTTL = time.Hour

// resetTokenBytes yields a 64-char hex token, well above the 32-char floor
const resetTokenBytes = 32

// Reset token validation errors
var (
	ErrResetTokenInvalid = shared.NewDomainError("TOKEN_INVALID", "Password reset token is invalid")
	ErrResetTokenExpired = shared.NewDomainError("TOKEN_EXPIRED", "Password reset token has expired")
	ErrResetTokenUsed    = shared.NewDomainError("TOKEN_USED", "Password reset token has already been used")
)

// PasswordResetToken is a single-use token mailed to the user.
// Only the SHA-256 digest is persisted; the raw token travels in the
// reset link and is never stored.
type PasswordResetToken struct {
	shared.BaseEntity
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	TokenHash string    `gorm:"type:varchar(64);not null;uniqueIndex"`
	ExpiresAt time.Time `gorm:"not null"`
	UsedAt    *time.Time
}

// TableName returns the table name for GORM
func (PasswordResetToken) TableName() string {
	return "password_reset_tokens"
}

// NewPasswordResetToken creates a token for the user and returns the
// entity together with the raw token to embed in the reset link.
func NewPasswordResetToken(userID uuid.UUID, ttl time.Duration) (*PasswordResetToken, string, error) {
	raw := make([]byte, resetTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, "", err
	}
	rawToken := hex.EncodeToString(raw)

	token := &PasswordResetToken{
		BaseEntity: shared.NewBaseEntity(),
		UserID:     userID,
		TokenHash:  HashResetToken(rawToken),
		ExpiresAt:  time.Now().Add(ttl),
	}
	return token, rawToken, nil
}

// HashResetToken returns the hex SHA-256 digest of a raw token
func HashResetToken(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(sum[:])
}

// Validate checks expiry and single-use state
func (t *PasswordResetToken) Validate() error {
	if t.UsedAt != nil {
		return ErrResetTokenUsed
	}
	if time.Now().After(t.ExpiresAt) {
		return ErrResetTokenExpired
	}
	return nil
}

// MarkUsed consumes the token. Returns an error on reuse.
func (t *PasswordResetToken) MarkUsed() error {
	if t.UsedAt != nil {
		return ErrResetTokenUsed
	}
	now := time.Now()
	t.UsedAt = &now
	t.UpdatedAt = now
	return nil
}

// PasswordResetTokenRepository defines persistence for reset tokens
type PasswordResetTokenRepository interface {
	FindByTokenHash(ctx context.Context, tokenHash string) (*PasswordResetToken, error)
	Save(ctx context.Context, token *PasswordResetToken) error
	Update(ctx context.Context, token *PasswordResetToken) error
	// InvalidateForUser marks every outstanding token for the user as
	// used, so only the most recent reset link can succeed.
	InvalidateForUser(ctx context.Context, userID uuid.UUID) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
