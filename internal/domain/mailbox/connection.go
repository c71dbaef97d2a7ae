package mailbox

import (
	"context"
	"time"

	"github.com/floworx/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Connection stores the OAuth grant linking a user to their mailbox.
// One connection per user and provider; re-authorizing overwrites the
// stored token set.
type Connection struct {
	shared.BaseAggregateRoot
	UserID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_connection_user_provider,priority:1"`
	Provider     string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_connection_user_provider,priority:2"`
	AccessToken  string    `gorm:"type:text;not null"`
	RefreshToken string    `gorm:"type:text"`
	TokenExpiry  time.Time `gorm:"not null"`
	AccountEmail string    `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (Connection) TableName() string {
	return "mailbox_connections"
}

// NewConnection creates a mailbox connection for a user
func NewConnection(userID uuid.UUID, provider, accessToken, refreshToken string, expiry time.Time, accountEmail string) *Connection {
	return &Connection{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		UserID:            userID,
		Provider:          provider,
		AccessToken:       accessToken,
		RefreshToken:      refreshToken,
		TokenExpiry:       expiry,
		AccountEmail:      accountEmail,
	}
}

// UpdateTokens replaces the stored token set after a refresh or re-consent
func (c *Connection) UpdateTokens(accessToken, refreshToken string, expiry time.Time) {
	c.AccessToken = accessToken
	if refreshToken != "" {
		c.RefreshToken = refreshToken
	}
	c.TokenExpiry = expiry
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
}

// IsExpired reports whether the access token needs refreshing
func (c *Connection) IsExpired() bool {
	return time.Now().After(c.TokenExpiry.Add(-time.Minute))
}

// ConnectionRepository defines persistence for mailbox connections
type ConnectionRepository interface {
	FindByUserAndProvider(ctx context.Context, userID uuid.UUID, provider string) (*Connection, error)
	Save(ctx context.Context, connection *Connection) error
	Delete(ctx context.Context, userID uuid.UUID, provider string) error
}
