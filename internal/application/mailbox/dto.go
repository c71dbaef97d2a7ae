package mailbox

import (
	"time"

	"github.com/floworx/backend/internal/domain/mailbox"
)

// ConnectionInfo describes a user's OAuth link to a provider
type ConnectionInfo struct {
	Provider     string    `json:"provider"`
	Connected    bool      `json:"connected"`
	AccountEmail string    `json:"accountEmail,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt,omitempty"`
}

// NewConnectionInfo maps a stored connection
func NewConnectionInfo(connection *mailbox.Connection) *ConnectionInfo {
	return &ConnectionInfo{
		Provider:     connection.Provider,
		Connected:    true,
		AccountEmail: connection.AccountEmail,
		ExpiresAt:    connection.TokenExpiry,
	}
}

// ProvisionRequest carries an explicit provisioning plan. An empty
// Items list provisions the default plan derived from the user's
// business categories.
type ProvisionRequest struct {
	Items []mailbox.ProvisionItem `json:"items"`
}
