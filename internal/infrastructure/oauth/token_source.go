package oauth

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/floworx/backend/internal/domain/mailbox"
	"github.com/floworx/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ConnectionTokenSource yields OAuth tokens for a user's stored mailbox
// connection. Refreshed tokens are written back so the stored access
// token stays current across restarts.
type ConnectionTokenSource struct {
	manager     *Manager
	connections mailbox.ConnectionRepository
	provider    string
	logger      *zap.Logger
}

// NewConnectionTokenSource creates a token source bound to one provider
func NewConnectionTokenSource(
	manager *Manager,
	connections mailbox.ConnectionRepository,
	provider string,
	logger *zap.Logger,
) *ConnectionTokenSource {
	return &ConnectionTokenSource{
		manager:     manager,
		connections: connections,
		provider:    provider,
		logger:      logger,
	}
}

// TokenSource loads the user's connection and wraps it in a refreshing
// token source. Returns shared.ErrNotFound when the user never connected
// this provider.
func (s *ConnectionTokenSource) TokenSource(ctx context.Context, userID string) (oauth2.TokenSource, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Invalid user identifier")
	}

	connection, err := s.connections.FindByUserAndProvider(ctx, uid, s.provider)
	if err != nil {
		return nil, err
	}

	cfg, err := s.manager.Config(s.provider)
	if err != nil {
		return nil, err
	}

	stored := &oauth2.Token{
		AccessToken:  connection.AccessToken,
		RefreshToken: connection.RefreshToken,
		Expiry:       connection.TokenExpiry,
	}

	return &persistingTokenSource{
		ctx:         ctx,
		inner:       cfg.TokenSource(ctx, stored),
		connection:  connection,
		connections: s.connections,
		logger:      s.logger,
	}, nil
}

// persistingTokenSource writes refreshed tokens back to the repository.
// Persistence failures are logged but never fail the request; the
// refreshed token is still valid for the current call.
type persistingTokenSource struct {
	ctx         context.Context
	inner       oauth2.TokenSource
	connection  *mailbox.Connection
	connections mailbox.ConnectionRepository
	logger      *zap.Logger
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.inner.Token()
	if err != nil {
		return nil, err
	}

	if token.AccessToken != s.connection.AccessToken {
		s.connection.UpdateTokens(token.AccessToken, token.RefreshToken, token.Expiry)
		if err := s.connections.Save(s.ctx, s.connection); err != nil {
			s.logger.Warn("failed to persist refreshed mailbox token",
				zap.String("provider", s.connection.Provider),
				zap.String("user_id", s.connection.UserID.String()),
				zap.Error(err))
		}
	}
	return token, nil
}

var _ oauth2.TokenSource = (*persistingTokenSource)(nil)
