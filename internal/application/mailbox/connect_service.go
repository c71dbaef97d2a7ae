package mailbox

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/floworx/backend/internal/domain/mailbox"
	"github.com/floworx/backend/internal/domain/shared"
	"github.com/floworx/backend/internal/infrastructure/oauth"
)

// ConnectService runs the OAuth consent flow that links a mailbox to a
// user account. The state parameter is bound to the initiating user so
// the callback knows who the tokens belong to.
type ConnectService struct {
	manager     *oauth.Manager
	states      *oauth.StateStore
	connections mailbox.ConnectionRepository
	logger      *zap.Logger
}

// NewConnectService creates the OAuth connect service
func NewConnectService(
	manager *oauth.Manager,
	states *oauth.StateStore,
	connections mailbox.ConnectionRepository,
	logger *zap.Logger,
) *ConnectService {
	return &ConnectService{
		manager:     manager,
		states:      states,
		connections: connections,
		logger:      logger,
	}
}

// StartConnect returns the provider consent URL for the user
func (s *ConnectService) StartConnect(_ context.Context, userID uuid.UUID, provider string) (string, error) {
	state, err := oauth.GenerateState()
	if err != nil {
		s.logger.Error("Failed to generate OAuth state", zap.Error(err))
		return "", shared.NewDomainError("INTERNAL_ERROR", "Could not start the connection flow, please retry")
	}

	authURL, err := s.manager.AuthURL(provider, state)
	if err != nil {
		return "", err
	}

	s.states.Save(state, userID, provider)
	return authURL, nil
}

// CompleteConnect exchanges the callback code and stores the grant.
// The state must match a pending flow; each state is single-use.
func (s *ConnectService) CompleteConnect(ctx context.Context, state, code string) (*ConnectionInfo, error) {
	entry, ok := s.states.Consume(state)
	if !ok {
		return nil, shared.NewDomainError("UNAUTHORIZED", "The authorization request has expired, please restart the connection flow")
	}

	token, err := s.manager.Exchange(ctx, entry.Provider, code)
	if err != nil {
		return nil, err
	}

	accountEmail, err := s.manager.AccountEmail(ctx, entry.Provider, token)
	if err != nil {
		// The grant is still usable without the display email
		s.logger.Warn("Failed to resolve account email",
			zap.String("provider", entry.Provider),
			zap.Error(err))
		accountEmail = ""
	}

	connection, err := s.upsertConnection(ctx, entry.UserID, entry.Provider, token, accountEmail)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Mailbox connected",
		zap.String("user_id", entry.UserID.String()),
		zap.String("provider", entry.Provider))
	return NewConnectionInfo(connection), nil
}

// ConnectionStatus reports whether the user has linked the provider
func (s *ConnectService) ConnectionStatus(ctx context.Context, userID uuid.UUID, provider string) (*ConnectionInfo, error) {
	connection, err := s.connections.FindByUserAndProvider(ctx, userID, provider)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return &ConnectionInfo{Provider: provider, Connected: false}, nil
		}
		s.logger.Error("Failed to load mailbox connection",
			zap.String("user_id", userID.String()),
			zap.String("provider", provider),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Could not load the connection, please retry")
	}
	return NewConnectionInfo(connection), nil
}

// Disconnect removes the stored grant for the provider
func (s *ConnectService) Disconnect(ctx context.Context, userID uuid.UUID, provider string) error {
	if err := s.connections.Delete(ctx, userID, provider); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError("NOT_FOUND", "No connection exists for this provider")
		}
		s.logger.Error("Failed to remove mailbox connection",
			zap.String("user_id", userID.String()),
			zap.String("provider", provider),
			zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Could not remove the connection, please retry")
	}
	return nil
}

// upsertConnection stores the token set, replacing an existing grant
// for the same user and provider
func (s *ConnectService) upsertConnection(
	ctx context.Context,
	userID uuid.UUID,
	provider string,
	token *oauth2.Token,
	accountEmail string,
) (*mailbox.Connection, error) {
	connection, err := s.connections.FindByUserAndProvider(ctx, userID, provider)
	switch {
	case err == nil:
		connection.UpdateTokens(token.AccessToken, token.RefreshToken, token.Expiry)
		if accountEmail != "" {
			connection.AccountEmail = accountEmail
		}
	case errors.Is(err, shared.ErrNotFound):
		connection = mailbox.NewConnection(userID, provider, token.AccessToken, token.RefreshToken, token.Expiry, accountEmail)
	default:
		s.logger.Error("Failed to load mailbox connection",
			zap.String("user_id", userID.String()),
			zap.String("provider", provider),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Could not store the connection, please retry")
	}

	if err := s.connections.Save(ctx, connection); err != nil {
		s.logger.Error("Failed to save mailbox connection",
			zap.String("user_id", userID.String()),
			zap.String("provider", provider),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Could not store the connection, please retry")
	}
	return connection, nil
}
