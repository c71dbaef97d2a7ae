package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/floworx/backend/internal/domain/mailbox"
	"github.com/floworx/backend/internal/domain/shared"
)

type memoryConnections struct {
	connections map[string]*mailbox.Connection
	saves       int
}

func newMemoryConnections() *memoryConnections {
	return &memoryConnections{connections: make(map[string]*mailbox.Connection)}
}

func (m *memoryConnections) key(userID uuid.UUID, provider string) string {
	return userID.String() + "/" + provider
}

func (m *memoryConnections) FindByUserAndProvider(_ context.Context, userID uuid.UUID, provider string) (*mailbox.Connection, error) {
	connection, ok := m.connections[m.key(userID, provider)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return connection, nil
}

func (m *memoryConnections) Save(_ context.Context, connection *mailbox.Connection) error {
	m.saves++
	m.connections[m.key(connection.UserID, connection.Provider)] = connection
	return nil
}

func (m *memoryConnections) Delete(_ context.Context, userID uuid.UUID, provider string) error {
	delete(m.connections, m.key(userID, provider))
	return nil
}

func TestTokenSourceNotConnected(t *testing.T) {
	manager := NewManager(testOAuthConfig(), zap.NewNop())
	source := NewConnectionTokenSource(manager, newMemoryConnections(), ProviderGmail, zap.NewNop())

	_, err := source.TokenSource(context.Background(), uuid.New().String())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestTokenSourceRejectsInvalidUserID(t *testing.T) {
	manager := NewManager(testOAuthConfig(), zap.NewNop())
	source := NewConnectionTokenSource(manager, newMemoryConnections(), ProviderGmail, zap.NewNop())

	_, err := source.TokenSource(context.Background(), "not-a-uuid")
	assert.Error(t, err)
}

func TestTokenSourceReturnsStoredToken(t *testing.T) {
	userID := uuid.New()
	repo := newMemoryConnections()
	connection := mailbox.NewConnection(userID, ProviderGmail,
		"valid-access", "refresh", time.Now().Add(time.Hour), "owner@example.com")
	require.NoError(t, repo.Save(context.Background(), connection))
	repo.saves = 0

	manager := NewManager(testOAuthConfig(), zap.NewNop())
	source := NewConnectionTokenSource(manager, repo, ProviderGmail, zap.NewNop())

	ts, err := source.TokenSource(context.Background(), userID.String())
	require.NoError(t, err)

	token, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "valid-access", token.AccessToken)
	assert.Zero(t, repo.saves, "an unexpired token must not trigger a save")
}

func TestTokenSourcePersistsRefreshedToken(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.FormValue("grant_type"))
		assert.Equal(t, "old-refresh", r.FormValue("refresh_token"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "fresh-access",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	defer tokenServer.Close()

	userID := uuid.New()
	repo := newMemoryConnections()
	connection := mailbox.NewConnection(userID, ProviderGmail,
		"stale-access", "old-refresh", time.Now().Add(-time.Hour), "owner@example.com")
	require.NoError(t, repo.Save(context.Background(), connection))
	repo.saves = 0

	manager := NewManager(testOAuthConfig(), zap.NewNop(),
		WithEndpoint(ProviderGmail, oauth2.Endpoint{
			AuthURL:  tokenServer.URL + "/auth",
			TokenURL: tokenServer.URL + "/token",
		}))
	source := NewConnectionTokenSource(manager, repo, ProviderGmail, zap.NewNop())

	ts, err := source.TokenSource(context.Background(), userID.String())
	require.NoError(t, err)

	token, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", token.AccessToken)

	assert.Equal(t, 1, repo.saves)
	stored, err := repo.FindByUserAndProvider(context.Background(), userID, ProviderGmail)
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", stored.AccessToken)
	assert.Equal(t, "old-refresh", stored.RefreshToken, "missing refresh token in response keeps the old one")
}
