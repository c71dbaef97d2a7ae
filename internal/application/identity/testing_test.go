package identity

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/floworx/backend/internal/domain/identity"
	"github.com/floworx/backend/internal/domain/shared"
	"github.com/floworx/backend/internal/infrastructure/auth"
	"github.com/floworx/backend/internal/infrastructure/config"
)

// memoryUsers is an in-memory identity.UserRepository
type memoryUsers struct {
	byID map[uuid.UUID]*identity.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byID: make(map[uuid.UUID]*identity.User)}
}

func (m *memoryUsers) FindByID(_ context.Context, id uuid.UUID) (*identity.User, error) {
	user, ok := m.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

func (m *memoryUsers) FindByEmail(_ context.Context, email string) (*identity.User, error) {
	normalized := identity.NormalizeEmail(email)
	for _, user := range m.byID {
		if user.Email == normalized {
			return user, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memoryUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := m.FindByEmail(ctx, email)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (m *memoryUsers) Save(_ context.Context, user *identity.User) error {
	m.byID[user.ID] = user
	return nil
}

func (m *memoryUsers) Update(_ context.Context, user *identity.User) error {
	if _, ok := m.byID[user.ID]; !ok {
		return shared.ErrNotFound
	}
	m.byID[user.ID] = user
	return nil
}

func (m *memoryUsers) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.byID, id)
	return nil
}

// memoryResetTokens is an in-memory identity.PasswordResetTokenRepository
type memoryResetTokens struct {
	byHash map[string]*identity.PasswordResetToken
}

func newMemoryResetTokens() *memoryResetTokens {
	return &memoryResetTokens{byHash: make(map[string]*identity.PasswordResetToken)}
}

func (m *memoryResetTokens) FindByTokenHash(_ context.Context, tokenHash string) (*identity.PasswordResetToken, error) {
	token, ok := m.byHash[tokenHash]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return token, nil
}

func (m *memoryResetTokens) Save(_ context.Context, token *identity.PasswordResetToken) error {
	m.byHash[token.TokenHash] = token
	return nil
}

func (m *memoryResetTokens) Update(_ context.Context, token *identity.PasswordResetToken) error {
	m.byHash[token.TokenHash] = token
	return nil
}

func (m *memoryResetTokens) InvalidateForUser(_ context.Context, userID uuid.UUID) error {
	now := time.Now()
	for _, token := range m.byHash {
		if token.UserID == userID && token.UsedAt == nil {
			token.UsedAt = &now
		}
	}
	return nil
}

func (m *memoryResetTokens) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	var deleted int64
	for hash, token := range m.byHash {
		if token.ExpiresAt.Before(before) {
			delete(m.byHash, hash)
			deleted++
		}
	}
	return deleted, nil
}

// recordingMailer captures sent mail
type recordingMailer struct {
	to       []string
	subjects []string
	bodies   []string
}

func (m *recordingMailer) Send(_ context.Context, to, subject, body string) error {
	m.to = append(m.to, to)
	m.subjects = append(m.subjects, subject)
	m.bodies = append(m.bodies, body)
	return nil
}

func (m *recordingMailer) lastResetToken(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, m.bodies)
	body := m.bodies[len(m.bodies)-1]
	idx := strings.Index(body, "token=")
	require.GreaterOrEqual(t, idx, 0)
	rest := body[idx+len("token="):]
	end := strings.IndexAny(rest, "\"& \n")
	require.Greater(t, end, 0)
	return rest[:end]
}

func testJWTService(t *testing.T) *auth.JWTService {
	t.Helper()
	return auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-access-secret-32-characters!!",
		RefreshSecret:          "test-refresh-secret-32-characters!",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "floworx-test",
	})
}

var _ identity.UserRepository = (*memoryUsers)(nil)
var _ identity.PasswordResetTokenRepository = (*memoryResetTokens)(nil)
