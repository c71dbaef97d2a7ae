package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/floworx/backend/internal/domain/shared"
	"github.com/floworx/backend/internal/infrastructure/auth"
)

func newTestAuthService(t *testing.T) (*AuthService, *memoryUsers) {
	t.Helper()
	users := newMemoryUsers()
	service := NewAuthService(users, testJWTService(t), auth.NewInMemoryTokenBlacklist(),
		DefaultAuthServiceConfig(), zap.NewNop())
	return service, users
}

func registerInput() RegisterInput {
	return RegisterInput{
		Email:     "owner@example.com",
		Password:  "Sup3rSecret!",
		FirstName: "Ada",
		LastName:  "Lovelace",
	}
}

func TestRegisterAndLogin(t *testing.T) {
	service, _ := newTestAuthService(t)
	ctx := context.Background()

	result, err := service.Register(ctx, registerInput())
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", result.User.Email)
	assert.NotEmpty(t, result.Tokens.AccessToken)
	assert.NotEmpty(t, result.Tokens.RefreshToken)

	login, err := service.Login(ctx, LoginInput{Email: "Owner@Example.com", Password: "Sup3rSecret!"})
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, login.User.ID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	service, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := service.Register(ctx, registerInput())
	require.NoError(t, err)

	_, err = service.Register(ctx, registerInput())
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "ALREADY_EXISTS", domainErr.Code)
}

func TestLoginWrongPasswordAndUnknownEmailLookAlike(t *testing.T) {
	service, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := service.Register(ctx, registerInput())
	require.NoError(t, err)

	_, wrongPassword := errString(service.Login(ctx, LoginInput{Email: "owner@example.com", Password: "nope-nope"}))
	_, unknownEmail := errString(service.Login(ctx, LoginInput{Email: "ghost@example.com", Password: "nope-nope"}))
	assert.Equal(t, wrongPassword, unknownEmail, "credential errors must not reveal which emails exist")
}

func errString(result *AuthResult, err error) (*AuthResult, string) {
	if err == nil {
		return result, ""
	}
	return result, err.Error()
}

func TestLoginLockoutAfterRepeatedFailures(t *testing.T) {
	service, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := service.Register(ctx, registerInput())
	require.NoError(t, err)

	var lastErr error
	for i := 0; i < DefaultAuthServiceConfig().MaxLoginAttempts; i++ {
		_, lastErr = service.Login(ctx, LoginInput{Email: "owner@example.com", Password: "wrong"})
	}
	var domainErr *shared.DomainError
	require.ErrorAs(t, lastErr, &domainErr)
	assert.Equal(t, "ACCOUNT_LOCKED", domainErr.Code)

	// The right password is also rejected while locked
	_, err = service.Login(ctx, LoginInput{Email: "owner@example.com", Password: "Sup3rSecret!"})
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "ACCOUNT_LOCKED", domainErr.Code)
}

func TestRefreshRotatesTokens(t *testing.T) {
	service, _ := newTestAuthService(t)
	ctx := context.Background()

	result, err := service.Register(ctx, registerInput())
	require.NoError(t, err)

	pair, err := service.Refresh(ctx, result.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)

	_, err = service.Refresh(ctx, "garbage-token")
	assert.Error(t, err)
}

func TestChangePasswordRevokesRefreshTokens(t *testing.T) {
	service, _ := newTestAuthService(t)
	ctx := context.Background()

	result, err := service.Register(ctx, registerInput())
	require.NoError(t, err)

	err = service.ChangePassword(ctx, result.User.ID, ChangePasswordInput{
		OldPassword: "Sup3rSecret!",
		NewPassword: "An0therSecret!",
	})
	require.NoError(t, err)

	// Old refresh token is now rejected; the new password works
	_, err = service.Refresh(ctx, result.Tokens.RefreshToken)
	assert.Error(t, err)

	_, err = service.Login(ctx, LoginInput{Email: "owner@example.com", Password: "An0therSecret!"})
	assert.NoError(t, err)
}

func TestGetCurrentUser(t *testing.T) {
	service, _ := newTestAuthService(t)
	ctx := context.Background()

	result, err := service.Register(ctx, registerInput())
	require.NoError(t, err)

	info, err := service.GetCurrentUser(ctx, result.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", info.FirstName)
}
