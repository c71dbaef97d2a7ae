package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/floworx/backend/internal/domain/identity"
	"github.com/floworx/backend/internal/infrastructure/auth"
)

func newTestResetService(t *testing.T) (*PasswordResetService, *AuthService, *recordingMailer) {
	t.Helper()
	users := newMemoryUsers()
	mail := &recordingMailer{}
	blacklist := auth.NewInMemoryTokenBlacklist()
	jwt := testJWTService(t)

	authService := NewAuthService(users, jwt, blacklist, DefaultAuthServiceConfig(), zap.NewNop())
	resetService := NewPasswordResetService(users, newMemoryResetTokens(), mail, blacklist,
		"https://app.floworx.test", zap.NewNop())
	return resetService, authService, mail
}

func TestRequestResetUnknownEmailLooksIdentical(t *testing.T) {
	service, _, mail := newTestResetService(t)

	err := service.RequestReset(context.Background(), "nobody@example.com")
	assert.NoError(t, err, "unknown emails must not be distinguishable")
	assert.Empty(t, mail.to, "no mail goes out for unknown emails")
}

func TestResetPasswordFlow(t *testing.T) {
	service, authService, mail := newTestResetService(t)
	ctx := context.Background()

	_, err := authService.Register(ctx, registerInput())
	require.NoError(t, err)

	require.NoError(t, service.RequestReset(ctx, "owner@example.com"))
	require.Len(t, mail.to, 1)
	assert.Equal(t, "owner@example.com", mail.to[0])

	rawToken := mail.lastResetToken(t)
	err = service.ResetPassword(ctx, ResetPasswordInput{Token: rawToken, NewPassword: "N3wPassword!"})
	require.NoError(t, err)

	// Old password stops working, new one logs in
	_, err = authService.Login(ctx, LoginInput{Email: "owner@example.com", Password: "Sup3rSecret!"})
	assert.Error(t, err)
	_, err = authService.Login(ctx, LoginInput{Email: "owner@example.com", Password: "N3wPassword!"})
	assert.NoError(t, err)
}

func TestResetTokenIsSingleUse(t *testing.T) {
	service, authService, mail := newTestResetService(t)
	ctx := context.Background()

	_, err := authService.Register(ctx, registerInput())
	require.NoError(t, err)
	require.NoError(t, service.RequestReset(ctx, "owner@example.com"))

	rawToken := mail.lastResetToken(t)
	require.NoError(t, service.ResetPassword(ctx, ResetPasswordInput{Token: rawToken, NewPassword: "N3wPassword!"}))

	err = service.ResetPassword(ctx, ResetPasswordInput{Token: rawToken, NewPassword: "Y3tAnother!"})
	assert.ErrorIs(t, err, identity.ErrResetTokenUsed)
}

func TestResetPasswordRejectsGarbageToken(t *testing.T) {
	service, _, _ := newTestResetService(t)

	err := service.ResetPassword(context.Background(), ResetPasswordInput{
		Token:       "not-a-real-token",
		NewPassword: "N3wPassword!",
	})
	assert.ErrorIs(t, err, identity.ErrResetTokenInvalid)
}

func TestNewResetRequestInvalidatesOlderLinks(t *testing.T) {
	service, authService, mail := newTestResetService(t)
	ctx := context.Background()

	_, err := authService.Register(ctx, registerInput())
	require.NoError(t, err)

	require.NoError(t, service.RequestReset(ctx, "owner@example.com"))
	firstToken := mail.lastResetToken(t)

	require.NoError(t, service.RequestReset(ctx, "owner@example.com"))

	err = service.ResetPassword(ctx, ResetPasswordInput{Token: firstToken, NewPassword: "N3wPassword!"})
	assert.ErrorIs(t, err, identity.ErrResetTokenUsed)
}
