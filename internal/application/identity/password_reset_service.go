package identity

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/floworx/backend/internal/domain/identity"
	"github.com/floworx/backend/internal/domain/shared"
	"github.com/floworx/backend/internal/infrastructure/auth"
	"github.com/floworx/backend/internal/infrastructure/mailer"
	"github.com/floworx/backend/internal/infrastructure/telemetry"
)

// mailTimeout bounds the SMTP dispatch inside a reset request
const mailTimeout = 10 * time.Second

// PasswordResetService implements the forgot/reset password flow.
// RequestReset answers identically whether or not the email exists, so
// the endpoint cannot be used to enumerate accounts.
type PasswordResetService struct {
	users       identity.UserRepository
	tokens      identity.PasswordResetTokenRepository
	mail        mailer.Mailer
	blacklist   auth.TokenBlacklist
	metrics     *telemetry.BusinessMetrics
	frontendURL string
	tokenTTL    time.Duration
	logger      *zap.Logger
}

// PasswordResetOption configures optional collaborators
type PasswordResetOption func(*PasswordResetService)

// WithResetMetrics wires funnel metrics recording
func WithResetMetrics(metrics *telemetry.BusinessMetrics) PasswordResetOption {
	return func(s *PasswordResetService) {
		s.metrics = metrics
	}
}

// WithTokenTTL overrides the default one-hour token lifetime
func WithTokenTTL(ttl time.Duration) PasswordResetOption {
	return func(s *PasswordResetService) {
		s.tokenTTL = ttl
	}
}

// NewPasswordResetService creates the password reset service
func NewPasswordResetService(
	users identity.UserRepository,
	tokens identity.PasswordResetTokenRepository,
	mail mailer.Mailer,
	blacklist auth.TokenBlacklist,
	frontendURL string,
	logger *zap.Logger,
	opts ...PasswordResetOption,
) *PasswordResetService {
	s := &PasswordResetService{
		users:       users,
		tokens:      tokens,
		mail:        mail,
		blacklist:   blacklist,
		frontendURL: frontendURL,
		tokenTTL:    identity.DefaultResetTokenTTL,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestReset issues a reset token and mails the link. The return is
// always nil for unknown emails; failures past the user lookup are real
// errors and do surface.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		// Deliberately indistinguishable from the success path
		s.logger.Info("Password reset requested for unknown email")
		return nil
	}

	// Older outstanding links stop working once a new one is issued
	if err := s.tokens.InvalidateForUser(ctx, user.ID); err != nil {
		s.logger.Error("Failed to invalidate previous reset tokens", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Could not process reset request, please try again")
	}

	token, rawToken, err := identity.NewPasswordResetToken(user.ID, s.tokenTTL)
	if err != nil {
		s.logger.Error("Failed to create reset token", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Could not process reset request, please try again")
	}
	if err := s.tokens.Save(ctx, token); err != nil {
		s.logger.Error("Failed to save reset token", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Could not process reset request, please try again")
	}

	resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, rawToken)
	subject, body := mailer.PasswordResetEmail(user.FirstName, resetURL)

	mailCtx, cancel := context.WithTimeout(ctx, mailTimeout)
	defer cancel()
	if err := s.mail.Send(mailCtx, user.Email, subject, body); err != nil {
		s.logger.Error("Failed to send reset email",
			zap.String("user_id", user.ID.String()),
			zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Could not send reset email, please try again")
	}

	s.logger.Info("Password reset email sent", zap.String("user_id", user.ID.String()))
	return nil
}

// ResetPassword validates the raw token and stores the new password.
// The token is single-use; every outstanding session is revoked.
func (s *PasswordResetService) ResetPassword(ctx context.Context, input ResetPasswordInput) error {
	token, err := s.tokens.FindByTokenHash(ctx, identity.HashResetToken(input.Token))
	if err != nil {
		return identity.ErrResetTokenInvalid
	}
	if err := token.Validate(); err != nil {
		return err
	}

	user, err := s.users.FindByID(ctx, token.UserID)
	if err != nil {
		return identity.ErrResetTokenInvalid
	}

	if err := user.SetPassword(input.NewPassword); err != nil {
		return err
	}
	if err := s.users.Update(ctx, user); err != nil {
		s.logger.Error("Failed to persist password reset", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Password reset failed, please try again")
	}

	if err := token.MarkUsed(); err != nil {
		return err
	}
	if err := s.tokens.Update(ctx, token); err != nil {
		s.logger.Error("Failed to mark reset token used", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Password reset failed, please try again")
	}

	if s.blacklist != nil {
		if err := s.blacklist.AddUserTokensToBlacklist(ctx, user.ID.String(), 7*24*time.Hour); err != nil {
			s.logger.Error("Failed to revoke sessions after reset", zap.Error(err))
		}
	}

	if s.metrics != nil {
		s.metrics.RecordPasswordReset(ctx)
	}
	s.logger.Info("Password reset completed", zap.String("user_id", user.ID.String()))
	return nil
}

// PurgeExpiredTokens removes stale tokens; intended for a periodic job
func (s *PasswordResetService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return s.tokens.DeleteExpired(ctx, time.Now())
}
