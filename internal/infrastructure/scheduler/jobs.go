package scheduler

import (
	"context"

	"go.uber.org/zap"

	"github.com/floworx/backend/internal/application/identity"
)

// TokenPurgeJob deletes expired password reset tokens
type TokenPurgeJob struct {
	resetService *identity.PasswordResetService
	logger       *zap.Logger
}

// NewTokenPurgeJob creates a token purge job
func NewTokenPurgeJob(resetService *identity.PasswordResetService, logger *zap.Logger) *TokenPurgeJob {
	return &TokenPurgeJob{
		resetService: resetService,
		logger:       logger,
	}
}

// Name implements Job
func (j *TokenPurgeJob) Name() string {
	return "password_reset_token_purge"
}

// Run implements Job
func (j *TokenPurgeJob) Run(ctx context.Context) error {
	deleted, err := j.resetService.PurgeExpiredTokens(ctx)
	if err != nil {
		return err
	}
	if deleted > 0 {
		j.logger.Info("Purged expired password reset tokens", zap.Int64("deleted", deleted))
	}
	return nil
}
