package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/floworx/backend/internal/domain/identity"
	"github.com/floworx/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPasswordResetTokenRepository implements identity.PasswordResetTokenRepository using GORM
type GormPasswordResetTokenRepository struct {
	db *gorm.DB
}

// NewGormPasswordResetTokenRepository creates a new GormPasswordResetTokenRepository
func NewGormPasswordResetTokenRepository(db *gorm.DB) *GormPasswordResetTokenRepository {
	return &GormPasswordResetTokenRepository{db: db}
}

// FindByTokenHash finds a reset token by its SHA-256 hash
func (r *GormPasswordResetTokenRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*identity.PasswordResetToken, error) {
	var token identity.PasswordResetToken
	if err := r.db.WithContext(ctx).
		Where("token_hash = ?", tokenHash).
		First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &token, nil
}

// Save creates a new reset token
func (r *GormPasswordResetTokenRepository) Save(ctx context.Context, token *identity.PasswordResetToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

// Update updates an existing reset token
func (r *GormPasswordResetTokenRepository) Update(ctx context.Context, token *identity.PasswordResetToken) error {
	result := r.db.WithContext(ctx).Save(token)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// InvalidateForUser marks every outstanding token for a user as used.
// Issuing a new token supersedes older ones.
func (r *GormPasswordResetTokenRepository) InvalidateForUser(ctx context.Context, userID uuid.UUID) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&identity.PasswordResetToken{}).
		Where("user_id = ? AND used_at IS NULL", userID).
		Update("used_at", now).Error
}

// DeleteExpired removes tokens whose expiry predates the cutoff
func (r *GormPasswordResetTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ?", before).
		Delete(&identity.PasswordResetToken{})
	return result.RowsAffected, result.Error
}

var _ identity.PasswordResetTokenRepository = (*GormPasswordResetTokenRepository)(nil)
