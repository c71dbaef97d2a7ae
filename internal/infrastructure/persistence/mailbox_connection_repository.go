package persistence

import (
	"context"
	"errors"

	"github.com/floworx/backend/internal/domain/mailbox"
	"github.com/floworx/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormConnectionRepository implements mailbox.ConnectionRepository using GORM
type GormConnectionRepository struct {
	db *gorm.DB
}

// NewGormConnectionRepository creates a new GormConnectionRepository
func NewGormConnectionRepository(db *gorm.DB) *GormConnectionRepository {
	return &GormConnectionRepository{db: db}
}

// FindByUserAndProvider finds a connection for a user and provider
func (r *GormConnectionRepository) FindByUserAndProvider(ctx context.Context, userID uuid.UUID, provider string) (*mailbox.Connection, error) {
	var connection mailbox.Connection
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, provider).
		First(&connection).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &connection, nil
}

// Save upserts a connection; re-authorizing replaces the stored tokens
func (r *GormConnectionRepository) Save(ctx context.Context, connection *mailbox.Connection) error {
	return r.db.WithContext(ctx).Save(connection).Error
}

// Delete removes a connection for a user and provider
func (r *GormConnectionRepository) Delete(ctx context.Context, userID uuid.UUID, provider string) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, provider).
		Delete(&mailbox.Connection{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ mailbox.ConnectionRepository = (*GormConnectionRepository)(nil)
