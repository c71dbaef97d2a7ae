package persistence

import (
	"context"
	"errors"

	"github.com/floworx/backend/internal/domain/onboarding"
	"github.com/floworx/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStateRepository implements onboarding.StateRepository using GORM
type GormStateRepository struct {
	db *gorm.DB
}

// NewGormStateRepository creates a new GormStateRepository
func NewGormStateRepository(db *gorm.DB) *GormStateRepository {
	return &GormStateRepository{db: db}
}

// FindByUserID loads the onboarding state for a user with all child
// collections attached.
func (r *GormStateRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*onboarding.State, error) {
	var state onboarding.State
	if err := r.db.WithContext(ctx).
		Preload("Categories", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC, created_at ASC") }).
		Preload("LabelMappings").
		Preload("TeamMembers").
		Where("user_id = ?", userID).
		First(&state).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &state, nil
}

// Save upserts the state and reconciles child collections: rows that
// left the aggregate since the last load are removed.
func (r *GormStateRepository) Save(ctx context.Context, state *onboarding.State) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(state).Error; err != nil {
			return err
		}

		if err := deleteOrphans(tx, &onboarding.Category{}, state.ID, categoryIDs(state.Categories)); err != nil {
			return err
		}
		if err := deleteOrphans(tx, &onboarding.LabelMapping{}, state.ID, labelMappingIDs(state.LabelMappings)); err != nil {
			return err
		}
		return deleteOrphans(tx, &onboarding.TeamMember{}, state.ID, teamMemberIDs(state.TeamMembers))
	})
}

// Delete removes the state for a user; children go with it via the
// cascading foreign keys.
func (r *GormStateRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&onboarding.State{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func deleteOrphans(tx *gorm.DB, model any, stateID uuid.UUID, keep []uuid.UUID) error {
	query := tx.Where("state_id = ?", stateID)
	if len(keep) > 0 {
		query = query.Where("id NOT IN ?", keep)
	}
	return query.Delete(model).Error
}

func categoryIDs(categories []onboarding.Category) []uuid.UUID {
	ids := make([]uuid.UUID, len(categories))
	for i := range categories {
		ids[i] = categories[i].ID
	}
	return ids
}

func labelMappingIDs(mappings []onboarding.LabelMapping) []uuid.UUID {
	ids := make([]uuid.UUID, len(mappings))
	for i := range mappings {
		ids[i] = mappings[i].ID
	}
	return ids
}

func teamMemberIDs(members []onboarding.TeamMember) []uuid.UUID {
	ids := make([]uuid.UUID, len(members))
	for i := range members {
		ids[i] = members[i].ID
	}
	return ids
}

var _ onboarding.StateRepository = (*GormStateRepository)(nil)
