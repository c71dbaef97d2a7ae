package onboarding

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/floworx/backend/internal/domain/onboarding"
	"github.com/floworx/backend/internal/domain/shared"
)

// CategoryService manages the user's business categories outside the
// bulk step submission: individual add, remove, and list.
type CategoryService struct {
	stateService *StateService
	states       onboarding.StateRepository
	logger       *zap.Logger
}

// NewCategoryService creates the category service
func NewCategoryService(stateService *StateService, states onboarding.StateRepository, logger *zap.Logger) *CategoryService {
	return &CategoryService{
		stateService: stateService,
		states:       states,
		logger:       logger,
	}
}

// AddCategory appends a category. Case-insensitive duplicates conflict.
func (s *CategoryService) AddCategory(ctx context.Context, userID uuid.UUID, name, description string) (*CategoryDTO, error) {
	state, err := s.stateService.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	category, err := state.AddCategory(name, description)
	if err != nil {
		return nil, err
	}

	if err := s.states.Save(ctx, state); err != nil {
		s.logger.Error("Failed to save category",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Could not save category, please retry")
	}

	return &CategoryDTO{
		ID:          category.ID,
		Name:        category.Name,
		Description: category.Description,
		Position:    category.Position,
	}, nil
}

// RemoveCategory deletes a category by name. Label mappings or team
// members still referencing it block the removal with a conflict that
// names the dependents.
func (s *CategoryService) RemoveCategory(ctx context.Context, userID uuid.UUID, name string) error {
	state, err := s.stateService.getOrCreate(ctx, userID)
	if err != nil {
		return err
	}

	if err := state.RemoveCategory(name); err != nil {
		return err
	}

	if err := s.states.Save(ctx, state); err != nil {
		s.logger.Error("Failed to save category removal",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Could not remove category, please retry")
	}
	return nil
}

// ListCategories returns the user's categories in insertion order
func (s *CategoryService) ListCategories(ctx context.Context, userID uuid.UUID) ([]CategoryDTO, error) {
	state, err := s.stateService.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	categories := make([]CategoryDTO, 0, len(state.Categories))
	for _, c := range state.Categories {
		categories = append(categories, CategoryDTO{
			ID:          c.ID,
			Name:        c.Name,
			Description: c.Description,
			Position:    c.Position,
		})
	}
	return categories, nil
}
