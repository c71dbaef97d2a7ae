package onboarding

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/floworx/backend/internal/domain/shared"
)

func newTestCategoryService() (*CategoryService, *StateService) {
	states := newMemoryStates()
	stateService := NewStateService(states, zap.NewNop())
	return NewCategoryService(stateService, states, zap.NewNop()), stateService
}

func TestAddCategoryRejectsCaseInsensitiveDuplicate(t *testing.T) {
	service, _ := newTestCategoryService()
	userID := uuid.New()
	ctx := context.Background()

	_, err := service.AddCategory(ctx, userID, "Sales", "inbound leads")
	require.NoError(t, err)

	_, err = service.AddCategory(ctx, userID, "SALES", "")
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "ALREADY_EXISTS", domainErr.Code)
}

func TestListCategoriesKeepsInsertionOrder(t *testing.T) {
	service, _ := newTestCategoryService()
	userID := uuid.New()
	ctx := context.Background()

	for _, name := range []string{"Sales", "Support", "Billing"} {
		_, err := service.AddCategory(ctx, userID, name, "")
		require.NoError(t, err)
	}

	categories, err := service.ListCategories(ctx, userID)
	require.NoError(t, err)
	require.Len(t, categories, 3)
	assert.Equal(t, "Sales", categories[0].Name)
	assert.Equal(t, "Support", categories[1].Name)
	assert.Equal(t, "Billing", categories[2].Name)
	assert.Equal(t, 2, categories[2].Position)
}

func TestRemoveCategoryWithDependentsConflicts(t *testing.T) {
	service, stateService := newTestCategoryService()
	userID := uuid.New()
	ctx := context.Background()

	_, err := service.AddCategory(ctx, userID, "Sales", "")
	require.NoError(t, err)

	_, err = stateService.SetStep(ctx, userID, "label-mapping",
		mustJSON(t, LabelMappingPayload{Mappings: []MappingInput{{CategoryName: "Sales", Label: "FloWorx/Sales"}}}))
	require.NoError(t, err)

	err = service.RemoveCategory(ctx, userID, "Sales")
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "CONFLICT", domainErr.Code)
	assert.Contains(t, domainErr.Message, "FloWorx/Sales", "the conflict names its dependents")

	// Clearing the mapping unblocks the removal
	_, err = stateService.SetStep(ctx, userID, "label-mapping",
		mustJSON(t, LabelMappingPayload{Mappings: []MappingInput{}}))
	require.NoError(t, err)
	assert.NoError(t, service.RemoveCategory(ctx, userID, "sales"))
}

func TestRemoveUnknownCategory(t *testing.T) {
	service, _ := newTestCategoryService()

	err := service.RemoveCategory(context.Background(), uuid.New(), "ghosts")
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}
