package mailbox

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/floworx/backend/internal/domain/mailbox"
	"github.com/floworx/backend/internal/domain/onboarding"
	"github.com/floworx/backend/internal/domain/shared"
	"github.com/floworx/backend/internal/infrastructure/mailprovider"
)

// memoryStates is an in-memory onboarding.StateRepository
type memoryStates struct {
	byUser map[uuid.UUID]*onboarding.State
}

func newMemoryStates() *memoryStates {
	return &memoryStates{byUser: make(map[uuid.UUID]*onboarding.State)}
}

func (m *memoryStates) FindByUserID(_ context.Context, userID uuid.UUID) (*onboarding.State, error) {
	state, ok := m.byUser[userID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return state, nil
}

func (m *memoryStates) Save(_ context.Context, state *onboarding.State) error {
	m.byUser[state.UserID] = state
	return nil
}

func (m *memoryStates) Delete(_ context.Context, userID uuid.UUID) error {
	delete(m.byUser, userID)
	return nil
}

// fakeProvider records provisioning calls and answers with canned data
type fakeProvider struct {
	name      string
	discover  *mailbox.DiscoverResult
	stats     *mailbox.Statistics
	lastItems []mailbox.ProvisionItem
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Discover(context.Context, string) (*mailbox.DiscoverResult, error) {
	return p.discover, nil
}

func (p *fakeProvider) Provision(_ context.Context, _ string, items []mailbox.ProvisionItem) (*mailbox.ProvisionResult, error) {
	p.lastItems = items
	result := mailbox.NewProvisionResult()
	for _, item := range items {
		result.Created = append(result.Created, item.FullPath())
	}
	return result, nil
}

func (p *fakeProvider) FindByPath(context.Context, string, []string) (*mailbox.Folder, error) {
	return nil, shared.ErrNotFound
}

func (p *fakeProvider) FindByName(context.Context, string, string) (*mailbox.Folder, error) {
	return nil, shared.ErrNotFound
}

func (p *fakeProvider) GetStatistics(context.Context, string) (*mailbox.Statistics, error) {
	return p.stats, nil
}

var _ mailbox.Provider = (*fakeProvider)(nil)

func newTestService(provider *fakeProvider) (*Service, *memoryStates) {
	states := newMemoryStates()
	service := NewService(mailprovider.NewRegistry(provider), states, zap.NewNop())
	return service, states
}

func stateWithProvider(t *testing.T, states *memoryStates, userID uuid.UUID, categories ...string) *onboarding.State {
	t.Helper()
	state := onboarding.NewState(userID)
	state.SetProvider(onboarding.ProviderGmail)
	for _, name := range categories {
		_, err := state.AddCategory(name, "")
		require.NoError(t, err)
	}
	require.NoError(t, states.Save(context.Background(), state))
	return state
}

func TestDiscoverRequiresChosenProvider(t *testing.T) {
	service, _ := newTestService(&fakeProvider{name: "gmail"})

	_, err := service.Discover(context.Background(), uuid.New())
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_ERROR", domainErr.Code)
}

func TestDiscoverUsesOnboardingProvider(t *testing.T) {
	provider := &fakeProvider{
		name:     "gmail",
		discover: &mailbox.DiscoverResult{Status: mailbox.StatusOK, TotalFolders: 4},
	}
	service, states := newTestService(provider)
	userID := uuid.New()
	stateWithProvider(t, states, userID)

	result, err := service.Discover(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, mailbox.StatusOK, result.Status)
	assert.Equal(t, 4, result.TotalFolders)
}

func TestProvisionDerivesPlanFromCategories(t *testing.T) {
	provider := &fakeProvider{name: "gmail"}
	service, states := newTestService(provider)
	userID := uuid.New()
	stateWithProvider(t, states, userID, "Sales", "Support")

	result, err := service.Provision(context.Background(), userID, nil)
	require.NoError(t, err)

	// Root folder, one folder and one category per business category
	require.Len(t, provider.lastItems, 5)
	assert.Equal(t, []string{"FloWorx"}, provider.lastItems[0].Path)
	assert.Equal(t, []string{"FloWorx", "Sales"}, provider.lastItems[1].Path)
	assert.Equal(t, mailbox.ItemTypeCategory, provider.lastItems[2].Type)
	assert.Len(t, result.Created, 5)
}

func TestProvisionPassesExplicitItemsThrough(t *testing.T) {
	provider := &fakeProvider{name: "gmail"}
	service, states := newTestService(provider)
	userID := uuid.New()
	stateWithProvider(t, states, userID)

	items := []mailbox.ProvisionItem{
		{Path: []string{"Archive", "2025"}, Type: mailbox.ItemTypeFolder},
	}
	_, err := service.Provision(context.Background(), userID, items)
	require.NoError(t, err)
	assert.Equal(t, items, provider.lastItems)
}

func TestProvisionWithNothingToDo(t *testing.T) {
	service, states := newTestService(&fakeProvider{name: "gmail"})
	userID := uuid.New()
	stateWithProvider(t, states, userID)

	_, err := service.Provision(context.Background(), userID, nil)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_ERROR", domainErr.Code)
}

func TestStatisticsPassesThrough(t *testing.T) {
	provider := &fakeProvider{
		name:  "gmail",
		stats: &mailbox.Statistics{Status: mailbox.StatusOK, UserFolders: 7},
	}
	service, states := newTestService(provider)
	userID := uuid.New()
	stateWithProvider(t, states, userID)

	stats, err := service.Statistics(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 7, stats.UserFolders)
}
