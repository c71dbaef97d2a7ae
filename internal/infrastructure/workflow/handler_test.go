package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/floworx/backend/internal/domain/onboarding"
	"github.com/floworx/backend/internal/domain/shared"
	"github.com/floworx/backend/internal/infrastructure/cache"
)

type recordingDeployer struct {
	requests []DeploymentRequest
	err      error
}

func (d *recordingDeployer) Deploy(_ context.Context, request DeploymentRequest) (*DeploymentResult, error) {
	d.requests = append(d.requests, request)
	if d.err != nil {
		return nil, d.err
	}
	return &DeploymentResult{WorkflowID: "wf-1", Status: "active"}, nil
}

type stubStates struct {
	state *onboarding.State
}

func (s *stubStates) FindByUserID(context.Context, uuid.UUID) (*onboarding.State, error) {
	if s.state == nil {
		return nil, shared.ErrNotFound
	}
	return s.state, nil
}

func (s *stubStates) Save(context.Context, *onboarding.State) error { return nil }
func (s *stubStates) Delete(context.Context, uuid.UUID) error       { return nil }

func completedState(t *testing.T, userID uuid.UUID) (*onboarding.State, shared.DomainEvent) {
	t.Helper()
	state := onboarding.NewState(userID)
	provider := onboarding.ProviderGmail
	state.SetProvider(provider)
	_, err := state.AddCategory("Sales", "")
	require.NoError(t, err)
	require.NoError(t, state.Complete())

	events := state.GetDomainEvents()
	require.Len(t, events, 1)
	return state, events[0]
}

func TestDeploymentHandlerDeploysOnCompletion(t *testing.T) {
	userID := uuid.New()
	state, event := completedState(t, userID)

	deployer := &recordingDeployer{}
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()

	handler := NewDeploymentHandler(deployer, &stubStates{state: state}, store, zap.NewNop())
	assert.Equal(t, []string{onboarding.EventTypeCompleted}, handler.EventTypes())

	require.NoError(t, handler.Handle(context.Background(), event))
	require.Len(t, deployer.requests, 1)
	assert.Equal(t, userID.String(), deployer.requests[0].UserID)
	assert.Equal(t, "gmail", deployer.requests[0].Provider)
	assert.Equal(t, []string{"Sales"}, deployer.requests[0].Categories)
}

func TestDeploymentHandlerIsIdempotentPerUser(t *testing.T) {
	userID := uuid.New()
	state, event := completedState(t, userID)

	deployer := &recordingDeployer{}
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()

	handler := NewDeploymentHandler(deployer, &stubStates{state: state}, store, zap.NewNop())

	require.NoError(t, handler.Handle(context.Background(), event))

	// A second completion event for the same user must not deploy again
	state.ClearDomainEvents()
	_, retried := completedState(t, userID)
	require.NoError(t, handler.Handle(context.Background(), retried))

	assert.Len(t, deployer.requests, 1)
}

func TestDeploymentHandlerPropagatesDeployFailure(t *testing.T) {
	userID := uuid.New()
	state, event := completedState(t, userID)

	deployer := &recordingDeployer{err: errors.New("engine down")}
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()

	handler := NewDeploymentHandler(deployer, &stubStates{state: state}, store, zap.NewNop())
	assert.Error(t, handler.Handle(context.Background(), event))
}

func TestDeploymentHandlerRetriesAfterEngineOutage(t *testing.T) {
	userID := uuid.New()
	state, event := completedState(t, userID)

	deployer := &recordingDeployer{err: errors.New("engine down")}
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()

	handler := NewDeploymentHandler(deployer, &stubStates{state: state}, store, zap.NewNop())
	require.Error(t, handler.Handle(context.Background(), event))

	// Engine recovers; a fresh completion event for the same user must
	// still be able to deploy, and only then does the key stick
	deployer.err = nil
	state.ClearDomainEvents()
	_, retried := completedState(t, userID)
	require.NoError(t, handler.Handle(context.Background(), retried))
	assert.Len(t, deployer.requests, 2)

	state.ClearDomainEvents()
	_, again := completedState(t, userID)
	require.NoError(t, handler.Handle(context.Background(), again))
	assert.Len(t, deployer.requests, 2)
}
