package workflow

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/floworx/backend/internal/domain/onboarding"
	"github.com/floworx/backend/internal/domain/shared"
)

// deployedKeyTTL bounds how long a completed deployment suppresses
// re-deployment for the same user.
const deployedKeyTTL = 30 * 24 * time.Hour

// DeploymentHandler reacts to onboarding completion by provisioning the
// user's workflow on the engine. Deployment is keyed by user in the
// idempotency store, so a retried completion (a fresh event for the
// same user) still deploys at most once.
type DeploymentHandler struct {
	deployer Deployer
	states   onboarding.StateRepository
	store    shared.IdempotencyStore
	logger   *zap.Logger
}

// NewDeploymentHandler creates the onboarding-completed handler
func NewDeploymentHandler(
	deployer Deployer,
	states onboarding.StateRepository,
	store shared.IdempotencyStore,
	logger *zap.Logger,
) *DeploymentHandler {
	return &DeploymentHandler{
		deployer: deployer,
		states:   states,
		store:    store,
		logger:   logger,
	}
}

// EventTypes subscribes the handler to onboarding completion only
func (h *DeploymentHandler) EventTypes() []string {
	return []string{onboarding.EventTypeCompleted}
}

// Handle deploys the workflow for the completed user
func (h *DeploymentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	userID := event.UserID()

	deployedKey := "workflow:deployed:" + userID.String()
	deployed, err := h.store.IsProcessed(ctx, deployedKey)
	if err != nil {
		h.logger.Warn("deployment idempotency check failed, deploying anyway",
			zap.String("user_id", userID.String()),
			zap.Error(err))
	} else if deployed {
		h.logger.Info("workflow already deployed for user, skipping",
			zap.String("user_id", userID.String()))
		return nil
	}

	request := DeploymentRequest{UserID: userID.String()}
	if completed, ok := event.(*onboarding.CompletedEvent); ok {
		request.Provider = completed.Provider
		request.CategoryCount = completed.CategoryCount
	}

	// Category names enrich the request; a load failure is not fatal
	if state, err := h.states.FindByUserID(ctx, userID); err == nil {
		for _, category := range state.Categories {
			request.Categories = append(request.Categories, category.Name)
		}
	}

	result, err := h.deployer.Deploy(ctx, request)
	if err != nil {
		return err
	}

	// The key is recorded only after a successful deploy, so a transient
	// engine failure leaves the user eligible for the next completion event
	if _, err := h.store.MarkProcessed(ctx, deployedKey, deployedKeyTTL); err != nil {
		h.logger.Warn("failed to record deployment key",
			zap.String("user_id", userID.String()),
			zap.Error(err))
	}

	h.logger.Info("workflow deployed",
		zap.String("user_id", userID.String()),
		zap.String("workflow_id", result.WorkflowID),
		zap.String("status", result.Status))
	return nil
}

var _ shared.EventHandler = (*DeploymentHandler)(nil)
