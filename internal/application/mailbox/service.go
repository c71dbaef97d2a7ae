package mailbox

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/floworx/backend/internal/domain/mailbox"
	"github.com/floworx/backend/internal/domain/onboarding"
	"github.com/floworx/backend/internal/domain/shared"
	"github.com/floworx/backend/internal/infrastructure/mailprovider"
	"github.com/floworx/backend/internal/infrastructure/telemetry"
)

// defaultFolderRoot is the parent folder created above category folders
const defaultFolderRoot = "FloWorx"

// Service exposes mailbox discovery and provisioning for the wizard.
// The provider is taken from the user's onboarding state; operations on
// a user who has not picked one fail with a validation error rather
// than guessing.
type Service struct {
	providers *mailprovider.Registry
	states    onboarding.StateRepository
	metrics   *telemetry.BusinessMetrics
	logger    *zap.Logger
}

// ServiceOption configures optional collaborators
type ServiceOption func(*Service)

// WithBusinessMetrics wires funnel metrics recording
func WithBusinessMetrics(metrics *telemetry.BusinessMetrics) ServiceOption {
	return func(s *Service) {
		s.metrics = metrics
	}
}

// NewService creates the mailbox service
func NewService(
	providers *mailprovider.Registry,
	states onboarding.StateRepository,
	logger *zap.Logger,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		providers: providers,
		states:    states,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Discover lists the user's mailbox folders and categories
func (s *Service) Discover(ctx context.Context, userID uuid.UUID) (*mailbox.DiscoverResult, error) {
	provider, err := s.resolveProvider(ctx, userID)
	if err != nil {
		return nil, err
	}
	return provider.Discover(ctx, userID.String())
}

// Statistics summarizes the mailbox for the wizard header
func (s *Service) Statistics(ctx context.Context, userID uuid.UUID) (*mailbox.Statistics, error) {
	provider, err := s.resolveProvider(ctx, userID)
	if err != nil {
		return nil, err
	}
	return provider.GetStatistics(ctx, userID.String())
}

// Provision creates folders and categories in the user's mailbox. With
// no explicit items, the plan is derived from the user's business
// categories: one folder per category under the FloWorx root, plus a
// matching color category where the provider supports them.
func (s *Service) Provision(ctx context.Context, userID uuid.UUID, items []mailbox.ProvisionItem) (*mailbox.ProvisionResult, error) {
	state, err := s.loadState(ctx, userID)
	if err != nil {
		return nil, err
	}
	provider, err := s.providerFromState(state)
	if err != nil {
		return nil, err
	}

	if len(items) == 0 {
		items = defaultProvisionPlan(state)
	}
	if len(items) == 0 {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Nothing to provision: add business categories first")
	}

	start := time.Now()
	result, err := provider.Provision(ctx, userID.String(), items)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordMailboxProvision(ctx, provider.Name(), time.Since(start).Seconds())
	}
	s.logger.Info("mailbox provisioning finished",
		zap.String("user_id", userID.String()),
		zap.String("provider", provider.Name()),
		zap.Int("created", len(result.Created)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("failed", len(result.Failed)))
	return result, nil
}

func (s *Service) resolveProvider(ctx context.Context, userID uuid.UUID) (mailbox.Provider, error) {
	state, err := s.loadState(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.providerFromState(state)
}

func (s *Service) loadState(ctx context.Context, userID uuid.UUID) (*onboarding.State, error) {
	state, err := s.states.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("VALIDATION_ERROR", "Choose an email provider in onboarding first")
		}
		s.logger.Error("Failed to load onboarding state",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Could not load onboarding state, please retry")
	}
	return state, nil
}

func (s *Service) providerFromState(state *onboarding.State) (mailbox.Provider, error) {
	if state.Provider == nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Choose an email provider in onboarding first")
	}
	return s.providers.Get(string(*state.Provider))
}

// defaultProvisionPlan builds the folder/category plan from the user's
// business categories.
func defaultProvisionPlan(state *onboarding.State) []mailbox.ProvisionItem {
	if len(state.Categories) == 0 {
		return nil
	}

	items := make([]mailbox.ProvisionItem, 0, 2*len(state.Categories)+1)
	items = append(items, mailbox.ProvisionItem{
		Path: []string{defaultFolderRoot},
		Type: mailbox.ItemTypeFolder,
	})
	for _, category := range state.Categories {
		items = append(items, mailbox.ProvisionItem{
			Path: []string{defaultFolderRoot, category.Name},
			Type: mailbox.ItemTypeFolder,
		})
		items = append(items, mailbox.ProvisionItem{
			Path: []string{category.Name},
			Type: mailbox.ItemTypeCategory,
		})
	}
	return items
}
