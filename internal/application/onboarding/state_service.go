package onboarding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/floworx/backend/internal/domain/onboarding"
	"github.com/floworx/backend/internal/domain/shared"
	"github.com/floworx/backend/internal/infrastructure/telemetry"
)

// StateService drives the onboarding wizard. Each user has one state
// row, created lazily on the first status request; steps write their
// own slice with last-write-wins semantics.
type StateService struct {
	states  onboarding.StateRepository
	events  shared.EventPublisher
	metrics *telemetry.BusinessMetrics
	logger  *zap.Logger
}

// StateServiceOption configures optional collaborators
type StateServiceOption func(*StateService)

// WithEventPublisher wires completion event publishing
func WithEventPublisher(events shared.EventPublisher) StateServiceOption {
	return func(s *StateService) {
		s.events = events
	}
}

// WithBusinessMetrics wires funnel metrics recording
func WithBusinessMetrics(metrics *telemetry.BusinessMetrics) StateServiceOption {
	return func(s *StateService) {
		s.metrics = metrics
	}
}

// NewStateService creates the wizard state service
func NewStateService(states onboarding.StateRepository, logger *zap.Logger, opts ...StateServiceOption) *StateService {
	s := &StateService{
		states: states,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetStatus returns the user's wizard state, creating it when absent
func (s *StateService) GetStatus(ctx context.Context, userID uuid.UUID) (*StatusResult, error) {
	state, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	return NewStatusResult(state), nil
}

// SetStep applies a step payload. The step name selects the payload
// schema; unknown fields in the body are rejected rather than silently
// dropped.
func (s *StateService) SetStep(ctx context.Context, userID uuid.UUID, stepName string, payload json.RawMessage) (*StatusResult, error) {
	step, ok := onboarding.ParseStep(stepName)
	if !ok {
		return nil, shared.NewDomainError("VALIDATION_ERROR", fmt.Sprintf("Unknown onboarding step %q", stepName))
	}

	state, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.applyStep(state, step, payload); err != nil {
		return nil, err
	}

	if err := s.states.Save(ctx, state); err != nil {
		s.logger.Error("Failed to save onboarding step",
			zap.String("user_id", userID.String()),
			zap.String("step", stepName),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Could not save onboarding progress, please retry")
	}

	if s.metrics != nil {
		s.metrics.RecordOnboardingStep(ctx, stepName)
	}
	return NewStatusResult(state), nil
}

// Complete activates the configuration. It requires at least one
// category and is idempotent: repeating it neither fails nor emits a
// second completion event.
func (s *StateService) Complete(ctx context.Context, userID uuid.UUID) (*StatusResult, error) {
	state, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	alreadyCompleted := state.Completed
	if err := state.Complete(); err != nil {
		return nil, err
	}

	if err := s.states.Save(ctx, state); err != nil {
		s.logger.Error("Failed to save onboarding completion",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Could not complete onboarding, please retry")
	}

	s.publishEvents(ctx, state)

	if !alreadyCompleted {
		if s.metrics != nil {
			s.metrics.RecordOnboardingCompleted(ctx)
		}
		s.logger.Info("Onboarding completed", zap.String("user_id", userID.String()))
	}
	return NewStatusResult(state), nil
}

func (s *StateService) getOrCreate(ctx context.Context, userID uuid.UUID) (*onboarding.State, error) {
	state, err := s.states.FindByUserID(ctx, userID)
	if err == nil {
		return state, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		s.logger.Error("Failed to load onboarding state",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Could not load onboarding state, please retry")
	}

	state = onboarding.NewState(userID)
	if err := s.states.Save(ctx, state); err != nil {
		s.logger.Error("Failed to create onboarding state",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Could not load onboarding state, please retry")
	}
	return state, nil
}

func (s *StateService) applyStep(state *onboarding.State, step onboarding.Step, payload json.RawMessage) error {
	switch step {
	case onboarding.StepEmailProvider:
		var body EmailProviderPayload
		if err := decodeStrict(payload, &body); err != nil {
			return err
		}
		provider, ok := onboarding.ParseProvider(body.Provider)
		if !ok {
			return shared.NewDomainError("VALIDATION_ERROR", fmt.Sprintf("Unknown email provider %q", body.Provider))
		}
		state.SetProvider(provider)
		return nil

	case onboarding.StepBusinessType:
		var body BusinessTypePayload
		if err := decodeStrict(payload, &body); err != nil {
			return err
		}
		if body.BusinessTypeID == uuid.Nil {
			return shared.NewDomainError("VALIDATION_ERROR", "businessTypeId is required")
		}
		state.SetBusinessType(body.BusinessTypeID)
		return nil

	case onboarding.StepBusinessCategories:
		var body BusinessCategoriesPayload
		if err := decodeStrict(payload, &body); err != nil {
			return err
		}
		if len(body.Categories) == 0 {
			return shared.NewDomainError("VALIDATION_ERROR", "At least one category is required")
		}
		categories := make([]*onboarding.Category, 0, len(body.Categories))
		for i, input := range body.Categories {
			category, err := onboarding.NewCategory(state.ID, input.Name, input.Description, i)
			if err != nil {
				return err
			}
			categories = append(categories, category)
		}
		return state.ReplaceCategories(categories)

	case onboarding.StepLabelMapping:
		var body LabelMappingPayload
		if err := decodeStrict(payload, &body); err != nil {
			return err
		}
		mappings := make([]*onboarding.LabelMapping, 0, len(body.Mappings))
		for _, input := range body.Mappings {
			categoryID, err := s.resolveCategory(state, input.CategoryID, input.CategoryName)
			if err != nil {
				return err
			}
			mapping, err := onboarding.NewLabelMapping(state.ID, categoryID, input.Label)
			if err != nil {
				return err
			}
			mappings = append(mappings, mapping)
		}
		return state.ReplaceLabelMappings(mappings)

	case onboarding.StepTeamSetup:
		var body TeamSetupPayload
		if err := decodeStrict(payload, &body); err != nil {
			return err
		}
		members := make([]*onboarding.TeamMember, 0, len(body.Members))
		for _, input := range body.Members {
			var categoryID *uuid.UUID
			if input.CategoryID != nil || input.CategoryName != "" {
				resolved, err := s.resolveCategory(state, input.CategoryID, input.CategoryName)
				if err != nil {
					return err
				}
				categoryID = &resolved
			}
			notify := true
			if input.Notifications != nil {
				notify = *input.Notifications
			}
			member, err := onboarding.NewTeamMember(state.ID, input.Name, input.Email, categoryID, notify)
			if err != nil {
				return err
			}
			members = append(members, member)
		}
		return state.ReplaceTeamMembers(members)

	default:
		return shared.NewDomainError("VALIDATION_ERROR", fmt.Sprintf("Step %q does not accept a payload", step))
	}
}

// resolveCategory turns an ID-or-name reference into a category ID
func (s *StateService) resolveCategory(state *onboarding.State, id *uuid.UUID, name string) (uuid.UUID, error) {
	if id != nil {
		if state.FindCategoryByID(*id) == nil {
			return uuid.Nil, shared.NewDomainError("VALIDATION_ERROR", "Unknown category reference")
		}
		return *id, nil
	}
	if name != "" {
		category := state.FindCategoryByName(name)
		if category == nil {
			return uuid.Nil, shared.NewDomainError("VALIDATION_ERROR", fmt.Sprintf("Unknown category %q", name))
		}
		return category.ID, nil
	}
	return uuid.Nil, shared.NewDomainError("VALIDATION_ERROR", "A category reference is required")
}

func (s *StateService) publishEvents(ctx context.Context, state *onboarding.State) {
	if s.events == nil {
		state.ClearDomainEvents()
		return
	}
	events := state.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.logger.Error("Failed to publish onboarding events", zap.Error(err))
	}
	state.ClearDomainEvents()
}

// decodeStrict unmarshals a step payload, rejecting unknown fields
func decodeStrict(payload json.RawMessage, target any) error {
	if len(payload) == 0 {
		return shared.NewDomainError("VALIDATION_ERROR", "Request body is required")
	}
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return shared.NewDomainError("VALIDATION_ERROR", "Request body is not valid for this step")
	}
	return nil
}
