package onboarding

import (
	"context"

	"github.com/google/uuid"
)

// StateRepository defines persistence operations for onboarding state.
// FindByUserID loads the aggregate with all child slices attached.
type StateRepository interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*State, error)
	Save(ctx context.Context, state *State) error
	Delete(ctx context.Context, userID uuid.UUID) error
}
