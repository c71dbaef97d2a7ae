package persistence

import (
	"testing"

	"github.com/floworx/backend/internal/domain/identity"
	"github.com/floworx/backend/internal/domain/mailbox"
	"github.com/floworx/backend/internal/domain/onboarding"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB opens an in-memory SQLite database with the full schema
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&identity.User{},
		&identity.PasswordResetToken{},
		&onboarding.State{},
		&onboarding.Category{},
		&onboarding.LabelMapping{},
		&onboarding.TeamMember{},
		&mailbox.Connection{},
	)
	require.NoError(t, err)

	return db
}
