package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floworx/backend/internal/domain/shared"
)

func TestNewUserNormalizesAndHashes(t *testing.T) {
	user, err := NewUser("  Jane@Example.COM ", "Sup3rSecret!", " Jane ", " Doe ", " Acme Plumbing ")
	require.NoError(t, err)

	assert.Equal(t, "jane@example.com", user.Email)
	assert.Equal(t, "Jane", user.FirstName)
	assert.Equal(t, "Doe", user.LastName)
	assert.Equal(t, "Acme Plumbing", user.CompanyName)
	assert.Equal(t, "Jane Doe", user.FullName())
	assert.False(t, user.EmailVerified)

	assert.NotEqual(t, "Sup3rSecret!", user.PasswordHash)
	assert.True(t, user.VerifyPassword("Sup3rSecret!"))
	assert.False(t, user.VerifyPassword("sup3rsecret!"))

	events := user.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeUserRegistered, events[0].EventType())
}

func TestNewUserValidation(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		first    string
		last     string
		wantCode string
	}{
		{"missing email", "", "Sup3rSecret!", "Jane", "Doe", "INVALID_EMAIL"},
		{"malformed email", "not-an-email", "Sup3rSecret!", "Jane", "Doe", "INVALID_EMAIL"},
		{"short password", "jane@example.com", "short", "Jane", "Doe", "WEAK_PASSWORD"},
		{"blank first name", "jane@example.com", "Sup3rSecret!", "  ", "Doe", "INVALID_NAME"},
		{"blank last name", "jane@example.com", "Sup3rSecret!", "Jane", "", "INVALID_NAME"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewUser(tt.email, tt.password, tt.first, tt.last, "")
			var domainErr *shared.DomainError
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, tt.wantCode, domainErr.Code)
		})
	}
}

func TestChangePasswordRequiresCurrentPassword(t *testing.T) {
	user, err := NewUser("jane@example.com", "Sup3rSecret!", "Jane", "Doe", "")
	require.NoError(t, err)

	err = user.ChangePassword("wrong-old", "NewSecret99")
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_PASSWORD", domainErr.Code)
	assert.True(t, user.VerifyPassword("Sup3rSecret!"))

	require.NoError(t, user.ChangePassword("Sup3rSecret!", "NewSecret99"))
	assert.True(t, user.VerifyPassword("NewSecret99"))
	assert.False(t, user.VerifyPassword("Sup3rSecret!"))
}

func TestSetPasswordEnforcesPolicy(t *testing.T) {
	user, err := NewUser("jane@example.com", "Sup3rSecret!", "Jane", "Doe", "")
	require.NoError(t, err)

	var domainErr *shared.DomainError
	require.ErrorAs(t, user.SetPassword("tiny"), &domainErr)
	assert.Equal(t, "WEAK_PASSWORD", domainErr.Code)

	tooLong := make([]byte, 129)
	for i := range tooLong {
		tooLong[i] = 'a'
	}
	require.ErrorAs(t, user.SetPassword(string(tooLong)), &domainErr)
	assert.Equal(t, "WEAK_PASSWORD", domainErr.Code)
}

func TestRecordLoginFailureLocksAtThreshold(t *testing.T) {
	user, err := NewUser("jane@example.com", "Sup3rSecret!", "Jane", "Doe", "")
	require.NoError(t, err)

	locked := user.RecordLoginFailure(3, 15*time.Minute)
	assert.False(t, locked)
	locked = user.RecordLoginFailure(3, 15*time.Minute)
	assert.False(t, locked)
	assert.False(t, user.IsLocked())

	locked = user.RecordLoginFailure(3, 15*time.Minute)
	assert.True(t, locked)
	assert.True(t, user.IsLocked())
	// Counter resets once the lock is in place
	assert.Zero(t, user.FailedAttempts)
}

func TestRecordLoginSuccessClearsLockout(t *testing.T) {
	user, err := NewUser("jane@example.com", "Sup3rSecret!", "Jane", "Doe", "")
	require.NoError(t, err)

	user.RecordLoginFailure(1, 15*time.Minute)
	require.True(t, user.IsLocked())

	user.RecordLoginSuccess("203.0.113.7")
	assert.False(t, user.IsLocked())
	assert.Zero(t, user.FailedAttempts)
	assert.Nil(t, user.LockedUntil)
	assert.Equal(t, "203.0.113.7", user.LastLoginIP)
	require.NotNil(t, user.LastLoginAt)
}

func TestIsLockedExpires(t *testing.T) {
	user, err := NewUser("jane@example.com", "Sup3rSecret!", "Jane", "Doe", "")
	require.NoError(t, err)

	past := time.Now().Add(-time.Minute)
	user.LockedUntil = &past
	assert.False(t, user.IsLocked())
}

func TestMarkEmailVerifiedIsIdempotent(t *testing.T) {
	user, err := NewUser("jane@example.com", "Sup3rSecret!", "Jane", "Doe", "")
	require.NoError(t, err)

	user.MarkEmailVerified()
	require.True(t, user.EmailVerified)
	version := user.Version

	user.MarkEmailVerified()
	assert.Equal(t, version, user.Version)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "jane@example.com", NormalizeEmail("  JANE@Example.Com  "))
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("jane@example.com"))
	assert.Error(t, ValidateEmail("jane@example"))
	assert.Error(t, ValidateEmail("jane example@example.com"))
	assert.Error(t, ValidateEmail(""))
}
