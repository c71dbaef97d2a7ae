package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/floworx/backend/internal/domain/identity"
	"github.com/floworx/backend/internal/domain/shared"
	"github.com/floworx/backend/internal/infrastructure/auth"
	"github.com/floworx/backend/internal/infrastructure/telemetry"
)

// AuthServiceConfig contains configuration for the auth service
type AuthServiceConfig struct {
	MaxLoginAttempts int           // Maximum failed login attempts before lock
	LockDuration     time.Duration // How long to lock account after max attempts
}

// DefaultAuthServiceConfig returns default configuration
func DefaultAuthServiceConfig() AuthServiceConfig {
	return AuthServiceConfig{
		MaxLoginAttempts: 5,
		LockDuration:     15 * time.Minute,
	}
}

// AuthService handles registration, login, and session lifecycle
type AuthService struct {
	users      identity.UserRepository
	jwtService *auth.JWTService
	blacklist  auth.TokenBlacklist
	events     shared.EventPublisher
	metrics    *telemetry.BusinessMetrics
	config     AuthServiceConfig
	logger     *zap.Logger
}

// AuthServiceOption configures optional collaborators
type AuthServiceOption func(*AuthService)

// WithEventPublisher wires domain event publishing
func WithEventPublisher(events shared.EventPublisher) AuthServiceOption {
	return func(s *AuthService) {
		s.events = events
	}
}

// WithBusinessMetrics wires funnel metrics recording
func WithBusinessMetrics(metrics *telemetry.BusinessMetrics) AuthServiceOption {
	return func(s *AuthService) {
		s.metrics = metrics
	}
}

// NewAuthService creates a new authentication service
func NewAuthService(
	users identity.UserRepository,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	config AuthServiceConfig,
	logger *zap.Logger,
	opts ...AuthServiceOption,
) *AuthService {
	s := &AuthService{
		users:      users,
		jwtService: jwtService,
		blacklist:  blacklist,
		config:     config,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a new account and returns it with a token pair.
// A duplicate email (case-insensitive) is rejected with ALREADY_EXISTS.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	exists, err := s.users.ExistsByEmail(ctx, input.Email)
	if err != nil {
		s.logger.Error("Failed to check email existence", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Registration failed, please try again")
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "An account with this email already exists")
	}

	user, err := identity.NewUser(input.Email, input.Password, input.FirstName, input.LastName, input.CompanyName)
	if err != nil {
		return nil, err
	}

	if err := s.users.Save(ctx, user); err != nil {
		s.logger.Error("Failed to save new user", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Registration failed, please try again")
	}

	s.publishEvents(ctx, user)

	tokens, err := s.jwtService.GenerateTokenPair(user.ID, user.Email)
	if err != nil {
		s.logger.Error("Failed to generate token pair", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Registration succeeded but login failed, please sign in")
	}

	if s.metrics != nil {
		s.metrics.RecordRegistration(ctx)
	}
	s.logger.Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("email", user.Email))

	return &AuthResult{User: NewUserInfo(user), Tokens: *tokens}, nil
}

// Login authenticates a user. Unknown email and wrong password produce
// the same error so the endpoint does not leak which emails exist.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, input.Email)
	if err != nil {
		s.logger.Warn("Login attempt for unknown email")
		s.recordLogin(ctx, false)
		return nil, shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
	}

	if user.IsLocked() {
		s.logger.Warn("Login attempt for locked account", zap.String("user_id", user.ID.String()))
		s.recordLogin(ctx, false)
		return nil, shared.NewDomainError("ACCOUNT_LOCKED", "Account is locked. Please try again later")
	}

	if !user.VerifyPassword(input.Password) {
		locked := user.RecordLoginFailure(s.config.MaxLoginAttempts, s.config.LockDuration)
		if err := s.users.Update(ctx, user); err != nil {
			s.logger.Error("Failed to update user after login failure", zap.Error(err))
		}
		s.recordLogin(ctx, false)

		if locked {
			s.logger.Warn("Account locked after repeated failures",
				zap.String("user_id", user.ID.String()),
				zap.Int("attempts", s.config.MaxLoginAttempts))
			return nil, shared.NewDomainError("ACCOUNT_LOCKED", "Too many failed login attempts. Account has been locked")
		}
		return nil, shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
	}

	tokens, err := s.jwtService.GenerateTokenPair(user.ID, user.Email)
	if err != nil {
		s.logger.Error("Failed to generate token pair", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Login failed, please try again")
	}

	user.RecordLoginSuccess(input.IP)
	if err := s.users.Update(ctx, user); err != nil {
		// Login still succeeds; only the audit trail is stale
		s.logger.Error("Failed to update user after login", zap.Error(err))
	}

	s.recordLogin(ctx, true)
	s.logger.Info("User logged in", zap.String("user_id", user.ID.String()))

	return &AuthResult{User: NewUserInfo(user), Tokens: *tokens}, nil
}

// Refresh rotates a refresh token into a fresh token pair
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, shared.NewDomainError("UNAUTHORIZED", "Invalid or expired refresh token")
	}

	if err := s.checkRevocation(ctx, claims); err != nil {
		return nil, err
	}

	tokens, err := s.jwtService.RefreshTokenPair(refreshToken)
	if err != nil {
		return nil, shared.NewDomainError("UNAUTHORIZED", "Invalid or expired refresh token")
	}
	return tokens, nil
}

// GetCurrentUser loads the authenticated user's profile
func (s *AuthService) GetCurrentUser(ctx context.Context, userID uuid.UUID) (*UserInfo, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	info := NewUserInfo(user)
	return &info, nil
}

// ChangePassword verifies the old password, stores the new one, and
// revokes every outstanding token for the user.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, input ChangePasswordInput) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := user.ChangePassword(input.OldPassword, input.NewPassword); err != nil {
		return err
	}
	if err := s.users.Update(ctx, user); err != nil {
		s.logger.Error("Failed to persist password change", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Password change failed, please try again")
	}

	s.publishEvents(ctx, user)
	s.revokeUserTokens(ctx, userID)

	s.logger.Info("Password changed", zap.String("user_id", userID.String()))
	return nil
}

// Logout blacklists the presented access token
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.jwtService.ValidateAccessToken(accessToken)
	if err != nil {
		// Nothing to revoke; logout of an invalid session still succeeds
		return nil
	}

	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining <= 0 {
		return nil
	}
	if err := s.blacklist.AddToBlacklist(ctx, claims.ID, remaining); err != nil {
		s.logger.Error("Failed to blacklist token on logout", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Logout failed, please try again")
	}
	return nil
}

func (s *AuthService) checkRevocation(ctx context.Context, claims *auth.Claims) error {
	if blacklisted, err := s.blacklist.IsBlacklisted(ctx, claims.ID); err != nil {
		s.logger.Warn("Blacklist lookup failed", zap.Error(err))
	} else if blacklisted {
		return shared.NewDomainError("UNAUTHORIZED", "Token has been revoked")
	}

	issuedAt := time.Time{}
	if claims.IssuedAt != nil {
		issuedAt = claims.IssuedAt.Time
	}
	if invalidated, err := s.blacklist.IsUserTokenInvalidated(ctx, claims.UserID, issuedAt); err != nil {
		s.logger.Warn("User invalidation lookup failed", zap.Error(err))
	} else if invalidated {
		return shared.NewDomainError("UNAUTHORIZED", "Token has been revoked")
	}
	return nil
}

func (s *AuthService) revokeUserTokens(ctx context.Context, userID uuid.UUID) {
	ttl := s.jwtService.RefreshTokenExpiration()
	if err := s.blacklist.AddUserTokensToBlacklist(ctx, userID.String(), ttl); err != nil {
		s.logger.Error("Failed to revoke user tokens", zap.Error(err))
	}
}

func (s *AuthService) publishEvents(ctx context.Context, user *identity.User) {
	if s.events == nil {
		return
	}
	events := user.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.logger.Error("Failed to publish identity events", zap.Error(err))
	}
	user.ClearDomainEvents()
}

func (s *AuthService) recordLogin(ctx context.Context, success bool) {
	if s.metrics != nil {
		s.metrics.RecordLogin(ctx, success)
	}
}
