package handler

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apponboarding "github.com/floworx/backend/internal/application/onboarding"
	"github.com/floworx/backend/internal/domain/onboarding"
	"github.com/floworx/backend/internal/domain/shared"
	"github.com/floworx/backend/internal/infrastructure/auth"
	"github.com/floworx/backend/internal/infrastructure/config"
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

func newOnboardingRouter(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                 "handler-access-secret-32-characters!",
		RefreshSecret:          "handler-refresh-secret-32-character!",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "floworx-test",
	})
	tokens, err := jwtService.GenerateTokenPair(uuid.New(), "user@example.com")
	require.NoError(t, err)

	states := newMemoryStates()
	stateService := apponboarding.NewStateService(states, zap.NewNop())
	categoryService := apponboarding.NewCategoryService(stateService, states, zap.NewNop())

	onboardingHandler := NewOnboardingHandler(stateService)
	categoryHandler := NewCategoryHandler(categoryService)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if claims, err := jwtService.ValidateAccessToken(token); err == nil {
			c.Set("jwt_claims", claims)
			c.Set("jwt_user_id", claims.UserID)
		}
		c.Next()
	})

	v1 := router.Group("/api/v1")
	ob := v1.Group("/onboarding")
	ob.GET("/status", onboardingHandler.GetStatus)
	ob.POST("/step/:step", onboardingHandler.SetStep)
	v1.POST("/auth/complete-onboarding", onboardingHandler.Complete)
	ob.GET("/categories", categoryHandler.List)
	ob.POST("/categories", categoryHandler.Add)
	ob.DELETE("/categories/:name", categoryHandler.Remove)
	return router, tokens.AccessToken
}

func TestOnboardingStatusLazyCreation(t *testing.T) {
	router, token := newOnboardingRouter(t)

	w := doJSON(t, router, "GET", "/api/v1/onboarding/status", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"nextStep":"email-provider"`)
}

func TestOnboardingStepFlow(t *testing.T) {
	router, token := newOnboardingRouter(t)

	w := doJSON(t, router, "POST", "/api/v1/onboarding/step/email-provider", token,
		map[string]string{"provider": "gmail"})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"provider":"gmail"`)

	w = doJSON(t, router, "POST", "/api/v1/onboarding/step/no-such-step", token,
		map[string]string{"provider": "gmail"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
}

func TestOnboardingStepRejectsUnknownFields(t *testing.T) {
	router, token := newOnboardingRouter(t)

	w := doJSON(t, router, "POST", "/api/v1/onboarding/step/email-provider", token,
		map[string]any{"provider": "gmail", "extra": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOnboardingCompleteFlow(t *testing.T) {
	router, token := newOnboardingRouter(t)

	// Completing with no categories is a validation error
	w := doJSON(t, router, "POST", "/api/v1/auth/complete-onboarding", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, "POST", "/api/v1/onboarding/step/business-categories", token,
		map[string]any{"categories": []map[string]string{{"name": "Sales"}}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, router, "POST", "/api/v1/auth/complete-onboarding", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"completed":true`)

	// Idempotent repeat
	w = doJSON(t, router, "POST", "/api/v1/auth/complete-onboarding", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCategoryEndpoints(t *testing.T) {
	router, token := newOnboardingRouter(t)

	w := doJSON(t, router, "POST", "/api/v1/onboarding/categories", token,
		AddCategoryRequest{Name: "Sales"})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, "POST", "/api/v1/onboarding/categories", token,
		AddCategoryRequest{Name: "SALES"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "ALREADY_EXISTS")

	w = doJSON(t, router, "GET", "/api/v1/onboarding/categories", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Sales")

	w = doJSON(t, router, "DELETE", "/api/v1/onboarding/categories/Sales", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, "DELETE", "/api/v1/onboarding/categories/Sales", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOnboardingRequiresAuth(t *testing.T) {
	router, _ := newOnboardingRouter(t)

	w := doJSON(t, router, "GET", "/api/v1/onboarding/status", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
