package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"

	"github.com/floworx/backend/internal/domain/shared"
	"github.com/floworx/backend/internal/infrastructure/config"
)

const (
	// ProviderGmail identifies the Google mailbox provider.
	ProviderGmail = "gmail"
	// ProviderOutlook identifies the Microsoft mailbox provider.
	ProviderOutlook = "outlook"
)

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	graphUserInfoURL  = "https://graph.microsoft.com/v1.0/me"
)

// Manager builds per-provider OAuth2 configurations and runs the
// authorization code exchange for mailbox connections.
type Manager struct {
	configs      map[string]*oauth2.Config
	userInfoURLs map[string]string
	httpClient   *http.Client
	logger       *zap.Logger
}

// ManagerOption configures the Manager
type ManagerOption func(*Manager)

// WithEndpoint overrides a provider's OAuth2 endpoint (used in tests)
func WithEndpoint(provider string, endpoint oauth2.Endpoint) ManagerOption {
	return func(m *Manager) {
		if cfg, ok := m.configs[provider]; ok {
			cfg.Endpoint = endpoint
		}
	}
}

// WithUserInfoURL overrides a provider's user info endpoint (used in tests)
func WithUserInfoURL(provider, url string) ManagerOption {
	return func(m *Manager) {
		m.userInfoURLs[provider] = url
	}
}

// WithHTTPClient overrides the HTTP client used for user info lookups
func WithHTTPClient(client *http.Client) ManagerOption {
	return func(m *Manager) {
		m.httpClient = client
	}
}

// NewManager creates an OAuth manager from the application configuration.
// Providers whose client credentials are missing stay unregistered and
// resolve to a NOT_IMPLEMENTED error.
func NewManager(cfg config.OAuthConfig, logger *zap.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		configs:      make(map[string]*oauth2.Config),
		userInfoURLs: make(map[string]string),
		httpClient:   http.DefaultClient,
		logger:       logger,
	}

	if cfg.Google.Configured() {
		m.configs[ProviderGmail] = &oauth2.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  callbackURL(cfg.RedirectBaseURL, ProviderGmail),
			Scopes:       cfg.Google.Scopes,
			Endpoint:     google.Endpoint,
		}
		m.userInfoURLs[ProviderGmail] = googleUserInfoURL
	}

	if cfg.Microsoft.Configured() {
		m.configs[ProviderOutlook] = &oauth2.Config{
			ClientID:     cfg.Microsoft.ClientID,
			ClientSecret: cfg.Microsoft.ClientSecret,
			RedirectURL:  callbackURL(cfg.RedirectBaseURL, ProviderOutlook),
			Scopes:       cfg.Microsoft.Scopes,
			Endpoint:     microsoft.AzureADEndpoint("common"),
		}
		m.userInfoURLs[ProviderOutlook] = graphUserInfoURL
	}

	for _, opt := range opts {
		opt(m)
	}
	return m
}

func callbackURL(baseURL, provider string) string {
	return strings.TrimRight(baseURL, "/") + "/api/v1/oauth/" + provider + "/callback"
}

// Configured reports whether the provider has OAuth credentials
func (m *Manager) Configured(provider string) bool {
	_, ok := m.configs[strings.ToLower(provider)]
	return ok
}

// Config returns the OAuth2 configuration for a provider
func (m *Manager) Config(provider string) (*oauth2.Config, error) {
	cfg, ok := m.configs[strings.ToLower(provider)]
	if !ok {
		return nil, shared.NewDomainError("NOT_IMPLEMENTED",
			fmt.Sprintf("OAuth is not configured for provider %q", provider))
	}
	return cfg, nil
}

// AuthURL builds the consent screen URL for a provider. Offline access is
// always requested so the provider issues a refresh token; Google only
// re-issues one when consent is forced.
func (m *Manager) AuthURL(provider, state string) (string, error) {
	cfg, err := m.Config(provider)
	if err != nil {
		return "", err
	}

	opts := []oauth2.AuthCodeOption{oauth2.AccessTypeOffline}
	if strings.ToLower(provider) == ProviderGmail {
		opts = append(opts, oauth2.SetAuthURLParam("prompt", "consent"))
	}
	return cfg.AuthCodeURL(state, opts...), nil
}

// Exchange swaps the authorization code for a token set
func (m *Manager) Exchange(ctx context.Context, provider, code string) (*oauth2.Token, error) {
	cfg, err := m.Config(provider)
	if err != nil {
		return nil, err
	}

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		m.logger.Warn("OAuth code exchange failed",
			zap.String("provider", provider),
			zap.Error(err))
		return nil, shared.NewDomainError("PROVIDER_ERROR", "Authorization code exchange failed")
	}
	return token, nil
}

// AccountEmail resolves the mailbox address the token grants access to
func (m *Manager) AccountEmail(ctx context.Context, provider string, token *oauth2.Token) (string, error) {
	url, ok := m.userInfoURLs[strings.ToLower(provider)]
	if !ok {
		return "", shared.NewDomainError("NOT_IMPLEMENTED",
			fmt.Sprintf("OAuth is not configured for provider %q", provider))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	token.SetAuthHeader(req)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", shared.NewDomainError("PROVIDER_ERROR", "User info request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		m.logger.Warn("user info request rejected",
			zap.String("provider", provider),
			zap.Int("status", resp.StatusCode))
		return "", shared.NewDomainError("PROVIDER_ERROR", "User info request failed")
	}

	var info struct {
		Email             string `json:"email"`
		Mail              string `json:"mail"`
		UserPrincipalName string `json:"userPrincipalName"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return "", err
	}

	switch {
	case info.Email != "":
		return info.Email, nil
	case info.Mail != "":
		return info.Mail, nil
	default:
		return info.UserPrincipalName, nil
	}
}

// GenerateState returns a cryptographically random state parameter
func GenerateState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
