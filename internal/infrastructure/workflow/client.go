package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/floworx/backend/internal/domain/shared"
	"github.com/floworx/backend/internal/infrastructure/config"
)

// maxResponseSize limits the engine response body to prevent memory exhaustion
const maxResponseSize = 1 * 1024 * 1024

// DeploymentRequest describes the automation to provision for a user
// after onboarding completes.
type DeploymentRequest struct {
	UserID        string   `json:"user_id"`
	Provider      string   `json:"provider,omitempty"`
	Categories    []string `json:"categories,omitempty"`
	CategoryCount int      `json:"category_count"`
}

// DeploymentResult reports the engine-side workflow identifier
type DeploymentResult struct {
	WorkflowID string `json:"workflow_id"`
	Status     string `json:"status"`
}

// Deployer provisions email automation workflows on the external engine
type Deployer interface {
	Deploy(ctx context.Context, request DeploymentRequest) (*DeploymentResult, error)
}

// HTTPDeployer calls an n8n-style workflow engine over HTTP. Transient
// failures (transport errors, 5xx) are retried with linear backoff;
// client errors are not.
type HTTPDeployer struct {
	baseURL    string
	apiKey     string
	retries    int
	backoff    time.Duration
	httpClient *http.Client
	logger     *zap.Logger
}

// HTTPDeployerOption configures the HTTPDeployer
type HTTPDeployerOption func(*HTTPDeployer)

// WithDeployerHTTPClient overrides the HTTP client (used in tests)
func WithDeployerHTTPClient(client *http.Client) HTTPDeployerOption {
	return func(d *HTTPDeployer) {
		d.httpClient = client
	}
}

// NewHTTPDeployer creates a deployer from the workflow configuration
func NewHTTPDeployer(cfg config.WorkflowConfig, logger *zap.Logger, opts ...HTTPDeployerOption) *HTTPDeployer {
	d := &HTTPDeployer{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		retries: cfg.Retries,
		backoff: cfg.Backoff,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Deploy provisions the user's workflow on the engine
func (d *HTTPDeployer) Deploy(ctx context.Context, request DeploymentRequest) (*DeploymentResult, error) {
	payload, err := json.Marshal(request)
	if err != nil {
		return nil, err
	}

	var lastErr error
	attempts := d.retries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * d.backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, retryable, err := d.deployOnce(ctx, payload)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retryable {
			break
		}
		d.logger.Warn("workflow deployment attempt failed",
			zap.String("user_id", request.UserID),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}

	d.logger.Error("workflow deployment failed",
		zap.String("user_id", request.UserID),
		zap.Error(lastErr))
	return nil, shared.NewDomainError("PROVIDER_ERROR", "Workflow deployment failed, please retry")
}

// deployOnce performs a single request. The second return value reports
// whether the failure is worth retrying.
func (d *HTTPDeployer) deployOnce(ctx context.Context, payload []byte) (*DeploymentResult, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		d.baseURL+"/api/v1/workflows/deploy", bytes.NewReader(payload))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", "application/json")
	if d.apiKey != "" {
		req.Header.Set("X-API-Key", d.apiKey)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, true, err
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var result DeploymentResult
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, false, err
		}
		return &result, false, nil
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("workflow engine returned %d", resp.StatusCode)
	default:
		return nil, false, fmt.Errorf("workflow engine rejected request with %d", resp.StatusCode)
	}
}

// NoopDeployer is used when the workflow engine is disabled in
// configuration; deployments succeed without side effects.
type NoopDeployer struct {
	logger *zap.Logger
}

// NewNoopDeployer creates a deployer that only logs
func NewNoopDeployer(logger *zap.Logger) *NoopDeployer {
	return &NoopDeployer{logger: logger}
}

// Deploy logs and reports success
func (d *NoopDeployer) Deploy(_ context.Context, request DeploymentRequest) (*DeploymentResult, error) {
	d.logger.Info("workflow engine disabled, skipping deployment",
		zap.String("user_id", request.UserID))
	return &DeploymentResult{Status: "skipped"}, nil
}

// NewDeployer picks the deployer implementation from configuration
func NewDeployer(cfg config.WorkflowConfig, logger *zap.Logger) Deployer {
	if !cfg.Enabled || cfg.BaseURL == "" {
		return NewNoopDeployer(logger)
	}
	return NewHTTPDeployer(cfg, logger)
}

var (
	_ Deployer = (*HTTPDeployer)(nil)
	_ Deployer = (*NoopDeployer)(nil)
)
