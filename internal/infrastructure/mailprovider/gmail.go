package mailprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/floworx/backend/internal/domain/mailbox"
	"github.com/floworx/backend/internal/domain/shared"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	gmailBaseURL        = "https://gmail.googleapis.com/gmail/v1"
	gmailMaxResponseLen = 10 * 1024 * 1024
)

// GmailAdapter implements mailbox.Provider against the Gmail labels API.
// Gmail has no real folder tree; nesting is encoded in label names with
// "/" separators, so the adapter splits and joins on that.
type GmailAdapter struct {
	tokens     TokenSourceProvider
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

// GmailOption configures the adapter
type GmailOption func(*GmailAdapter)

// WithGmailBaseURL overrides the API base URL (used in tests)
func WithGmailBaseURL(baseURL string) GmailOption {
	return func(a *GmailAdapter) {
		a.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithGmailHTTPClient overrides the HTTP client
func WithGmailHTTPClient(client *http.Client) GmailOption {
	return func(a *GmailAdapter) {
		a.httpClient = client
	}
}

// NewGmailAdapter creates a Gmail adapter
func NewGmailAdapter(tokens TokenSourceProvider, logger *zap.Logger, opts ...GmailOption) *GmailAdapter {
	a := &GmailAdapter{
		tokens:     tokens,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    gmailBaseURL,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the provider identifier
func (a *GmailAdapter) Name() string {
	return "gmail"
}

type gmailLabel struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Type  string `json:"type"` // "system" or "user"
	Color *struct {
		BackgroundColor string `json:"backgroundColor,omitempty"`
		TextColor       string `json:"textColor,omitempty"`
	} `json:"color,omitempty"`
}

type gmailLabelList struct {
	Labels []gmailLabel `json:"labels"`
}

// Discover lists the mailbox's labels as folders
func (a *GmailAdapter) Discover(ctx context.Context, userID string) (*mailbox.DiscoverResult, error) {
	labels, result, err := a.listLabels(ctx, userID)
	if result != nil || err != nil {
		return result, err
	}

	folders := make([]mailbox.Folder, 0, len(labels))
	childCounts := make(map[string]int)
	for _, l := range labels {
		path := strings.Split(l.Name, "/")
		if len(path) > 1 {
			childCounts[strings.Join(path[:len(path)-1], "/")]++
		}
	}

	var userCount, systemCount int
	for _, l := range labels {
		path := strings.Split(l.Name, "/")
		folder := mailbox.Folder{
			ID:         l.ID,
			Name:       path[len(path)-1],
			Path:       path,
			ChildCount: childCounts[l.Name],
			System:     l.Type == "system",
		}
		if l.Color != nil {
			folder.Color = l.Color.BackgroundColor
		}
		if folder.System {
			systemCount++
		} else {
			userCount++
		}
		folders = append(folders, folder)
	}

	return &mailbox.DiscoverResult{
		Status:        mailbox.StatusOK,
		TotalFolders:  len(folders),
		UserFolders:   userCount,
		SystemFolders: systemCount,
		Folders:       folders,
		Categories:    []mailbox.NamedCategory{},
	}, nil
}

// Provision creates the requested labels. Existing labels are skipped;
// a failure on one label does not abort the rest of the batch.
func (a *GmailAdapter) Provision(ctx context.Context, userID string, items []mailbox.ProvisionItem) (*mailbox.ProvisionResult, error) {
	labels, discoverResult, err := a.listLabels(ctx, userID)
	if err != nil {
		return nil, err
	}
	if discoverResult != nil {
		return &mailbox.ProvisionResult{Status: discoverResult.Status}, nil
	}

	existing := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		existing[strings.ToLower(l.Name)] = struct{}{}
	}

	result := mailbox.NewProvisionResult()
	for _, item := range items {
		fullPath := item.FullPath()
		if fullPath == "" {
			result.Failed = append(result.Failed, mailbox.ProvisionFailure{
				Path: fullPath, Name: item.Name(), Error: "empty path",
			})
			continue
		}

		// Parents first: Gmail treats "A/B" as nested only when "A" exists
		for i := 1; i <= len(item.Path); i++ {
			prefix := strings.Join(item.Path[:i], "/")
			key := strings.ToLower(prefix)
			if _, ok := existing[key]; ok {
				if i == len(item.Path) {
					result.Skipped = append(result.Skipped, fullPath)
				}
				continue
			}

			color := ""
			if i == len(item.Path) {
				color = item.Color
			}
			if err := a.createLabel(ctx, userID, prefix, color); err != nil {
				result.Failed = append(result.Failed, mailbox.ProvisionFailure{
					Path: fullPath, Name: item.Name(), Error: err.Error(),
				})
				break
			}
			existing[key] = struct{}{}
			if i == len(item.Path) {
				result.Created = append(result.Created, fullPath)
			}
		}
	}

	a.logger.Info("gmail provisioning finished",
		zap.Int("created", len(result.Created)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

// FindByPath locates a label by its full path segments
func (a *GmailAdapter) FindByPath(ctx context.Context, userID string, path []string) (*mailbox.Folder, error) {
	result, err := a.Discover(ctx, userID)
	if err != nil {
		return nil, err
	}
	if result.Status != mailbox.StatusOK {
		return nil, shared.ErrNotFound
	}

	want := strings.ToLower(strings.Join(path, "/"))
	for i := range result.Folders {
		if strings.ToLower(result.Folders[i].FullPath()) == want {
			return &result.Folders[i], nil
		}
	}
	return nil, shared.ErrNotFound
}

// FindByName locates the first label whose leaf name matches
func (a *GmailAdapter) FindByName(ctx context.Context, userID string, name string) (*mailbox.Folder, error) {
	result, err := a.Discover(ctx, userID)
	if err != nil {
		return nil, err
	}
	if result.Status != mailbox.StatusOK {
		return nil, shared.ErrNotFound
	}

	for i := range result.Folders {
		if strings.EqualFold(result.Folders[i].Name, name) {
			return &result.Folders[i], nil
		}
	}
	return nil, shared.ErrNotFound
}

// GetStatistics summarizes label counts
func (a *GmailAdapter) GetStatistics(ctx context.Context, userID string) (*mailbox.Statistics, error) {
	result, err := a.Discover(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &mailbox.Statistics{
		Status:        result.Status,
		TotalFolders:  result.TotalFolders,
		UserFolders:   result.UserFolders,
		SystemFolders: result.SystemFolders,
		Categories:    len(result.Categories),
	}, nil
}

// listLabels fetches the label list. The second return value is non-nil
// when the caller should short-circuit with a tagged status result.
func (a *GmailAdapter) listLabels(ctx context.Context, userID string) ([]gmailLabel, *mailbox.DiscoverResult, error) {
	client, err := a.clientFor(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, &mailbox.DiscoverResult{Status: mailbox.StatusNotConnected}, nil
		}
		return nil, nil, err
	}

	var list gmailLabelList
	if err := a.doJSON(ctx, client, http.MethodGet, a.baseURL+"/users/me/labels", nil, &list); err != nil {
		return nil, nil, err
	}
	return list.Labels, nil, nil
}

func (a *GmailAdapter) createLabel(ctx context.Context, userID, name, color string) error {
	client, err := a.clientFor(ctx, userID)
	if err != nil {
		return err
	}

	body := map[string]any{
		"name":                  name,
		"labelListVisibility":   "labelShow",
		"messageListVisibility": "show",
	}
	if color != "" {
		body["color"] = map[string]string{
			"backgroundColor": color,
			"textColor":       "#ffffff",
		}
	}

	var created gmailLabel
	err = a.doJSON(ctx, client, http.MethodPost, a.baseURL+"/users/me/labels", body, &created)
	if err != nil {
		var apiErr *providerAPIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
			// Label appeared between list and create; treat as existing
			return nil
		}
		return err
	}
	return nil
}

func (a *GmailAdapter) clientFor(ctx context.Context, userID string) (*http.Client, error) {
	ts, err := a.tokens.TokenSource(ctx, userID)
	if err != nil {
		return nil, err
	}
	return oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, a.httpClient), ts), nil
}

func (a *GmailAdapter) doJSON(ctx context.Context, client *http.Client, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return shared.NewDomainError("PROVIDER_ERROR", fmt.Sprintf("Gmail request failed: %v", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, gmailMaxResponseLen))
	if err != nil {
		return fmt.Errorf("failed to read Gmail response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &providerAPIError{
			Provider:   "gmail",
			StatusCode: resp.StatusCode,
			Body:       truncate(string(data), 512),
		}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode Gmail response: %w", err)
		}
	}
	return nil
}

var _ mailbox.Provider = (*GmailAdapter)(nil)
