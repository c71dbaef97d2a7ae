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
	graphBaseURL        = "https://graph.microsoft.com/v1.0"
	graphMaxResponseLen = 10 * 1024 * 1024
)

// Outlook's reserved folders, by display name
var outlookSystemFolders = map[string]struct{}{
	"inbox":                {},
	"drafts":               {},
	"sent items":           {},
	"deleted items":        {},
	"junk email":           {},
	"outbox":               {},
	"archive":              {},
	"conversation history": {},
}

// OutlookAdapter implements mailbox.Provider against the Microsoft Graph
// API. Folders come from /me/mailFolders and categories from
// /me/outlook/masterCategories. When the Graph application is not
// configured for this deployment, every call answers with the
// not_implemented status instead of an error.
type OutlookAdapter struct {
	tokens     TokenSourceProvider
	configured bool
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

// OutlookOption configures the adapter
type OutlookOption func(*OutlookAdapter)

// WithOutlookBaseURL overrides the API base URL (used in tests)
func WithOutlookBaseURL(baseURL string) OutlookOption {
	return func(a *OutlookAdapter) {
		a.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithOutlookHTTPClient overrides the HTTP client
func WithOutlookHTTPClient(client *http.Client) OutlookOption {
	return func(a *OutlookAdapter) {
		a.httpClient = client
	}
}

// NewOutlookAdapter creates an Outlook adapter. configured reports
// whether a Graph application is registered for this deployment.
func NewOutlookAdapter(tokens TokenSourceProvider, configured bool, logger *zap.Logger, opts ...OutlookOption) *OutlookAdapter {
	a := &OutlookAdapter{
		tokens:     tokens,
		configured: configured,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    graphBaseURL,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the provider identifier
func (a *OutlookAdapter) Name() string {
	return "outlook"
}

type graphFolder struct {
	ID               string `json:"id"`
	DisplayName      string `json:"displayName"`
	ParentFolderID   string `json:"parentFolderId,omitempty"`
	ChildFolderCount int    `json:"childFolderCount"`
}

type graphFolderList struct {
	Value []graphFolder `json:"value"`
}

type graphCategory struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Color       string `json:"color"`
}

type graphCategoryList struct {
	Value []graphCategory `json:"value"`
}

// Discover lists mail folders and master categories
func (a *OutlookAdapter) Discover(ctx context.Context, userID string) (*mailbox.DiscoverResult, error) {
	if !a.configured {
		return mailbox.NotImplementedResult(), nil
	}

	client, err := a.clientFor(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return &mailbox.DiscoverResult{Status: mailbox.StatusNotConnected}, nil
		}
		return nil, err
	}

	folders, err := a.listFolders(ctx, client)
	if err != nil {
		return nil, err
	}

	var categories graphCategoryList
	if err := a.doJSON(ctx, client, http.MethodGet, a.baseURL+"/me/outlook/masterCategories", nil, &categories); err != nil {
		return nil, err
	}

	var userCount, systemCount int
	for _, f := range folders {
		if f.System {
			systemCount++
		} else {
			userCount++
		}
	}

	namedCategories := make([]mailbox.NamedCategory, 0, len(categories.Value))
	for _, c := range categories.Value {
		namedCategories = append(namedCategories, mailbox.NamedCategory{
			ID:    c.ID,
			Name:  c.DisplayName,
			Color: c.Color,
		})
	}

	return &mailbox.DiscoverResult{
		Status:        mailbox.StatusOK,
		TotalFolders:  len(folders),
		UserFolders:   userCount,
		SystemFolders: systemCount,
		Folders:       folders,
		Categories:    namedCategories,
	}, nil
}

// Provision creates folders and categories. Folder colors are mapped to
// the nearest Outlook preset; items that already exist are skipped.
func (a *OutlookAdapter) Provision(ctx context.Context, userID string, items []mailbox.ProvisionItem) (*mailbox.ProvisionResult, error) {
	if !a.configured {
		return &mailbox.ProvisionResult{Status: mailbox.StatusNotImplemented}, nil
	}

	client, err := a.clientFor(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return &mailbox.ProvisionResult{Status: mailbox.StatusNotConnected}, nil
		}
		return nil, err
	}

	folders, err := a.listFolders(ctx, client)
	if err != nil {
		return nil, err
	}
	folderIDsByPath := make(map[string]string, len(folders))
	for _, f := range folders {
		folderIDsByPath[strings.ToLower(f.FullPath())] = f.ID
	}

	var categories graphCategoryList
	if err := a.doJSON(ctx, client, http.MethodGet, a.baseURL+"/me/outlook/masterCategories", nil, &categories); err != nil {
		return nil, err
	}
	existingCategories := make(map[string]struct{}, len(categories.Value))
	for _, c := range categories.Value {
		existingCategories[strings.ToLower(c.DisplayName)] = struct{}{}
	}

	result := mailbox.NewProvisionResult()
	for _, item := range items {
		switch item.Type {
		case mailbox.ItemTypeCategory:
			a.provisionCategory(ctx, client, item, existingCategories, result)
		default:
			a.provisionFolder(ctx, client, item, folderIDsByPath, result)
		}
	}

	a.logger.Info("outlook provisioning finished",
		zap.Int("created", len(result.Created)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

func (a *OutlookAdapter) provisionCategory(ctx context.Context, client *http.Client, item mailbox.ProvisionItem, existing map[string]struct{}, result *mailbox.ProvisionResult) {
	name := item.Name()
	if name == "" {
		result.Failed = append(result.Failed, mailbox.ProvisionFailure{Name: name, Error: "empty category name"})
		return
	}
	if _, ok := existing[strings.ToLower(name)]; ok {
		result.Skipped = append(result.Skipped, name)
		return
	}

	body := map[string]string{
		"displayName": name,
		"color":       mailbox.HexToO365Color(item.Color),
	}
	err := a.doJSON(ctx, client, http.MethodPost, a.baseURL+"/me/outlook/masterCategories", body, nil)
	if err != nil {
		var apiErr *providerAPIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
			result.Skipped = append(result.Skipped, name)
			existing[strings.ToLower(name)] = struct{}{}
			return
		}
		result.Failed = append(result.Failed, mailbox.ProvisionFailure{Name: name, Error: err.Error()})
		return
	}
	existing[strings.ToLower(name)] = struct{}{}
	result.Created = append(result.Created, name)
}

func (a *OutlookAdapter) provisionFolder(ctx context.Context, client *http.Client, item mailbox.ProvisionItem, folderIDsByPath map[string]string, result *mailbox.ProvisionResult) {
	fullPath := item.FullPath()
	if fullPath == "" {
		result.Failed = append(result.Failed, mailbox.ProvisionFailure{Path: fullPath, Error: "empty path"})
		return
	}

	parentID := ""
	for i := 1; i <= len(item.Path); i++ {
		prefix := strings.Join(item.Path[:i], "/")
		key := strings.ToLower(prefix)
		if id, ok := folderIDsByPath[key]; ok {
			parentID = id
			if i == len(item.Path) {
				result.Skipped = append(result.Skipped, fullPath)
			}
			continue
		}

		created, err := a.createFolder(ctx, client, parentID, item.Path[i-1])
		if err != nil {
			result.Failed = append(result.Failed, mailbox.ProvisionFailure{
				Path: fullPath, Name: item.Name(), Error: err.Error(),
			})
			return
		}
		folderIDsByPath[key] = created.ID
		parentID = created.ID
		if i == len(item.Path) {
			result.Created = append(result.Created, fullPath)
		}
	}
}

func (a *OutlookAdapter) createFolder(ctx context.Context, client *http.Client, parentID, displayName string) (*graphFolder, error) {
	url := a.baseURL + "/me/mailFolders"
	if parentID != "" {
		url = fmt.Sprintf("%s/me/mailFolders/%s/childFolders", a.baseURL, parentID)
	}

	var created graphFolder
	err := a.doJSON(ctx, client, http.MethodPost, url, map[string]string{"displayName": displayName}, &created)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// FindByPath locates a folder by its full path segments
func (a *OutlookAdapter) FindByPath(ctx context.Context, userID string, path []string) (*mailbox.Folder, error) {
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

// FindByName locates the first folder matching a display name
func (a *OutlookAdapter) FindByName(ctx context.Context, userID string, name string) (*mailbox.Folder, error) {
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

// GetStatistics summarizes folder and category counts
func (a *OutlookAdapter) GetStatistics(ctx context.Context, userID string) (*mailbox.Statistics, error) {
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

// listFolders fetches top-level folders plus one level of children,
// which covers the nesting depth the wizard creates.
func (a *OutlookAdapter) listFolders(ctx context.Context, client *http.Client) ([]mailbox.Folder, error) {
	var top graphFolderList
	if err := a.doJSON(ctx, client, http.MethodGet, a.baseURL+"/me/mailFolders?$top=200", nil, &top); err != nil {
		return nil, err
	}

	folders := make([]mailbox.Folder, 0, len(top.Value))
	for _, f := range top.Value {
		_, system := outlookSystemFolders[strings.ToLower(f.DisplayName)]
		folders = append(folders, mailbox.Folder{
			ID:         f.ID,
			Name:       f.DisplayName,
			Path:       []string{f.DisplayName},
			ChildCount: f.ChildFolderCount,
			System:     system,
		})

		if f.ChildFolderCount == 0 {
			continue
		}
		var children graphFolderList
		url := fmt.Sprintf("%s/me/mailFolders/%s/childFolders?$top=200", a.baseURL, f.ID)
		if err := a.doJSON(ctx, client, http.MethodGet, url, nil, &children); err != nil {
			return nil, err
		}
		for _, c := range children.Value {
			folders = append(folders, mailbox.Folder{
				ID:         c.ID,
				Name:       c.DisplayName,
				Path:       []string{f.DisplayName, c.DisplayName},
				ParentID:   f.ID,
				ChildCount: c.ChildFolderCount,
			})
		}
	}
	return folders, nil
}

func (a *OutlookAdapter) clientFor(ctx context.Context, userID string) (*http.Client, error) {
	ts, err := a.tokens.TokenSource(ctx, userID)
	if err != nil {
		return nil, err
	}
	return oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, a.httpClient), ts), nil
}

func (a *OutlookAdapter) doJSON(ctx context.Context, client *http.Client, method, url string, body, out any) error {
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
		return shared.NewDomainError("PROVIDER_ERROR", fmt.Sprintf("Graph request failed: %v", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, graphMaxResponseLen))
	if err != nil {
		return fmt.Errorf("failed to read Graph response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &providerAPIError{
			Provider:   "outlook",
			StatusCode: resp.StatusCode,
			Body:       truncate(string(data), 512),
		}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode Graph response: %w", err)
		}
	}
	return nil
}

var _ mailbox.Provider = (*OutlookAdapter)(nil)
