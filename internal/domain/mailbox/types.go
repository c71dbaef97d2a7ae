package mailbox

import "strings"

// Folder is a provider-side folder or label, discovered rather than
// owned. The provider remains the source of truth; this shape exists
// only for display and mapping in the wizard.
type Folder struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Path       []string `json:"path"`
	ParentID   string   `json:"parent_id,omitempty"`
	Color      string   `json:"color,omitempty"`
	ChildCount int      `json:"child_count"`
	System     bool     `json:"system"`
}

// FullPath joins the folder path with the provider's separator
func (f *Folder) FullPath() string {
	return strings.Join(f.Path, "/")
}

// NamedCategory is a provider-side category object (Outlook master
// categories; Gmail has no separate category concept).
type NamedCategory struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// DiscoverResult carries everything the label-mapping step needs.
// Status distinguishes a real (possibly empty) answer from an
// unsupported or unconnected provider.
type DiscoverResult struct {
	Status        DiscoverStatus      `json:"status"`
	TotalFolders  int                 `json:"total_folders"`
	UserFolders   int                 `json:"user_folders"`
	SystemFolders int                 `json:"system_folders"`
	Folders       []Folder            `json:"folders"`
	Categories    []NamedCategory     `json:"categories"`
	Taxonomy      map[string][]string `json:"taxonomy,omitempty"`
}

// NotImplementedResult is the tagged answer for an unavailable provider
func NotImplementedResult() *DiscoverResult {
	return &DiscoverResult{Status: StatusNotImplemented}
}

// ItemType selects what Provision creates
type ItemType string

const (
	ItemTypeFolder   ItemType = "folder"
	ItemTypeCategory ItemType = "category"
)

// ProvisionItem describes one folder or category to create
type ProvisionItem struct {
	Path  []string `json:"path"`
	Color string   `json:"color,omitempty"`
	Type  ItemType `json:"type"`
}

// Name returns the leaf segment of the item path
func (i ProvisionItem) Name() string {
	if len(i.Path) == 0 {
		return ""
	}
	return i.Path[len(i.Path)-1]
}

// FullPath joins the item path for reporting
func (i ProvisionItem) FullPath() string {
	return strings.Join(i.Path, "/")
}

// ProvisionFailure records one item that could not be created
type ProvisionFailure struct {
	Path  string `json:"path"`
	Name  string `json:"name"`
	Error string `json:"error"`
}

// ProvisionResult reports per-item outcomes of a provisioning batch.
// Re-provisioning an existing item lands in Skipped, never in Failed.
type ProvisionResult struct {
	Status  DiscoverStatus     `json:"status"`
	Created []string           `json:"created"`
	Skipped []string           `json:"skipped"`
	Failed  []ProvisionFailure `json:"failed"`
}

// NewProvisionResult returns an empty result with non-nil slices
func NewProvisionResult() *ProvisionResult {
	return &ProvisionResult{
		Status:  StatusOK,
		Created: []string{},
		Skipped: []string{},
		Failed:  []ProvisionFailure{},
	}
}

// Statistics summarizes a mailbox for the wizard header
type Statistics struct {
	Status        DiscoverStatus `json:"status"`
	TotalFolders  int            `json:"total_folders"`
	UserFolders   int            `json:"user_folders"`
	SystemFolders int            `json:"system_folders"`
	Categories    int            `json:"categories"`
}
