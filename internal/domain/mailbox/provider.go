package mailbox

import (
	"context"
)

// DiscoverStatus tags a discovery result so "no data" can never be
// mistaken for "not supported".
type DiscoverStatus string

const (
	// StatusOK means the provider answered and the payload is real,
	// even if the mailbox happens to be empty.
	StatusOK DiscoverStatus = "ok"
	// StatusNotImplemented means the provider variant is not available
	// in this deployment (e.g. the Graph application is not configured).
	StatusNotImplemented DiscoverStatus = "not_implemented"
	// StatusNotConnected means the user has not linked a mailbox yet.
	StatusNotConnected DiscoverStatus = "not_connected"
)

// Provider abstracts folder/label/category discovery and provisioning
// for a concrete mailbox service. Implementations must return structured
// errors on upstream failure so the wizard can offer a retry instead of
// crashing, and Provision must treat every item independently.
type Provider interface {
	// Name returns the provider identifier ("gmail" or "outlook")
	Name() string

	// Discover lists the mailbox's folders and categories
	Discover(ctx context.Context, userID string) (*DiscoverResult, error)

	// Provision creates the requested folders/categories. Items that
	// already exist are reported as skipped, never duplicated; failures
	// are collected per item and do not abort the batch.
	Provision(ctx context.Context, userID string, items []ProvisionItem) (*ProvisionResult, error)

	// FindByPath locates a folder by its full path segments
	FindByPath(ctx context.Context, userID string, path []string) (*Folder, error)

	// FindByName locates the first folder matching a display name
	FindByName(ctx context.Context, userID string, name string) (*Folder, error)

	// GetStatistics summarizes folder counts for the wizard header
	GetStatistics(ctx context.Context, userID string) (*Statistics, error)
}
