package mailprovider

import (
	"context"

	"golang.org/x/oauth2"
)

// TokenSourceProvider yields a per-user OAuth token source for a mailbox
// provider. Returns shared.ErrNotFound when the user never connected the
// provider; adapters translate that into a not_connected result instead
// of an error so the wizard can prompt for connection.
type TokenSourceProvider interface {
	TokenSource(ctx context.Context, userID string) (oauth2.TokenSource, error)
}
