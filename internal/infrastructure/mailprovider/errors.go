package mailprovider

import "fmt"

// providerAPIError carries the upstream HTTP status so callers can
// distinguish conflicts (item exists) from real failures.
type providerAPIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *providerAPIError) Error() string {
	return fmt.Sprintf("%s API returned %d: %s", e.Provider, e.StatusCode, e.Body)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
