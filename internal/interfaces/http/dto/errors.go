package dto

import "net/http"

// Error codes shared between handlers and middleware. Domain errors
// carry these same codes; the map below decides the HTTP status.
const (
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeConflict     = "CONFLICT"
	ErrCodeRateLimited  = "RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// Malformed or invalid input -> 400
	ErrCodeBadRequest:  http.StatusBadRequest,
	ErrCodeValidation:  http.StatusBadRequest,
	"INVALID_INPUT":    http.StatusBadRequest,
	"INVALID_NAME":     http.StatusBadRequest,
	"INVALID_EMAIL":    http.StatusBadRequest,
	"INVALID_PASSWORD": http.StatusBadRequest,
	"INVALID_LABEL":    http.StatusBadRequest,
	"INVALID_STATE":    http.StatusBadRequest,
	"WEAK_PASSWORD":    http.StatusBadRequest,

	// Password reset tokens are a 400, not a 401: the caller is not
	// authenticating, their link is simply no longer usable.
	"TOKEN_INVALID": http.StatusBadRequest,
	"TOKEN_EXPIRED": http.StatusBadRequest,
	"TOKEN_USED":    http.StatusBadRequest,

	// Authentication failures -> 401
	ErrCodeUnauthorized:   http.StatusUnauthorized,
	"INVALID_CREDENTIALS": http.StatusUnauthorized,
	"ACCOUNT_LOCKED":      http.StatusUnauthorized,

	ErrCodeForbidden: http.StatusForbidden,
	ErrCodeNotFound:  http.StatusNotFound,

	// Duplicates and dependent-resource conflicts -> 409
	"ALREADY_EXISTS": http.StatusConflict,
	ErrCodeConflict:  http.StatusConflict,

	ErrCodeRateLimited: http.StatusTooManyRequests,

	// Upstream provider problems
	"NOT_IMPLEMENTED":     http.StatusNotImplemented,
	"PROVIDER_ERROR":      http.StatusBadGateway,
	"PASSWORD_HASH_ERROR": http.StatusInternalServerError,
	ErrCodeInternal:       http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status for an error code, defaulting
// to 500 for codes it does not recognize
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
