package engine

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/creatorlens/creatorlens/internal/providers"
)

// ErrorType classifies a per-account refresh failure.
type ErrorType string

const (
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeRateLimited ErrorType = "rate_limited"
	ErrorTypeInvalidID   ErrorType = "invalid_id"
	ErrorTypeStorage     ErrorType = "storage"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// ValidationError reports bad caller input. It is never retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Message
}

// IsValidationError reports whether err is a caller contract violation.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

var invalidIDPattern = regexp.MustCompile(`invalid\s+\S*\s*id`)

// ClassifyFetchError maps a provider fetch failure onto the retry
// taxonomy, checking in priority order: not_found, rate_limited,
// invalid_id, unknown. A fetch timeout carries no status code and
// classifies as unknown. The returned status code is 0 when the error
// did not surface an HTTP status.
func ClassifyFetchError(err error) (ErrorType, int) {
	if err == nil {
		return ErrorTypeUnknown, 0
	}

	status := 0
	var apiErr *providers.APIError
	if errors.As(err, &apiErr) {
		status = apiErr.StatusCode
	}
	msg := strings.ToLower(err.Error())

	switch {
	case status == http.StatusNotFound || strings.Contains(msg, "not found"):
		return ErrorTypeNotFound, status
	case status == http.StatusTooManyRequests || strings.Contains(msg, "rate limit"):
		return ErrorTypeRateLimited, status
	case invalidIDPattern.MatchString(msg):
		return ErrorTypeInvalidID, status
	default:
		return ErrorTypeUnknown, status
	}
}
