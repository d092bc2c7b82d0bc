package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/creatorlens/creatorlens/internal/providers"
)

func TestClassifyFetchError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantType   ErrorType
		wantStatus int
	}{
		{
			name:       "404 status",
			err:        &providers.APIError{StatusCode: 404, Message: "no such user"},
			wantType:   ErrorTypeNotFound,
			wantStatus: 404,
		},
		{
			name:     "not found phrasing without status",
			err:      errors.New("account not found upstream"),
			wantType: ErrorTypeNotFound,
		},
		{
			name:       "429 status",
			err:        &providers.APIError{StatusCode: 429, Message: "slow down"},
			wantType:   ErrorTypeRateLimited,
			wantStatus: 429,
		},
		{
			name:     "rate limit phrasing",
			err:      errors.New("provider rate limit exceeded"),
			wantType: ErrorTypeRateLimited,
		},
		{
			name:     "invalid id phrasing",
			err:      errors.New("invalid account id supplied"),
			wantType: ErrorTypeInvalidID,
		},
		{
			name:     "invalid bare id phrasing",
			err:      errors.New("invalid id"),
			wantType: ErrorTypeInvalidID,
		},
		{
			name:     "timeout is unknown",
			err:      fmt.Errorf("fetch failed: %w", context.DeadlineExceeded),
			wantType: ErrorTypeUnknown,
		},
		{
			name:       "wrapped api error keeps status",
			err:        fmt.Errorf("instagram: %w", &providers.APIError{StatusCode: 404, Message: "gone"}),
			wantType:   ErrorTypeNotFound,
			wantStatus: 404,
		},
		{
			name:       "not found beats rate limit wording",
			err:        &providers.APIError{StatusCode: 404, Message: "rate limit when looking up"},
			wantType:   ErrorTypeNotFound,
			wantStatus: 404,
		},
		{
			name:     "unclassified",
			err:      errors.New("connection reset by peer"),
			wantType: ErrorTypeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotType, gotStatus := ClassifyFetchError(tt.err)
			if gotType != tt.wantType {
				t.Errorf("ClassifyFetchError() type = %q, want %q", gotType, tt.wantType)
			}
			if gotStatus != tt.wantStatus {
				t.Errorf("ClassifyFetchError() status = %d, want %d", gotStatus, tt.wantStatus)
			}
		})
	}
}

func TestIsValidationError(t *testing.T) {
	ve := &ValidationError{Message: "bad input"}
	if !IsValidationError(fmt.Errorf("wrapped: %w", ve)) {
		t.Error("expected wrapped validation error to be detected")
	}
	if IsValidationError(errors.New("other")) {
		t.Error("plain error should not be a validation error")
	}
}
