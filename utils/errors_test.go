package utils

import (
	"errors"
	"net/http"
	"testing"
)

func TestAPIError_IsMatchesCodeAndReason(t *testing.T) {
	err := WrapError(NewConflictError(ReasonVehicleUnavailable, "busy"), "create booking")

	if !errors.Is(err, ErrVehicleUnavailable) {
		t.Error("expected wrapped conflict to match ErrVehicleUnavailable")
	}
	if errors.Is(err, ErrDuplicate) {
		t.Error("different reason must not match")
	}
	if !IsConflict(err) {
		t.Error("IsConflict() = false, want true")
	}
	if IsValidation(err) || IsNotFound(err) {
		t.Error("conflict classified as another kind")
	}
}

func TestToAPIError_SanitizesUnknownErrors(t *testing.T) {
	apiErr := ToAPIError(errors.New("pq: connection refused"))

	if apiErr.Code != http.StatusInternalServerError {
		t.Errorf("Code = %d, want 500", apiErr.Code)
	}
	if apiErr.Message == "pq: connection refused" {
		t.Error("internal error text leaked to the client")
	}
}

func TestGetHTTPStatusFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", NewValidationError(ReasonInvalidDateRange, "bad range"), http.StatusBadRequest},
		{"not found", ErrNotFound, http.StatusNotFound},
		{"in progress", ErrIdempotencyKeyInProgress, http.StatusConflict},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetHTTPStatusFromError(tt.err); got != tt.want {
				t.Errorf("GetHTTPStatusFromError() = %d, want %d", got, tt.want)
			}
		})
	}
}
