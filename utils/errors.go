package utils

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

type APIError struct {
	Code    int    `json:"-"`
	Reason  string `json:"code"`
	Message string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Is matches on status and reason so sentinel APIErrors work with errors.Is.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Reason == t.Reason
}

func NewAPIError(code int, reason, message string) *APIError {
	return &APIError{
		Code:    code,
		Reason:  reason,
		Message: message,
	}
}

func NewAPIErrorWithDetails(code int, reason, message, details string) *APIError {
	return &APIError{
		Code:    code,
		Reason:  reason,
		Message: message,
		Details: details,
	}
}

func NewValidationError(reason, message string) *APIError {
	return NewAPIError(http.StatusBadRequest, reason, message)
}

func NewConflictError(reason, message string) *APIError {
	return NewAPIError(http.StatusConflict, reason, message)
}

func NewNotFoundError(reason, message string) *APIError {
	return NewAPIError(http.StatusNotFound, reason, message)
}

const (
	ReasonInvalidRequest           = "invalid_request"
	ReasonValidationFailed         = "validation_failed"
	ReasonUnauthorized             = "unauthorized"
	ReasonForbidden                = "forbidden"
	ReasonNotFound                 = "not_found"
	ReasonDuplicate                = "duplicate"
	ReasonRateLimited              = "rate_limited"
	ReasonRequestTooLarge          = "request_too_large"
	ReasonInternal                 = "internal_error"
	ReasonUnavailable              = "service_unavailable"
	ReasonIdempotencyKeyRequired   = "idempotency_key_required"
	ReasonInvalidIdempotencyKey    = "invalid_idempotency_key"
	ReasonIdempotencyKeyInProgress = "idempotency_key_in_progress"
	ReasonIdempotencyKeyReused     = "idempotency_key_reused"
	ReasonInvalidDateRange         = "invalid_date_range"
	ReasonUnknownReference         = "unknown_reference"
	ReasonVehicleNotRentable       = "vehicle_not_rentable"
	ReasonVehicleUnavailable       = "vehicle_unavailable"
	ReasonIllegalTransition        = "illegal_status_transition"
	ReasonBookingLocked            = "booking_locked"
	ReasonBookingNumberExhausted   = "booking_number_exhausted"
)

var (
	ErrInvalidRequest     = NewAPIError(http.StatusBadRequest, ReasonInvalidRequest, "Invalid request")
	ErrUnauthorized       = NewAPIError(http.StatusUnauthorized, ReasonUnauthorized, "Unauthorized")
	ErrForbidden          = NewAPIError(http.StatusForbidden, ReasonForbidden, "Insufficient role for this operation")
	ErrNotFound           = NewAPIError(http.StatusNotFound, ReasonNotFound, "Resource not found")
	ErrDuplicate          = NewAPIError(http.StatusConflict, ReasonDuplicate, "Resource already exists")
	ErrTooManyRequests    = NewAPIError(http.StatusTooManyRequests, ReasonRateLimited, "Rate limit exceeded")
	ErrInternalServer     = NewAPIError(http.StatusInternalServerError, ReasonInternal, "Internal server error")
	ErrServiceUnavailable = NewAPIError(http.StatusServiceUnavailable, ReasonUnavailable, "Service unavailable")
	ErrRequestTooLarge    = NewAPIError(http.StatusRequestEntityTooLarge, ReasonRequestTooLarge, "Request body too large")
)

var (
	ErrIdempotencyKeyRequired   = NewValidationError(ReasonIdempotencyKeyRequired, "Idempotency-Key header is required for this request")
	ErrInvalidIdempotencyKey    = NewValidationError(ReasonInvalidIdempotencyKey, "Idempotency-Key must be a UUID or at least 16 characters of letters, digits, '-' or '_'")
	ErrIdempotencyKeyInProgress = NewConflictError(ReasonIdempotencyKeyInProgress, "A request with this Idempotency-Key is already being processed, retry later")
	ErrIdempotencyKeyReused     = NewConflictError(ReasonIdempotencyKeyReused, "Idempotency-Key was already used for a different request")
	ErrVehicleUnavailable       = NewConflictError(ReasonVehicleUnavailable, "Vehicle is not available for the selected dates")
)

func WrapError(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func hasCode(err error, code int) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Code == code
}

func IsValidation(err error) bool {
	return hasCode(err, http.StatusBadRequest)
}

func IsConflict(err error) bool {
	return hasCode(err, http.StatusConflict)
}

func IsNotFound(err error) bool {
	return hasCode(err, http.StatusNotFound)
}

func GetHTTPStatusFromError(err error) int {
	if apiErr, ok := AsAPIError(err); ok {
		return apiErr.Code
	}
	return http.StatusInternalServerError
}

// ToAPIError returns the APIError carried by err, or a sanitized internal error.
func ToAPIError(err error) *APIError {
	if apiErr, ok := AsAPIError(err); ok {
		return apiErr
	}
	return ErrInternalServer
}

func LogError(ctx context.Context, err error, message string, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}

	fields["error"] = err.Error()

	Error(ctx, message, fields)
}
