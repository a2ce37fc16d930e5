package services

import (
	"errors"
	"fmt"

	"github.com/malwarebo/rentops/stores"
	"github.com/malwarebo/rentops/utils"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// referenceError turns a missing referenced entity into a validation error.
func referenceError(err error, what string) error {
	if errors.Is(err, stores.ErrNotFound) {
		return utils.NewValidationError(utils.ReasonUnknownReference, fmt.Sprintf("%s not found", what))
	}
	return fmt.Errorf("load %s: %w", what, err)
}

// notFoundError is for the resource a request addresses directly.
func notFoundError(err error, what string) error {
	if errors.Is(err, stores.ErrNotFound) {
		return utils.NewNotFoundError(utils.ReasonNotFound, fmt.Sprintf("%s not found", what))
	}
	return fmt.Errorf("load %s: %w", what, err)
}

func duplicateError(err error, message string) error {
	if errors.Is(err, stores.ErrDuplicate) {
		return utils.NewConflictError(utils.ReasonDuplicate, message)
	}
	return err
}

// NormalizePage applies the default and maximum page size.
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
