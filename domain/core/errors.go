package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	ErrNotFound = errors.New("resource not found")

	// Dataset errors
	ErrEmptyDataset       = errors.New("dataset has no rows")
	ErrRaggedReference    = errors.New("reference columns have different lengths")
	ErrUnsupportedFormat  = errors.New("unsupported data format")
	ErrNoReference        = errors.New("no reference dataset available")
	ErrBatchLimitExceeded = errors.New("batch size limit exceeded")
)

// NewNotFoundError wraps ErrNotFound with the resource and id
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// NewRaggedReferenceError reports a column whose length disagrees with the table
func NewRaggedReferenceError(column string, got, want int) error {
	return fmt.Errorf("%w: column %s has %d rows, expected %d", ErrRaggedReference, column, got, want)
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDatasetError reports whether err describes unusable input data
func IsDatasetError(err error) bool {
	return errors.Is(err, ErrEmptyDataset) ||
		errors.Is(err, ErrRaggedReference) ||
		errors.Is(err, ErrUnsupportedFormat) ||
		errors.Is(err, ErrNoReference)
}
