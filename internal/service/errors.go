package service

import "errors"

var (
	// ErrInvalidInput indicates a request that failed presence or shape checks.
	ErrInvalidInput = errors.New("invalid input")
	// ErrProductNotFound is returned when a product id matches nothing in the catalog.
	ErrProductNotFound = errors.New("product not found")
	// ErrAdjustmentFailed is returned when at least one stock decrement of a batch failed.
	ErrAdjustmentFailed = errors.New("stock adjustment failed")
)
