package repository

import "errors"

var (
	// ErrNotFound is returned when no record matches the given key.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("record already exists")
	// ErrInsufficientStock is returned by guarded decrements that would drive stock negative.
	ErrInsufficientStock = errors.New("insufficient stock")
)
