package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound     = errors.New("guest not found")
	ErrInvalidID    = errors.New("invalid guest id")
	ErrCorruptEntry = errors.New("corrupt guest record")
)
