package milestone

import (
	"errors"

	"github.com/okian/artype/internal/adapters/repository"
)

// Sentinel kinds for tracker errors.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = repository.ErrNotFound
)
