package scoring

import (
	"errors"
	"fmt"

	"github.com/okian/artype/internal/domain/dimension"
)

// Sentinel error kinds for this package. Callers use errors.Is.
var (
	// ErrMalformedInput is re-exported so callers need only this package.
	ErrMalformedInput       = dimension.ErrMalformedInput
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrDivisionByZero is a kind of ErrInvalidConfiguration.
	ErrDivisionByZero = fmt.Errorf("%w: division by zero", ErrInvalidConfiguration)
	ErrUnknownVariant = errors.New("unknown variant")
)
