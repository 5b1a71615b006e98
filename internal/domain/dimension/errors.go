package dimension

import "errors"

// ErrMalformedInput marks scores or type codes rejected at the boundary.
var ErrMalformedInput = errors.New("malformed input")
