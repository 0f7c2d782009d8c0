package tables

import "errors"

// Error kinds surfaced to callers (§7). BadOffset itself is
// opentype.ErrBadOffset, propagated unwrapped from the Loader.
var (
	ErrBadFont             = errors.New("tables: bad font")
	ErrMissingTable        = errors.New("tables: required table missing")
	ErrUnsupportedFormat   = errors.New("tables: unsupported table format")
	ErrInternalOverflow    = errors.New("tables: feature mask budget exceeded")
)
