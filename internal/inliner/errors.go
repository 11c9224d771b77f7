package inliner

import "errors"

// Sentinel errors for image retrieval and inlining.
var (
	ErrParse             = errors.New("parsing HTML fragment")
	ErrHTTPStatus        = errors.New("unexpected HTTP status")
	ErrTooLarge          = errors.New("image exceeds size limit")
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
	ErrOutsideRoot       = errors.New("file outside allowed directory")
	ErrUnresolvable      = errors.New("relative URL without a base location")
)
