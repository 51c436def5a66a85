package access

import "errors"

var (
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrAccessDenied covers both a missing file and a file owned by someone
	// else, so callers can't probe for other users' files.
	ErrAccessDenied = errors.New("file not found or access denied")
	ErrValidation   = errors.New("invalid file metadata")
	// ErrDependencyUnavailable hides store failures from callers; the cause is logged.
	ErrDependencyUnavailable = errors.New("service temporarily unavailable")
)
