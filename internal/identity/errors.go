package identity

import "errors"

// Sentinel error conditions surfaced to callers.
var (
	// ErrNoFaceFound means a query image contained no usable face. Surfaced
	// as a distinct user-facing condition, never a silent empty result.
	ErrNoFaceFound = errors.New("no face found in image")

	// ErrPersonNotFound means a person reference did not resolve.
	ErrPersonNotFound = errors.New("person not found")
)
