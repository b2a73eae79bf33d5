// Package corekverr defines the error kinds the engine surfaces to its
// caller, per spec.md §7. AllocFail and IntegrityViolation are fatal and
// are not meant to be handled by command code; the rest are ordinary
// discriminated results, comparable with errors.Is.
package corekverr

import "errors"

var (
	// ErrAllocFail indicates a non-try allocation failed. Non-try
	// allocator calls invoke the installed OOM handler instead of
	// returning this error to a caller that can recover; it exists so
	// the OOM handler itself has a typed cause to report.
	ErrAllocFail = errors.New("corekv: allocation failed")

	// ErrWrongType indicates a typed operation was invoked on a value
	// whose type does not match.
	ErrWrongType = errors.New("corekv: wrong type")

	// ErrNotFound indicates a lookup miss. Not fatal; callers branch on it.
	ErrNotFound = errors.New("corekv: not found")

	// ErrEncodingOverflow indicates an integer parse or length would
	// exceed the current encoding's representable range. Callers
	// typically respond by promoting the value (spec.md §4.11.3) and
	// retrying.
	ErrEncodingOverflow = errors.New("corekv: encoding overflow")

	// ErrDuplicateKey indicates an add-unique API found the key already present.
	ErrDuplicateKey = errors.New("corekv: duplicate key")

	// ErrIntegrityViolation indicates a packed-encoding validator found
	// structural corruption. Fatal on non-persistence paths.
	ErrIntegrityViolation = errors.New("corekv: integrity violation")

	// ErrOutOfRange indicates a range query with min > max under the
	// exclusivity rules in effect.
	ErrOutOfRange = errors.New("corekv: out of range")
)
