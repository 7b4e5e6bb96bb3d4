// Package errors provides error handling for genhash.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - User-facing hints and details
//
// Usage:
//
//	// Wrap with context
//	if err := safelist.Decode(r); err != nil {
//	    return errors.Wrap(err, "failed to read reference list")
//	}
//
//	// Add hints for users
//	return errors.WithHint(err, "pass --replace to discard the previous run")
//
//	// Check errors
//	if errors.Is(err, errors.ErrOutputExists) {
//	    // refuse to overwrite
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint           = crdb.WithHint
	WithHintf          = crdb.WithHintf
	WithDetail         = crdb.WithDetail
	WithDetailf        = crdb.WithDetailf
	WithSecondaryError = crdb.WithSecondaryError
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails

	GetReportableStackTrace = crdb.GetReportableStackTrace
)

// Assertions
var (
	AssertionFailedf = crdb.AssertionFailedf
)

// Sentinel errors shared across genhash packages.
// Wrap these with errors.Wrap() to add context while preserving the type.
var (
	// ErrNotFound indicates the requested snapshot or resource does not exist
	ErrNotFound = New("not found")

	// ErrInvalidRequest indicates a malformed request or argument
	ErrInvalidRequest = New("invalid request")

	// ErrMalformedList indicates a safelist file could not be parsed
	ErrMalformedList = New("malformed safelist")

	// ErrMalformedEntry indicates an entry lacks a field needed to hash it
	ErrMalformedEntry = New("malformed safelist entry")

	// ErrUnsupportedType indicates an entry type the hash function does not know
	ErrUnsupportedType = New("unsupported entry type")

	// ErrOutputExists indicates a create-exclusive write found its destination in place
	ErrOutputExists = New("output already exists")

	// ErrVerificationFailed indicates the verifier reported at least one failure
	ErrVerificationFailed = New("verification failed")
)

// IsNotFoundError checks if an error is or wraps ErrNotFound
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsMalformedError reports whether err describes unusable input, either a list
// that does not parse or an entry that cannot be hashed.
func IsMalformedError(err error) bool {
	return err != nil && IsAny(err, ErrMalformedList, ErrMalformedEntry, ErrUnsupportedType)
}

// NewNotFoundError creates a not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Wrap(ErrNotFound, Newf(format, args...).Error())
}

// NewInvalidRequestError creates an invalid-request error with a formatted message
func NewInvalidRequestError(format string, args ...interface{}) error {
	return Wrap(ErrInvalidRequest, Newf(format, args...).Error())
}

// NewMalformedEntryError creates a malformed-entry error with a formatted message
func NewMalformedEntryError(format string, args ...interface{}) error {
	return Wrap(ErrMalformedEntry, Newf(format, args...).Error())
}
