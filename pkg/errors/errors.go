// Package errors provides the coded error type shared by the packaging,
// digest and signature layers.
//
// Every failure surfaced by blogify carries a Code so callers can tell a
// missing source file from a corrupt package or a malformed signature
// without matching on message text. Offending paths and entry names travel
// in Metadata.
package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an error that carries no blogify code.
	CodeUnknown Code = "UNKNOWN"

	// Build errors
	CodeSourceFileMissing Code = "SOURCE_FILE_MISSING"
	CodeOutputConflict    Code = "OUTPUT_CONFLICT"
	CodeInvalidInput      Code = "INVALID_INPUT"

	// Package read errors
	CodeNotAPackage  Code = "NOT_A_PACKAGE"
	CodeCorruptEntry Code = "CORRUPT_ENTRY"

	// Signature errors
	CodeKeyError             Code = "KEY_ERROR"
	CodeSignatureFormatError Code = "SIGNATURE_FORMAT_ERROR"
	CodeUnverifiable         Code = "UNVERIFIABLE"

	// Propagated low-level failures
	CodeIOFailure Code = "IO_FAILURE"
)

// Metadata keys used across packages.
const (
	MetaPath  = "path"
	MetaEntry = "entry"
)

// Error is the domain error type with structured metadata.
type Error struct {
	Code     Code              // Machine-readable error code
	Message  string            // Human-readable message
	Metadata map[string]string // Offending path, entry name, ...
	Cause    error             // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if len(e.Metadata) > 0 {
		keys := make([]string, 0, len(e.Metadata))
		for k := range e.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%q", k, e.Metadata[k])
		}
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a simple domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WithMetadata creates a domain error with metadata.
func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Metadata: metadata,
	}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapWithMetadata creates a domain error with both metadata and a cause.
func WrapWithMetadata(code Code, message string, metadata map[string]string, cause error) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Metadata: metadata,
		Cause:    cause,
	}
}

// Path is shorthand for metadata holding a single offending path.
func Path(path string) map[string]string {
	return map[string]string{MetaPath: path}
}

// Entry is shorthand for metadata holding a package path and entry name.
func Entry(path, entry string) map[string]string {
	return map[string]string{MetaPath: path, MetaEntry: entry}
}

// CodeOf returns the code of the first *Error in err's chain, or CodeUnknown.
func CodeOf(err error) Code {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// HasCode reports whether err's chain contains an *Error with code.
func HasCode(err error, code Code) bool {
	return stderrors.Is(err, &Error{Code: code})
}
