// Package errs defines the typed errors surfaced by the public API.
// Callers branch on these with errors.As rather than string matching.
package errs

import (
	"errors"
	"fmt"
)

// ConfigurationError reports an invalid value in the runtime configuration,
// detected before any model call is made.
type ConfigurationError struct {
	Key     string
	Value   any
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("configuration error: %s", e.Message)
	}
	return fmt.Sprintf("configuration error: %s=%v: %s", e.Key, e.Value, e.Message)
}

// ValidationError reports caller input that fails a precondition, such as an
// out-of-range page number or a malformed manifest row.
type ValidationError struct {
	Parameter string
	Value     any
	Message   string
}

func (e *ValidationError) Error() string {
	if e.Parameter == "" {
		return fmt.Sprintf("validation error: %s", e.Message)
	}
	return fmt.Sprintf("validation error: %s=%v: %s", e.Parameter, e.Value, e.Message)
}

// ModelInvocationError reports a model call that failed after all retries
// were spent, or that never produced usable output. LastOutput carries the
// final raw model response when one was received.
type ModelInvocationError struct {
	Model      string
	Attempts   int
	LastOutput string
	Message    string
	Err        error
}

func (e *ModelInvocationError) Error() string {
	msg := fmt.Sprintf("model invocation failed: model=%s attempts=%d: %s", e.Model, e.Attempts, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ModelInvocationError) Unwrap() error { return e.Err }

// StoreAccessError reports a failed read or write against the object store
// backing documents and classifier samples.
type StoreAccessError struct {
	Bucket  string
	Key     string
	Op      string
	Message string
	Err     error
}

func (e *StoreAccessError) Error() string {
	loc := e.Key
	if e.Bucket != "" {
		loc = e.Bucket + "/" + e.Key
	}
	msg := fmt.Sprintf("store access failed: op=%s path=%s: %s", e.Op, loc, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StoreAccessError) Unwrap() error { return e.Err }

// FileFormatError reports a document whose detected format is not supported.
type FileFormatError struct {
	Path     string
	Detected string
}

func (e *FileFormatError) Error() string {
	return fmt.Sprintf("unsupported file format %q for %s (supported: pdf, png, jpeg, tiff)", e.Detected, e.Path)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConfiguration reports whether err is (or wraps) a ConfigurationError.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
