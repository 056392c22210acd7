// Package apperr defines the error taxonomy shared by the pipeline stages.
package apperr

import (
	"errors"
	"fmt"
)

// Code identifies the class of a pipeline error.
type Code string

const (
	// CodeExternalServiceUnavailable covers missing credentials, network failures and
	// malformed replies from any optional collaborator. Always recovered by a fallback.
	CodeExternalServiceUnavailable Code = "EXTERNAL_SERVICE_UNAVAILABLE"
	// CodeMetadataExtractionFailed is recovered with the default metadata object.
	CodeMetadataExtractionFailed Code = "METADATA_EXTRACTION_FAILED"
	// CodeArtifactWriteFailed is fatal for the stage.
	CodeArtifactWriteFailed Code = "ARTIFACT_WRITE_FAILED"
	// CodeInvalidArgument marks a programming error.
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
)

// Error is a classified pipeline error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Unavailable wraps a collaborator failure.
func Unavailable(service string, err error) *Error {
	return &Error{Code: CodeExternalServiceUnavailable, Message: service + " unavailable", Err: err}
}

// ExtractionFailed reports that no metadata block could be parsed.
func ExtractionFailed(reason string) *Error {
	return &Error{Code: CodeMetadataExtractionFailed, Message: reason}
}

// WriteFailed wraps a store error for the named artifact.
func WriteFailed(name string, err error) *Error {
	return &Error{Code: CodeArtifactWriteFailed, Message: "writing " + name, Err: err}
}

// InvalidArgument reports a contract violation by the caller.
func InvalidArgument(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsUnavailable reports whether err is an ExternalServiceUnavailable error.
func IsUnavailable(err error) bool {
	return CodeOf(err) == CodeExternalServiceUnavailable
}

// IsInvalidArgument reports whether err is an InvalidArgument error.
func IsInvalidArgument(err error) bool {
	return CodeOf(err) == CodeInvalidArgument
}

// IsWriteFailed reports whether err is an ArtifactWriteFailed error.
func IsWriteFailed(err error) bool {
	return CodeOf(err) == CodeArtifactWriteFailed
}
