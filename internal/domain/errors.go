// Package domain defines domain-specific errors.
// These errors represent business logic failures and are independent of infrastructure.
package domain

import (
	"errors"
	"fmt"
)

// Common errors that services can return.
var (
	// ErrSuperseded is returned when a task was replaced by a newer submission.
	ErrSuperseded = errors.New("task superseded by a newer submission")

	// ErrTapAlreadyAttached is returned when a playback source already carries a capture tap.
	ErrTapAlreadyAttached = errors.New("capture tap already attached")

	// ErrCaptureUnavailable is returned when the capture graph could not be built.
	ErrCaptureUnavailable = errors.New("audio capture unavailable")

	// ErrSubscriptionClosed is returned when using a closed progress subscription.
	ErrSubscriptionClosed = errors.New("subscription closed")

	// ErrNoTrackLoaded is returned when playback is attempted with no audio loaded.
	ErrNoTrackLoaded = errors.New("no track loaded")

	// ErrNotFound is returned when the backend has no such file or preset.
	ErrNotFound = errors.New("not found")

	// ErrServiceClosed is returned by a service after Shutdown.
	ErrServiceClosed = errors.New("service closed")

	// ErrInvalidFFTSize is returned when the analysis window is not a power of two in range.
	ErrInvalidFFTSize = errors.New("fft size must be a power of two between 32 and 32768")
)

// ValidationError represents a request that was rejected before any stream was opened.
// It is produced locally for malformed requests and for backend "error" replies to a submission.
type ValidationError struct {
	Field   string // Field that failed validation (empty for backend rejections)
	Value   any    // Value that failed validation
	Message string // Error message
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation error: %s", e.Message)
	}
	return fmt.Sprintf("validation error for %s: %s (value: %v)", e.Field, e.Message, e.Value)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// TransportError represents a failure of the submission call or the stream channel.
type TransportError struct {
	Op      string // Operation that failed (e.g., "submit", "dial", "read")
	Message string // Error message
	Err     error  // Underlying error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s failed: %s", e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a new TransportError.
func NewTransportError(op, message string, err error) *TransportError {
	return &TransportError{
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// ProtocolError represents a malformed or out-of-order stream message.
type ProtocolError struct {
	TaskID  string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error on task %s: %s", e.TaskID, e.Message)
}

// Unwrap returns the underlying error.
func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// NewProtocolError creates a new ProtocolError.
func NewProtocolError(taskID, message string, err error) *ProtocolError {
	return &ProtocolError{
		TaskID:  taskID,
		Message: message,
		Err:     err,
	}
}

// BackendError is a task that reached the terminal "error" status.
// Message is the backend text, kept verbatim.
type BackendError struct {
	TaskID  string
	Message string
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	return fmt.Sprintf("task %s failed: %s", e.TaskID, e.Message)
}

// NewBackendError creates a new BackendError.
func NewBackendError(taskID, message string) *BackendError {
	return &BackendError{
		TaskID:  taskID,
		Message: message,
	}
}

// ServiceError represents an error from a service layer operation.
type ServiceError struct {
	Service string // Service name (e.g., "GenerationService", "PlaybackService")
	Op      string // Operation that failed
	Message string // Error message
	Err     error  // Underlying error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("service %s.%s failed: %s", e.Service, e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(service, op, message string, err error) *ServiceError {
	return &ServiceError{
		Service: service,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// ClassifyFailure maps an error to the failure kind recorded on a task.
func ClassifyFailure(err error) FailureKind {
	var (
		validation *ValidationError
		transport  *TransportError
		protocol   *ProtocolError
		backend    *BackendError
	)
	switch {
	case err == nil:
		return FailureNone
	case errors.As(err, &validation):
		return FailureValidation
	case errors.As(err, &protocol):
		return FailureProtocol
	case errors.As(err, &backend):
		return FailureBackend
	case errors.As(err, &transport):
		return FailureTransport
	default:
		return FailureTransport
	}
}

// UserMessage returns the text shown to the user for a failed task.
// Messages that came from the backend are returned unchanged.
func UserMessage(err error) string {
	var (
		validation *ValidationError
		backend    *BackendError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &backend):
		return backend.Message
	case errors.As(err, &validation) && validation.Field == "":
		return validation.Message
	default:
		return err.Error()
	}
}
