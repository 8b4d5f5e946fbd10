package errors

import "fmt"

// Error types for ifsget operations
var (
	// ErrNotFound is returned when a component or one of its versions does not exist
	ErrNotFound = &IFSError{Code: "NOT_FOUND", Message: "component or version not found"}

	// ErrRangeInvalid is returned when a ranged read starts beyond the end of the image
	ErrRangeInvalid = &IFSError{Code: "RANGE_INVALID", Message: "read offset beyond image length"}

	// ErrStoreInconsistency is returned when the store returns a read that
	// disagrees with the size it previously reported for the same image
	ErrStoreInconsistency = &IFSError{Code: "STORE_INCONSISTENT", Message: "store violated its length contract"}

	// ErrTransportFailure is returned when a result could not be delivered to the consumer
	ErrTransportFailure = &IFSError{Code: "TRANSPORT_FAILURE", Message: "failed to deliver result to consumer"}

	// ErrPublishConflict is returned when publishing would overwrite an existing image
	ErrPublishConflict = &IFSError{Code: "PUBLISH_CONFLICT", Message: "image version already published"}

	// ErrInvalidConfig is returned when the process configuration is unusable
	ErrInvalidConfig = &IFSError{Code: "INVALID_CONFIG", Message: "invalid configuration"}
)

// IFSError represents a structured error in ifsget operations
type IFSError struct {
	Code    string                 // Error code for programmatic handling
	Message string                 // Human-readable error message
	Cause   error                  // Underlying error, if any
	Details map[string]interface{} // Additional context
}

// Error implements the error interface
func (e *IFSError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	if len(e.Details) > 0 {
		return fmt.Sprintf("[%s] %s (details: %v)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *IFSError) Unwrap() error {
	return e.Cause
}

// Is matches errors by code, so errors.Is works across WithCause/WithDetail copies
func (e *IFSError) Is(target error) bool {
	t, ok := target.(*IFSError)
	return ok && t.Code == e.Code
}

// WithCause adds a cause to the error
func (e *IFSError) WithCause(cause error) *IFSError {
	return &IFSError{
		Code:    e.Code,
		Message: e.Message,
		Cause:   cause,
		Details: e.Details,
	}
}

// WithDetail adds a detail key-value pair to the error
func (e *IFSError) WithDetail(key string, value interface{}) *IFSError {
	details := make(map[string]interface{})
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &IFSError{
		Code:    e.Code,
		Message: e.Message,
		Cause:   e.Cause,
		Details: details,
	}
}

// WithMessage overrides the error message
func (e *IFSError) WithMessage(message string) *IFSError {
	return &IFSError{
		Code:    e.Code,
		Message: message,
		Cause:   e.Cause,
		Details: e.Details,
	}
}

// GetErrorCode extracts the error code from an IFSError
func GetErrorCode(err error) string {
	if ifsErr, ok := err.(*IFSError); ok {
		return ifsErr.Code
	}
	return ""
}
