// Package errors provides the typed error taxonomy for the admission workflow.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Error Codes
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeNotFound            ErrorCode = "NOT_FOUND"
	ErrCodeInvalidTransition   ErrorCode = "INVALID_TRANSITION"
	ErrCodeUnauthorized        ErrorCode = "UNAUTHORIZED"
	ErrCodeMissingReason       ErrorCode = "MISSING_REASON"
	ErrCodeVersionConflict     ErrorCode = "VERSION_CONFLICT"
	ErrCodeInvalidDocumentType ErrorCode = "INVALID_DOCUMENT_TYPE"

	ErrCodeValidationFailed     ErrorCode = "APPLICATION_VALIDATION_FAILED"
	ErrCodeDuplicateApplication ErrorCode = "DUPLICATE_APPLICATION"
	ErrCodeUnknownCourse        ErrorCode = "UNKNOWN_COURSE"

	ErrCodeStorageFailed          ErrorCode = "STORAGE_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// WorkflowError is the structured error every workflow operation returns.
// Callers branch on Code; none of these are thrown as panics.
type WorkflowError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *WorkflowError) Error() string {
	return fmt.Sprintf("WorkflowError[%s]: %s", e.Code, e.Message)
}

// CodeOf extracts the workflow error code from err, or "" if err is not a
// WorkflowError.
func CodeOf(err error) ErrorCode {
	var we *WorkflowError
	if errors.As(err, &we) {
		return we.Code
	}
	return ""
}

// HasCode reports whether err is a WorkflowError carrying the given code.
func HasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// As unwraps err into a WorkflowError, reporting whether it is one.
func As(err error) (*WorkflowError, bool) {
	var we *WorkflowError
	if errors.As(err, &we) {
		return we, true
	}
	return nil, false
}

// ==========================
// 2. Error Constructors
// ==========================

// NewNotFoundError creates a non-retryable missing-application error.
func NewNotFoundError(applicationID string) *WorkflowError {
	return &WorkflowError{
		Code:      ErrCodeNotFound,
		Message:   "Application not found",
		Details:   fmt.Sprintf("applicationId: %s", applicationID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidTransitionError creates a non-retryable guard failure.
func NewInvalidTransitionError(details string) *WorkflowError {
	return &WorkflowError{
		Code:      ErrCodeInvalidTransition,
		Message:   "Requested transition is not permitted",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnauthorizedError creates a non-retryable role failure.
func NewUnauthorizedError(details string) *WorkflowError {
	return &WorkflowError{
		Code:      ErrCodeUnauthorized,
		Message:   "Actor role insufficient for requested operation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMissingReasonError creates a non-retryable rejection-without-reason error.
func NewMissingReasonError() *WorkflowError {
	return &WorkflowError{
		Code:      ErrCodeMissingReason,
		Message:   "Rejection requires a reason",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewVersionConflictError creates a retryable concurrent-write error.
func NewVersionConflictError(applicationID string, expectedVersion int) *WorkflowError {
	return &WorkflowError{
		Code:      ErrCodeVersionConflict,
		Message:   "Application was modified concurrently, please retry",
		Details:   fmt.Sprintf("applicationId: %s, expectedVersion: %d", applicationID, expectedVersion),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidDocumentTypeError creates a non-retryable unknown-document error.
func NewInvalidDocumentTypeError(applicationID, documentID string) *WorkflowError {
	return &WorkflowError{
		Code:      ErrCodeInvalidDocumentType,
		Message:   "Document is not part of the application's required set",
		Details:   fmt.Sprintf("applicationId: %s, documentId: %s", applicationID, documentID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationFailedError creates a non-retryable submission validation error.
func NewValidationFailedError(details string) *WorkflowError {
	return &WorkflowError{
		Code:      ErrCodeValidationFailed,
		Message:   "Application data validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDuplicateApplicationError creates a non-retryable duplicate submission error.
func NewDuplicateApplicationError(email, course string) *WorkflowError {
	return &WorkflowError{
		Code:      ErrCodeDuplicateApplication,
		Message:   "Application already exists",
		Details:   fmt.Sprintf("email: %s, course: %s", email, course),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnknownCourseError creates a non-retryable unknown-course error.
func NewUnknownCourseError(course string) *WorkflowError {
	return &WorkflowError{
		Code:      ErrCodeUnknownCourse,
		Message:   "Course has no configured document requirements",
		Details:   fmt.Sprintf("course: %s", course),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStorageFailedError creates a retryable persistence error.
func NewStorageFailedError(err error) *WorkflowError {
	return &WorkflowError{
		Code:      ErrCodeStorageFailed,
		Message:   "Persistence operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable delivery error.
func NewNotificationSendFailedError(channel string, err error) *WorkflowError {
	return &WorkflowError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// IsRetryable reports whether the controller may retry the failed operation.
func IsRetryable(err error) bool {
	var we *WorkflowError
	if errors.As(err, &we) {
		return we.Retryable
	}
	return false
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "TRANSITION") || strings.Contains(codeStr, "REASON"):
		return "WORKFLOW"
	case strings.Contains(codeStr, "UNAUTHORIZED"):
		return "AUTH"
	case strings.Contains(codeStr, "DOCUMENT"):
		return "DOCUMENT"
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "DUPLICATE") || strings.Contains(codeStr, "COURSE"):
		return "INTAKE"
	case strings.Contains(codeStr, "VERSION") || strings.Contains(codeStr, "STORAGE"):
		return "STORAGE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	default:
		return "OTHER"
	}
}
