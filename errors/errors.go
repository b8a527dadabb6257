package errors

import (
	"fmt"
	"net/http"
	"time"
)

// AppError is the application error type returned to API clients
type AppError struct {
	Raw       error
	HTTPCode  int
	Code      ErrorCode
	Message   string
	Details   map[string]string
	Timestamp time.Time
}

// Error implements error interface
func (e AppError) Error() string {
	if e.Raw != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code.String(), e.Message, e.Raw)
	}
	return fmt.Sprintf("[%s] %s", e.Code.String(), e.Message)
}

// Unwrap exposes the underlying error
func (e AppError) Unwrap() error {
	return e.Raw
}

// WithDetail adds a detail to the error
func (e AppError) WithDetail(key, value string) AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// General Errors
func ErrInternal(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_INTERNAL,
		Message:  "Internal server error",
	}
}

func ErrInvalidArgument(message string) AppError {
	return AppError{
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_INVALID_ARGUMENT,
		Message:  message,
	}
}

func ErrNotFound(resource string) AppError {
	return AppError{
		HTTPCode: http.StatusNotFound,
		Code:     ErrorCode_NOT_FOUND,
		Message:  fmt.Sprintf("%s not found", resource),
	}
}

func ErrInvalidPayload() AppError {
	return AppError{
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_INVALID_PAYLOAD,
		Message:  "Invalid payload",
	}
}

// Mapping review errors
func ErrMappingNotFound(originalName string) AppError {
	return AppError{
		HTTPCode: http.StatusNotFound,
		Code:     ErrorCode_MAPPING_NOT_FOUND,
		Message:  "Name mapping not found",
	}.WithDetail("original_name", originalName)
}

func ErrMappingInvalidState(originalName string) AppError {
	return AppError{
		HTTPCode: http.StatusConflict,
		Code:     ErrorCode_MAPPING_INVALID_STATE,
		Message:  "Name mapping is not in a reviewable state",
	}.WithDetail("original_name", originalName)
}

func ErrEmptyResolvedName() AppError {
	return AppError{
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_MAPPING_EMPTY_RESOLVED,
		Message:  "Resolved name must not be empty",
	}
}

func ErrNoSuggestion(originalName string) AppError {
	return AppError{
		HTTPCode: http.StatusConflict,
		Code:     ErrorCode_MAPPING_NO_SUGGESTION,
		Message:  "Name mapping has no CRM suggestion",
	}.WithDetail("original_name", originalName)
}

func ErrNothingToUndo() AppError {
	return AppError{
		HTTPCode: http.StatusConflict,
		Code:     ErrorCode_UNDO_EMPTY,
		Message:  "Nothing to undo",
	}
}

// Matching run errors
func ErrRunInProgress() AppError {
	return AppError{
		HTTPCode: http.StatusConflict,
		Code:     ErrorCode_MATCH_RUN_IN_PROGRESS,
		Message:  "A matching run is already in progress",
	}
}

func ErrRunFailed(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_MATCH_RUN_FAILED,
		Message:  "Matching run failed",
	}
}

// Reporting errors
func ErrAnalysisNotFound(transcriptID string) AppError {
	return AppError{
		HTTPCode: http.StatusNotFound,
		Code:     ErrorCode_ANALYSIS_NOT_FOUND,
		Message:  "Group lesson analysis not found",
	}.WithDetail("transcript_id", transcriptID)
}

// Integration Errors
func ErrCRMFailed(operation string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusBadGateway,
		Code:     ErrorCode_INTEGRATION_CRM_FAILED,
		Message:  fmt.Sprintf("CRM operation failed: %s", operation),
	}
}
