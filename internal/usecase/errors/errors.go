package errors

import "errors"

// Common errors
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotFound      = errors.New("resource not found")
	ErrInternalError = errors.New("internal server error")
)

// Mapping review errors
var (
	ErrMappingNotFound    = errors.New("name mapping not found")
	ErrInvalidTransition  = errors.New("invalid mapping status transition")
	ErrEmptyResolvedName  = errors.New("resolved name is empty")
	ErrNoSuggestion       = errors.New("mapping has no crm suggestion")
	ErrNothingToUndo      = errors.New("undo stack is empty")
	ErrInvalidApproveMode = errors.New("invalid approve source")
)

// Matching run errors
var (
	ErrCRMUnavailable = errors.New("crm registry unavailable")
	ErrRunInProgress  = errors.New("matching run already in progress")
	ErrNoAttribution  = errors.New("no attribution possible")
)

// Reporting errors
var (
	ErrAnalysisNotFound = errors.New("group lesson analysis not found")
)
