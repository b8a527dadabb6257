package errors

// ErrorCode identifies an application error class in API responses
type ErrorCode int32

const (
	ErrorCode_HTTP_OK ErrorCode = 0

	// General
	ErrorCode_INTERNAL         ErrorCode = 1000
	ErrorCode_INVALID_ARGUMENT ErrorCode = 1001
	ErrorCode_NOT_FOUND        ErrorCode = 1002
	ErrorCode_INVALID_PAYLOAD  ErrorCode = 1005

	// Mapping review
	ErrorCode_MAPPING_NOT_FOUND      ErrorCode = 2000
	ErrorCode_MAPPING_INVALID_STATE  ErrorCode = 2001
	ErrorCode_MAPPING_EMPTY_RESOLVED ErrorCode = 2002
	ErrorCode_MAPPING_NO_SUGGESTION  ErrorCode = 2003
	ErrorCode_UNDO_EMPTY             ErrorCode = 2004

	// Matching runs
	ErrorCode_MATCH_RUN_IN_PROGRESS ErrorCode = 3000
	ErrorCode_MATCH_RUN_FAILED      ErrorCode = 3001

	// Reporting
	ErrorCode_ANALYSIS_NOT_FOUND ErrorCode = 4000

	// Integrations
	ErrorCode_INTEGRATION_CRM_FAILED ErrorCode = 5000
)

var errorCodeNames = map[ErrorCode]string{
	ErrorCode_HTTP_OK:                "HTTP_OK",
	ErrorCode_INTERNAL:               "INTERNAL",
	ErrorCode_INVALID_ARGUMENT:       "INVALID_ARGUMENT",
	ErrorCode_NOT_FOUND:              "NOT_FOUND",
	ErrorCode_INVALID_PAYLOAD:        "INVALID_PAYLOAD",
	ErrorCode_MAPPING_NOT_FOUND:      "MAPPING_NOT_FOUND",
	ErrorCode_MAPPING_INVALID_STATE:  "MAPPING_INVALID_STATE",
	ErrorCode_MAPPING_EMPTY_RESOLVED: "MAPPING_EMPTY_RESOLVED",
	ErrorCode_MAPPING_NO_SUGGESTION:  "MAPPING_NO_SUGGESTION",
	ErrorCode_UNDO_EMPTY:             "UNDO_EMPTY",
	ErrorCode_MATCH_RUN_IN_PROGRESS:  "MATCH_RUN_IN_PROGRESS",
	ErrorCode_MATCH_RUN_FAILED:       "MATCH_RUN_FAILED",
	ErrorCode_ANALYSIS_NOT_FOUND:     "ANALYSIS_NOT_FOUND",
	ErrorCode_INTEGRATION_CRM_FAILED: "INTEGRATION_CRM_FAILED",
}

// String returns the symbolic name of the code
func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}

// MarshalText renders the code by name in JSON bodies
func (c ErrorCode) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}
