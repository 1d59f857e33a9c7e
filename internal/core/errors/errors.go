package errors

const (
	HttpInternalError        = "internal_error"
	HttpInvalidJsonError     = "invalid_json"
	HttpBatchTooLargeError   = "batch_too_large"
	HttpInvalidQueryError    = "invalid_query"
	HttpNoSnapshotError      = "no_snapshot"
	HttpSnapshotVersionError = "snapshot_version_not_found"
)

// ErrorResponse is the error response body shared by every HTTP handler.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}
