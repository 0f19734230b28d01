package handlers

// Stable machine-readable error codes used in ErrorResponse envelopes.
// Generic codes mirror common HTTP status semantics; domain-specific codes
// identify which operation failed when the status alone is ambiguous.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	ErrCodeImportFailed     = "import_failed"
	ErrCodeQueryFailed      = "query_failed"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
