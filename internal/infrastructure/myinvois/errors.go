package myinvois

import (
	"errors"
	"fmt"
	"time"
)

// Stable error codes surfaced to callers. Fatal codes abort the current
// document or batch and are never retried; transient codes are retried at the
// client layer only.
const (
	CodeMappingError      = "MAPPING_ERROR"
	CodeSigningError      = "SIGNING_ERROR"
	CodePreparationError  = "PREPARATION_ERROR"
	CodeRateLimited       = "RATE_LIMIT_EXCEEDED"
	CodeTimeout           = "TIMEOUT"
	CodeNetworkError      = "NETWORK_ERROR"
	CodeInvalidResponse   = "INVALID_RESPONSE_SHAPE"
	CodeValidationFailure = "VALIDATION_REJECTED"
	CodeBatchLimit        = "BATCH_LIMIT_EXCEEDED"
)

// MappingError reports a malformed internal document. Fatal.
type MappingError struct {
	Reason string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("%s: %s", CodeMappingError, e.Reason)
}

// SigningError reports a key or certificate failure. Fatal: a bad certificate
// will not fix itself on retry.
type SigningError struct {
	Reason string
	Err    error
}

func (e *SigningError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", CodeSigningError, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", CodeSigningError, e.Reason)
}

func (e *SigningError) Unwrap() error { return e.Err }

// PreparationError reports a document whose number cannot be located. Fatal.
type PreparationError struct {
	Reason string
}

func (e *PreparationError) Error() string {
	return fmt.Sprintf("%s: %s", CodePreparationError, e.Reason)
}

// APIError is a non-2xx response from the authority, carrying the raw body
// for diagnostics.
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("myinvois %s: HTTP %d: %s", e.Endpoint, e.StatusCode, truncate(e.Body, 300))
}

// TimeoutError distinguishes request timeouts from other transport failures;
// the rate-limited client never auto-retries these.
type TimeoutError struct {
	Endpoint string
	Err      error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: myinvois %s: %v", CodeTimeout, e.Endpoint, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// InvalidResponseShapeError reports an authority response violating its own
// contract (success with no payload, neither accepted nor rejected lists...).
// Surfaced, never assumed benign.
type InvalidResponseShapeError struct {
	Endpoint string
	Reason   string
}

func (e *InvalidResponseShapeError) Error() string {
	return fmt.Sprintf("%s: myinvois %s: %s", CodeInvalidResponse, e.Endpoint, e.Reason)
}

// RateLimitedError is returned by a single throttled attempt; the client
// consumes it internally and retries with backoff.
type RateLimitedError struct {
	Endpoint   string
	RetryAfter time.Duration // zero when the response carried no usable hint
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s: myinvois %s: retry after %s", CodeRateLimited, e.Endpoint, e.RetryAfter)
}

// IsFatal reports whether err must abort the current document or batch
// without retrying.
func IsFatal(err error) bool {
	var me *MappingError
	var se *SigningError
	var pe *PreparationError
	return errors.As(err, &me) || errors.As(err, &se) || errors.As(err, &pe)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
