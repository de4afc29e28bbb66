package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeIngest represents canonicalization/input errors
	ErrorTypeIngest ErrorType = "ingest"
	// ErrorTypeRelational represents SQLite store errors
	ErrorTypeRelational ErrorType = "relational"
	// ErrorTypeGraph represents graph database errors
	ErrorTypeGraph ErrorType = "graph"
	// ErrorTypeUpstream represents Twitter API errors
	ErrorTypeUpstream ErrorType = "upstream"
	// ErrorTypeSummarizer represents summarization errors
	ErrorTypeSummarizer ErrorType = "summarizer"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Ingest errors

// ErrMalformedInput is returned when a record is missing required fields and
// cannot be canonicalized. The record is skipped; the batch continues.
type ErrMalformedInput struct {
	*BaseError
	Field string
}

func NewMalformedInput(field string, err error) *ErrMalformedInput {
	return &ErrMalformedInput{
		BaseError: NewBaseError(ErrorTypeIngest, fmt.Sprintf("malformed input: missing %s", field), err),
		Field:     field,
	}
}

// IsMalformedInput reports whether err is an ErrMalformedInput
func IsMalformedInput(err error) bool {
	var target *ErrMalformedInput
	return stderrors.As(err, &target)
}

// ErrSkippedNoAuthor marks an API-pair item whose user sub-object is absent.
// A tweet without author information cannot be attributed; this is a
// recoverable skip, not a failure.
var ErrSkippedNoAuthor = NewBaseError(ErrorTypeIngest, "item has no author information, skipping", nil)

// Store errors

// ErrReferentialIntegrity is returned when a tweet references a user that is
// not present in either the batch or the store.
type ErrReferentialIntegrity struct {
	*BaseError
	TweetID  string
	AuthorID string
}

func NewReferentialIntegrity(tweetID, authorID string) *ErrReferentialIntegrity {
	return &ErrReferentialIntegrity{
		BaseError: NewBaseError(ErrorTypeRelational, fmt.Sprintf("tweet %s references unknown user %s", tweetID, authorID), nil),
		TweetID:   tweetID,
		AuthorID:  authorID,
	}
}

// IsReferentialIntegrity reports whether err is an ErrReferentialIntegrity
func IsReferentialIntegrity(err error) bool {
	var target *ErrReferentialIntegrity
	return stderrors.As(err, &target)
}

// ErrStoreUnavailable is returned on connection-level store failures. Fatal
// for the whole run.
type ErrStoreUnavailable struct {
	*BaseError
	Store string
}

func NewStoreUnavailable(store string, err error) *ErrStoreUnavailable {
	errType := ErrorTypeRelational
	if store == "neo4j" {
		errType = ErrorTypeGraph
	}
	return &ErrStoreUnavailable{
		BaseError: NewBaseError(errType, fmt.Sprintf("store unavailable: %s", store), err),
		Store:     store,
	}
}

// IsStoreUnavailable reports whether err is an ErrStoreUnavailable
func IsStoreUnavailable(err error) bool {
	var target *ErrStoreUnavailable
	return stderrors.As(err, &target)
}

// Upstream errors

// ErrRateLimited is returned when the Twitter API responds 429. The caller
// backs off for RetryAfter and retries.
type ErrRateLimited struct {
	*BaseError
	RetryAfter time.Duration
}

func NewRateLimited(retryAfter time.Duration) *ErrRateLimited {
	return &ErrRateLimited{
		BaseError:  NewBaseError(ErrorTypeUpstream, fmt.Sprintf("rate limited, retry after %s", retryAfter), nil),
		RetryAfter: retryAfter,
	}
}

// IsRateLimited reports whether err is an ErrRateLimited
func IsRateLimited(err error) bool {
	var target *ErrRateLimited
	return stderrors.As(err, &target)
}

// ErrAccessDenied is returned when the Twitter API responds 403 for a
// username. The caller aborts that username, not the whole run.
type ErrAccessDenied struct {
	*BaseError
	Username string
}

func NewAccessDenied(username string, err error) *ErrAccessDenied {
	return &ErrAccessDenied{
		BaseError: NewBaseError(ErrorTypeUpstream, fmt.Sprintf("access denied for user @%s", username), err),
		Username:  username,
	}
}

// IsAccessDenied reports whether err is an ErrAccessDenied
func IsAccessDenied(err error) bool {
	var target *ErrAccessDenied
	return stderrors.As(err, &target)
}

// ErrTransientUpstream is returned on retryable upstream failures. Retried
// with bounded backoff, then fatal.
type ErrTransientUpstream struct {
	*BaseError
	Attempts int
}

func NewTransientUpstream(attempts int, err error) *ErrTransientUpstream {
	return &ErrTransientUpstream{
		BaseError: NewBaseError(ErrorTypeUpstream, fmt.Sprintf("upstream request failed after %d attempts", attempts), err),
		Attempts:  attempts,
	}
}

// IsTransientUpstream reports whether err is an ErrTransientUpstream
func IsTransientUpstream(err error) bool {
	var target *ErrTransientUpstream
	return stderrors.As(err, &target)
}

// Summarizer errors

// ErrSummarizationFailed is returned when the summarization call exhausts its
// retry budget.
type ErrSummarizationFailed struct {
	*BaseError
	Model    string
	Attempts int
}

func NewSummarizationFailed(model string, attempts int, err error) *ErrSummarizationFailed {
	return &ErrSummarizationFailed{
		BaseError: NewBaseError(ErrorTypeSummarizer, fmt.Sprintf("summarization failed after %d attempts", attempts), err),
		Model:     model,
		Attempts:  attempts,
	}
}
