package errors

import (
	"fmt"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeStructural represents archive integrity errors (duplicate ids,
	// reply cycles, multi-parent chains). Always fatal.
	ErrorTypeStructural ErrorType = "structural"
	// ErrorTypeConflict represents ambiguous-data errors found while merging
	// thread replacement maps. Always fatal.
	ErrorTypeConflict ErrorType = "conflict"
	// ErrorTypeTransport represents redirect-probe and download failures.
	// Recovered: counted, the post falls back to a plain link.
	ErrorTypeTransport ErrorType = "transport"
	// ErrorTypeMetadata represents text-generation service failures.
	// Recovered: retried, then deterministic fallback.
	ErrorTypeMetadata ErrorType = "metadata"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type    ErrorType
	Message string
	Err     error // Wrapped error
}

// Kind returns the error's category. Promoted through embedding, so every
// domain error type reports its class without a type switch.
func (e *BaseError) Kind() ErrorType {
	return e.Type
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
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// Structural errors

// ErrDuplicatePostID is returned when the archive contains the same post id twice
type ErrDuplicatePostID struct {
	*BaseError
	PostID string
}

func NewDuplicatePostID(postID string) *ErrDuplicatePostID {
	return &ErrDuplicatePostID{
		BaseError: NewBaseError(ErrorTypeStructural, fmt.Sprintf("duplicate post id: %s", postID), nil),
		PostID:    postID,
	}
}

// ErrReplyCycle is returned when walking parent edges revisits a post
type ErrReplyCycle struct {
	*BaseError
	PostID string
}

func NewReplyCycle(postID string) *ErrReplyCycle {
	return &ErrReplyCycle{
		BaseError: NewBaseError(ErrorTypeStructural, fmt.Sprintf("reply cycle through post: %s", postID), nil),
		PostID:    postID,
	}
}

// ErrMultipleParents is returned when a post is the reply target child of two chains
type ErrMultipleParents struct {
	*BaseError
	PostID string
}

func NewMultipleParents(postID string) *ErrMultipleParents {
	return &ErrMultipleParents{
		BaseError: NewBaseError(ErrorTypeStructural, fmt.Sprintf("post has multiple parents: %s", postID), nil),
		PostID:    postID,
	}
}

// ErrIngestCountMismatch is returned when the store size differs from the input length
type ErrIngestCountMismatch struct {
	*BaseError
	Expected int
	Actual   int
}

func NewIngestCountMismatch(expected, actual int) *ErrIngestCountMismatch {
	return &ErrIngestCountMismatch{
		BaseError: NewBaseError(ErrorTypeStructural, fmt.Sprintf("ingested %d posts, expected %d", actual, expected), nil),
		Expected:  expected,
		Actual:    actual,
	}
}

// Conflict errors

// ErrReplacementConflict is returned when two thread members carry differing
// expansions for the same short-link token
type ErrReplacementConflict struct {
	*BaseError
	Token string
	Field string
}

func NewReplacementConflict(token, field string) *ErrReplacementConflict {
	return &ErrReplacementConflict{
		BaseError: NewBaseError(ErrorTypeConflict, fmt.Sprintf("conflicting %s for token %s", field, token), nil),
		Token:     token,
		Field:     field,
	}
}

// Transport errors

// ErrAssetNotFound is returned when a media download gets a 404
type ErrAssetNotFound struct {
	*BaseError
	URL string
}

func NewAssetNotFound(url string) *ErrAssetNotFound {
	return &ErrAssetNotFound{
		BaseError: NewBaseError(ErrorTypeTransport, fmt.Sprintf("asset not found: %s", url), nil),
		URL:       url,
	}
}

// ErrFetchFailed is returned when a download fails for any other reason
type ErrFetchFailed struct {
	*BaseError
	URL string
}

func NewFetchFailed(url string, err error) *ErrFetchFailed {
	return &ErrFetchFailed{
		BaseError: NewBaseError(ErrorTypeTransport, fmt.Sprintf("fetch failed: %s", url), err),
		URL:       url,
	}
}

// Metadata errors

// ErrCompletionUnavailable is returned when the text-generation service is not configured
var ErrCompletionUnavailable = NewBaseError(ErrorTypeMetadata, "text-generation service not configured", nil)

// ErrCompletionMalformed is returned when the service responds with fewer
// than the two expected lines, or a too-short title
type ErrCompletionMalformed struct {
	*BaseError
	Reason string
}

func NewCompletionMalformed(reason string) *ErrCompletionMalformed {
	return &ErrCompletionMalformed{
		BaseError: NewBaseError(ErrorTypeMetadata, fmt.Sprintf("malformed completion: %s", reason), nil),
		Reason:    reason,
	}
}

// ErrCompletionFailed is returned when the service call itself errors
type ErrCompletionFailed struct {
	*BaseError
	Attempts int
}

func NewCompletionFailed(attempts int, err error) *ErrCompletionFailed {
	return &ErrCompletionFailed{
		BaseError: NewBaseError(ErrorTypeMetadata, fmt.Sprintf("completion failed after %d attempts", attempts), err),
		Attempts:  attempts,
	}
}

// Config errors

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// Helper functions

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	if kinded, ok := err.(interface{ Kind() ErrorType }); ok {
		return kinded.Kind() == errType
	}
	if wrapped, ok := err.(interface{ Unwrap() error }); ok {
		if inner := wrapped.Unwrap(); inner != nil {
			return IsErrorType(inner, errType)
		}
	}
	return false
}

// IsFatal reports whether an error must abort the run. Structural and
// conflict classes abort; transport and metadata classes are recovered
// by the pipeline and only counted.
func IsFatal(err error) bool {
	return IsErrorType(err, ErrorTypeStructural) || IsErrorType(err, ErrorTypeConflict)
}
