// Package apierr holds the error types returned by meetingkit.
//
// Every failure path of a dispatched request produces exactly one of these
// values. Callers inspect them with errors.As, or with the helpers below.
package apierr

import (
	"errors"
	"fmt"
	"time"
)

// Category classifies a failure.
type Category string

const (
	CategoryRule         Category = "rule"
	CategoryValidation   Category = "validation"
	CategoryThrottled    Category = "throttled"
	CategoryTransport    Category = "transport"
	CategoryMapped       Category = "mapped"
	CategoryUnmappedCode Category = "unmapped-code"
	CategoryUnmapped     Category = "unmapped"
)

// Validation codes reported by the endpoint layer.
const (
	CodeMissingParameter = "MISSING_PARAMETER"
	CodeInvalidMeetingID = "INVALID_MEETING_ID"
	CodeInvalidUserID    = "INVALID_USER_ID"
	CodeInvalidPageSize  = "INVALID_PAGE_SIZE"
	CodeInvalidDate      = "INVALID_DATE"
	CodeInvalidTrashType = "INVALID_TRASH_TYPE"
	CodeInvalidRequest   = "INVALID_REQUEST"
)

// RuleError reports a malformed throttle rule or path template.
type RuleError struct {
	Method   string
	Template string
	Reason   string
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("invalid throttle rule %s %q: %s", e.Method, e.Template, e.Reason)
}

func (e *RuleError) Category() Category { return CategoryRule }

// ValidationError reports a request rejected before any network activity.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ValidationError) Category() Category { return CategoryValidation }

// ThrottledError reports a request refused by a throttle rule. The caller
// decides whether to wait RetryAfter and try again.
type ThrottledError struct {
	Method     string
	Path       string
	Rule       string
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("request %s %s throttled by rule %q, retry after %s", e.Method, e.Path, e.Rule, e.RetryAfter)
}

func (e *ThrottledError) Category() Category { return CategoryThrottled }

// TransportError wraps a network-level failure. No provider response was
// received, so no error-code translation was attempted.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failed for %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Category() Category { return CategoryTransport }

// TranslatedError is a provider error response turned into a descriptive
// message. Status and Code always carry the original values.
type TranslatedError struct {
	Message string
	Kind    Category
	Status  int
	Code    int
	Detail  string
	RawBody []byte
}

func (e *TranslatedError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s (status %d, code %d)", e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

func (e *TranslatedError) Category() Category { return e.Kind }

type categorized interface {
	Category() Category
}

// CategoryOf returns the category of the first apierr value in err's chain,
// or "" when there is none.
func CategoryOf(err error) Category {
	var c categorized
	if errors.As(err, &c) {
		return c.Category()
	}
	return ""
}

// IsCategory reports whether err carries the given category.
func IsCategory(err error, cat Category) bool {
	return err != nil && CategoryOf(err) == cat
}

// IsThrottled reports whether err is a ThrottledError and returns its
// retry-after hint.
func IsThrottled(err error) (time.Duration, bool) {
	var te *ThrottledError
	if errors.As(err, &te) {
		return te.RetryAfter, true
	}
	return 0, false
}
