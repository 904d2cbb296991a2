/*
errors.go - Error kinds for the attendance engine

PURPOSE:
  Every failure the engine reports carries a stable machine-readable kind
  and code so callers (HTTP layer, bulk result accumulator) can branch
  without parsing messages.

ERROR KINDS:
  KindValidation     Malformed input, wrong date, missing reason
  KindAuthorization  Missing permission, wrong scope, closed month
  KindNotFound       Unknown employee, absent override target
  KindConflict       Lost an insert race / override required

PROPAGATION:
  Single-record calls surface the first error and mutate nothing.
  BulkMark demotes per-item engine errors to FAILED outcomes; anything
  that is not an *Error escapes and aborts the whole batch.

SEE ALSO:
  - engine.go: Produces these errors
  - api/handlers.go: Maps kinds to HTTP statuses
*/
package attendance

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation    Kind = "validation"
	KindAuthorization Kind = "authorization"
	KindNotFound      Kind = "not_found"
	KindConflict      Kind = "conflict"
)

// Stable error codes. Codes identify the rule that failed; messages are for
// humans and may change.
const (
	CodeBadDate           = "bad_date"
	CodeBadMonth          = "bad_month"
	CodeBadStatus         = "bad_status"
	CodeBadSource         = "bad_source"
	CodePastDate          = "past_date"
	CodeFutureDate        = "future_date"
	CodeEmployeeNotFound  = "employee_not_found"
	CodeEmployeeInactive  = "employee_inactive"
	CodeOutsideEmployment = "outside_employment_period"
	CodeSelfMarkDisabled  = "self_mark_disabled"
	CodeSelfMarkMismatch  = "self_mark_mismatch"
	CodeMonthClosed       = "month_closed"
	CodeForbidden         = "forbidden"
	CodeOverrideRequired  = "override_required"
	CodeReasonRequired    = "reason_required"
	CodeRecordNotFound    = "record_not_found"
	CodeRecordExists      = "record_exists"
	CodeMarkFailed        = "mark_failed"
)

// Error is the engine's only business-error type.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
}

func NewValidation(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

func NewAuthorization(code, message string) *Error {
	return &Error{Kind: KindAuthorization, Code: code, Message: message}
}

func NewNotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

func NewConflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

// =============================================================================
// PREDICATES - Use instead of type assertions at call sites
// =============================================================================

func kindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

func IsValidation(err error) bool    { k, ok := kindOf(err); return ok && k == KindValidation }
func IsAuthorization(err error) bool { k, ok := kindOf(err); return ok && k == KindAuthorization }
func IsNotFound(err error) bool      { k, ok := kindOf(err); return ok && k == KindNotFound }
func IsConflict(err error) bool      { k, ok := kindOf(err); return ok && k == KindConflict }

// IsBusiness reports whether err is an engine business error (any kind),
// as opposed to an infrastructure fault. BulkMark uses this as its per-item
// isolation boundary.
func IsBusiness(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// CodeOf returns the stable code, or "" for non-business errors.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
