/*
policy.go - Pure validation rules for attendance writes

PURPOSE:
  Stateless validators the engine runs before and inside its transaction.
  Nothing here touches storage; every function is a pure check over values
  already in hand, which keeps the rules trivially testable.

RULES:
  - Status/source normalize case-insensitively into the closed enums
  - Attendance is same-day only: the date must equal the store's today,
    and "past" is reported distinctly from "future"
  - Only ACTIVE employees can be marked
  - The date must not precede the employment start
  - Self-marking needs the feature toggle AND actor == employee

SEE ALSO:
  - engine.go: Calls these in a fixed order, failing fast
  - types.go: Date and enum definitions
*/
package attendance

import (
	"fmt"
	"strings"
)

// NormalizeStatus maps a raw string onto the Status enum, case-insensitively.
func NormalizeStatus(s string) (Status, error) {
	switch Status(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusPresent:
		return StatusPresent, nil
	case StatusAbsent:
		return StatusAbsent, nil
	case StatusLeave:
		return StatusLeave, nil
	}
	return "", NewValidation(CodeBadStatus, fmt.Sprintf("invalid attendance status %q", s))
}

// NormalizeSource maps a raw string onto the Source enum, case-insensitively.
func NormalizeSource(s string) (Source, error) {
	switch Source(strings.ToUpper(strings.TrimSpace(s))) {
	case SourceHR:
		return SourceHR, nil
	case SourceSystem:
		return SourceSystem, nil
	case SourceSelf:
		return SourceSelf, nil
	}
	return "", NewValidation(CodeBadSource, fmt.Sprintf("invalid attendance source %q", s))
}

// ParseAttendanceDate wraps ParseDate with the engine's validation error.
func ParseAttendanceDate(s string) (Date, error) {
	d, err := ParseDate(s)
	if err != nil {
		return Date{}, NewValidation(CodeBadDate, err.Error())
	}
	return d, nil
}

// ValidateEmployeeActive rejects missing or non-ACTIVE employees.
func ValidateEmployeeActive(e *Employee) error {
	if e == nil {
		return NewNotFound(CodeEmployeeNotFound, "employee not found")
	}
	if e.Status != EmployeeActive {
		return NewValidation(CodeEmployeeInactive, "only ACTIVE employees can be marked")
	}
	return nil
}

// ValidateEmploymentPeriod rejects dates before the employee's start.
func ValidateEmploymentPeriod(e *Employee, date Date) error {
	start := e.EmploymentStart()
	if !start.IsZero() && date.Before(start) {
		return NewValidation(CodeOutsideEmployment, "attendance date must be within employment period")
	}
	return nil
}

// ValidateSameDay enforces the same-day-only policy against the store's
// today, distinguishing past from future.
func ValidateSameDay(date, today Date) error {
	if date.Equal(today) {
		return nil
	}
	if date.Before(today) {
		return NewValidation(CodePastDate, "past dates are not allowed")
	}
	return NewValidation(CodeFutureDate, "future dates are not allowed")
}

// ValidateSelfMark gates source=SELF on the feature toggle and on the actor
// marking themself. Other sources pass through untouched.
func ValidateSelfMark(actorID, employeeID string, source Source, selfMarkEnabled bool) error {
	if source != SourceSelf {
		return nil
	}
	if !selfMarkEnabled {
		return NewAuthorization(CodeSelfMarkDisabled, "self marking is disabled")
	}
	if actorID != employeeID {
		return NewAuthorization(CodeSelfMarkMismatch, "cannot self mark for another employee")
	}
	return nil
}

// MonthBounds parses a strict YYYY-MM month and returns its first and last day.
func MonthBounds(month string) (Date, Date, error) {
	m := strings.TrimSpace(month)
	first, err := ParseDate(m + "-01")
	if err != nil {
		return Date{}, Date{}, NewValidation(CodeBadMonth, fmt.Sprintf("invalid month %q, want YYYY-MM", month))
	}
	return first, first.MonthEnd(), nil
}

// WorkingDays counts Mon-Fri days in [from, to].
func WorkingDays(from, to Date) int {
	n := 0
	for d := from; !d.After(to); d = d.AddDays(1) {
		if d.IsWorkday() {
			n++
		}
	}
	return n
}
