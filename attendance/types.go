/*
Package attendance provides the core attendance write engine.

PURPOSE:
  This package contains the domain types and the transactional engine for
  recording daily attendance: who was present, absent, or on leave, marked
  by whom, under which organizational policy. The engine enforces the write
  rules (active employee, employment window, same-day marking, month close,
  self-marking) and emits one audit entry per state change.

KEY CONCEPTS IN THIS FILE (types.go):
  - Date: A calendar date with no time component (the unit of attendance)
  - Record: One (employee, date) attendance entry with a version counter
  - Employee: Read-only view of the employee facts the engine needs
  - Status/Source: The small closed enums a record carries

DESIGN PRINCIPLES:
  1. One record per (employee, date): enforced by the store's uniqueness
     constraint, not just application logic
  2. Day boundaries come from the store's clock, never from the caller
  3. Records are never deleted; corrections are versioned overrides
  4. Every state change produces an immutable audit entry

SEE ALSO:
  - policy.go: Pure validation rules
  - engine.go: The transactional write paths
  - store.go: Persistence interfaces
*/
package attendance

import (
	"fmt"
	"regexp"
	"time"
)

// =============================================================================
// STATUS / SOURCE - Closed enums carried by every record
// =============================================================================

type Status string

const (
	StatusPresent Status = "PRESENT"
	StatusAbsent  Status = "ABSENT"
	StatusLeave   Status = "LEAVE"
)

type Source string

const (
	SourceHR     Source = "HR"
	SourceSystem Source = "SYSTEM"
	SourceSelf   Source = "SELF"
)

// MonthStatus gates whether a month still accepts attendance writes.
type MonthStatus string

const (
	MonthOpen   MonthStatus = "OPEN"
	MonthClosed MonthStatus = "CLOSED"
)

// =============================================================================
// DATE - Calendar date, day granularity, UTC
// =============================================================================

var dateOnlyRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Date is a calendar date with no time component. The zero value is "unset".
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a strict YYYY-MM-DD string. Impossible dates
// (2023-02-30) and loose forms (2023-2-3) are rejected.
func ParseDate(s string) (Date, error) {
	if !dateOnlyRe.MatchString(s) {
		return Date{}, fmt.Errorf("date must be YYYY-MM-DD, got %q", s)
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{t: t.UTC()}, nil
}

// DateOf truncates a timestamp to its UTC calendar date.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return NewDate(u.Year(), u.Month(), u.Day())
}

func (d Date) String() string { return d.t.Format("2006-01-02") }
func (d Date) IsZero() bool   { return d.t.IsZero() }

func (d Date) Before(other Date) bool { return d.t.Before(other.t) }
func (d Date) After(other Date) bool  { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool  { return d.t.Equal(other.t) }

func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }

func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
func (d Date) IsWorkday() bool { return !d.IsWeekend() }

// MonthStart returns the first day of d's month.
func (d Date) MonthStart() Date { return NewDate(d.Year(), d.Month(), 1) }

// MonthEnd returns the last day of d's month. time.Date normalization
// handles variable month lengths and leap years.
func (d Date) MonthEnd() Date {
	return Date{t: time.Date(d.Year(), d.Month()+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)}
}

// =============================================================================
// EMPLOYEE - Read-only facts owned by the employee-management component
// =============================================================================

const EmployeeActive = "ACTIVE"

type Employee struct {
	ID          string
	Code        string
	FirstName   string
	LastName    string
	DivisionID  string // empty = no division assigned
	Status      string // ACTIVE or other
	JoiningDate Date   // zero if never recorded
	CreatedAt   Date   // day part of the employee row's creation timestamp
}

// EmploymentStart is the earliest date attendance may be recorded for:
// the explicit joining date when present, else the creation date.
func (e Employee) EmploymentStart() Date {
	if !e.JoiningDate.IsZero() {
		return e.JoiningDate
	}
	return e.CreatedAt
}

// =============================================================================
// RECORD - One (employee, date) attendance entry
// =============================================================================

type Record struct {
	ID         string
	EmployeeID string
	Date       Date
	Status     Status
	Source     Source
	Note       string
	MarkedBy   string
	MarkedAt   time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Version    int
}

// Snapshot is the audit-facing view of a record's mutable fields.
func (r *Record) Snapshot() map[string]any {
	if r == nil {
		return nil
	}
	return map[string]any{
		"employee_id":     r.EmployeeID,
		"attendance_date": r.Date.String(),
		"status":          string(r.Status),
		"source":          string(r.Source),
		"note":            r.Note,
	}
}

// NewRecord carries the fields of a record about to be inserted.
// The store assigns id, timestamps, and version 1.
type NewRecord struct {
	EmployeeID string
	Date       Date
	Status     Status
	Source     Source
	Note       string
	MarkedBy   string
}

// RecordUpdate carries the fields an override may change. The store always
// bumps version and refreshes marked_at/updated_at; there is no
// expected-version parameter (last writer wins, see DESIGN.md).
type RecordUpdate struct {
	Status   Status
	Source   Source
	Note     string
	MarkedBy string
}
