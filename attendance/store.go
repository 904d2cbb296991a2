/*
store.go - Persistence and collaborator interfaces for the engine

PURPOSE:
  Defines what the engine needs from its collaborators: the relational
  store (records, employees, month-close facts, the clock), the scoped
  authorizer, and the runtime config toggles. Concrete implementations
  live in store/sqlite (production) and attendance/store (in-memory).

THE CLOCK LIVES IN THE STORE:
  Today() is the single source of truth for day boundaries. Tests pin it
  instead of relying on wall-clock time, and every same-day decision in a
  transaction reads the same value.

CONFLICT-SAFE INSERT:
  InsertRecord returns (nil, nil) when the (employee_id, attendance_date)
  uniqueness constraint swallows the row. The engine uses that to tell
  "lost the race" apart from "store is broken".

SEE ALSO:
  - engine.go: The only consumer of these interfaces
  - store/sqlite/sqlite.go, attendance/store/memory.go: Implementations
*/
package attendance

import (
	"context"

	"github.com/warp/attendance-engine/audit"
)

// Store is the read/write surface a single transaction sees.
type Store interface {
	// Today returns the store's current calendar date.
	Today(ctx context.Context) (Date, error)

	// Employee returns the employee or nil when unknown.
	Employee(ctx context.Context, id string) (*Employee, error)

	// RecordByEmployeeDate returns the record for the pair or nil.
	RecordByEmployeeDate(ctx context.Context, employeeID string, date Date) (*Record, error)

	// InsertRecord inserts with version 1. Returns (nil, nil) when the
	// uniqueness constraint on (employee_id, attendance_date) rejects the
	// row; any other failure is a real error.
	InsertRecord(ctx context.Context, rec NewRecord) (*Record, error)

	// UpdateRecord applies upd, bumps version by exactly 1, and refreshes
	// marked_at/updated_at. No expected-version comparison.
	UpdateRecord(ctx context.Context, id string, upd RecordUpdate) (*Record, error)

	// ListRecords returns records in [from, to], optionally filtered to one
	// division (empty = all), ordered by date.
	ListRecords(ctx context.Context, from, to Date, divisionID string) ([]Record, error)

	// ListEmployees returns ACTIVE employees, optionally division-filtered,
	// ordered by employee code.
	ListEmployees(ctx context.Context, divisionID string) ([]Employee, error)

	// MonthCloseStatus returns the company-wide status for the month ending
	// on monthEnd. Missing rows mean OPEN.
	MonthCloseStatus(ctx context.Context, monthEnd Date) (MonthStatus, error)

	// AppendAudit writes one audit entry within the current transaction.
	AppendAudit(ctx context.Context, entry audit.Entry) error
}

// TxStore wraps Store with transaction support. If fn returns an error the
// transaction rolls back; otherwise it commits.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}

// Authorizer answers scoped permission questions. Implementations return a
// KindAuthorization *Error when access is denied.
type Authorizer interface {
	AssertScopedAccess(ctx context.Context, actorID, permissionCode, employeeID string) error
}

// Config exposes the runtime toggles the engine consults per call.
type Config interface {
	SelfMarkEnabled(ctx context.Context) (bool, error)
	MonthCloseEnforced(ctx context.Context) (bool, error)
}
