/*
engine.go - The transactional attendance write engine

PURPOSE:
  Orchestrates Policy + Store + Authorizer + Audit inside one transaction
  per call. Three write entry points share a single insert-or-override
  path:

    Mark      first write for (employee, date); falls into the override
              branch when a record already exists
    Override  privileged correction of an existing record, reason required
    BulkMark  one date/source, many employees, per-item failure isolation

ORDERING:
  Checks run in a fixed order and fail fast with a distinct error kind:
  coarse permission -> enum/date syntax -> self-mark gate -> (tx) same-day
  -> scoped access -> employee active -> employment window -> month close
  -> insert-or-override.

CONCURRENCY:
  Races on the same (employee, date) resolve at the store's uniqueness
  constraint: the losing writer gets a Conflict telling it to retry as an
  override. Concurrent overrides are last-writer-wins (see DESIGN.md).

SEE ALSO:
  - reads.go: ByMonth and Summary
  - policy.go: The pure checks called here
*/
package attendance

import (
	"context"
	"fmt"
	"strings"

	"github.com/warp/attendance-engine/audit"
	"github.com/warp/attendance-engine/authz"
)

// Engine is the attendance write engine. All fields are required.
type Engine struct {
	Store  TxStore
	Authz  Authorizer
	Config Config
}

// =============================================================================
// INPUTS AND RESULTS
// =============================================================================

type MarkInput struct {
	EmployeeID       string
	AttendanceDate   string
	Status           string
	Source           string
	Note             string
	Reason           string // consulted only when the write becomes an override
	ActorID          string
	RequestID        string
	ActorPermissions []string
}

type OverrideInput struct {
	EmployeeID       string
	AttendanceDate   string
	Status           string
	Note             string
	Reason           string
	ActorID          string
	RequestID        string
	ActorPermissions []string
}

type BulkItem struct {
	EmployeeID string
	Status     string
	Note       string
	Reason     string // required when the item overrides an existing record
}

type BulkMarkInput struct {
	AttendanceDate   string
	Source           string
	Items            []BulkItem
	ActorID          string
	RequestID        string
	ActorPermissions []string
}

// WriteResult is what Mark and Override return on success.
type WriteResult struct {
	Record      *Record
	MonthStatus MonthStatus
}

type BulkOutcome string

const (
	OutcomeCreated BulkOutcome = "CREATED"
	OutcomeUpdated BulkOutcome = "UPDATED"
	OutcomeFailed  BulkOutcome = "FAILED"
)

// BulkItemResult reports one item's fate. A FAILED item carries the
// business error message; it never aborts the batch.
type BulkItemResult struct {
	EmployeeID     string
	AttendanceDate Date
	Status         string
	Outcome        BulkOutcome
	Error          string
}

type BulkResult struct {
	Results []BulkItemResult
}

// =============================================================================
// RECORD LOOKUP - Explicit state instead of a bare nillable pointer
// =============================================================================

type recordState int

const (
	recordAbsent recordState = iota
	recordPresent
)

type recordLookup struct {
	state  recordState
	record *Record
}

func lookupRecord(ctx context.Context, s Store, employeeID string, date Date) (recordLookup, error) {
	rec, err := s.RecordByEmployeeDate(ctx, employeeID, date)
	if err != nil {
		return recordLookup{}, fmt.Errorf("record lookup failed: %w", err)
	}
	if rec == nil {
		return recordLookup{state: recordAbsent}, nil
	}
	return recordLookup{state: recordPresent, record: rec}, nil
}

// =============================================================================
// MARK
// =============================================================================

// Mark records attendance for one employee on one date. When a record for
// the pair already exists the call becomes an override and is gated on the
// override permission plus a non-empty reason.
func (e *Engine) Mark(ctx context.Context, in MarkInput) (*WriteResult, error) {
	if !authz.HasPermission(in.ActorPermissions, authz.PermWrite) {
		return nil, NewAuthorization(CodeForbidden, "missing permission "+authz.PermWrite)
	}

	status, err := NormalizeStatus(in.Status)
	if err != nil {
		return nil, err
	}
	source, err := NormalizeSource(in.Source)
	if err != nil {
		return nil, err
	}
	date, err := ParseAttendanceDate(in.AttendanceDate)
	if err != nil {
		return nil, err
	}

	selfEnabled, err := e.Config.SelfMarkEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("self-mark config read failed: %w", err)
	}
	if err := ValidateSelfMark(in.ActorID, in.EmployeeID, source, selfEnabled); err != nil {
		return nil, err
	}

	var result *WriteResult
	err = e.Store.WithTx(ctx, func(tx Store) error {
		monthStatus, err := e.guardWrite(ctx, tx, in.ActorID, authz.PermWrite, in.EmployeeID, date)
		if err != nil {
			return err
		}

		rec, _, err := e.applyWrite(ctx, tx, writeParams{
			employeeID:   in.EmployeeID,
			date:         date,
			status:       status,
			source:       source,
			note:         in.Note,
			reason:       in.Reason,
			actorID:      in.ActorID,
			requestID:    in.RequestID,
			perms:        in.ActorPermissions,
			insertAction: audit.ActionMark,
		})
		if err != nil {
			return err
		}
		result = &WriteResult{Record: rec, MonthStatus: monthStatus}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// =============================================================================
// OVERRIDE
// =============================================================================

// Override corrects an existing record. Unlike Mark it demands the
// override permission and a reason up front, and never inserts: a missing
// record is an error. The write is stamped source=HR.
func (e *Engine) Override(ctx context.Context, in OverrideInput) (*WriteResult, error) {
	if !authz.HasPermission(in.ActorPermissions, authz.PermOverride) {
		return nil, NewAuthorization(CodeForbidden, "missing permission "+authz.PermOverride)
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return nil, NewValidation(CodeReasonRequired, "reason is required for override")
	}

	status, err := NormalizeStatus(in.Status)
	if err != nil {
		return nil, err
	}
	date, err := ParseAttendanceDate(in.AttendanceDate)
	if err != nil {
		return nil, err
	}

	var result *WriteResult
	err = e.Store.WithTx(ctx, func(tx Store) error {
		monthStatus, err := e.guardWrite(ctx, tx, in.ActorID, authz.PermOverride, in.EmployeeID, date)
		if err != nil {
			return err
		}

		lookup, err := lookupRecord(ctx, tx, in.EmployeeID, date)
		if err != nil {
			return err
		}
		if lookup.state == recordAbsent {
			return NewValidation(CodeRecordNotFound, "attendance record does not exist")
		}

		before := lookup.record.Snapshot()
		updated, err := tx.UpdateRecord(ctx, lookup.record.ID, RecordUpdate{
			Status:   status,
			Source:   SourceHR,
			Note:     strings.TrimSpace(in.Note),
			MarkedBy: in.ActorID,
		})
		if err != nil {
			return fmt.Errorf("record update failed: %w", err)
		}

		entry := audit.NewEntry(in.RequestID, audit.EntityAttendance, updated.ID,
			audit.ActionOverride, before, updated.Snapshot(), in.ActorID, reason)
		if err := tx.AppendAudit(ctx, entry); err != nil {
			return fmt.Errorf("audit append failed: %w", err)
		}

		result = &WriteResult{Record: updated, MonthStatus: monthStatus}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// =============================================================================
// BULK MARK
// =============================================================================

// BulkMark applies one date and source to many employees in a single
// transaction. The date and month-close checks run once and abort the
// whole call; each item's own failures become FAILED results instead.
// Only non-business errors (infrastructure faults) roll the batch back.
func (e *Engine) BulkMark(ctx context.Context, in BulkMarkInput) (*BulkResult, error) {
	if !authz.HasPermission(in.ActorPermissions, authz.PermBulkWrite) {
		return nil, NewAuthorization(CodeForbidden, "missing permission "+authz.PermBulkWrite)
	}

	source, err := NormalizeSource(in.Source)
	if err != nil {
		return nil, err
	}
	date, err := ParseAttendanceDate(in.AttendanceDate)
	if err != nil {
		return nil, err
	}

	selfEnabled, err := e.Config.SelfMarkEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("self-mark config read failed: %w", err)
	}

	out := &BulkResult{Results: make([]BulkItemResult, 0, len(in.Items))}
	err = e.Store.WithTx(ctx, func(tx Store) error {
		today, err := tx.Today(ctx)
		if err != nil {
			return fmt.Errorf("today lookup failed: %w", err)
		}
		if err := ValidateSameDay(date, today); err != nil {
			return err
		}
		if _, err := e.assertMonthOpen(ctx, tx, date); err != nil {
			return err
		}

		for _, item := range in.Items {
			res := BulkItemResult{
				EmployeeID:     item.EmployeeID,
				AttendanceDate: date,
				Status:         strings.ToUpper(strings.TrimSpace(item.Status)),
			}

			rec, created, err := e.bulkItem(ctx, tx, date, source, selfEnabled, in, item)
			switch {
			case err != nil && IsBusiness(err):
				res.Outcome = OutcomeFailed
				res.Error = err.Error()
			case err != nil:
				// Infrastructure fault: abort the whole batch.
				return err
			default:
				res.Status = string(rec.Status)
				res.Outcome = OutcomeUpdated
				if created {
					res.Outcome = OutcomeCreated
				}
			}
			out.Results = append(out.Results, res)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) bulkItem(ctx context.Context, tx Store, date Date, source Source, selfEnabled bool, in BulkMarkInput, item BulkItem) (*Record, bool, error) {
	status, err := NormalizeStatus(item.Status)
	if err != nil {
		return nil, false, err
	}
	if err := ValidateSelfMark(in.ActorID, item.EmployeeID, source, selfEnabled); err != nil {
		return nil, false, err
	}
	if err := e.Authz.AssertScopedAccess(ctx, in.ActorID, authz.PermBulkWrite, item.EmployeeID); err != nil {
		return nil, false, err
	}

	emp, err := tx.Employee(ctx, item.EmployeeID)
	if err != nil {
		return nil, false, fmt.Errorf("employee lookup failed: %w", err)
	}
	if err := ValidateEmployeeActive(emp); err != nil {
		return nil, false, err
	}
	if err := ValidateEmploymentPeriod(emp, date); err != nil {
		return nil, false, err
	}

	return e.applyWrite(ctx, tx, writeParams{
		employeeID:   item.EmployeeID,
		date:         date,
		status:       status,
		source:       source,
		note:         item.Note,
		reason:       item.Reason,
		actorID:      in.ActorID,
		requestID:    in.RequestID,
		perms:        in.ActorPermissions,
		insertAction: audit.ActionBulkMark,
	})
}

// =============================================================================
// SHARED TRANSACTION STEPS
// =============================================================================

// guardWrite runs the per-employee transaction checks shared by Mark and
// Override: same-day, scoped access, active employee, employment window,
// month close. Returns the observed month status.
func (e *Engine) guardWrite(ctx context.Context, tx Store, actorID, permissionCode, employeeID string, date Date) (MonthStatus, error) {
	today, err := tx.Today(ctx)
	if err != nil {
		return "", fmt.Errorf("today lookup failed: %w", err)
	}
	if err := ValidateSameDay(date, today); err != nil {
		return "", err
	}

	if err := e.Authz.AssertScopedAccess(ctx, actorID, permissionCode, employeeID); err != nil {
		return "", err
	}

	emp, err := tx.Employee(ctx, employeeID)
	if err != nil {
		return "", fmt.Errorf("employee lookup failed: %w", err)
	}
	if err := ValidateEmployeeActive(emp); err != nil {
		return "", err
	}
	if err := ValidateEmploymentPeriod(emp, date); err != nil {
		return "", err
	}

	return e.assertMonthOpen(ctx, tx, date)
}

// assertMonthOpen consults month close only when the feature is enforced;
// otherwise writes proceed and the status reported is OPEN.
func (e *Engine) assertMonthOpen(ctx context.Context, tx Store, date Date) (MonthStatus, error) {
	enforced, err := e.Config.MonthCloseEnforced(ctx)
	if err != nil {
		return "", fmt.Errorf("month-close config read failed: %w", err)
	}
	if !enforced {
		return MonthOpen, nil
	}
	status, err := tx.MonthCloseStatus(ctx, date.MonthEnd())
	if err != nil {
		return "", fmt.Errorf("month-close lookup failed: %w", err)
	}
	if status == MonthClosed {
		return "", NewAuthorization(CodeMonthClosed, "attendance for this month is locked")
	}
	return status, nil
}

type writeParams struct {
	employeeID   string
	date         Date
	status       Status
	source       Source
	note         string
	reason       string
	actorID      string
	requestID    string
	perms        []string
	insertAction audit.Action
}

// applyWrite is the insert-or-override state machine shared by Mark and
// BulkMark items. Returns the written record and whether it was created.
func (e *Engine) applyWrite(ctx context.Context, tx Store, p writeParams) (*Record, bool, error) {
	lookup, err := lookupRecord(ctx, tx, p.employeeID, p.date)
	if err != nil {
		return nil, false, err
	}
	switch lookup.state {
	case recordAbsent:
		rec, err := e.insertFresh(ctx, tx, p)
		return rec, true, err
	case recordPresent:
		rec, err := e.overrideExisting(ctx, tx, lookup.record, p)
		return rec, false, err
	}
	return nil, false, fmt.Errorf("unreachable record state %d", lookup.state)
}

func (e *Engine) insertFresh(ctx context.Context, tx Store, p writeParams) (*Record, error) {
	inserted, err := tx.InsertRecord(ctx, NewRecord{
		EmployeeID: p.employeeID,
		Date:       p.date,
		Status:     p.status,
		Source:     p.source,
		Note:       strings.TrimSpace(p.note),
		MarkedBy:   p.actorID,
	})
	if err != nil {
		return nil, fmt.Errorf("record insert failed: %w", err)
	}
	if inserted == nil {
		// Lost the uniqueness race. If the winner's row is visible now the
		// caller must retry as an override; if not, something else ate the row.
		again, err := tx.RecordByEmployeeDate(ctx, p.employeeID, p.date)
		if err != nil {
			return nil, fmt.Errorf("post-conflict lookup failed: %w", err)
		}
		if again != nil {
			return nil, NewConflict(CodeOverrideRequired, "attendance record already exists; override required")
		}
		return nil, NewValidation(CodeMarkFailed, "failed to mark attendance")
	}

	entry := audit.NewEntry(p.requestID, audit.EntityAttendance, inserted.ID,
		p.insertAction, nil, inserted.Snapshot(), p.actorID, "")
	if err := tx.AppendAudit(ctx, entry); err != nil {
		return nil, fmt.Errorf("audit append failed: %w", err)
	}
	return inserted, nil
}

func (e *Engine) overrideExisting(ctx context.Context, tx Store, existing *Record, p writeParams) (*Record, error) {
	if !authz.HasPermission(p.perms, authz.PermOverride) {
		return nil, NewConflict(CodeOverrideRequired, "attendance record already exists; override required")
	}
	reason := strings.TrimSpace(p.reason)
	if reason == "" {
		return nil, NewValidation(CodeReasonRequired, "reason is required for override")
	}
	if err := e.Authz.AssertScopedAccess(ctx, p.actorID, authz.PermOverride, p.employeeID); err != nil {
		return nil, err
	}

	before := existing.Snapshot()
	updated, err := tx.UpdateRecord(ctx, existing.ID, RecordUpdate{
		Status:   p.status,
		Source:   p.source,
		Note:     strings.TrimSpace(p.note),
		MarkedBy: p.actorID,
	})
	if err != nil {
		return nil, fmt.Errorf("record update failed: %w", err)
	}

	entry := audit.NewEntry(p.requestID, audit.EntityAttendance, updated.ID,
		audit.ActionOverride, before, updated.Snapshot(), p.actorID, reason)
	if err := tx.AppendAudit(ctx, entry); err != nil {
		return nil, fmt.Errorf("audit append failed: %w", err)
	}
	return updated, nil
}
