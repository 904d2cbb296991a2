/*
Package leavesync is the trusted bypass write path the leave-approval
workflow uses to force and revert LEAVE attendance.

PURPOSE:
  When a leave request is approved, attendance for the covered dates must
  read LEAVE even though no HR actor marked it. This adapter writes
  directly through the store, skipping the engine's permission, same-day,
  and month-close gates. The trust boundary is explicit: only code that
  holds an *Adapter can take this path.

OWNERSHIP TAGS:
  Applied records carry note "LEAVE_REQUEST:<id>" (plus ":<PART>" for
  half days). Revert only touches records whose source is SYSTEM and
  whose note starts with the matching tag; anything else is someone
  else's data and the revert is a silent no-op.

SEE ALSO:
  - attendance/engine.go: The policed write path this deliberately skips
  - audit: ATTENDANCE_SYNC_APPLIED / ATTENDANCE_SYNC_REVERTED actions
*/
package leavesync

import (
	"context"
	"fmt"
	"strings"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/audit"
)

// Adapter writes leave state straight through the attendance store.
type Adapter struct {
	Store attendance.TxStore
}

// ApplyInput identifies one approved leave day to force into attendance.
type ApplyInput struct {
	EmployeeID     string
	Date           attendance.Date
	LeaveRequestID string
	HalfDayPart    string // e.g. "FIRST_HALF"; empty for a full day
	ActorID        string
	RequestID      string
}

// RevertInput identifies a previously applied leave day to undo.
type RevertInput struct {
	EmployeeID     string
	Date           attendance.Date
	LeaveRequestID string
	ActorID        string
	RequestID      string
}

func leaveNote(leaveRequestID, part string) string {
	if p := strings.ToUpper(strings.TrimSpace(part)); p != "" {
		return fmt.Sprintf("LEAVE_REQUEST:%s:%s", leaveRequestID, p)
	}
	return "LEAVE_REQUEST:" + leaveRequestID
}

func revertedNote(leaveRequestID string) string {
	return "REVERTED_LEAVE_REQUEST:" + leaveRequestID
}

// ApplyLeave forces (employee, date) to status=LEAVE, source=SYSTEM, with
// the owning leave-request tag in the note. Inserts when absent, updates
// when present. A lost insert race surfaces as a Conflict.
func (a *Adapter) ApplyLeave(ctx context.Context, in ApplyInput) (*attendance.Record, error) {
	note := leaveNote(in.LeaveRequestID, in.HalfDayPart)

	var result *attendance.Record
	err := a.Store.WithTx(ctx, func(tx attendance.Store) error {
		existing, err := tx.RecordByEmployeeDate(ctx, in.EmployeeID, in.Date)
		if err != nil {
			return fmt.Errorf("record lookup failed: %w", err)
		}

		if existing == nil {
			inserted, err := tx.InsertRecord(ctx, attendance.NewRecord{
				EmployeeID: in.EmployeeID,
				Date:       in.Date,
				Status:     attendance.StatusLeave,
				Source:     attendance.SourceSystem,
				Note:       note,
				MarkedBy:   in.ActorID,
			})
			if err != nil {
				return fmt.Errorf("record insert failed: %w", err)
			}
			if inserted == nil {
				return attendance.NewConflict(attendance.CodeRecordExists, "attendance already exists")
			}
			entry := audit.NewEntry(in.RequestID, audit.EntityAttendance, inserted.ID,
				audit.ActionSyncApplied, nil, inserted.Snapshot(), in.ActorID, "")
			if err := tx.AppendAudit(ctx, entry); err != nil {
				return fmt.Errorf("audit append failed: %w", err)
			}
			result = inserted
			return nil
		}

		before := existing.Snapshot()
		updated, err := tx.UpdateRecord(ctx, existing.ID, attendance.RecordUpdate{
			Status:   attendance.StatusLeave,
			Source:   attendance.SourceSystem,
			Note:     note,
			MarkedBy: in.ActorID,
		})
		if err != nil {
			return fmt.Errorf("record update failed: %w", err)
		}
		entry := audit.NewEntry(in.RequestID, audit.EntityAttendance, updated.ID,
			audit.ActionSyncApplied, before, updated.Snapshot(), in.ActorID, "")
		if err := tx.AppendAudit(ctx, entry); err != nil {
			return fmt.Errorf("audit append failed: %w", err)
		}
		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RevertLeave undoes an applied leave day: status back to ABSENT, note
// swapped for the reverted tag. Returns (nil, nil) without writing
// anything when the record is missing or not owned by this leave request,
// so callers can retry safely and independently-entered data survives.
func (a *Adapter) RevertLeave(ctx context.Context, in RevertInput) (*attendance.Record, error) {
	var result *attendance.Record
	err := a.Store.WithTx(ctx, func(tx attendance.Store) error {
		existing, err := tx.RecordByEmployeeDate(ctx, in.EmployeeID, in.Date)
		if err != nil {
			return fmt.Errorf("record lookup failed: %w", err)
		}
		if existing == nil {
			return nil
		}
		prefix := "LEAVE_REQUEST:" + in.LeaveRequestID
		if existing.Source != attendance.SourceSystem || !strings.HasPrefix(existing.Note, prefix) {
			return nil
		}

		before := existing.Snapshot()
		updated, err := tx.UpdateRecord(ctx, existing.ID, attendance.RecordUpdate{
			Status:   attendance.StatusAbsent,
			Source:   attendance.SourceSystem,
			Note:     revertedNote(in.LeaveRequestID),
			MarkedBy: in.ActorID,
		})
		if err != nil {
			return fmt.Errorf("record update failed: %w", err)
		}
		entry := audit.NewEntry(in.RequestID, audit.EntityAttendance, updated.ID,
			audit.ActionSyncReverted, before, updated.Snapshot(), in.ActorID, "")
		if err := tx.AppendAudit(ctx, entry); err != nil {
			return fmt.Errorf("audit append failed: %w", err)
		}
		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
