package attendance_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/attendance/store"
	"github.com/warp/attendance-engine/audit"
	"github.com/warp/attendance-engine/authz"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var today = attendance.NewDate(2025, time.March, 10) // a Monday

func newTestEngine() (*attendance.Engine, *store.Memory) {
	mem := store.NewMemory()
	mem.SetToday(today)
	return &attendance.Engine{Store: mem, Authz: mem, Config: mem}, mem
}

func seedEmployee(mem *store.Memory, id, code, division string) {
	mem.AddEmployee(attendance.Employee{
		ID:          id,
		Code:        code,
		FirstName:   "Test",
		LastName:    strings.ToUpper(code),
		DivisionID:  division,
		Status:      attendance.EmployeeActive,
		JoiningDate: attendance.NewDate(2024, time.January, 1),
	})
}

func grantAll(mem *store.Memory, actorID string) {
	mem.AddGrant(authz.Grant{ActorID: actorID, PermissionCode: authz.PermFullAccess, Scope: authz.ScopeCompany})
}

func hrPerms() []string {
	return []string{authz.PermWrite, authz.PermOverride, authz.PermBulkWrite}
}

func markInput(employeeID string) attendance.MarkInput {
	return attendance.MarkInput{
		EmployeeID:       employeeID,
		AttendanceDate:   today.String(),
		Status:           "PRESENT",
		Source:           "HR",
		ActorID:          "hr-1",
		RequestID:        "req-1",
		ActorPermissions: hrPerms(),
	}
}

func mustMark(t *testing.T, eng *attendance.Engine, in attendance.MarkInput) *attendance.WriteResult {
	t.Helper()
	result, err := eng.Mark(context.Background(), in)
	if err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	return result
}

func assertCode(t *testing.T, err error, kind attendance.Kind, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s (%s), got nil", kind, code)
	}
	var engineErr *attendance.Error
	if !errors.As(err, &engineErr) {
		t.Fatalf("expected business error, got %v", err)
	}
	if engineErr.Kind != kind {
		t.Errorf("expected kind %s, got %s (%v)", kind, engineErr.Kind, err)
	}
	if engineErr.Code != code {
		t.Errorf("expected code %s, got %s (%v)", code, engineErr.Code, err)
	}
}

// =============================================================================
// MARK - Happy path and insert/override branches
// =============================================================================

func TestMark_CreatesRecord(t *testing.T) {
	// GIVEN: An active employee and an HR actor with full access
	eng, mem := newTestEngine()
	seedEmployee(mem, "emp-1", "E001", "div-a")
	grantAll(mem, "hr-1")

	// WHEN: Marking the employee present for today
	result := mustMark(t, eng, markInput("emp-1"))

	// THEN: A version-1 record exists, the month reads OPEN, and one
	// MARK audit entry was written with no before-snapshot
	if result.Record.Version != 1 {
		t.Errorf("expected version 1, got %d", result.Record.Version)
	}
	if result.Record.Status != attendance.StatusPresent {
		t.Errorf("expected PRESENT, got %s", result.Record.Status)
	}
	if result.MonthStatus != attendance.MonthOpen {
		t.Errorf("expected OPEN month, got %s", result.MonthStatus)
	}

	entries := mem.AuditEntries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(entries))
	}
	if entries[0].Action != audit.ActionMark {
		t.Errorf("expected MARK audit action, got %s", entries[0].Action)
	}
	if entries[0].Before != nil {
		t.Errorf("expected nil before-snapshot on creation, got %v", entries[0].Before)
	}
}

func TestMark_Twice_WithoutOverridePermission_Conflicts(t *testing.T) {
	// GIVEN: A record already exists for (employee, today)
	eng, mem := newTestEngine()
	seedEmployee(mem, "emp-1", "E001", "div-a")
	grantAll(mem, "hr-1")
	first := mustMark(t, eng, markInput("emp-1"))

	// WHEN: A second mark arrives from an actor without OVERRIDE
	in := markInput("emp-1")
	in.Status = "ABSENT"
	in.ActorPermissions = []string{authz.PermWrite}
	_, err := eng.Mark(context.Background(), in)

	// THEN: Conflict telling the caller to use the override flow, and
	// the first record is untouched
	assertCode(t, err, attendance.KindConflict, attendance.CodeOverrideRequired)

	current, _ := mem.RecordByEmployeeDate(context.Background(), "emp-1", today)
	if current.Status != first.Record.Status || current.Version != 1 {
		t.Errorf("first record was altered: status=%s version=%d", current.Status, current.Version)
	}
}

func TestMark_Twice_WithOverridePermissionAndReason_Updates(t *testing.T) {
	// GIVEN: An existing record and an actor holding OVERRIDE
	eng, mem := newTestEngine()
	seedEmployee(mem, "emp-1", "E001", "div-a")
	grantAll(mem, "hr-1")
	mustMark(t, eng, markInput("emp-1"))

	// WHEN: Marking again with a reason
	in := markInput("emp-1")
	in.Status = "ABSENT"
	in.Reason = "correcting a miskey"
	result := mustMark(t, eng, in)

	// THEN: The record is updated in place with a bumped version, and an
	// OVERRIDE audit entry carries the before-snapshot and reason
	if result.Record.Version != 2 {
		t.Errorf("expected version 2, got %d", result.Record.Version)
	}
	if result.Record.Status != attendance.StatusAbsent {
		t.Errorf("expected ABSENT, got %s", result.Record.Status)
	}

	entries := mem.AuditEntries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(entries))
	}
	last := entries[1]
	if last.Action != audit.ActionOverride {
		t.Errorf("expected OVERRIDE audit action, got %s", last.Action)
	}
	if last.Reason != "correcting a miskey" {
		t.Errorf("expected reason on audit entry, got %q", last.Reason)
	}
	if last.Before["status"] != "PRESENT" {
		t.Errorf("expected before-snapshot status PRESENT, got %v", last.Before["status"])
	}
}

func TestMark_OverrideBranch_EmptyReason_Rejected(t *testing.T) {
	// GIVEN: An existing record
	eng, mem := newTestEngine()
	seedEmployee(mem, "emp-1", "E001", "div-a")
	grantAll(mem, "hr-1")
	mustMark(t, eng, markInput("emp-1"))

	// WHEN: Re-marking with OVERRIDE permission but a blank reason
	in := markInput("emp-1")
	in.Status = "ABSENT"
	in.Reason = "   "
	_, err := eng.Mark(context.Background(), in)

	// THEN: Validation failure, no mutation
	assertCode(t, err, attendance.KindValidation, attendance.CodeReasonRequired)

	current, _ := mem.RecordByEmployeeDate(context.Background(), "emp-1", today)
	if current.Version != 1 {
		t.Errorf("record mutated despite rejected override: version=%d", current.Version)
	}
}

// =============================================================================
// MARK - Policy gates
// =============================================================================

func TestMark_PastAndFutureDates_Distinguished(t *testing.T) {
	eng, mem := newTestEngine()
	seedEmployee(mem, "emp-1", "E001", "div-a")
	grantAll(mem, "hr-1")

	past := markInput("emp-1")
	past.AttendanceDate = today.AddDays(-1).String()
	_, err := eng.Mark(context.Background(), past)
	assertCode(t, err, attendance.KindValidation, attendance.CodePastDate)

	future := markInput("emp-1")
	future.AttendanceDate = today.AddDays(1).String()
	_, err = eng.Mark(context.Background(), future)
	assertCode(t, err, attendance.KindValidation, attendance.CodeFutureDate)
}

func TestMark_MalformedInputs_Rejected(t *testing.T) {
	eng, mem := newTestEngine()
	seedEmployee(mem, "emp-1", "E001", "div-a")
	grantAll(mem, "hr-1")

	cases := []struct {
		name   string
		mutate func(*attendance.MarkInput)
		code   string
	}{
		{"loose date", func(in *attendance.MarkInput) { in.AttendanceDate = "2025-3-10" }, attendance.CodeBadDate},
		{"impossible date", func(in *attendance.MarkInput) { in.AttendanceDate = "2025-02-30" }, attendance.CodeBadDate},
		{"unknown status", func(in *attendance.MarkInput) { in.Status = "AWOL" }, attendance.CodeBadStatus},
		{"unknown source", func(in *attendance.MarkInput) { in.Source = "FAX" }, attendance.CodeBadSource},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := markInput("emp-1")
			tc.mutate(&in)
			_, err := eng.Mark(context.Background(), in)
			assertCode(t, err, attendance.KindValidation, tc.code)
		})
	}
}

func TestMark_MissingPermission_Forbidden(t *testing.T) {
	eng, mem := newTestEngine()
	seedEmployee(mem, "emp-1", "E001", "div-a")
	grantAll(mem, "hr-1")

	in := markInput("emp-1")
	in.ActorPermissions = nil
	_, err := eng.Mark(context.Background(), in)
	assertCode(t, err, attendance.KindAuthorization, attendance.CodeForbidden)
}

func TestMark_ScopedAccessDenied_NothingWritten(t *testing.T) {
	// GIVEN: The actor's permission list says WRITE, but no grant covers
	// the employee's division
	eng, mem := newTestEngine()
	seedEmployee(mem, "emp-1", "E001", "div-a")
	mem.AddGrant(authz.Grant{
		ActorID: "hr-1", PermissionCode: authz.PermWrite,
		Scope: authz.ScopeDivision, DivisionID: "div-b",
	})

	// WHEN
	_, err := eng.Mark(context.Background(), markInput("emp-1"))

	// THEN: Forbidden, and no record or audit entry exists
	assertCode(t, err, attendance.KindAuthorization, attendance.CodeForbidden)
	if rec, _ := mem.RecordByEmployeeDate(context.Background(), "emp-1", today); rec != nil {
		t.Error("record written despite denied scope")
	}
	if len(mem.AuditEntries()) != 0 {
		t.Error("audit entry written despite denied scope")
	}
}

func TestMark_EmployeeChecks(t *testing.T) {
	eng, mem := newTestEngine()
	grantAll(mem, "hr-1")
	mem.AddEmployee(attendance.Employee{
		ID: "emp-gone", Code: "E900", Status: "TERMINATED",
		JoiningDate: attendance.NewDate(2024, time.January, 1),
	})
	mem.AddEmployee(attendance.Employee{
		ID: "emp-new", Code: "E901", Status: attendance.EmployeeActive,
		JoiningDate: today.AddDays(5),
	})

	_, err := eng.Mark(context.Background(), markInput("emp-unknown"))
	assertCode(t, err, attendance.KindNotFound, attendance.CodeEmployeeNotFound)

	_, err = eng.Mark(context.Background(), markInput("emp-gone"))
	assertCode(t, err, attendance.KindValidation, attendance.CodeEmployeeInactive)

	// Joining date is after today, so today is outside the employment window
	_, err = eng.Mark(context.Background(), markInput("emp-new"))
	assertCode(t, err, attendance.KindValidation, attendance.CodeOutsideEmployment)
}

func TestMark_SelfMarking(t *testing.T) {
	eng, mem := newTestEngine()
	seedEmployee(mem, "emp-1", "E001", "div-a")
	seedEmployee(mem, "emp-2", "E002", "div-a")
	grantAll(mem, "emp-1")

	self := markInput("emp-1")
	self.Source = "SELF"
	self.ActorID = "emp-1"

	// Disabled toggle blocks self marking regardless of other validity
	_, err := eng.Mark(context.Background(), self)
	assertCode(t, err, attendance.KindAuthorization, attendance.CodeSelfMarkDisabled)

	// Enabled, but marking someone else
	mem.EnableSelfMark(true)
	other := self
	other.EmployeeID = "emp-2"
	_, err = eng.Mark(context.Background(), other)
	assertCode(t, err, attendance.KindAuthorization, attendance.CodeSelfMarkMismatch)

	// Enabled and marking yourself
	result := mustMark(t, eng, self)
	if result.Record.Source != attendance.SourceSelf {
		t.Errorf("expected SELF source, got %s", result.Record.Source)
	}
}

func TestMark_MonthClose(t *testing.T) {
	// GIVEN: This month is CLOSED
	eng, mem := newTestEngine()
	seedEmployee(mem, "emp-1", "E001", "div-a")
	grantAll(mem, "hr-1")
	mem.CloseMonth(today)

	// WHEN enforcement is off, the write succeeds regardless
	mustMark(t, eng, markInput("emp-1"))

	// WHEN enforcement is on, a write into the closed month is blocked
	mem.EnforceMonthClose(true)
	in := markInput("emp-1")
	in.EmployeeID = "emp-1"
	in.Status = "ABSENT"
	in.Reason = "late correction"
	_, err := eng.Mark(context.Background(), in)
	assertCode(t, err, attendance.KindAuthorization, attendance.CodeMonthClosed)
}

// =============================================================================
// OVERRIDE
// =============================================================================

func TestOverride_NonExistentRecord_Rejected(t *testing.T) {
	// GIVEN: No record for the pair
	eng, mem := newTestEngine()
	seedEmployee(mem, "emp-1", "E001", "div-a")
	grantAll(mem, "hr-1")

	// WHEN
	_, err := eng.Override(context.Background(), attendance.OverrideInput{
		EmployeeID:       "emp-1",
		AttendanceDate:   today.String(),
		Status:           "ABSENT",
		Reason:           "was not in",
		ActorID:          "hr-1",
		ActorPermissions: hrPerms(),
	})

	// THEN: Validation failure and no audit entry
	assertCode(t, err, attendance.KindValidation, attendance.CodeRecordNotFound)
	if len(mem.AuditEntries()) != 0 {
		t.Error("audit entry written for failed override")
	}
}

func TestOverride_EmptyReason_Rejected(t *testing.T) {
	eng, mem := newTestEngine()
	seedEmployee(mem, "emp-1", "E001", "div-a")
	grantAll(mem, "hr-1")
	mustMark(t, eng, markInput("emp-1"))

	_, err := eng.Override(context.Background(), attendance.OverrideInput{
		EmployeeID:       "emp-1",
		AttendanceDate:   today.String(),
		Status:           "ABSENT",
		Reason:           "\t ",
		ActorID:          "hr-1",
		ActorPermissions: hrPerms(),
	})
	assertCode(t, err, attendance.KindValidation, attendance.CodeReasonRequired)

	current, _ := mem.RecordByEmployeeDate(context.Background(), "emp-1", today)
	if current.Version != 1 {
		t.Errorf("record mutated despite rejected override: version=%d", current.Version)
	}
}

func TestOverride_StampsHRSource(t *testing.T) {
	// GIVEN: A SELF-sourced record
	eng, mem := newTestEngine()
	seedEmployee(mem, "emp-1", "E001", "div-a")
	grantAll(mem, "emp-1")
	grantAll(mem, "hr-1")
	mem.EnableSelfMark(true)

	self := markInput("emp-1")
	self.Source = "SELF"
	self.ActorID = "emp-1"
	mustMark(t, eng, self)

	// WHEN: HR overrides it
	result, err := eng.Override(context.Background(), attendance.OverrideInput{
		EmployeeID:       "emp-1",
		AttendanceDate:   today.String(),
		Status:           "LEAVE",
		Reason:           "approved retroactively",
		ActorID:          "hr-1",
		ActorPermissions: hrPerms(),
	})
	if err != nil {
		t.Fatalf("override failed: %v", err)
	}

	// THEN: The record is re-stamped as an HR write
	if result.Record.Source != attendance.SourceHR {
		t.Errorf("expected HR source after override, got %s", result.Record.Source)
	}
	if result.Record.Version != 2 {
		t.Errorf("expected version 2, got %d", result.Record.Version)
	}
	if result.Record.MarkedBy != "hr-1" {
		t.Errorf("expected marked_by hr-1, got %s", result.Record.MarkedBy)
	}
}

// =============================================================================
// BULK MARK
// =============================================================================

func bulkInput(items ...attendance.BulkItem) attendance.BulkMarkInput {
	return attendance.BulkMarkInput{
		AttendanceDate:   today.String(),
		Source:           "HR",
		Items:            items,
		ActorID:          "hr-1",
		RequestID:        "req-bulk",
		ActorPermissions: hrPerms(),
	}
}

func TestBulkMark_PartialFailureIsolation(t *testing.T) {
	// GIVEN: Three items where the middle one has an invalid status
	eng, mem := newTestEngine()
	seedEmployee(mem, "emp-1", "E001", "div-a")
	seedEmployee(mem, "emp-2", "E002", "div-a")
	seedEmployee(mem, "emp-3", "E003", "div-a")
	grantAll(mem, "hr-1")

	// WHEN
	result, err := eng.BulkMark(context.Background(), bulkInput(
		attendance.BulkItem{EmployeeID: "emp-1", Status: "PRESENT"},
		attendance.BulkItem{EmployeeID: "emp-2", Status: "MISSING"},
		attendance.BulkItem{EmployeeID: "emp-3", Status: "LEAVE"},
	))

	// THEN: The call succeeds with exactly 3 results; items 1 and 3
	// created, item 2 FAILED with a validation message
	if err != nil {
		t.Fatalf("bulk mark failed: %v", err)
	}
	if len(result.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(result.Results))
	}
	if result.Results[0].Outcome != attendance.OutcomeCreated {
		t.Errorf("item 1: expected CREATED, got %s", result.Results[0].Outcome)
	}
	if result.Results[1].Outcome != attendance.OutcomeFailed {
		t.Errorf("item 2: expected FAILED, got %s", result.Results[1].Outcome)
	}
	if !strings.Contains(result.Results[1].Error, "invalid attendance status") {
		t.Errorf("item 2: expected validation message, got %q", result.Results[1].Error)
	}
	if result.Results[2].Outcome != attendance.OutcomeCreated {
		t.Errorf("item 3: expected CREATED, got %s", result.Results[2].Outcome)
	}

	// The failed item left no record behind
	if rec, _ := mem.RecordByEmployeeDate(context.Background(), "emp-2", today); rec != nil {
		t.Error("failed item wrote a record")
	}
}

func TestBulkMark_WrongDate_AbortsWholeCall(t *testing.T) {
	eng, mem := newTestEngine()
	seedEmployee(mem, "emp-1", "E001", "div-a")
	grantAll(mem, "hr-1")

	in := bulkInput(attendance.BulkItem{EmployeeID: "emp-1", Status: "PRESENT"})
	in.AttendanceDate = today.AddDays(-1).String()
	_, err := eng.BulkMark(context.Background(), in)
	assertCode(t, err, attendance.KindValidation, attendance.CodePastDate)
}

func TestBulkMark_ExistingRecord_UpdatedWithReason(t *testing.T) {
	// GIVEN: emp-1 already marked PRESENT today
	eng, mem := newTestEngine()
	seedEmployee(mem, "emp-1", "E001", "div-a")
	seedEmployee(mem, "emp-2", "E002", "div-a")
	grantAll(mem, "hr-1")
	mustMark(t, eng, markInput("emp-1"))

	// WHEN: A bulk call covers emp-1 again (with a reason) plus emp-2
	result, err := eng.BulkMark(context.Background(), bulkInput(
		attendance.BulkItem{EmployeeID: "emp-1", Status: "ABSENT", Reason: "roster correction"},
		attendance.BulkItem{EmployeeID: "emp-2", Status: "PRESENT"},
	))
	if err != nil {
		t.Fatalf("bulk mark failed: %v", err)
	}

	// THEN: emp-1 is UPDATED, emp-2 CREATED
	if result.Results[0].Outcome != attendance.OutcomeUpdated {
		t.Errorf("expected UPDATED, got %s", result.Results[0].Outcome)
	}
	if result.Results[1].Outcome != attendance.OutcomeCreated {
		t.Errorf("expected CREATED, got %s", result.Results[1].Outcome)
	}

	rec, _ := mem.RecordByEmployeeDate(context.Background(), "emp-1", today)
	if rec.Status != attendance.StatusAbsent || rec.Version != 2 {
		t.Errorf("expected ABSENT v2, got %s v%d", rec.Status, rec.Version)
	}
}

func TestBulkMark_ExistingRecord_NoReason_FailsItemOnly(t *testing.T) {
	eng, mem := newTestEngine()
	seedEmployee(mem, "emp-1", "E001", "div-a")
	seedEmployee(mem, "emp-2", "E002", "div-a")
	grantAll(mem, "hr-1")
	mustMark(t, eng, markInput("emp-1"))

	result, err := eng.BulkMark(context.Background(), bulkInput(
		attendance.BulkItem{EmployeeID: "emp-1", Status: "ABSENT"},
		attendance.BulkItem{EmployeeID: "emp-2", Status: "PRESENT"},
	))
	if err != nil {
		t.Fatalf("bulk mark failed: %v", err)
	}
	if result.Results[0].Outcome != attendance.OutcomeFailed {
		t.Errorf("expected FAILED for reason-less re-mark, got %s", result.Results[0].Outcome)
	}
	if result.Results[1].Outcome != attendance.OutcomeCreated {
		t.Errorf("expected CREATED for emp-2, got %s", result.Results[1].Outcome)
	}
}

// =============================================================================
// READS
// =============================================================================

func TestSummary_CountsAndRate(t *testing.T) {
	// GIVEN: Two employees, one with 2 PRESENT + 1 LEAVE in March
	eng, mem := newTestEngine()
	seedEmployee(mem, "emp-1", "E001", "div-a")
	seedEmployee(mem, "emp-2", "E002", "div-a")
	grantAll(mem, "hr-1")

	for i, status := range []string{"PRESENT", "PRESENT", "LEAVE"} {
		day := attendance.NewDate(2025, time.March, 3+i)
		mem.SetToday(day)
		in := markInput("emp-1")
		in.AttendanceDate = day.String()
		in.Status = status
		mustMark(t, eng, in)
	}

	// WHEN
	summary, err := eng.Summary(context.Background(), attendance.MonthQuery{Month: "2025-03"})
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}

	// THEN: March 2025 has 21 weekdays; emp-1 has 3 marked days and a
	// 3/21 rate, emp-2 appears with zero counts
	if summary.WorkingDays != 21 {
		t.Errorf("expected 21 working days in 2025-03, got %d", summary.WorkingDays)
	}
	if len(summary.Employees) != 2 {
		t.Fatalf("expected 2 employees, got %d", len(summary.Employees))
	}

	e1 := summary.Employees[0]
	if e1.EmployeeCode != "E001" {
		t.Fatalf("expected E001 first (code order), got %s", e1.EmployeeCode)
	}
	if e1.PresentDays != 2 || e1.LeaveDays != 1 || e1.TotalMarked != 3 {
		t.Errorf("unexpected counts: present=%d leave=%d total=%d", e1.PresentDays, e1.LeaveDays, e1.TotalMarked)
	}
	if e1.AttendanceRate.String() != "0.1429" {
		t.Errorf("expected rate 0.1429, got %s", e1.AttendanceRate)
	}

	e2 := summary.Employees[1]
	if e2.TotalMarked != 0 || !e2.AttendanceRate.IsZero() {
		t.Errorf("expected zero summary for unmarked employee, got %+v", e2)
	}
}

func TestByMonth_BadMonth(t *testing.T) {
	eng, _ := newTestEngine()
	_, err := eng.ByMonth(context.Background(), attendance.MonthQuery{Month: "March 2025"})
	assertCode(t, err, attendance.KindValidation, attendance.CodeBadMonth)
}

func TestByMonth_ListsMonthRecords(t *testing.T) {
	eng, mem := newTestEngine()
	seedEmployee(mem, "emp-1", "E001", "div-a")
	grantAll(mem, "hr-1")
	mustMark(t, eng, markInput("emp-1"))

	view, err := eng.ByMonth(context.Background(), attendance.MonthQuery{Month: "2025-03"})
	if err != nil {
		t.Fatalf("byMonth failed: %v", err)
	}
	if view.From.String() != "2025-03-01" || view.To.String() != "2025-03-31" {
		t.Errorf("unexpected bounds %s..%s", view.From, view.To)
	}
	if len(view.Records) != 1 {
		t.Errorf("expected 1 record, got %d", len(view.Records))
	}
	if view.MonthStatus != attendance.MonthOpen {
		t.Errorf("expected OPEN, got %s", view.MonthStatus)
	}
	if !view.Today.Equal(today) {
		t.Errorf("expected today %s, got %s", today, view.Today)
	}
	if len(view.Employees) != 1 || view.Employees[0].Code != "E001" {
		t.Errorf("expected the active roster in the view, got %+v", view.Employees)
	}
}

func TestByMonth_RosterFollowsDivisionFilter(t *testing.T) {
	eng, mem := newTestEngine()
	seedEmployee(mem, "emp-1", "E001", "div-a")
	seedEmployee(mem, "emp-2", "E002", "div-b")

	view, err := eng.ByMonth(context.Background(), attendance.MonthQuery{
		Month: "2025-03", DivisionID: "div-b",
	})
	if err != nil {
		t.Fatalf("byMonth failed: %v", err)
	}
	if len(view.Employees) != 1 || view.Employees[0].ID != "emp-2" {
		t.Errorf("expected only div-b employees, got %+v", view.Employees)
	}
}
