/*
Package store provides an in-memory implementation of the attendance
persistence interfaces.

PURPOSE:
  A complete, deterministic stand-in for the SQLite store: implements
  TxStore, Authorizer, and Config over plain maps so the engine can be
  exercised without a database. The clock is pinned with SetToday, grants
  and config toggles are seeded directly, and every audit entry is kept
  for inspection.

TRANSACTIONS:
  WithTx snapshots all mutable state up front and restores it when fn
  fails, giving the same all-or-nothing behavior the SQL store gets from
  BEGIN/ROLLBACK. A single mutex serializes calls, so the uniqueness
  race InsertRecord guards against is simulated rather than organic.

SEE ALSO:
  - attendance/store.go: The interfaces implemented here
  - store/sqlite: The production counterpart
*/
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/audit"
	"github.com/warp/attendance-engine/authz"
)

// Memory is an in-memory TxStore + Authorizer + Config.
type Memory struct {
	mu sync.Mutex

	employees  map[string]attendance.Employee
	records    map[string]attendance.Record // by record id
	byPair     map[string]string            // employeeID|date -> record id
	monthClose map[string]attendance.MonthStatus
	grants     []authz.Grant
	auditLog   []audit.Entry

	today              attendance.Date
	selfMarkEnabled    bool
	monthCloseEnforced bool
}

func NewMemory() *Memory {
	return &Memory{
		employees:  make(map[string]attendance.Employee),
		records:    make(map[string]attendance.Record),
		byPair:     make(map[string]string),
		monthClose: make(map[string]attendance.MonthStatus),
		today:      attendance.DateOf(time.Now()),
	}
}

func pairKey(employeeID string, date attendance.Date) string {
	return employeeID + "|" + date.String()
}

// =============================================================================
// SEEDING - Test and dev setup helpers
// =============================================================================

func (m *Memory) SetToday(d attendance.Date) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.today = d
}

func (m *Memory) AddEmployee(e attendance.Employee) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[e.ID] = e
}

func (m *Memory) AddGrant(g authz.Grant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grants = append(m.grants, g)
}

// CloseMonth marks the month containing d as CLOSED.
func (m *Memory) CloseMonth(d attendance.Date) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.monthClose[d.MonthEnd().String()] = attendance.MonthClosed
}

func (m *Memory) EnableSelfMark(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selfMarkEnabled = on
}

func (m *Memory) EnforceMonthClose(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.monthCloseEnforced = on
}

// AuditEntries returns a copy of everything appended so far.
func (m *Memory) AuditEntries() []audit.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]audit.Entry, len(m.auditLog))
	copy(out, m.auditLog)
	return out
}

// ListByEntity implements audit.Log.
func (m *Memory) ListByEntity(entityType, entityID string) ([]audit.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []audit.Entry
	for _, e := range m.auditLog {
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

// =============================================================================
// STORE
// =============================================================================

// The exported Store methods take the mutex; the ...Locked variants run
// with it already held, either from those wrappers or from a WithTx body.

func (m *Memory) Today(ctx context.Context) (attendance.Date, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.today, nil
}

func (m *Memory) Employee(ctx context.Context, id string) (*attendance.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.employeeLocked(id)
}

func (m *Memory) employeeLocked(id string) (*attendance.Employee, error) {
	e, ok := m.employees[id]
	if !ok {
		return nil, nil
	}
	cp := e
	return &cp, nil
}

func (m *Memory) RecordByEmployeeDate(ctx context.Context, employeeID string, date attendance.Date) (*attendance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recordByPairLocked(employeeID, date)
}

func (m *Memory) recordByPairLocked(employeeID string, date attendance.Date) (*attendance.Record, error) {
	id, ok := m.byPair[pairKey(employeeID, date)]
	if !ok {
		return nil, nil
	}
	rec := m.records[id]
	return &rec, nil
}

func (m *Memory) InsertRecord(ctx context.Context, nr attendance.NewRecord) (*attendance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertRecordLocked(nr)
}

func (m *Memory) insertRecordLocked(nr attendance.NewRecord) (*attendance.Record, error) {
	key := pairKey(nr.EmployeeID, nr.Date)
	if _, exists := m.byPair[key]; exists {
		return nil, nil // uniqueness constraint wins
	}
	now := time.Now().UTC()
	rec := attendance.Record{
		ID:         uuid.NewString(),
		EmployeeID: nr.EmployeeID,
		Date:       nr.Date,
		Status:     nr.Status,
		Source:     nr.Source,
		Note:       nr.Note,
		MarkedBy:   nr.MarkedBy,
		MarkedAt:   now,
		CreatedAt:  now,
		UpdatedAt:  now,
		Version:    1,
	}
	m.records[rec.ID] = rec
	m.byPair[key] = rec.ID
	return &rec, nil
}

func (m *Memory) UpdateRecord(ctx context.Context, id string, upd attendance.RecordUpdate) (*attendance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateRecordLocked(id, upd)
}

func (m *Memory) updateRecordLocked(id string, upd attendance.RecordUpdate) (*attendance.Record, error) {
	rec, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("attendance record %s not found", id)
	}
	now := time.Now().UTC()
	rec.Status = upd.Status
	rec.Source = upd.Source
	rec.Note = upd.Note
	rec.MarkedBy = upd.MarkedBy
	rec.MarkedAt = now
	rec.UpdatedAt = now
	rec.Version++
	m.records[id] = rec
	return &rec, nil
}

func (m *Memory) ListRecords(ctx context.Context, from, to attendance.Date, divisionID string) ([]attendance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listRecordsLocked(from, to, divisionID)
}

func (m *Memory) listRecordsLocked(from, to attendance.Date, divisionID string) ([]attendance.Record, error) {
	var out []attendance.Record
	for _, rec := range m.records {
		if rec.Date.Before(from) || rec.Date.After(to) {
			continue
		}
		if divisionID != "" {
			emp, ok := m.employees[rec.EmployeeID]
			if !ok || emp.DivisionID != divisionID {
				continue
			}
		}
		out = append(out, rec)
	}
	sortRecords(out)
	return out, nil
}

func (m *Memory) ListEmployees(ctx context.Context, divisionID string) ([]attendance.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listEmployeesLocked(divisionID)
}

func (m *Memory) listEmployeesLocked(divisionID string) ([]attendance.Employee, error) {
	var out []attendance.Employee
	for _, e := range m.employees {
		if e.Status != attendance.EmployeeActive {
			continue
		}
		if divisionID != "" && e.DivisionID != divisionID {
			continue
		}
		out = append(out, e)
	}
	sortEmployees(out)
	return out, nil
}

func (m *Memory) MonthCloseStatus(ctx context.Context, monthEnd attendance.Date) (attendance.MonthStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.monthCloseStatusLocked(monthEnd)
}

func (m *Memory) monthCloseStatusLocked(monthEnd attendance.Date) (attendance.MonthStatus, error) {
	if s, ok := m.monthClose[monthEnd.String()]; ok {
		return s, nil
	}
	return attendance.MonthOpen, nil
}

func (m *Memory) AppendAudit(ctx context.Context, entry audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendAuditLocked(entry)
}

func (m *Memory) appendAuditLocked(entry audit.Entry) error {
	m.auditLog = append(m.auditLog, entry)
	return nil
}

// =============================================================================
// TRANSACTIONS - Snapshot and restore
// =============================================================================

// WithTx serializes access and restores the pre-call state when fn fails.
func (m *Memory) WithTx(ctx context.Context, fn func(attendance.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapRecords := make(map[string]attendance.Record, len(m.records))
	for k, v := range m.records {
		snapRecords[k] = v
	}
	snapPairs := make(map[string]string, len(m.byPair))
	for k, v := range m.byPair {
		snapPairs[k] = v
	}
	snapAudit := make([]audit.Entry, len(m.auditLog))
	copy(snapAudit, m.auditLog)

	if err := fn((*txView)(m)); err != nil {
		m.records = snapRecords
		m.byPair = snapPairs
		m.auditLog = snapAudit
		return err
	}
	return nil
}

// txView exposes the Store surface without WithTx, so transaction bodies
// cannot nest transactions. The mutex is already held by WithTx, so every
// method goes through the ...Locked variants.
type txView Memory

func (t *txView) Today(ctx context.Context) (attendance.Date, error) {
	return (*Memory)(t).today, nil
}
func (t *txView) Employee(ctx context.Context, id string) (*attendance.Employee, error) {
	return (*Memory)(t).employeeLocked(id)
}
func (t *txView) RecordByEmployeeDate(ctx context.Context, employeeID string, date attendance.Date) (*attendance.Record, error) {
	return (*Memory)(t).recordByPairLocked(employeeID, date)
}
func (t *txView) InsertRecord(ctx context.Context, nr attendance.NewRecord) (*attendance.Record, error) {
	return (*Memory)(t).insertRecordLocked(nr)
}
func (t *txView) UpdateRecord(ctx context.Context, id string, upd attendance.RecordUpdate) (*attendance.Record, error) {
	return (*Memory)(t).updateRecordLocked(id, upd)
}
func (t *txView) ListRecords(ctx context.Context, from, to attendance.Date, divisionID string) ([]attendance.Record, error) {
	return (*Memory)(t).listRecordsLocked(from, to, divisionID)
}
func (t *txView) ListEmployees(ctx context.Context, divisionID string) ([]attendance.Employee, error) {
	return (*Memory)(t).listEmployeesLocked(divisionID)
}
func (t *txView) MonthCloseStatus(ctx context.Context, monthEnd attendance.Date) (attendance.MonthStatus, error) {
	return (*Memory)(t).monthCloseStatusLocked(monthEnd)
}
func (t *txView) AppendAudit(ctx context.Context, entry audit.Entry) error {
	return (*Memory)(t).appendAuditLocked(entry)
}

// =============================================================================
// AUTHORIZER / CONFIG
// =============================================================================

// AssertScopedAccess grants access when any seeded grant covers the
// permission for the employee's division (or company-wide).
//
// The engine calls this, and the config reads below, while WithTx holds
// the mutex, so they must not take it. They read only seed-time state
// (employees, grants, toggles) that transaction bodies never mutate;
// seeding must finish before serving begins.
func (m *Memory) AssertScopedAccess(ctx context.Context, actorID, permissionCode, employeeID string) error {
	division := ""
	if emp, ok := m.employees[employeeID]; ok {
		division = emp.DivisionID
	}
	for _, g := range m.grants {
		if g.ActorID != actorID {
			continue
		}
		if g.Allows(permissionCode, division) {
			return nil
		}
	}
	return attendance.NewAuthorization(attendance.CodeForbidden,
		fmt.Sprintf("actor lacks %s for this employee", permissionCode))
}

func (m *Memory) SelfMarkEnabled(ctx context.Context) (bool, error) {
	return m.selfMarkEnabled, nil
}

func (m *Memory) MonthCloseEnforced(ctx context.Context) (bool, error) {
	return m.monthCloseEnforced, nil
}

// =============================================================================
// SORT HELPERS
// =============================================================================

func sortRecords(recs []attendance.Record) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].Date.Equal(recs[j].Date) {
			return recs[i].Date.Before(recs[j].Date)
		}
		return recs[i].EmployeeID < recs[j].EmployeeID
	})
}

func sortEmployees(emps []attendance.Employee) {
	sort.Slice(emps, func(i, j int) bool { return emps[i].Code < emps[j].Code })
}
