/*
Package sqlite provides a SQLite-backed implementation of the attendance
storage interfaces.

PURPOSE:
  Implements attendance.TxStore, attendance.Authorizer, attendance.Config,
  and audit.Log using SQLite. In production, the same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  employees:          Read-only employee facts (seeded by HR import)
  attendance_records: One row per (employee_id, attendance_date)
  month_close:        Company-wide month lock flags, keyed by month end
  permission_grants:  Actor permission codes with company/division scope
  audit_log:          Append-only before/after entries
  system_config:      Key/value feature toggles

UNIQUENESS:
  The (employee_id, attendance_date) UNIQUE constraint is the arbiter of
  insert races. InsertRecord uses ON CONFLICT DO NOTHING and reports a
  swallowed row as (nil, nil), which the engine turns into an
  override-required conflict.

CLOCK:
  Today() derives from an injectable clock (SetClock) so tests can pin
  the calendar date. Defaults to time.Now.

CONCURRENCY:
  database/sql handles concurrent access; SQLite's WAL serializes
  writers. The store's own mutex guards only the injectable clock, so
  the authorizer and config reads are safe to call while a WithTx
  transaction is open.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency.

USAGE:
  store, err := sqlite.New("./data/attendance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := &attendance.Engine{Store: store, Authz: store, Config: store}

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - attendance/store.go: Interface definitions
  - attendance/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/audit"
	"github.com/warp/attendance-engine/authz"
)

// Config keys in system_config. Values are truthy strings
// (true/1/yes/enabled, case-insensitive).
const (
	ConfigSelfMarkEnabled    = "ATTENDANCE_SELF_MARK_ENABLED"
	ConfigMonthCloseEnforced = "ATTENDANCE_MONTH_CLOSE_ENFORCED"
)

// Store implements the attendance storage interfaces using SQLite.
type Store struct {
	db    *sql.DB
	mu    sync.RWMutex // guards clock only
	clock func() time.Time
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, clock: time.Now}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SetClock replaces the time source Today() derives from.
func (s *Store) SetClock(clock func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = clock
}

func (s *Store) now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clock()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Employees (read-only facts owned by employee management)
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		division_id TEXT,
		status TEXT NOT NULL,
		joining_date TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_division
		ON employees(division_id) WHERE division_id IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_employees_code
		ON employees(code);

	-- Attendance records
	CREATE TABLE IF NOT EXISTS attendance_records (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		attendance_date TEXT NOT NULL,
		status TEXT NOT NULL,
		source TEXT NOT NULL,
		note TEXT,
		marked_by TEXT NOT NULL,
		marked_at TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1
	);

	-- CRITICAL: one record per (employee, date). This constraint, not
	-- application logic, decides insert races.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_attendance_employee_date
		ON attendance_records(employee_id, attendance_date);
	CREATE INDEX IF NOT EXISTS idx_attendance_date
		ON attendance_records(attendance_date);

	-- Month close flags, keyed by the month's last day
	CREATE TABLE IF NOT EXISTS month_close (
		month_end TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		closed_by TEXT,
		closed_at TEXT
	);

	-- Permission grants (resolved from roles by the auth component)
	CREATE TABLE IF NOT EXISTS permission_grants (
		id TEXT PRIMARY KEY,
		actor_id TEXT NOT NULL,
		permission_code TEXT NOT NULL,
		scope TEXT NOT NULL,
		division_id TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_grants_actor
		ON permission_grants(actor_id);

	-- Audit log (append-only; no UPDATE or DELETE statements exist)
	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		request_id TEXT,
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		action TEXT NOT NULL,
		before_json TEXT,
		after_json TEXT,
		actor_id TEXT NOT NULL,
		reason TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_entity
		ON audit_log(entity_type, entity_id);

	-- Feature toggles
	CREATE TABLE IF NOT EXISTS system_config (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx is the common surface of *sql.DB and *sql.Tx the row-level
// methods run against.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// ATTENDANCE STORE (attendance.Store interface)
// =============================================================================

// Today returns the clock's current calendar date.
func (s *Store) Today(ctx context.Context) (attendance.Date, error) {
	return attendance.DateOf(s.now()), nil
}

// Employee returns the employee or nil when unknown.
func (s *Store) Employee(ctx context.Context, id string) (*attendance.Employee, error) {
	return s.employeeOn(ctx, s.db, id)
}

func (s *Store) employeeOn(ctx context.Context, q dbtx, id string) (*attendance.Employee, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, code, first_name, last_name, division_id, status, joining_date, created_at
		FROM employees WHERE id = ?`, id)

	emp, err := scanEmployee(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query employee: %w", err)
	}
	return emp, nil
}

func scanEmployee(scan func(dest ...any) error) (*attendance.Employee, error) {
	var (
		emp                     attendance.Employee
		divisionID, joiningDate sql.NullString
		createdAt               string
	)
	if err := scan(&emp.ID, &emp.Code, &emp.FirstName, &emp.LastName,
		&divisionID, &emp.Status, &joiningDate, &createdAt); err != nil {
		return nil, err
	}
	emp.DivisionID = divisionID.String
	if joiningDate.Valid && joiningDate.String != "" {
		d, err := attendance.ParseDate(joiningDate.String)
		if err != nil {
			return nil, fmt.Errorf("bad joining_date %q: %w", joiningDate.String, err)
		}
		emp.JoiningDate = d
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("bad created_at %q: %w", createdAt, err)
	}
	emp.CreatedAt = attendance.DateOf(t)
	return &emp, nil
}

// RecordByEmployeeDate returns the record for the pair or nil.
func (s *Store) RecordByEmployeeDate(ctx context.Context, employeeID string, date attendance.Date) (*attendance.Record, error) {
	return s.recordByPairOn(ctx, s.db, employeeID, date)
}

const recordColumns = `id, employee_id, attendance_date, status, source, note,
	marked_by, marked_at, created_at, updated_at, version`

func (s *Store) recordByPairOn(ctx context.Context, q dbtx, employeeID string, date attendance.Date) (*attendance.Record, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM attendance_records
		WHERE employee_id = ? AND attendance_date = ?`,
		employeeID, date.String())

	rec, err := scanRecord(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance record: %w", err)
	}
	return rec, nil
}

func (s *Store) recordByIDOn(ctx context.Context, q dbtx, id string) (*attendance.Record, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM attendance_records WHERE id = ?`, id)

	rec, err := scanRecord(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance record: %w", err)
	}
	return rec, nil
}

func scanRecord(scan func(dest ...any) error) (*attendance.Record, error) {
	var (
		rec                            attendance.Record
		dateStr                        string
		note                           sql.NullString
		markedAt, createdAt, updatedAt string
	)
	if err := scan(&rec.ID, &rec.EmployeeID, &dateStr, &rec.Status, &rec.Source,
		&note, &rec.MarkedBy, &markedAt, &createdAt, &updatedAt, &rec.Version); err != nil {
		return nil, err
	}
	d, err := attendance.ParseDate(dateStr)
	if err != nil {
		return nil, fmt.Errorf("bad attendance_date %q: %w", dateStr, err)
	}
	rec.Date = d
	rec.Note = note.String
	rec.MarkedAt, _ = time.Parse(time.RFC3339, markedAt)
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &rec, nil
}

// InsertRecord inserts with version 1 and returns (nil, nil) when the
// uniqueness constraint on (employee_id, attendance_date) swallows the row.
func (s *Store) InsertRecord(ctx context.Context, nr attendance.NewRecord) (*attendance.Record, error) {
	return s.insertRecordOn(ctx, s.db, nr)
}

func (s *Store) insertRecordOn(ctx context.Context, q dbtx, nr attendance.NewRecord) (*attendance.Record, error) {
	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339)

	res, err := q.ExecContext(ctx, `
		INSERT INTO attendance_records
			(id, employee_id, attendance_date, status, source, note, marked_by,
			 marked_at, created_at, updated_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(employee_id, attendance_date) DO NOTHING`,
		id, nr.EmployeeID, nr.Date.String(), string(nr.Status), string(nr.Source),
		nullString(nr.Note), nr.MarkedBy, now, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert attendance record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read insert result: %w", err)
	}
	if affected == 0 {
		// Uniqueness constraint won; a concurrent writer holds the pair.
		return nil, nil
	}
	return s.recordByIDOn(ctx, q, id)
}

// UpdateRecord applies upd, bumps version by 1, and refreshes timestamps.
// There is no expected-version comparison; the last writer wins.
func (s *Store) UpdateRecord(ctx context.Context, id string, upd attendance.RecordUpdate) (*attendance.Record, error) {
	return s.updateRecordOn(ctx, s.db, id, upd)
}

func (s *Store) updateRecordOn(ctx context.Context, q dbtx, id string, upd attendance.RecordUpdate) (*attendance.Record, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	res, err := q.ExecContext(ctx, `
		UPDATE attendance_records
		SET status = ?, source = ?, note = ?, marked_by = ?,
		    marked_at = ?, updated_at = ?, version = version + 1
		WHERE id = ?`,
		string(upd.Status), string(upd.Source), nullString(upd.Note), upd.MarkedBy,
		now, now, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update attendance record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("attendance record %s not found", id)
	}
	return s.recordByIDOn(ctx, q, id)
}

// ListRecords returns records in [from, to], optionally division-filtered,
// ordered by date then employee id.
func (s *Store) ListRecords(ctx context.Context, from, to attendance.Date, divisionID string) ([]attendance.Record, error) {
	return s.listRecordsOn(ctx, s.db, from, to, divisionID)
}

func (s *Store) listRecordsOn(ctx context.Context, q dbtx, from, to attendance.Date, divisionID string) ([]attendance.Record, error) {
	query := `
		SELECT r.id, r.employee_id, r.attendance_date, r.status, r.source, r.note,
		       r.marked_by, r.marked_at, r.created_at, r.updated_at, r.version
		FROM attendance_records r
		WHERE r.attendance_date >= ? AND r.attendance_date <= ?`
	args := []any{from.String(), to.String()}

	if divisionID != "" {
		query += `
		  AND r.employee_id IN (SELECT id FROM employees WHERE division_id = ?)`
		args = append(args, divisionID)
	}
	query += `
		ORDER BY r.attendance_date ASC, r.employee_id ASC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance records: %w", err)
	}
	defer rows.Close()

	var records []attendance.Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance record: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// ListEmployees returns ACTIVE employees, optionally division-filtered,
// ordered by employee code.
func (s *Store) ListEmployees(ctx context.Context, divisionID string) ([]attendance.Employee, error) {
	return s.listEmployeesOn(ctx, s.db, divisionID)
}

func (s *Store) listEmployeesOn(ctx context.Context, q dbtx, divisionID string) ([]attendance.Employee, error) {
	query := `
		SELECT id, code, first_name, last_name, division_id, status, joining_date, created_at
		FROM employees
		WHERE status = ?`
	args := []any{attendance.EmployeeActive}

	if divisionID != "" {
		query += ` AND division_id = ?`
		args = append(args, divisionID)
	}
	query += ` ORDER BY code ASC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var employees []attendance.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, *emp)
	}
	return employees, rows.Err()
}

// MonthCloseStatus returns the status for the month ending on monthEnd.
// Missing rows mean OPEN.
func (s *Store) MonthCloseStatus(ctx context.Context, monthEnd attendance.Date) (attendance.MonthStatus, error) {
	return s.monthCloseStatusOn(ctx, s.db, monthEnd)
}

func (s *Store) monthCloseStatusOn(ctx context.Context, q dbtx, monthEnd attendance.Date) (attendance.MonthStatus, error) {
	var status string
	err := q.QueryRowContext(ctx,
		"SELECT status FROM month_close WHERE month_end = ?",
		monthEnd.String(),
	).Scan(&status)

	if err == sql.ErrNoRows {
		return attendance.MonthOpen, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query month close: %w", err)
	}
	return attendance.MonthStatus(status), nil
}

// AppendAudit writes one audit entry.
func (s *Store) AppendAudit(ctx context.Context, entry audit.Entry) error {
	return s.appendAuditOn(ctx, s.db, entry)
}

func (s *Store) appendAuditOn(ctx context.Context, q dbtx, entry audit.Entry) error {
	beforeJSON, err := marshalSnapshot(entry.Before)
	if err != nil {
		return err
	}
	afterJSON, err := marshalSnapshot(entry.After)
	if err != nil {
		return err
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO audit_log
			(id, request_id, entity_type, entity_id, action, before_json, after_json,
			 actor_id, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, nullString(entry.RequestID), entry.EntityType, entry.EntityID,
		string(entry.Action), beforeJSON, afterJSON,
		entry.ActorID, nullString(entry.Reason),
		entry.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

func marshalSnapshot(m map[string]any) (sql.NullString, error) {
	if m == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// =============================================================================
// TRANSACTIONS (attendance.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction. fn may call back
// into the store's authorizer and config surfaces; the transaction
// itself only serializes through the database.
func (s *Store) WithTx(ctx context.Context, fn func(attendance.Store) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx, parent: s}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

type txStore struct {
	tx     *sql.Tx
	parent *Store
}

func (ts *txStore) Today(ctx context.Context) (attendance.Date, error) {
	return attendance.DateOf(ts.parent.now()), nil
}

func (ts *txStore) Employee(ctx context.Context, id string) (*attendance.Employee, error) {
	return ts.parent.employeeOn(ctx, ts.tx, id)
}

func (ts *txStore) RecordByEmployeeDate(ctx context.Context, employeeID string, date attendance.Date) (*attendance.Record, error) {
	return ts.parent.recordByPairOn(ctx, ts.tx, employeeID, date)
}

func (ts *txStore) InsertRecord(ctx context.Context, nr attendance.NewRecord) (*attendance.Record, error) {
	return ts.parent.insertRecordOn(ctx, ts.tx, nr)
}

func (ts *txStore) UpdateRecord(ctx context.Context, id string, upd attendance.RecordUpdate) (*attendance.Record, error) {
	return ts.parent.updateRecordOn(ctx, ts.tx, id, upd)
}

func (ts *txStore) ListRecords(ctx context.Context, from, to attendance.Date, divisionID string) ([]attendance.Record, error) {
	return ts.parent.listRecordsOn(ctx, ts.tx, from, to, divisionID)
}

func (ts *txStore) ListEmployees(ctx context.Context, divisionID string) ([]attendance.Employee, error) {
	return ts.parent.listEmployeesOn(ctx, ts.tx, divisionID)
}

func (ts *txStore) MonthCloseStatus(ctx context.Context, monthEnd attendance.Date) (attendance.MonthStatus, error) {
	return ts.parent.monthCloseStatusOn(ctx, ts.tx, monthEnd)
}

func (ts *txStore) AppendAudit(ctx context.Context, entry audit.Entry) error {
	return ts.parent.appendAuditOn(ctx, ts.tx, entry)
}

// =============================================================================
// AUTHORIZER (attendance.Authorizer interface)
// =============================================================================

// AssertScopedAccess checks the actor's grants against the employee's
// division. Company-wide grants and SYSTEM_FULL_ACCESS always pass.
func (s *Store) AssertScopedAccess(ctx context.Context, actorID, permissionCode, employeeID string) error {
	emp, err := s.employeeOn(ctx, s.db, employeeID)
	if err != nil {
		return err
	}
	division := ""
	if emp != nil {
		division = emp.DivisionID
	}

	grants, err := s.grantsForActor(ctx, actorID)
	if err != nil {
		return err
	}
	for _, g := range grants {
		if g.Allows(permissionCode, division) {
			return nil
		}
	}
	return attendance.NewAuthorization(attendance.CodeForbidden,
		fmt.Sprintf("actor lacks %s for this employee", permissionCode))
}

func (s *Store) grantsForActor(ctx context.Context, actorID string) ([]authz.Grant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT actor_id, permission_code, scope, division_id
		FROM permission_grants
		WHERE actor_id = ?`, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to query grants: %w", err)
	}
	defer rows.Close()

	var grants []authz.Grant
	for rows.Next() {
		var g authz.Grant
		var divisionID sql.NullString
		if err := rows.Scan(&g.ActorID, &g.PermissionCode, &g.Scope, &divisionID); err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		g.DivisionID = divisionID.String
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

// =============================================================================
// CONFIG (attendance.Config interface)
// =============================================================================

func (s *Store) SelfMarkEnabled(ctx context.Context) (bool, error) {
	return s.boolConfig(ctx, ConfigSelfMarkEnabled)
}

func (s *Store) MonthCloseEnforced(ctx context.Context) (bool, error) {
	return s.boolConfig(ctx, ConfigMonthCloseEnforced)
}

func (s *Store) boolConfig(ctx context.Context, key string) (bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM system_config WHERE key = ?", key,
	).Scan(&value)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query config %s: %w", key, err)
	}
	return isTruthy(value), nil
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "enabled":
		return true
	}
	return false
}

// =============================================================================
// AUDIT LOG READS (audit.Log interface)
// =============================================================================

// ListByEntity returns the audit trail for one entity, oldest first.
func (s *Store) ListByEntity(entityType, entityID string) ([]audit.Entry, error) {
	rows, err := s.db.Query(`
		SELECT id, request_id, entity_type, entity_id, action, before_json, after_json,
		       actor_id, reason, created_at
		FROM audit_log
		WHERE entity_type = ? AND entity_id = ?
		ORDER BY created_at ASC`, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var (
			e                                        audit.Entry
			requestID, beforeJSON, afterJSON, reason sql.NullString
			action, createdAt                        string
		)
		if err := rows.Scan(&e.ID, &requestID, &e.EntityType, &e.EntityID, &action,
			&beforeJSON, &afterJSON, &e.ActorID, &reason, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.RequestID = requestID.String
		e.Action = audit.Action(action)
		e.Reason = reason.String
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		if beforeJSON.Valid {
			json.Unmarshal([]byte(beforeJSON.String), &e.Before)
		}
		if afterJSON.Valid {
			json.Unmarshal([]byte(afterJSON.String), &e.After)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// SEED / ADMIN WRITES - Used by dev seeding and the HR import job
// =============================================================================

// SaveEmployee upserts an employee row.
func (s *Store) SaveEmployee(ctx context.Context, emp attendance.Employee) error {
	var joiningDate sql.NullString
	if !emp.JoiningDate.IsZero() {
		joiningDate = sql.NullString{String: emp.JoiningDate.String(), Valid: true}
	}
	createdAt := emp.CreatedAt
	if createdAt.IsZero() {
		createdAt = attendance.DateOf(time.Now())
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (id, code, first_name, last_name, division_id, status, joining_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			code = excluded.code,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			division_id = excluded.division_id,
			status = excluded.status,
			joining_date = excluded.joining_date`,
		emp.ID, emp.Code, emp.FirstName, emp.LastName,
		nullString(emp.DivisionID), emp.Status, joiningDate,
		createdAt.String()+"T00:00:00Z",
	)
	return err
}

// SaveGrant upserts a permission grant. The id is derived from the grant
// fields so re-seeding does not duplicate rows.
func (s *Store) SaveGrant(ctx context.Context, g authz.Grant) error {
	id := strings.Join([]string{g.ActorID, g.PermissionCode, string(g.Scope), g.DivisionID}, ":")
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO permission_grants (id, actor_id, permission_code, scope, division_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		id, g.ActorID, g.PermissionCode, string(g.Scope), nullString(g.DivisionID),
	)
	return err
}

// SetMonthClose upserts the close status for the month containing d.
func (s *Store) SetMonthClose(ctx context.Context, d attendance.Date, status attendance.MonthStatus, closedBy string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO month_close (month_end, status, closed_by, closed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(month_end) DO UPDATE SET
			status = excluded.status,
			closed_by = excluded.closed_by,
			closed_at = excluded.closed_at`,
		d.MonthEnd().String(), string(status), nullString(closedBy),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// SetConfigValue upserts a system_config key.
func (s *Store) SetConfigValue(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO system_config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	tables := []string{"attendance_records", "audit_log", "month_close", "permission_grants", "employees", "system_config"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
