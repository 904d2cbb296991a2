/*
handlers.go - HTTP API handlers for the attendance engine

PURPOSE:
  Exposes the attendance engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Attendance writes:
    POST   /api/attendance/mark      Mark one employee for today
    POST   /api/attendance/override  Correct an existing record (reason required)
    POST   /api/attendance/bulk      Mark many employees for one date

  Attendance reads:
    GET    /api/attendance           Month listing (?month=YYYY-MM&division_id=)
    GET    /api/attendance/summary   Per-employee month rollup
    GET    /api/attendance/records/{id}/audit  Audit trail for one record

  Leave sync (trusted internal callers only):
    POST   /api/leave-sync/apply     Force LEAVE for an approved request
    POST   /api/leave-sync/revert    Undo a previously applied leave day

ACTOR IDENTITY:
  Upstream auth middleware resolves the caller and forwards identity as
  headers: X-Actor-Id and X-Actor-Permissions (comma-separated codes).
  This service trusts those headers; do not expose it without the
  gateway in front.

ERROR HANDLING:
  Engine errors carry a kind that maps to HTTP status:
  - validation:    400
  - authorization: 403
  - not_found:     404
  - conflict:      409
  Anything else is a 500.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/audit"
	"github.com/warp/attendance-engine/leavesync"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *attendance.Engine
	Sync   *leavesync.Adapter
	Audit  audit.Log
}

// NewHandler creates a new handler over the engine and its collaborators.
func NewHandler(engine *attendance.Engine, sync *leavesync.Adapter, auditLog audit.Log) *Handler {
	return &Handler{Engine: engine, Sync: sync, Audit: auditLog}
}

// actor is the caller identity forwarded by the auth gateway.
type actor struct {
	ID          string
	Permissions []string
}

func actorFrom(r *http.Request) actor {
	a := actor{ID: r.Header.Get("X-Actor-Id")}
	if raw := r.Header.Get("X-Actor-Permissions"); raw != "" {
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				a.Permissions = append(a.Permissions, p)
			}
		}
	}
	return a
}

// =============================================================================
// ATTENDANCE WRITE HANDLERS
// =============================================================================

// Mark records attendance for one employee.
// POST /api/attendance/mark
func (h *Handler) Mark(w http.ResponseWriter, r *http.Request) {
	var req MarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	a := actorFrom(r)

	result, err := h.Engine.Mark(r.Context(), attendance.MarkInput{
		EmployeeID:       req.EmployeeID,
		AttendanceDate:   req.AttendanceDate,
		Status:           req.Status,
		Source:           req.Source,
		Note:             req.Note,
		Reason:           req.Reason,
		ActorID:          a.ID,
		RequestID:        middleware.GetReqID(r.Context()),
		ActorPermissions: a.Permissions,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, WriteResponse{
		Record:      toRecordDTO(result.Record),
		MonthStatus: string(result.MonthStatus),
	})
}

// Override corrects an existing record.
// POST /api/attendance/override
func (h *Handler) Override(w http.ResponseWriter, r *http.Request) {
	var req OverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	a := actorFrom(r)

	result, err := h.Engine.Override(r.Context(), attendance.OverrideInput{
		EmployeeID:       req.EmployeeID,
		AttendanceDate:   req.AttendanceDate,
		Status:           req.Status,
		Note:             req.Note,
		Reason:           req.Reason,
		ActorID:          a.ID,
		RequestID:        middleware.GetReqID(r.Context()),
		ActorPermissions: a.Permissions,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, WriteResponse{
		Record:      toRecordDTO(result.Record),
		MonthStatus: string(result.MonthStatus),
	})
}

// BulkMark records attendance for many employees on one date.
// POST /api/attendance/bulk
func (h *Handler) BulkMark(w http.ResponseWriter, r *http.Request) {
	var req BulkMarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	a := actorFrom(r)

	items := make([]attendance.BulkItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = attendance.BulkItem{
			EmployeeID: item.EmployeeID,
			Status:     item.Status,
			Note:       item.Note,
			Reason:     item.Reason,
		}
	}

	result, err := h.Engine.BulkMark(r.Context(), attendance.BulkMarkInput{
		AttendanceDate:   req.AttendanceDate,
		Source:           req.Source,
		Items:            items,
		ActorID:          a.ID,
		RequestID:        middleware.GetReqID(r.Context()),
		ActorPermissions: a.Permissions,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	dtos := make([]BulkItemDTO, len(result.Results))
	for i, res := range result.Results {
		dtos[i] = BulkItemDTO{
			EmployeeID:     res.EmployeeID,
			AttendanceDate: res.AttendanceDate.String(),
			Status:         res.Status,
			Outcome:        string(res.Outcome),
			Error:          res.Error,
		}
	}
	writeJSON(w, http.StatusOK, BulkResponse{Results: dtos})
}

// =============================================================================
// ATTENDANCE READ HANDLERS
// =============================================================================

// ByMonth lists a month's records.
// GET /api/attendance?month=YYYY-MM&division_id=...
func (h *Handler) ByMonth(w http.ResponseWriter, r *http.Request) {
	view, err := h.Engine.ByMonth(r.Context(), attendance.MonthQuery{
		Month:      r.URL.Query().Get("month"),
		DivisionID: r.URL.Query().Get("division_id"),
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	employees := make([]EmployeeDTO, len(view.Employees))
	for i := range view.Employees {
		employees[i] = toEmployeeDTO(&view.Employees[i])
	}
	records := make([]RecordDTO, len(view.Records))
	for i := range view.Records {
		records[i] = toRecordDTO(&view.Records[i])
	}
	writeJSON(w, http.StatusOK, MonthViewResponse{
		Month:       view.Month,
		From:        view.From.String(),
		To:          view.To.String(),
		Today:       view.Today.String(),
		MonthStatus: string(view.MonthStatus),
		Employees:   employees,
		Records:     records,
	})
}

// Summary returns the per-employee month rollup.
// GET /api/attendance/summary?month=YYYY-MM&division_id=...
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Engine.Summary(r.Context(), attendance.MonthQuery{
		Month:      r.URL.Query().Get("month"),
		DivisionID: r.URL.Query().Get("division_id"),
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	rows := make([]EmployeeSummaryDTO, len(summary.Employees))
	for i, row := range summary.Employees {
		rows[i] = EmployeeSummaryDTO{
			EmployeeID:     row.EmployeeID,
			EmployeeCode:   row.EmployeeCode,
			EmployeeName:   row.EmployeeName,
			PresentDays:    row.PresentDays,
			AbsentDays:     row.AbsentDays,
			LeaveDays:      row.LeaveDays,
			TotalMarked:    row.TotalMarked,
			AttendanceRate: row.AttendanceRate.String(),
		}
	}
	writeJSON(w, http.StatusOK, SummaryResponse{
		Month:       summary.Month,
		From:        summary.From.String(),
		To:          summary.To.String(),
		WorkingDays: summary.WorkingDays,
		MonthStatus: string(summary.MonthStatus),
		Employees:   rows,
	})
}

// RecordAudit returns the audit trail for one attendance record.
// GET /api/attendance/records/{id}/audit
func (h *Handler) RecordAudit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	entries, err := h.Audit.ListByEntity(audit.EntityAttendance, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read audit trail", err)
		return
	}

	dtos := make([]AuditEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toAuditEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": dtos})
}

// =============================================================================
// LEAVE SYNC HANDLERS - Internal integration surface
// =============================================================================

// SyncApply forces a LEAVE record for an approved leave day.
// POST /api/leave-sync/apply
func (h *Handler) SyncApply(w http.ResponseWriter, r *http.Request) {
	var req SyncApplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := attendance.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	a := actorFrom(r)

	rec, err := h.Sync.ApplyLeave(r.Context(), leavesync.ApplyInput{
		EmployeeID:     req.EmployeeID,
		Date:           date,
		LeaveRequestID: req.LeaveRequestID,
		HalfDayPart:    req.HalfDayPart,
		ActorID:        a.ID,
		RequestID:      middleware.GetReqID(r.Context()),
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"record": toRecordDTO(rec)})
}

// SyncRevert undoes a previously applied leave day. A revert that finds
// nothing to undo returns reverted=false rather than an error.
// POST /api/leave-sync/revert
func (h *Handler) SyncRevert(w http.ResponseWriter, r *http.Request) {
	var req SyncRevertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := attendance.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	a := actorFrom(r)

	rec, err := h.Sync.RevertLeave(r.Context(), leavesync.RevertInput{
		EmployeeID:     req.EmployeeID,
		Date:           date,
		LeaveRequestID: req.LeaveRequestID,
		ActorID:        a.ID,
		RequestID:      middleware.GetReqID(r.Context()),
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if rec == nil {
		writeJSON(w, http.StatusOK, map[string]any{"reverted": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reverted": true, "record": toRecordDTO(rec)})
}

// =============================================================================
// HEALTH
// =============================================================================

// Health is the liveness probe.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeEngineError maps engine error kinds to HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	var engineErr *attendance.Error
	if !errors.As(err, &engineErr) {
		writeError(w, http.StatusInternalServerError, "Internal error", err)
		return
	}

	status := http.StatusInternalServerError
	switch engineErr.Kind {
	case attendance.KindValidation:
		status = http.StatusBadRequest
	case attendance.KindAuthorization:
		status = http.StatusForbidden
	case attendance.KindNotFound:
		status = http.StatusNotFound
	case attendance.KindConflict:
		status = http.StatusConflict
	}

	writeJSON(w, status, ErrorResponse{
		Error: engineErr.Message,
		Kind:  string(engineErr.Kind),
		Code:  engineErr.Code,
	})
}
