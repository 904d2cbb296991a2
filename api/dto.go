/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Validation is done in the engine, not in DTOs. DTOs are pure data
  carriers; the engine sees raw strings and normalizes them itself.

SEE ALSO:
  - handlers.go: Uses these types
  - attendance/engine.go: The domain types these project
*/
package api

import (
	"time"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/audit"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// MarkRequest is the body for POST /api/attendance/mark.
type MarkRequest struct {
	EmployeeID     string `json:"employee_id"`
	AttendanceDate string `json:"attendance_date"`
	Status         string `json:"status"`
	Source         string `json:"source"`
	Note           string `json:"note,omitempty"`
	Reason         string `json:"reason,omitempty"`
}

// OverrideRequest is the body for POST /api/attendance/override.
type OverrideRequest struct {
	EmployeeID     string `json:"employee_id"`
	AttendanceDate string `json:"attendance_date"`
	Status         string `json:"status"`
	Note           string `json:"note,omitempty"`
	Reason         string `json:"reason"`
}

// BulkItemRequest is one entry of a bulk mark.
type BulkItemRequest struct {
	EmployeeID string `json:"employee_id"`
	Status     string `json:"status"`
	Note       string `json:"note,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// BulkMarkRequest is the body for POST /api/attendance/bulk.
type BulkMarkRequest struct {
	AttendanceDate string            `json:"attendance_date"`
	Source         string            `json:"source"`
	Items          []BulkItemRequest `json:"items"`
}

// SyncApplyRequest is the body for POST /api/leave-sync/apply.
type SyncApplyRequest struct {
	EmployeeID     string `json:"employee_id"`
	Date           string `json:"date"`
	LeaveRequestID string `json:"leave_request_id"`
	HalfDayPart    string `json:"half_day_part,omitempty"`
}

// SyncRevertRequest is the body for POST /api/leave-sync/revert.
type SyncRevertRequest struct {
	EmployeeID     string `json:"employee_id"`
	Date           string `json:"date"`
	LeaveRequestID string `json:"leave_request_id"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// RecordDTO represents an attendance record in API responses.
type RecordDTO struct {
	ID             string `json:"id"`
	EmployeeID     string `json:"employee_id"`
	AttendanceDate string `json:"attendance_date"`
	Status         string `json:"status"`
	Source         string `json:"source"`
	Note           string `json:"note,omitempty"`
	MarkedBy       string `json:"marked_by"`
	MarkedAt       string `json:"marked_at"`
	Version        int    `json:"version"`
}

// WriteResponse wraps the result of mark and override.
type WriteResponse struct {
	Record      RecordDTO `json:"record"`
	MonthStatus string    `json:"month_status"`
}

// BulkItemDTO is one item's outcome in a bulk response.
type BulkItemDTO struct {
	EmployeeID     string `json:"employee_id"`
	AttendanceDate string `json:"attendance_date"`
	Status         string `json:"status"`
	Outcome        string `json:"outcome"`
	Error          string `json:"error,omitempty"`
}

// BulkResponse wraps the result of a bulk mark.
type BulkResponse struct {
	Results []BulkItemDTO `json:"results"`
}

// EmployeeDTO is one roster entry in the month view.
type EmployeeDTO struct {
	ID         string `json:"id"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	DivisionID string `json:"division_id,omitempty"`
	Status     string `json:"status"`
}

// MonthViewResponse is the per-record month listing plus the roster and
// current date clients use to render the attendance grid.
type MonthViewResponse struct {
	Month       string        `json:"month"`
	From        string        `json:"from"`
	To          string        `json:"to"`
	Today       string        `json:"today"`
	MonthStatus string        `json:"month_status"`
	Employees   []EmployeeDTO `json:"employees"`
	Records     []RecordDTO   `json:"records"`
}

// EmployeeSummaryDTO aggregates one employee's month.
type EmployeeSummaryDTO struct {
	EmployeeID     string `json:"employee_id"`
	EmployeeCode   string `json:"employee_code"`
	EmployeeName   string `json:"employee_name"`
	PresentDays    int    `json:"present_days"`
	AbsentDays     int    `json:"absent_days"`
	LeaveDays      int    `json:"leave_days"`
	TotalMarked    int    `json:"total_marked"`
	AttendanceRate string `json:"attendance_rate"`
}

// SummaryResponse is the per-employee month rollup.
type SummaryResponse struct {
	Month       string               `json:"month"`
	From        string               `json:"from"`
	To          string               `json:"to"`
	WorkingDays int                  `json:"working_days"`
	MonthStatus string               `json:"month_status"`
	Employees   []EmployeeSummaryDTO `json:"employees"`
}

// AuditEntryDTO is one audit trail line.
type AuditEntryDTO struct {
	ID        string         `json:"id"`
	RequestID string         `json:"request_id,omitempty"`
	Action    string         `json:"action"`
	Before    map[string]any `json:"before,omitempty"`
	After     map[string]any `json:"after"`
	ActorID   string         `json:"actor_id"`
	Reason    string         `json:"reason,omitempty"`
	CreatedAt string         `json:"created_at"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toRecordDTO(r *attendance.Record) RecordDTO {
	return RecordDTO{
		ID:             r.ID,
		EmployeeID:     r.EmployeeID,
		AttendanceDate: r.Date.String(),
		Status:         string(r.Status),
		Source:         string(r.Source),
		Note:           r.Note,
		MarkedBy:       r.MarkedBy,
		MarkedAt:       r.MarkedAt.UTC().Format(time.RFC3339),
		Version:        r.Version,
	}
}

func toEmployeeDTO(e *attendance.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:         e.ID,
		Code:       e.Code,
		Name:       e.FirstName + " " + e.LastName,
		DivisionID: e.DivisionID,
		Status:     e.Status,
	}
}

func toAuditEntryDTO(e audit.Entry) AuditEntryDTO {
	return AuditEntryDTO{
		ID:        e.ID,
		RequestID: e.RequestID,
		Action:    string(e.Action),
		Before:    e.Before,
		After:     e.After,
		ActorID:   e.ActorID,
		Reason:    e.Reason,
		CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
	}
}
