package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/api"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/attendance/store"
	"github.com/warp/attendance-engine/authz"
	"github.com/warp/attendance-engine/leavesync"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var today = attendance.NewDate(2025, time.March, 10)

func newTestServer(t *testing.T) (*httptest.Server, *store.Memory) {
	mem := store.NewMemory()
	mem.SetToday(today)
	mem.AddEmployee(attendance.Employee{
		ID: "emp-1", Code: "E001", FirstName: "Asha", LastName: "Rao",
		DivisionID: "div-a", Status: attendance.EmployeeActive,
		JoiningDate: attendance.NewDate(2024, time.January, 1),
	})
	mem.AddGrant(authz.Grant{ActorID: "hr-1", PermissionCode: authz.PermFullAccess, Scope: authz.ScopeCompany})

	engine := &attendance.Engine{Store: mem, Authz: mem, Config: mem}
	sync := &leavesync.Adapter{Store: mem}
	handler := api.NewHandler(engine, sync, mem)

	srv := httptest.NewServer(api.NewRouter(handler))
	t.Cleanup(srv.Close)
	return srv, mem
}

func doJSON(t *testing.T, method, url string, body any, headers map[string]string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func hrHeaders() map[string]string {
	return map[string]string{
		"X-Actor-Id":          "hr-1",
		"X-Actor-Permissions": strings.Join([]string{authz.PermWrite, authz.PermOverride, authz.PermBulkWrite}, ","),
	}
}

func markBody() api.MarkRequest {
	return api.MarkRequest{
		EmployeeID:     "emp-1",
		AttendanceDate: today.String(),
		Status:         "PRESENT",
		Source:         "HR",
	}
}

// =============================================================================
// WRITE ENDPOINTS
// =============================================================================

func TestMarkEndpoint_Created(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/attendance/mark", markBody(), hrHeaders())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out api.WriteResponse
	decode(t, resp, &out)
	assert.Equal(t, "emp-1", out.Record.EmployeeID)
	assert.Equal(t, "PRESENT", out.Record.Status)
	assert.Equal(t, 1, out.Record.Version)
	assert.Equal(t, "OPEN", out.MonthStatus)
}

func TestMarkEndpoint_MissingPermissions_Forbidden(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/attendance/mark", markBody(),
		map[string]string{"X-Actor-Id": "hr-1"})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	var out api.ErrorResponse
	decode(t, resp, &out)
	assert.Equal(t, "authorization", out.Kind)
	assert.Equal(t, attendance.CodeForbidden, out.Code)
}

func TestMarkEndpoint_SecondMark_Conflict(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/attendance/mark", markBody(), hrHeaders())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	headers := hrHeaders()
	headers["X-Actor-Permissions"] = authz.PermWrite // no override
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/attendance/mark", markBody(), headers)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var out api.ErrorResponse
	decode(t, resp, &out)
	assert.Equal(t, attendance.CodeOverrideRequired, out.Code)
}

func TestMarkEndpoint_BadBody(t *testing.T) {
	srv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/attendance/mark",
		strings.NewReader("{not json"))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOverrideEndpoint_PastDate_BadRequest(t *testing.T) {
	srv, _ := newTestServer(t)

	body := api.OverrideRequest{
		EmployeeID:     "emp-1",
		AttendanceDate: today.AddDays(-1).String(),
		Status:         "ABSENT",
		Reason:         "missed scan",
	}
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/attendance/override", body, hrHeaders())
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var out api.ErrorResponse
	decode(t, resp, &out)
	assert.Equal(t, attendance.CodePastDate, out.Code)
}

func TestBulkEndpoint_PartialFailure(t *testing.T) {
	srv, mem := newTestServer(t)
	mem.AddEmployee(attendance.Employee{
		ID: "emp-2", Code: "E002", FirstName: "Ben", LastName: "Okafor",
		DivisionID: "div-a", Status: attendance.EmployeeActive,
		JoiningDate: attendance.NewDate(2024, time.January, 1),
	})

	body := api.BulkMarkRequest{
		AttendanceDate: today.String(),
		Source:         "HR",
		Items: []api.BulkItemRequest{
			{EmployeeID: "emp-1", Status: "PRESENT"},
			{EmployeeID: "emp-2", Status: "NOPE"},
		},
	}
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/attendance/bulk", body, hrHeaders())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out api.BulkResponse
	decode(t, resp, &out)
	require.Len(t, out.Results, 2)
	assert.Equal(t, "CREATED", out.Results[0].Outcome)
	assert.Equal(t, "FAILED", out.Results[1].Outcome)
	assert.NotEmpty(t, out.Results[1].Error)
}

// =============================================================================
// READ ENDPOINTS
// =============================================================================

func TestByMonthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/attendance/mark", markBody(), hrHeaders())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/attendance?month=2025-03", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out api.MonthViewResponse
	decode(t, resp, &out)
	assert.Equal(t, "2025-03", out.Month)
	assert.Equal(t, today.String(), out.Today)
	assert.Len(t, out.Records, 1)
	require.Len(t, out.Employees, 1)
	assert.Equal(t, "E001", out.Employees[0].Code)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/attendance?month=bogus", nil, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSummaryEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/attendance/summary?month=2025-03", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out api.SummaryResponse
	decode(t, resp, &out)
	assert.Equal(t, 21, out.WorkingDays)
	require.Len(t, out.Employees, 1)
	assert.Equal(t, "E001", out.Employees[0].EmployeeCode)
	assert.Equal(t, "0", out.Employees[0].AttendanceRate)
}

func TestRecordAuditEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/attendance/mark", markBody(), hrHeaders())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created api.WriteResponse
	decode(t, resp, &created)

	resp = doJSON(t, http.MethodGet,
		srv.URL+"/api/attendance/records/"+created.Record.ID+"/audit", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Entries []api.AuditEntryDTO `json:"entries"`
	}
	decode(t, resp, &out)
	require.Len(t, out.Entries, 1)
	assert.Equal(t, "MARK", out.Entries[0].Action)
}

// =============================================================================
// LEAVE SYNC ENDPOINTS
// =============================================================================

func TestLeaveSyncEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	apply := api.SyncApplyRequest{
		EmployeeID:     "emp-1",
		Date:           today.String(),
		LeaveRequestID: "lr-7",
		HalfDayPart:    "second_half",
	}
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/leave-sync/apply", apply,
		map[string]string{"X-Actor-Id": "system"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var applied struct {
		Record api.RecordDTO `json:"record"`
	}
	decode(t, resp, &applied)
	assert.Equal(t, "LEAVE", applied.Record.Status)
	assert.Equal(t, "LEAVE_REQUEST:lr-7:SECOND_HALF", applied.Record.Note)

	// Revert with the wrong request id is a no-op
	revert := api.SyncRevertRequest{EmployeeID: "emp-1", Date: today.String(), LeaveRequestID: "lr-8"}
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/leave-sync/revert", revert,
		map[string]string{"X-Actor-Id": "system"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var noop map[string]any
	decode(t, resp, &noop)
	assert.Equal(t, false, noop["reverted"])

	// Revert with the owning request id restores ABSENT
	revert.LeaveRequestID = "lr-7"
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/leave-sync/revert", revert,
		map[string]string{"X-Actor-Id": "system"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reverted struct {
		Reverted bool          `json:"reverted"`
		Record   api.RecordDTO `json:"record"`
	}
	decode(t, resp, &reverted)
	assert.True(t, reverted.Reverted)
	assert.Equal(t, "ABSENT", reverted.Record.Status)
}

// =============================================================================
// HEALTH
// =============================================================================

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
