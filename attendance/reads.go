/*
reads.go - Month view and summary read paths

PURPOSE:
  The two query entry points of the engine. Neither mutates state, neither
  needs a transaction: each reads a consistent-enough snapshot for display
  purposes. Division filtering happens in the store.

SUMMARY MATH:
  attendance rate = marked days / Mon-Fri working days in the month,
  as an exact decimal rounded to 4 places. Records dated before an
  employee's start (pre-joining imports) are excluded from their counts.

SEE ALSO:
  - engine.go: The write paths
  - api/handlers.go: The HTTP projections of these results
*/
package attendance

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

type MonthQuery struct {
	Month      string // YYYY-MM
	DivisionID string // empty = all divisions
}

// MonthView is the raw per-record listing for a month, together with the
// calendar date and employee roster a client needs to render the grid.
type MonthView struct {
	Month       string
	From        Date
	To          Date
	Today       Date
	MonthStatus MonthStatus
	Employees   []Employee
	Records     []Record
}

// EmployeeSummary aggregates one employee's month.
type EmployeeSummary struct {
	EmployeeID     string
	EmployeeCode   string
	EmployeeName   string
	PresentDays    int
	AbsentDays     int
	LeaveDays      int
	TotalMarked    int
	AttendanceRate decimal.Decimal
}

// MonthSummary is the per-employee rollup for a month.
type MonthSummary struct {
	Month       string
	From        Date
	To          Date
	WorkingDays int
	MonthStatus MonthStatus
	Employees   []EmployeeSummary
}

// ByMonth lists the month's records alongside the active roster, the
// store's current date, and the month-close status.
func (e *Engine) ByMonth(ctx context.Context, q MonthQuery) (*MonthView, error) {
	from, to, err := MonthBounds(q.Month)
	if err != nil {
		return nil, err
	}

	today, err := e.Store.Today(ctx)
	if err != nil {
		return nil, fmt.Errorf("today lookup failed: %w", err)
	}
	status, err := e.Store.MonthCloseStatus(ctx, to)
	if err != nil {
		return nil, fmt.Errorf("month-close lookup failed: %w", err)
	}
	employees, err := e.Store.ListEmployees(ctx, q.DivisionID)
	if err != nil {
		return nil, fmt.Errorf("employee list failed: %w", err)
	}
	records, err := e.Store.ListRecords(ctx, from, to, q.DivisionID)
	if err != nil {
		return nil, fmt.Errorf("record list failed: %w", err)
	}

	return &MonthView{
		Month:       q.Month,
		From:        from,
		To:          to,
		Today:       today,
		MonthStatus: status,
		Employees:   employees,
		Records:     records,
	}, nil
}

// Summary rolls the month up per ACTIVE employee. Employees with no records
// still appear, with zero counts, in employee-code order.
func (e *Engine) Summary(ctx context.Context, q MonthQuery) (*MonthSummary, error) {
	from, to, err := MonthBounds(q.Month)
	if err != nil {
		return nil, err
	}

	status, err := e.Store.MonthCloseStatus(ctx, to)
	if err != nil {
		return nil, fmt.Errorf("month-close lookup failed: %w", err)
	}
	employees, err := e.Store.ListEmployees(ctx, q.DivisionID)
	if err != nil {
		return nil, fmt.Errorf("employee list failed: %w", err)
	}
	records, err := e.Store.ListRecords(ctx, from, to, q.DivisionID)
	if err != nil {
		return nil, fmt.Errorf("record list failed: %w", err)
	}

	workingDays := WorkingDays(from, to)

	byEmployee := make(map[string][]Record, len(employees))
	for _, r := range records {
		byEmployee[r.EmployeeID] = append(byEmployee[r.EmployeeID], r)
	}

	rows := make([]EmployeeSummary, 0, len(employees))
	for _, emp := range employees {
		row := EmployeeSummary{
			EmployeeID:     emp.ID,
			EmployeeCode:   emp.Code,
			EmployeeName:   emp.FirstName + " " + emp.LastName,
			AttendanceRate: decimal.Zero,
		}
		start := emp.EmploymentStart()
		for _, r := range byEmployee[emp.ID] {
			if !start.IsZero() && r.Date.Before(start) {
				continue
			}
			switch r.Status {
			case StatusPresent:
				row.PresentDays++
			case StatusAbsent:
				row.AbsentDays++
			case StatusLeave:
				row.LeaveDays++
			}
			row.TotalMarked++
		}
		if workingDays > 0 && row.TotalMarked > 0 {
			row.AttendanceRate = decimal.NewFromInt(int64(row.TotalMarked)).
				Div(decimal.NewFromInt(int64(workingDays))).
				Round(4)
		}
		rows = append(rows, row)
	}

	return &MonthSummary{
		Month:       q.Month,
		From:        from,
		To:          to,
		WorkingDays: workingDays,
		MonthStatus: status,
		Employees:   rows,
	}, nil
}
