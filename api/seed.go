/*
seed.go - Development data seeding

PURPOSE:
  Populates a fresh database with a small org so the API is usable
  immediately: two divisions, a handful of ACTIVE employees, one inactive
  employee, an HR admin with company-wide grants, a division manager, and
  the feature toggles.

  Seeding is idempotent (upserts) and only runs when cmd/server is
  started with -seed.

SEE ALSO:
  - cmd/server/main.go: Invokes this behind the -seed flag
  - store/sqlite: The seed helper methods
*/
package api

import (
	"context"
	"time"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/authz"
	"github.com/warp/attendance-engine/store/sqlite"
)

// SeedDemo loads the demo org into the store.
func SeedDemo(ctx context.Context, store *sqlite.Store) error {
	employees := []attendance.Employee{
		{ID: "emp-001", Code: "E001", FirstName: "Asha", LastName: "Rao", DivisionID: "div-eng", Status: attendance.EmployeeActive, JoiningDate: attendance.NewDate(2023, time.March, 1)},
		{ID: "emp-002", Code: "E002", FirstName: "Ben", LastName: "Okafor", DivisionID: "div-eng", Status: attendance.EmployeeActive, JoiningDate: attendance.NewDate(2024, time.January, 15)},
		{ID: "emp-003", Code: "E003", FirstName: "Carla", LastName: "Mendes", DivisionID: "div-ops", Status: attendance.EmployeeActive, JoiningDate: attendance.NewDate(2022, time.July, 4)},
		{ID: "emp-004", Code: "E004", FirstName: "Dmitri", LastName: "Volkov", DivisionID: "div-ops", Status: attendance.EmployeeActive},
		{ID: "emp-005", Code: "E005", FirstName: "Elena", LastName: "Fischer", DivisionID: "div-eng", Status: "TERMINATED", JoiningDate: attendance.NewDate(2021, time.May, 10)},
	}
	for _, emp := range employees {
		if err := store.SaveEmployee(ctx, emp); err != nil {
			return err
		}
	}

	grants := []authz.Grant{
		// HR admin: everything, company-wide
		{ActorID: "hr-admin", PermissionCode: authz.PermFullAccess, Scope: authz.ScopeCompany},
		// Engineering manager: write and bulk, own division only
		{ActorID: "mgr-eng", PermissionCode: authz.PermWrite, Scope: authz.ScopeDivision, DivisionID: "div-eng"},
		{ActorID: "mgr-eng", PermissionCode: authz.PermBulkWrite, Scope: authz.ScopeDivision, DivisionID: "div-eng"},
		// Employees mark themselves (self-mark still needs the toggle)
		{ActorID: "emp-001", PermissionCode: authz.PermWrite, Scope: authz.ScopeDivision, DivisionID: "div-eng"},
		{ActorID: "emp-003", PermissionCode: authz.PermWrite, Scope: authz.ScopeDivision, DivisionID: "div-ops"},
	}
	for _, g := range grants {
		if err := store.SaveGrant(ctx, g); err != nil {
			return err
		}
	}

	if err := store.SetConfigValue(ctx, sqlite.ConfigSelfMarkEnabled, "true"); err != nil {
		return err
	}
	return store.SetConfigValue(ctx, sqlite.ConfigMonthCloseEnforced, "false")
}
