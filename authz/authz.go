/*
Package authz defines attendance permission codes and scoped grants.

PURPOSE:
  Two authorization layers gate every write:
  1. A coarse permission-list check (HasPermission) before the transaction
  2. A scoped check inside the transaction: does this actor hold the code
     for THIS employee's division (or company-wide)?

  The engine consumes both; grant storage lives with the concrete stores.

SYSTEM_FULL_ACCESS:
  A break-glass code that satisfies any permission-list check. Scoped
  implementations honor it the same way.

SEE ALSO:
  - attendance/engine.go: Call sites and ordering
  - store/sqlite: Grant-table backed Authorizer
*/
package authz

// Permission codes the attendance engine checks.
const (
	PermWrite      = "ATTENDANCE_WRITE"
	PermOverride   = "ATTENDANCE_OVERRIDE"
	PermBulkWrite  = "ATTENDANCE_BULK_WRITE"
	PermFullAccess = "SYSTEM_FULL_ACCESS"
)

// Scope limits a grant to the whole company or one division.
type Scope string

const (
	ScopeCompany  Scope = "COMPANY"
	ScopeDivision Scope = "DIVISION"
)

// Grant is one role-derived permission the authorization component resolved
// for an actor. The engine never mutates grants, only queries them.
type Grant struct {
	ActorID        string
	PermissionCode string
	Scope          Scope
	DivisionID     string // set when Scope is ScopeDivision
}

// Allows reports whether the grant satisfies code for an employee in the
// given division. Full access passes regardless of code; division grants
// require a non-empty, matching division.
func (g Grant) Allows(code, divisionID string) bool {
	if g.PermissionCode != code && g.PermissionCode != PermFullAccess {
		return false
	}
	switch g.Scope {
	case ScopeCompany:
		return true
	case ScopeDivision:
		return divisionID != "" && g.DivisionID == divisionID
	}
	return false
}

// HasPermission is the coarse pre-transaction check over the actor's
// resolved permission list. SYSTEM_FULL_ACCESS satisfies every code.
func HasPermission(actorPermissions []string, code string) bool {
	for _, p := range actorPermissions {
		if p == PermFullAccess || p == code {
			return true
		}
	}
	return false
}
