/*
Package audit defines the append-only audit trail for attendance changes.

PURPOSE:
  One immutable entry per successful state change: what the record looked
  like before, what it looks like after, who did it, and why. Entries are
  written inside the same transaction as the change they describe, so an
  audit line never exists without its committed mutation (and vice versa).

MASKING:
  Snapshot values under sensitive-looking keys (tokens, secrets, passwords)
  are redacted before persistence. Attendance snapshots rarely carry such
  keys, but the audit sink is shared and the masking is cheap.

SEE ALSO:
  - attendance/store.go: Tx-scoped Append lives on the store interface
  - store/sqlite: The durable sink
*/
package audit

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Action string

const (
	ActionMark         Action = "MARK"
	ActionOverride     Action = "OVERRIDE"
	ActionBulkMark     Action = "BULK_MARK"
	ActionSyncApplied  Action = "ATTENDANCE_SYNC_APPLIED"
	ActionSyncReverted Action = "ATTENDANCE_SYNC_REVERTED"
)

const EntityAttendance = "ATTENDANCE"

// Entry is one immutable audit line. Before is nil on creation.
type Entry struct {
	ID         string
	RequestID  string
	EntityType string
	EntityID   string
	Action     Action
	Before     map[string]any
	After      map[string]any
	ActorID    string
	Reason     string
	CreatedAt  time.Time
}

// NewEntry assigns an id, masks snapshots, and stamps the entry.
func NewEntry(requestID, entityType, entityID string, action Action, before, after map[string]any, actorID, reason string) Entry {
	return Entry{
		ID:         uuid.NewString(),
		RequestID:  requestID,
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Before:     Mask(before),
		After:      Mask(after),
		ActorID:    actorID,
		Reason:     reason,
		CreatedAt:  time.Now().UTC(),
	}
}

// Log reads the audit trail. Appending goes through the store transaction.
type Log interface {
	ListByEntity(entityType, entityID string) ([]Entry, error)
}

// =============================================================================
// MASKING
// =============================================================================

var sensitiveKeyParts = []string{"token", "secret", "password", "otp"}

// Mask returns a copy of m with values under sensitive keys redacted.
// Nil input stays nil so "no before snapshot" survives the round trip.
func Mask(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if isSensitiveKey(k) {
			out[k] = "[REDACTED]"
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			out[k] = Mask(nested)
			continue
		}
		out[k] = v
	}
	return out
}

func isSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, part := range sensitiveKeyParts {
		if strings.Contains(k, part) {
			return true
		}
	}
	return false
}
