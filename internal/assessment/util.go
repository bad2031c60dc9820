package assessment

import (
	"log"

	"github.com/google/uuid"
)

// logAuditFailure reports a non-fatal audit-write failure; per spec.md
// §7, audit logging never blocks the state-changing action it records.
func logAuditFailure(action string, entityID uuid.UUID, err error) {
	log.Printf("assessment: failed to record audit entry action=%s entity=%s: %v", action, entityID, err)
}
