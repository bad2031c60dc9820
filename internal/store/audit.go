package store

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/noble-platform/adaptive-assessment-core/internal/apperr"
	"github.com/noble-platform/adaptive-assessment-core/internal/models"
)

// RecordAudit appends an AuditLog row. Failures here are logged by the
// caller but never block the state-changing action they describe.
func (db *DB) RecordAudit(ctx context.Context, entry models.AuditLog) error {
	defer observe("record_audit")()

	detailsJSON, err := json.Marshal(entry.Details)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "failed to marshal audit details", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO audit_logs (actor_id, actor_type, action, entity_type, entity_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.ActorID, entry.ActorType, entry.Action, entry.EntityType, entry.EntityID, detailsJSON, entry.CreatedAt)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "failed to insert audit log", err)
	}
	return nil
}

// AuditLogForEntity returns every AuditLog row touching one entity,
// newest first, for the admin audit trail read path.
func (db *DB) AuditLogForEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]models.AuditLog, error) {
	defer observe("audit_log_for_entity")()

	rows, err := db.QueryContext(ctx, `
		SELECT id, actor_id, actor_type, action, entity_type, entity_id, details, created_at
		FROM audit_logs WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC
	`, entityType, entityID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to query audit logs", err)
	}
	defer rows.Close()

	var out []models.AuditLog
	for rows.Next() {
		var a models.AuditLog
		var detailsJSON []byte
		if err := rows.Scan(&a.ID, &a.ActorID, &a.ActorType, &a.Action, &a.EntityType, &a.EntityID, &detailsJSON, &a.CreatedAt); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "failed to scan audit log", err)
		}
		if len(detailsJSON) > 0 {
			_ = json.Unmarshal(detailsJSON, &a.Details)
		}
		out = append(out, a)
	}
	return out, nil
}
