// internal/audit/postgres.go
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"admissions-workflow/internal/models"
)

// PostgresSink appends workflow events to the audit_log table consumed by
// the history screen.
//
// Expected table:
//
//	CREATE TABLE audit_log (
//	    id            BIGSERIAL PRIMARY KEY,
//	    event_id      TEXT NOT NULL,
//	    event_type    TEXT NOT NULL,
//	    resource_type TEXT NOT NULL,
//	    resource_id   TEXT NOT NULL,
//	    actor_id      TEXT NOT NULL,
//	    actor_role    TEXT NOT NULL,
//	    details       JSONB NOT NULL,
//	    created_at    TEXT NOT NULL
//	);
type PostgresSink struct {
	db *sql.DB
}

func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

func (s *PostgresSink) Record(ctx context.Context, event models.WorkflowEvent) error {
	details, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_log (event_id, event_type, resource_type, resource_id, actor_id, actor_role, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		event.ID,
		string(event.Kind),
		"application",
		event.ApplicationID,
		event.Actor.ID,
		string(event.Actor.Role),
		details,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("audit log insert: %w", err)
	}
	return nil
}
