package sqlite

import (
	"context"
	"encoding/json"

	"github.com/harbourlane/foyer/internal/domain"
)

type auditLogsRepo struct {
	db dbtx
}

func (r *auditLogsRepo) CreateAuditEntry(ctx context.Context, e domain.AuditEntry) error {
	var metadata any
	if len(e.Metadata) > 0 {
		raw, err := json.Marshal(e.Metadata)
		if err != nil {
			return err
		}
		metadata = string(raw)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (
			id, event_type, category, severity,
			user_id, user_email, user_role,
			target_user_id, target_user_email,
			ip_address, user_agent, session_id,
			description, success, error_message, metadata, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.EventType), string(e.Category), string(e.Severity),
		mapStringNull(e.UserID), mapStringNull(e.UserEmail), mapStringNull(e.UserRole),
		mapStringNull(e.TargetUserID), mapStringNull(e.TargetUserEmail),
		mapStringNull(e.IPAddress), mapStringNull(e.UserAgent), mapStringNull(e.SessionID),
		e.Description, e.Success, mapStringNull(e.ErrorMessage), metadata, e.CreatedAt,
	)
	return err
}
