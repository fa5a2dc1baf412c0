package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"notification-worker/internal/model"
)

// CHAuditRepository appends outcome records to the ClickHouse reporting
// table created by `migrate`.
type CHAuditRepository struct {
	ch *sqlx.DB
}

func NewCHAuditRepository(ch *sqlx.DB) *CHAuditRepository {
	return &CHAuditRepository{ch: ch}
}

func (r *CHAuditRepository) Append(ctx context.Context, ev *model.NotificationEvent) error {
	const q = `
		INSERT INTO notifications.audit_events
		    (id, type, timestamp, data, retry_count, sent, error_message)
		VALUES
		    (?,  ?,    ?,         ?,    ?,           ?,    ?)
	`
	_, err := r.ch.ExecContext(ctx, q,
		ev.ID, ev.Type.String(), ev.Timestamp, ev.Data, ev.RetryCount, ev.Sent, ev.ErrorMessage,
	)
	return err
}
