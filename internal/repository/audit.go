package repository

import (
	"context"

	"notification-worker/internal/model"
)

// AuditRepository persists terminal outcome records. Append-only: one new
// record per processing attempt, never updated or deleted. Redeliveries of
// the same event id produce multiple records.
type AuditRepository interface {
	Append(ctx context.Context, ev *model.NotificationEvent) error
}
