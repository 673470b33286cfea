// Package sentmarker records which orders already received their first-order
// notification.
package sentmarker

import (
	"context"
	"database/sql"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) IsSent(ctx context.Context, orderID int64) (bool, error) {
	var sent bool

	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM order_notifications WHERE order_id = $1
		)
	`, orderID).Scan(&sent)
	if err != nil {
		return false, err
	}

	return sent, nil
}

// MarkSent is idempotent; the marker is never cleared.
func (r *Repository) MarkSent(ctx context.Context, orderID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO order_notifications (order_id, sent_at)
		VALUES ($1, NOW())
		ON CONFLICT (order_id) DO NOTHING
	`, orderID)
	return err
}
