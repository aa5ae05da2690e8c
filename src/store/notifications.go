package store

import (
	"context"

	"github.com/google/uuid"

	m "linked_friend_services/src/models"
)

type NotificationRepository struct {
	connPool *m.PGPool
}

func NewNotificationRepository(connPool *m.PGPool) *NotificationRepository {
	return &NotificationRepository{connPool: connPool}
}

func (repo *NotificationRepository) Insert(ctx context.Context, notification m.Notification) error {
	query := `INSERT INTO notifications (notification_id, user_id, type, message, is_read, data, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := repo.connPool.Pool.Exec(ctx, query, notification.ID, notification.UserID, notification.Type,
		notification.Message, notification.Read, notification.Data, notification.CreatedAt)
	if err != nil {
		return wrap("insert notification", err)
	}
	return nil
}

// ListForUser returns the newest notifications first.
func (repo *NotificationRepository) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]m.Notification, error) {
	query := `SELECT notification_id, user_id, type, message, is_read, data, created_at
			FROM notifications
			WHERE user_id = $1
			ORDER BY created_at DESC
			LIMIT $2`

	rows, err := repo.connPool.Pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, wrap("list notifications", err)
	}
	defer rows.Close()

	notifications := []m.Notification{}
	for rows.Next() {
		var notification m.Notification
		err := rows.Scan(&notification.ID, &notification.UserID, &notification.Type, &notification.Message,
			&notification.Read, &notification.Data, &notification.CreatedAt)
		if err != nil {
			return nil, wrap("scan notification", err)
		}
		notifications = append(notifications, notification)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list notifications", err)
	}
	return notifications, nil
}

func (repo *NotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := repo.connPool.Pool.Exec(ctx, `UPDATE notifications SET is_read = true WHERE user_id = $1 AND is_read = false`, userID)
	if err != nil {
		return 0, wrap("mark notifications read", err)
	}
	return tag.RowsAffected(), nil
}
