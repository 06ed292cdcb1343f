package store

import (
	"context"
	"database/sql"
	"fmt"
)

const notificationSelect = `
	SELECT id, recipient_id, text, is_read, actor_id, moment_id, comment_id, created_at
	FROM notifications`

func scanNotification(row interface{ Scan(...any) error }) (Notification, error) {
	var (
		n                            Notification
		actorID, momentID, commentID sql.NullInt64
	)
	if err := row.Scan(&n.ID, &n.RecipientID, &n.Text, &n.IsRead, &actorID, &momentID, &commentID, &n.CreatedAt); err != nil {
		return Notification{}, err
	}
	n.ActorID = nullableInt64(actorID)
	n.MomentID = nullableInt64(momentID)
	n.CommentID = nullableInt64(commentID)
	return n, nil
}

func (q *Queries) InsertNotification(ctx context.Context, n Notification) (Notification, error) {
	err := q.db.QueryRowContext(ctx, `
		INSERT INTO notifications (recipient_id, text, actor_id, moment_id, comment_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, n.RecipientID, n.Text, nullInt64(n.ActorID), nullInt64(n.MomentID), nullInt64(n.CommentID)).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return Notification{}, fmt.Errorf("insert notification: %w", err)
	}
	return n, nil
}

// UnreadNotifications returns up to limit unread notifications, newest first.
func (q *Queries) UnreadNotifications(ctx context.Context, recipientID int64, limit int) ([]Notification, error) {
	rows, err := q.db.QueryContext(ctx, notificationSelect+`
		WHERE recipient_id = $1 AND NOT is_read
		ORDER BY id DESC
		LIMIT $2
	`, recipientID, limit)
	if err != nil {
		return nil, fmt.Errorf("list unread notifications: %w", err)
	}
	return collectNotifications(rows)
}

// NotificationsBefore pages a recipient's notifications newest first,
// read or not. beforeID 0 starts at the newest.
func (q *Queries) NotificationsBefore(ctx context.Context, recipientID, beforeID int64, limit int) ([]Notification, error) {
	rows, err := q.db.QueryContext(ctx, notificationSelect+`
		WHERE recipient_id = $1 AND ($2::bigint = 0 OR id < $2)
		ORDER BY id DESC
		LIMIT $3
	`, recipientID, beforeID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return collectNotifications(rows)
}

func (q *Queries) MarkAllNotificationsRead(ctx context.Context, recipientID int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE
		WHERE recipient_id = $1 AND NOT is_read
	`, recipientID)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark notifications read rows: %w", err)
	}
	return affected, nil
}

func collectNotifications(rows *sql.Rows) ([]Notification, error) {
	defer rows.Close()
	items := []Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		items = append(items, n)
	}
	return items, rows.Err()
}
