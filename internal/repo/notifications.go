package repo

import (
	"context"
	"database/sql"
	"strings"

	"github.com/kixxpy/markethire/internal/domain"
)

// notificationReadLimit caps feed reads; older entries stay in the table but
// are never returned.
const notificationReadLimit = 50

func (r Repo) InsertNotification(ctx context.Context, tx *sql.Tx, n domain.Notification) error {
	read := 0
	if n.IsRead {
		read = 1
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO notifications(id,recipient_id,role,type,title,message,link,is_read,created_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		n.ID, n.RecipientID, nullable(n.Role), n.Type, n.Title, n.Message, nullable(n.Link), read, n.CreatedAt)
	return err
}

func (r Repo) GetNotification(ctx context.Context, id string) (domain.Notification, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT id,recipient_id,role,type,title,message,link,is_read,created_at FROM notifications WHERE id=?`, id)
	n, err := scanNotification(row.Scan)
	if err == sql.ErrNoRows {
		return n, ErrNotFound
	}
	return n, err
}

func scanNotification(scan func(dest ...any) error) (domain.Notification, error) {
	var n domain.Notification
	var role, link sql.NullString
	var read int
	err := scan(&n.ID, &n.RecipientID, &role, &n.Type, &n.Title, &n.Message, &link, &read, &n.CreatedAt)
	if err != nil {
		return n, err
	}
	if role.Valid {
		n.Role = role.String
	}
	if link.Valid {
		n.Link = link.String
	}
	n.IsRead = read != 0
	return n, nil
}

type NotificationFilters struct {
	Role       string
	UnreadOnly bool
}

// ListNotifications returns the recipient's newest notifications, capped at
// notificationReadLimit rows.
func (r Repo) ListNotifications(ctx context.Context, recipientID string, f NotificationFilters) ([]domain.Notification, error) {
	clauses := []string{"recipient_id=?"}
	args := []any{recipientID}
	if f.Role != "" {
		clauses = append(clauses, "(role IS NULL OR role=?)")
		args = append(args, f.Role)
	}
	if f.UnreadOnly {
		clauses = append(clauses, "is_read=0")
	}
	args = append(args, notificationReadLimit)
	rows, err := r.DB.QueryContext(ctx, `SELECT id,recipient_id,role,type,title,message,link,is_read,created_at
FROM notifications WHERE `+strings.Join(clauses, " AND ")+` ORDER BY created_at DESC, id DESC LIMIT ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, n)
	}
	return res, rows.Err()
}

func (r Repo) CountUnreadNotifications(ctx context.Context, recipientID, role string) (int, error) {
	q := `SELECT count(*) FROM notifications WHERE recipient_id=? AND is_read=0`
	args := []any{recipientID}
	if role != "" {
		q += ` AND (role IS NULL OR role=?)`
		args = append(args, role)
	}
	var n int
	err := r.DB.QueryRowContext(ctx, q, args...).Scan(&n)
	return n, err
}

// MarkNotificationRead flips one notification to read, scoped to its
// recipient so one user cannot touch another's feed.
func (r Repo) MarkNotificationRead(ctx context.Context, id, recipientID string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE notifications SET is_read=1 WHERE id=? AND recipient_id=?`, id, recipientID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) MarkAllNotificationsRead(ctx context.Context, recipientID, role string) (int, error) {
	q := `UPDATE notifications SET is_read=1 WHERE recipient_id=? AND is_read=0`
	args := []any{recipientID}
	if role != "" {
		q += ` AND (role IS NULL OR role=?)`
		args = append(args, role)
	}
	res, err := r.DB.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
