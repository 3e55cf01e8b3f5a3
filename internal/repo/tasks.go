package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/kixxpy/markethire/internal/domain"
)

const taskColumns = `id,owner_id,category_id,title,description,marketplace,budget,status,moderation_status,created_at,updated_at,closed_at`

func scanTaskRow(scan func(dest ...any) error) (domain.Task, error) {
	var t domain.Task
	var description, marketplace, closedAt sql.NullString
	var budget sql.NullInt64
	err := scan(&t.ID, &t.OwnerID, &t.CategoryID, &t.Title, &description, &marketplace, &budget,
		&t.Status, &t.ModerationStatus, &t.CreatedAt, &t.UpdatedAt, &closedAt)
	if err != nil {
		return t, err
	}
	if description.Valid {
		t.Description = description.String
	}
	if marketplace.Valid {
		t.Marketplace = marketplace.String
	}
	if budget.Valid {
		b := budget.Int64
		t.Budget = &b
	}
	if closedAt.Valid {
		t.ClosedAt = &closedAt.String
	}
	return t, nil
}

func (r Repo) InsertTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO tasks(`+taskColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.OwnerID, t.CategoryID, t.Title, nullable(t.Description), nullable(t.Marketplace),
		nullableInt64Ptr(t.Budget), t.Status, t.ModerationStatus, t.CreatedAt, t.UpdatedAt, nil)
	return err
}

func (r Repo) UpdateTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	var closedAt any
	if t.ClosedAt != nil {
		closedAt = *t.ClosedAt
	}
	_, err := tx.ExecContext(ctx, `UPDATE tasks SET category_id=?, title=?, description=?, marketplace=?, budget=?, status=?, moderation_status=?, updated_at=?, closed_at=? WHERE id=?`,
		t.CategoryID, t.Title, nullable(t.Description), nullable(t.Marketplace), nullableInt64Ptr(t.Budget),
		t.Status, t.ModerationStatus, t.UpdatedAt, closedAt, t.ID)
	return err
}

func (r Repo) GetTask(ctx context.Context, id string) (domain.Task, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id)
	t, err := scanTaskRow(row.Scan)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	t.TagIDs, err = r.ListTaskTagIDs(ctx, t.ID)
	return t, err
}

func (r Repo) DeleteTask(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceTaskTags rewrites the task's tag links in one pass.
func (r Repo) ReplaceTaskTags(ctx context.Context, tx *sql.Tx, taskID string, tagIDs []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM task_tags WHERE task_id=?`, taskID); err != nil {
		return err
	}
	for _, tagID := range tagIDs {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO task_tags(task_id, tag_id) VALUES (?,?)`, taskID, tagID); err != nil {
			return err
		}
	}
	return nil
}

func (r Repo) ListTaskTagIDs(ctx context.Context, taskID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT tag_id FROM task_tags WHERE task_id=?`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type TaskFilters struct {
	CategoryID       string
	TagIDs           []string
	Marketplace      string
	OwnerID          string
	Status           string
	ModerationStatus string
	Page             int
	Limit            int
	SortKey          string
	SortDesc         bool
}

var taskSortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"budget":     "budget",
	"title":      "title",
}

// ListTasks returns one page of tasks plus the total match count.
func (r Repo) ListTasks(ctx context.Context, f TaskFilters) ([]domain.Task, int, error) {
	var clauses []string
	var args []any
	if f.CategoryID != "" {
		clauses = append(clauses, "category_id=?")
		args = append(args, f.CategoryID)
	}
	if f.Marketplace != "" {
		clauses = append(clauses, "marketplace=?")
		args = append(args, f.Marketplace)
	}
	if f.OwnerID != "" {
		clauses = append(clauses, "owner_id=?")
		args = append(args, f.OwnerID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.ModerationStatus != "" {
		clauses = append(clauses, "moderation_status=?")
		args = append(args, f.ModerationStatus)
	}
	if len(f.TagIDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(f.TagIDs)), ",")
		clauses = append(clauses, `EXISTS (SELECT 1 FROM task_tags tt WHERE tt.task_id=tasks.id AND tt.tag_id IN (`+placeholders+`))`)
		for _, id := range f.TagIDs {
			args = append(args, id)
		}
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT count(*) FROM tasks `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sortCol, ok := taskSortColumns[f.SortKey]
	if !ok {
		sortCol = "created_at"
	}
	dir := "ASC"
	if f.SortDesc {
		dir = "DESC"
	}
	query := fmt.Sprintf(`SELECT %s FROM tasks %s ORDER BY %s %s, id %s`, taskColumns, where, sortCol, dir, dir)
	if f.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		page := f.Page
		if page < 1 {
			page = 1
		}
		args = append(args, f.Limit, (page-1)*f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTaskRow(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		res = append(res, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for i := range res {
		res[i].TagIDs, err = r.ListTaskTagIDs(ctx, res[i].ID)
		if err != nil {
			return nil, 0, err
		}
	}
	return res, total, nil
}

func (r Repo) InsertModerationRecord(ctx context.Context, tx *sql.Tx, m domain.ModerationRecord) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO task_moderation_history(id,task_id,changed_fields,previous_json,new_json,changed_by,reason,created_at) VALUES (?,?,?,?,?,?,?,?)`,
		m.ID, m.TaskID, m.ChangedFields, nullable(m.PreviousJSON), nullable(m.NewJSON), m.ChangedBy, nullable(m.Reason), m.CreatedAt)
	return err
}

func (r Repo) ListModerationRecords(ctx context.Context, taskID string) ([]domain.ModerationRecord, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,task_id,changed_fields,previous_json,new_json,changed_by,reason,created_at
FROM task_moderation_history WHERE task_id=? ORDER BY created_at DESC, id DESC`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ModerationRecord
	for rows.Next() {
		var m domain.ModerationRecord
		var prev, next, reason sql.NullString
		if err := rows.Scan(&m.ID, &m.TaskID, &m.ChangedFields, &prev, &next, &m.ChangedBy, &reason, &m.CreatedAt); err != nil {
			return nil, err
		}
		if prev.Valid {
			m.PreviousJSON = prev.String
		}
		if next.Valid {
			m.NewJSON = next.String
		}
		if reason.Valid {
			m.Reason = reason.String
		}
		res = append(res, m)
	}
	return res, rows.Err()
}
