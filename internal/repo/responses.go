package repo

import (
	"context"
	"database/sql"

	"github.com/kixxpy/markethire/internal/domain"
)

const responseColumns = `id,task_id,author_id,message,price,deadline_days,created_at,updated_at`

func scanResponseRow(scan func(dest ...any) error) (domain.Response, error) {
	var resp domain.Response
	var price sql.NullInt64
	var deadline sql.NullInt64
	err := scan(&resp.ID, &resp.TaskID, &resp.AuthorID, &resp.Message, &price, &deadline, &resp.CreatedAt, &resp.UpdatedAt)
	if err != nil {
		return resp, err
	}
	if price.Valid {
		p := price.Int64
		resp.Price = &p
	}
	if deadline.Valid {
		d := int(deadline.Int64)
		resp.DeadlineDays = &d
	}
	return resp, nil
}

func (r Repo) InsertResponse(ctx context.Context, tx *sql.Tx, resp domain.Response) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO responses(`+responseColumns+`) VALUES (?,?,?,?,?,?,?,?)`,
		resp.ID, resp.TaskID, resp.AuthorID, resp.Message, nullableInt64Ptr(resp.Price),
		nullableIntPtr(resp.DeadlineDays), resp.CreatedAt, resp.UpdatedAt)
	return err
}

func (r Repo) UpdateResponse(ctx context.Context, tx *sql.Tx, resp domain.Response) error {
	_, err := tx.ExecContext(ctx, `UPDATE responses SET message=?, price=?, deadline_days=?, updated_at=? WHERE id=?`,
		resp.Message, nullableInt64Ptr(resp.Price), nullableIntPtr(resp.DeadlineDays), resp.UpdatedAt, resp.ID)
	return err
}

func (r Repo) GetResponse(ctx context.Context, id string) (domain.Response, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+responseColumns+` FROM responses WHERE id=?`, id)
	resp, err := scanResponseRow(row.Scan)
	if err == sql.ErrNoRows {
		return resp, ErrNotFound
	}
	return resp, err
}

// GetResponseByTaskAuthor looks up the one response a user may have on a task.
func (r Repo) GetResponseByTaskAuthor(ctx context.Context, taskID, authorID string) (domain.Response, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+responseColumns+` FROM responses WHERE task_id=? AND author_id=?`, taskID, authorID)
	resp, err := scanResponseRow(row.Scan)
	if err == sql.ErrNoRows {
		return resp, ErrNotFound
	}
	return resp, err
}

func (r Repo) DeleteResponse(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM responses WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) ListTaskResponses(ctx context.Context, taskID string) ([]domain.Response, error) {
	return r.listResponses(ctx, `SELECT `+responseColumns+` FROM responses WHERE task_id=? ORDER BY created_at ASC, id ASC`, taskID)
}

func (r Repo) ListResponsesByAuthor(ctx context.Context, authorID string) ([]domain.Response, error) {
	return r.listResponses(ctx, `SELECT `+responseColumns+` FROM responses WHERE author_id=? ORDER BY created_at DESC, id DESC`, authorID)
}

func (r Repo) listResponses(ctx context.Context, query string, args ...any) ([]domain.Response, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Response
	for rows.Next() {
		resp, err := scanResponseRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, resp)
	}
	return res, rows.Err()
}

func (r Repo) InsertReply(ctx context.Context, tx *sql.Tx, rep domain.Reply) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO replies(id,response_id,author_id,message,created_at) VALUES (?,?,?,?,?)`,
		rep.ID, rep.ResponseID, rep.AuthorID, rep.Message, rep.CreatedAt)
	return err
}

func (r Repo) GetReply(ctx context.Context, id string) (domain.Reply, error) {
	var rep domain.Reply
	err := r.DB.QueryRowContext(ctx, `SELECT id,response_id,author_id,message,created_at FROM replies WHERE id=?`, id).
		Scan(&rep.ID, &rep.ResponseID, &rep.AuthorID, &rep.Message, &rep.CreatedAt)
	if err == sql.ErrNoRows {
		return rep, ErrNotFound
	}
	return rep, err
}

func (r Repo) DeleteReply(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM replies WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) ListRepliesByResponse(ctx context.Context, responseID string) ([]domain.Reply, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,response_id,author_id,message,created_at FROM replies WHERE response_id=? ORDER BY created_at ASC, id ASC`, responseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Reply
	for rows.Next() {
		var rep domain.Reply
		if err := rows.Scan(&rep.ID, &rep.ResponseID, &rep.AuthorID, &rep.Message, &rep.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, rep)
	}
	return res, rows.Err()
}
