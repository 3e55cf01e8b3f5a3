package repo

import (
	"context"
	"database/sql"
	"strings"

	"github.com/kixxpy/markethire/internal/domain"
)

func (r Repo) InsertCategory(ctx context.Context, c domain.Category) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO categories(id,name,slug) VALUES (?,?,?)`, c.ID, c.Name, c.Slug)
	return err
}

func (r Repo) UpsertCategoryBySlug(ctx context.Context, c domain.Category) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO categories(id,name,slug) VALUES (?,?,?)
ON CONFLICT(slug) DO UPDATE SET name=excluded.name`, c.ID, c.Name, c.Slug)
	return err
}

func (r Repo) GetCategory(ctx context.Context, id string) (domain.Category, error) {
	var c domain.Category
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,slug FROM categories WHERE id=?`, id).
		Scan(&c.ID, &c.Name, &c.Slug)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	return c, err
}

func (r Repo) GetCategoryBySlug(ctx context.Context, slug string) (domain.Category, error) {
	var c domain.Category
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,slug FROM categories WHERE slug=?`, slug).
		Scan(&c.ID, &c.Name, &c.Slug)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	return c, err
}

func (r Repo) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,slug FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) InsertTag(ctx context.Context, t domain.Tag) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO tags(id,category_id,name) VALUES (?,?,?)`, t.ID, t.CategoryID, t.Name)
	return err
}

func (r Repo) UpsertTag(ctx context.Context, t domain.Tag) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO tags(id,category_id,name) VALUES (?,?,?)
ON CONFLICT(category_id,name) DO NOTHING`, t.ID, t.CategoryID, t.Name)
	return err
}

func (r Repo) GetTag(ctx context.Context, id string) (domain.Tag, error) {
	var t domain.Tag
	err := r.DB.QueryRowContext(ctx, `SELECT id,category_id,name FROM tags WHERE id=?`, id).
		Scan(&t.ID, &t.CategoryID, &t.Name)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	return t, err
}

// GetTagsByIDs returns the tags found for ids; callers compare lengths to
// detect missing ones.
func (r Repo) GetTagsByIDs(ctx context.Context, ids []string) ([]domain.Tag, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id,category_id,name FROM tags WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Tag
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.ID, &t.CategoryID, &t.Name); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r Repo) ListTags(ctx context.Context, categoryID string) ([]domain.Tag, error) {
	query := `SELECT id,category_id,name FROM tags`
	var args []any
	if categoryID != "" {
		query += ` WHERE category_id=?`
		args = append(args, categoryID)
	}
	query += ` ORDER BY name ASC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Tag
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.ID, &t.CategoryID, &t.Name); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}
