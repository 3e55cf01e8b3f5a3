package repo

import (
	"context"
	"database/sql"

	"github.com/kixxpy/markethire/internal/domain"
)

func (r Repo) InsertAd(ctx context.Context, tx *sql.Tx, a domain.Ad) error {
	active := 0
	if a.IsActive {
		active = 1
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO ads(id,image_url,link,position,is_active,created_at,updated_at) VALUES (?,?,?,?,?,?,?)`,
		a.ID, a.ImageURL, a.Link, a.Position, active, a.CreatedAt, a.UpdatedAt)
	return err
}

func (r Repo) UpdateAd(ctx context.Context, tx *sql.Tx, a domain.Ad) error {
	active := 0
	if a.IsActive {
		active = 1
	}
	_, err := tx.ExecContext(ctx, `UPDATE ads SET image_url=?, link=?, position=?, is_active=?, updated_at=? WHERE id=?`,
		a.ImageURL, a.Link, a.Position, active, a.UpdatedAt, a.ID)
	return err
}

func (r Repo) GetAd(ctx context.Context, id string) (domain.Ad, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT id,image_url,link,position,is_active,created_at,updated_at FROM ads WHERE id=?`, id)
	a, err := scanAd(row.Scan)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	return a, err
}

func scanAd(scan func(dest ...any) error) (domain.Ad, error) {
	var a domain.Ad
	var active int
	err := scan(&a.ID, &a.ImageURL, &a.Link, &a.Position, &active, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return a, err
	}
	a.IsActive = active != 0
	return a, nil
}

func (r Repo) DeleteAd(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM ads WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListActiveAds returns the public rotation in banner-slot order.
func (r Repo) ListActiveAds(ctx context.Context) ([]domain.Ad, error) {
	return r.listAds(ctx, `SELECT id,image_url,link,position,is_active,created_at,updated_at FROM ads WHERE is_active=1 ORDER BY position ASC, created_at ASC`)
}

// ListAllAds returns every ad with active ones first, for the admin view.
func (r Repo) ListAllAds(ctx context.Context) ([]domain.Ad, error) {
	return r.listAds(ctx, `SELECT id,image_url,link,position,is_active,created_at,updated_at FROM ads ORDER BY is_active DESC, position ASC, created_at ASC`)
}

func (r Repo) listAds(ctx context.Context, query string, args ...any) ([]domain.Ad, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Ad
	for rows.Next() {
		a, err := scanAd(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

// MaxAdPosition returns the highest assigned position, or -1 when there are
// no ads yet.
func (r Repo) MaxAdPosition(ctx context.Context) (int, error) {
	var pos sql.NullInt64
	if err := r.DB.QueryRowContext(ctx, `SELECT max(position) FROM ads`).Scan(&pos); err != nil {
		return 0, err
	}
	if !pos.Valid {
		return -1, nil
	}
	return int(pos.Int64), nil
}
