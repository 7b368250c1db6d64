package repository

import (
	"context"

	"github.com/sysu-ecnc-dev/care-roster/backend/internal/domain"
)

func (r *Repository) CreateSite(ctx context.Context, site *domain.Site) error {
	query := `
		INSERT INTO sites (name, color)
		VALUES ($1, $2)
		RETURNING id, is_active, created_at, version
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	dst := []any{&site.ID, &site.IsActive, &site.CreatedAt, &site.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, site.Name, site.Color).Scan(dst...); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetSiteByID(ctx context.Context, id int64) (*domain.Site, error) {
	query := `
		SELECT name, color, is_active, created_at, version FROM sites WHERE id = $1
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	site := &domain.Site{ID: id}
	dst := []any{&site.Name, &site.Color, &site.IsActive, &site.CreatedAt, &site.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, notFound(err, "站点", id)
	}

	return site, nil
}

func (r *Repository) GetAllSites(ctx context.Context) ([]*domain.Site, error) {
	query := `
		SELECT id, name, color, is_active, created_at, version FROM sites ORDER BY id
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sites := make([]*domain.Site, 0)
	for rows.Next() {
		site := &domain.Site{}
		if err := rows.Scan(&site.ID, &site.Name, &site.Color, &site.IsActive, &site.CreatedAt, &site.Version); err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sites, nil
}

// GetSitesByIDs 不存在的 ID 不会出现在结果中
func (r *Repository) GetSitesByIDs(ctx context.Context, ids []int64) (map[int64]*domain.Site, error) {
	query := `
		SELECT id, name, color, is_active, created_at, version FROM sites WHERE id = ANY($1)
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sites := make(map[int64]*domain.Site, len(ids))
	for rows.Next() {
		site := &domain.Site{}
		if err := rows.Scan(&site.ID, &site.Name, &site.Color, &site.IsActive, &site.CreatedAt, &site.Version); err != nil {
			return nil, err
		}
		sites[site.ID] = site
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sites, nil
}

func (r *Repository) UpdateSite(ctx context.Context, site *domain.Site) error {
	query := `
		UPDATE sites
		SET
			name = $1,
			color = $2,
			is_active = $3,
			version = version + 1
		WHERE id = $4 AND version = $5
		RETURNING created_at, version
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	args := []any{site.Name, site.Color, site.IsActive, site.ID, site.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&site.CreatedAt, &site.Version); err != nil {
		return versioned(ctx, r.dbpool, err, "sites", "站点", site.ID)
	}

	return nil
}

// DeleteSite 站点下的班次会被级联删除
func (r *Repository) DeleteSite(ctx context.Context, id int64) error {
	query := `
		DELETE FROM sites WHERE id = $1
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.dbpool.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound("站点", id)
	}

	return nil
}
