package repository

import (
	"context"

	"github.com/sysu-ecnc-dev/care-roster/backend/internal/domain"
)

func (r *Repository) CreateAgency(ctx context.Context, agency *domain.Agency) error {
	query := `
		INSERT INTO agencies (name, contact_email)
		VALUES ($1, $2)
		RETURNING id, created_at
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.dbpool.QueryRowContext(ctx, query, agency.Name, agency.ContactEmail).Scan(&agency.ID, &agency.CreatedAt); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetAllAgencies(ctx context.Context) ([]*domain.Agency, error) {
	query := `
		SELECT id, name, contact_email, created_at FROM agencies ORDER BY name
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	agencies := make([]*domain.Agency, 0)
	for rows.Next() {
		agency := &domain.Agency{}
		if err := rows.Scan(&agency.ID, &agency.Name, &agency.ContactEmail, &agency.CreatedAt); err != nil {
			return nil, err
		}
		agencies = append(agencies, agency)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return agencies, nil
}
