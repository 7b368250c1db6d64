package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sysu-ecnc-dev/care-roster/backend/internal/domain"
)

func (r *Repository) GetAdministratorByID(ctx context.Context, id int64) (*domain.Administrator, error) {
	query := `
		SELECT username, password_hash, full_name, email, role, is_active, created_at, version
		FROM administrators WHERE id = $1
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	admin := &domain.Administrator{
		ID: id,
	}

	dst := []any{&admin.Username, &admin.PasswordHash, &admin.FullName, &admin.Email, &admin.Role, &admin.IsActive, &admin.CreatedAt, &admin.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, notFound(err, "管理员", id)
	}

	return admin, nil
}

func (r *Repository) GetAdministratorByUsername(ctx context.Context, username string) (*domain.Administrator, error) {
	query := `
		SELECT id, password_hash, full_name, email, role, is_active, created_at, version
		FROM administrators WHERE username = $1
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	admin := &domain.Administrator{
		Username: username,
	}

	dst := []any{&admin.ID, &admin.PasswordHash, &admin.FullName, &admin.Email, &admin.Role, &admin.IsActive, &admin.CreatedAt, &admin.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, username).Scan(dst...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(domain.KindNotFound, "管理员 %s 不存在", username)
		}
		return nil, err
	}

	return admin, nil
}

func (r *Repository) CreateAdministrator(ctx context.Context, admin *domain.Administrator) error {
	query := `
		INSERT INTO administrators (username, password_hash, full_name, email, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_active, created_at, version
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	args := []any{admin.Username, admin.PasswordHash, admin.FullName, admin.Email, admin.Role}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&admin.ID, &admin.IsActive, &admin.CreatedAt, &admin.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) CheckAdministratorExists(ctx context.Context, username string) (bool, error) {
	isExists := false

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT EXISTS (SELECT 1 FROM administrators WHERE username = $1)
	`
	if err := r.dbpool.QueryRowContext(ctx, query, username).Scan(&isExists); err != nil {
		return false, err
	}

	return isExists, nil
}

func (r *Repository) UpdateAdministrator(ctx context.Context, admin *domain.Administrator) error {
	query := `
		UPDATE administrators
		SET
			password_hash = $1,
			full_name = $2,
			email = $3,
			is_active = $4,
			version = version + 1
		WHERE id = $5 AND version = $6
		RETURNING version
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	args := []any{admin.PasswordHash, admin.FullName, admin.Email, admin.IsActive, admin.ID, admin.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&admin.Version); err != nil {
		return versioned(ctx, r.dbpool, err, "administrators", "管理员", admin.ID)
	}

	return nil
}
