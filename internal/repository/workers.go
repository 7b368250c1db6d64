package repository

import (
	"context"
	"database/sql"

	"github.com/sysu-ecnc-dev/care-roster/backend/internal/domain"
)

const workerColumns = `
	id, kind, full_name, email, telegram_chat_id, is_active,
	standard_rate, enhanced_rate, night_rate, hourly_rate,
	agency_id, contract_start, contract_end, employment_start, created_at, version
`

func scanWorker(row scanner) (*domain.Worker, error) {
	w := &domain.Worker{}
	dst := []any{
		&w.ID, &w.Kind, &w.FullName, &w.Email, &w.TelegramChatID, &w.IsActive,
		&w.StandardRate, &w.EnhancedRate, &w.NightRate, &w.HourlyRate,
		&w.AgencyID, &w.ContractStart, &w.ContractEnd, &w.EmploymentStart, &w.CreatedAt, &w.Version,
	}
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}
	return w, nil
}

func scanWorkers(rows *sql.Rows) ([]*domain.Worker, error) {
	defer rows.Close()

	workers := make([]*domain.Worker, 0)
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, err
		}
		workers = append(workers, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return workers, nil
}

func (r *Repository) CreateWorker(ctx context.Context, w *domain.Worker) error {
	query := `
		INSERT INTO workers (
			kind, full_name, email, telegram_chat_id, standard_rate, enhanced_rate, night_rate, hourly_rate,
			agency_id, contract_start, contract_end, employment_start
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, is_active, created_at, version
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	args := []any{
		w.Kind, w.FullName, w.Email, w.TelegramChatID, w.StandardRate, w.EnhancedRate, w.NightRate, w.HourlyRate,
		w.AgencyID, w.ContractStart, w.ContractEnd, w.EmploymentStart,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&w.ID, &w.IsActive, &w.CreatedAt, &w.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetWorkerByID(ctx context.Context, id int64) (*domain.Worker, error) {
	query := `SELECT ` + workerColumns + ` FROM workers WHERE id = $1`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	w, err := scanWorker(r.dbpool.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "员工", id)
	}

	return w, nil
}

// ListWorkers 返回所有员工，包括已停用的员工
func (r *Repository) ListWorkers(ctx context.Context) ([]*domain.Worker, error) {
	query := `SELECT ` + workerColumns + ` FROM workers ORDER BY full_name, id`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	return scanWorkers(rows)
}

// GetWorkersByIDs 不存在的 ID 不会出现在结果中
func (r *Repository) GetWorkersByIDs(ctx context.Context, ids []int64) (map[int64]*domain.Worker, error) {
	query := `SELECT ` + workerColumns + ` FROM workers WHERE id = ANY($1)`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	workers, err := scanWorkers(rows)
	if err != nil {
		return nil, err
	}

	out := make(map[int64]*domain.Worker, len(workers))
	for _, w := range workers {
		out[w.ID] = w
	}
	return out, nil
}

func (r *Repository) UpdateWorker(ctx context.Context, w *domain.Worker) error {
	query := `
		UPDATE workers
		SET
			full_name = $1,
			email = $2,
			telegram_chat_id = $3,
			is_active = $4,
			standard_rate = $5,
			enhanced_rate = $6,
			night_rate = $7,
			hourly_rate = $8,
			agency_id = $9,
			contract_start = $10,
			contract_end = $11,
			employment_start = $12,
			version = version + 1
		WHERE id = $13 AND version = $14
		RETURNING kind, created_at, version
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	args := []any{
		w.FullName, w.Email, w.TelegramChatID, w.IsActive, w.StandardRate, w.EnhancedRate, w.NightRate, w.HourlyRate,
		w.AgencyID, w.ContractStart, w.ContractEnd, w.EmploymentStart, w.ID, w.Version,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&w.Kind, &w.CreatedAt, &w.Version); err != nil {
		return versioned(ctx, r.dbpool, err, "workers", "员工", w.ID)
	}

	return nil
}
