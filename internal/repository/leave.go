package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sysu-ecnc-dev/care-roster/backend/internal/domain"
)

const leaveRequestColumns = `
	id, worker_id, start_date, end_date, total_days, total_hours, reason, status,
	reviewed_by, review_notes, reviewed_at, rejection_reason, created_at, version
`

func scanLeaveRequest(row scanner) (*domain.LeaveRequest, error) {
	l := &domain.LeaveRequest{}
	dst := []any{
		&l.ID, &l.WorkerID, &l.StartDate, &l.EndDate, &l.TotalDays, &l.TotalHours, &l.Reason, &l.Status,
		&l.ReviewedBy, &l.ReviewNotes, &l.ReviewedAt, &l.RejectionReason, &l.CreatedAt, &l.Version,
	}
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}
	l.StartDate = domain.DateOnly(l.StartDate)
	l.EndDate = domain.DateOnly(l.EndDate)
	return l, nil
}

func scanLeaveRequests(rows *sql.Rows) ([]*domain.LeaveRequest, error) {
	defer rows.Close()

	requests := make([]*domain.LeaveRequest, 0)
	for rows.Next() {
		l, err := scanLeaveRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *Repository) InsertLeaveRequest(ctx context.Context, l *domain.LeaveRequest) error {
	query := `
		INSERT INTO leave_requests (worker_id, start_date, end_date, total_days, total_hours, reason, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, version
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	args := []any{l.WorkerID, l.StartDate, l.EndDate, l.TotalDays, l.TotalHours, l.Reason, l.Status}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&l.ID, &l.CreatedAt, &l.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetLeaveRequestByID(ctx context.Context, id int64) (*domain.LeaveRequest, error) {
	query := `SELECT ` + leaveRequestColumns + ` FROM leave_requests WHERE id = $1`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	l, err := scanLeaveRequest(r.dbpool.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "请假申请", id)
	}

	return l, nil
}

func (r *Repository) UpdateLeaveRequest(ctx context.Context, l *domain.LeaveRequest) error {
	query := `
		UPDATE leave_requests
		SET
			status = $1,
			reviewed_by = $2,
			review_notes = $3,
			reviewed_at = $4,
			rejection_reason = $5,
			version = version + 1
		WHERE id = $6 AND version = $7
		RETURNING version
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	args := []any{l.Status, l.ReviewedBy, l.ReviewNotes, l.ReviewedAt, l.RejectionReason, l.ID, l.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&l.Version); err != nil {
		return versioned(ctx, r.dbpool, err, "leave_requests", "请假申请", l.ID)
	}

	return nil
}

// ListLeaveRequests workerID 与 status 为空时不过滤
func (r *Repository) ListLeaveRequests(ctx context.Context, workerID *int64, status *domain.LeaveStatus) ([]*domain.LeaveRequest, error) {
	query := `
		SELECT ` + leaveRequestColumns + ` FROM leave_requests
		WHERE ($1::BIGINT IS NULL OR worker_id = $1) AND ($2::TEXT IS NULL OR status = $2)
		ORDER BY start_date DESC, id DESC
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, workerID, status)
	if err != nil {
		return nil, err
	}
	return scanLeaveRequests(rows)
}

func (r *Repository) ListApprovedLeaveBetween(ctx context.Context, from, to time.Time) ([]*domain.LeaveRequest, error) {
	query := `
		SELECT ` + leaveRequestColumns + ` FROM leave_requests
		WHERE status = 'approved' AND start_date < $2 AND end_date >= $1
		ORDER BY worker_id, start_date
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, domain.DateOnly(from), domain.DateOnly(to))
	if err != nil {
		return nil, err
	}
	return scanLeaveRequests(rows)
}

func (r *Repository) ListApprovedLeaveForWorker(ctx context.Context, workerID int64, from, to time.Time) ([]*domain.LeaveRequest, error) {
	query := `
		SELECT ` + leaveRequestColumns + ` FROM leave_requests
		WHERE worker_id = $1 AND status = 'approved' AND start_date < $3 AND end_date >= $2
		ORDER BY start_date
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, workerID, domain.DateOnly(from), domain.DateOnly(to))
	if err != nil {
		return nil, err
	}
	return scanLeaveRequests(rows)
}

func (r *Repository) GetLeaveBalance(ctx context.Context, workerID int64, year int) (*domain.LeaveBalance, error) {
	query := `
		SELECT entitlement_hours, hours_accrued, hours_used, hours_remaining, carry_over_hours,
		       quarters_completed, next_accrual_date, next_accrual_hours, updated_at
		FROM leave_balances WHERE worker_id = $1 AND year = $2
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	b := &domain.LeaveBalance{WorkerID: workerID, Year: year}
	dst := []any{
		&b.EntitlementHours, &b.HoursAccrued, &b.HoursUsed, &b.HoursRemaining, &b.CarryOverHours,
		&b.QuartersCompleted, &b.NextAccrualDate, &b.NextAccrualHours, &b.UpdatedAt,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, workerID, year).Scan(dst...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(domain.KindNotFound, "员工 %d 没有 %d 年的假期余额", workerID, year)
		}
		return nil, err
	}

	return b, nil
}

func (r *Repository) UpsertLeaveBalance(ctx context.Context, b *domain.LeaveBalance) error {
	query := `
		INSERT INTO leave_balances (
			worker_id, year, entitlement_hours, hours_accrued, hours_used, hours_remaining,
			carry_over_hours, quarters_completed, next_accrual_date, next_accrual_hours, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (worker_id, year) DO UPDATE
		SET
			entitlement_hours = EXCLUDED.entitlement_hours,
			hours_accrued = EXCLUDED.hours_accrued,
			hours_used = EXCLUDED.hours_used,
			hours_remaining = EXCLUDED.hours_remaining,
			carry_over_hours = EXCLUDED.carry_over_hours,
			quarters_completed = EXCLUDED.quarters_completed,
			next_accrual_date = EXCLUDED.next_accrual_date,
			next_accrual_hours = EXCLUDED.next_accrual_hours,
			updated_at = EXCLUDED.updated_at
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	args := []any{
		b.WorkerID, b.Year, b.EntitlementHours, b.HoursAccrued, b.HoursUsed, b.HoursRemaining,
		b.CarryOverHours, b.QuartersCompleted, b.NextAccrualDate, b.NextAccrualHours, b.UpdatedAt,
	}
	if _, err := r.dbpool.ExecContext(ctx, query, args...); err != nil {
		return err
	}

	return nil
}
