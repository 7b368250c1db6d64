package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/sysu-ecnc-dev/care-roster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/care-roster/backend/internal/roster"
)

const shiftColumns = `
	id, site_id, worker_id, date, start_time, end_time, starts_next_day, duration, classification,
	is_24_hour, twenty_four_hour_approver, twenty_four_hour_reason, duplicate_approver, duplicate_reason,
	extension_hours, extension_reason, extension_approver, extension_approval_reason, extension_auto_approved,
	extension_approved_at, status, decline_reason, notes, clock_in, clock_out, created_at, version
`

func scanShift(row scanner) (*domain.Shift, error) {
	s := &domain.Shift{}
	var (
		extHours      sql.NullFloat64
		extReason     string
		extApprover   string
		extApproval   string
		extAuto       bool
		extApprovedAt sql.NullTime
	)

	dst := []any{
		&s.ID, &s.SiteID, &s.WorkerID, &s.Date, &s.StartTime, &s.EndTime, &s.StartsNextDay, &s.Duration, &s.Classification,
		&s.Is24Hour, &s.TwentyFourHourApprover, &s.TwentyFourHourReason, &s.DuplicateApprover, &s.DuplicateReason,
		&extHours, &extReason, &extApprover, &extApproval, &extAuto, &extApprovedAt,
		&s.Status, &s.DeclineReason, &s.Notes, &s.ClockIn, &s.ClockOut, &s.CreatedAt, &s.Version,
	}
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}

	s.Date = domain.DateOnly(s.Date)
	if extHours.Valid {
		s.Extension = &domain.Extension{
			Hours:          extHours.Float64,
			Reason:         extReason,
			Approver:       extApprover,
			ApprovalReason: extApproval,
			AutoApproved:   extAuto,
			ApprovedAt:     extApprovedAt.Time,
		}
	}
	return s, nil
}

func scanShifts(rows *sql.Rows) ([]*domain.Shift, error) {
	defer rows.Close()

	shifts := make([]*domain.Shift, 0)
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return shifts, nil
}

// shiftArgs 返回除 id、created_at、version 以外的列值，顺序与 shiftColumns 一致
func shiftArgs(s *domain.Shift) []any {
	var (
		extHours      *float64
		extReason     string
		extApprover   string
		extApproval   string
		extAuto       bool
		extApprovedAt *time.Time
	)
	if s.Extension != nil {
		extHours = &s.Extension.Hours
		extReason = s.Extension.Reason
		extApprover = s.Extension.Approver
		extApproval = s.Extension.ApprovalReason
		extAuto = s.Extension.AutoApproved
		extApprovedAt = &s.Extension.ApprovedAt
	}
	return []any{
		s.SiteID, s.WorkerID, s.Date, s.StartTime, s.EndTime, s.StartsNextDay, s.Duration, s.Classification,
		s.Is24Hour, s.TwentyFourHourApprover, s.TwentyFourHourReason, s.DuplicateApprover, s.DuplicateReason,
		extHours, extReason, extApprover, extApproval, extAuto, extApprovedAt,
		s.Status, s.DeclineReason, s.Notes, s.ClockIn, s.ClockOut,
	}
}

func getShiftByID(ctx context.Context, q querier, id int64) (*domain.Shift, error) {
	query := `SELECT ` + shiftColumns + ` FROM shifts WHERE id = $1`
	s, err := scanShift(q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "班次", id)
	}
	return s, nil
}

func listShiftsBySiteAndDate(ctx context.Context, q querier, siteID int64, date time.Time, forUpdate bool) ([]*domain.Shift, error) {
	query := `SELECT ` + shiftColumns + ` FROM shifts WHERE site_id = $1 AND date = $2 ORDER BY id`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	rows, err := q.QueryContext(ctx, query, siteID, domain.DateOnly(date))
	if err != nil {
		return nil, err
	}
	return scanShifts(rows)
}

func (r *Repository) GetShiftByID(ctx context.Context, id int64) (*domain.Shift, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	return getShiftByID(ctx, r.dbpool, id)
}

func (r *Repository) ListShiftsBySiteAndDate(ctx context.Context, siteID int64, date time.Time) ([]*domain.Shift, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	return listShiftsBySiteAndDate(ctx, r.dbpool, siteID, date, false)
}

func (r *Repository) ListShiftsBetween(ctx context.Context, from, to time.Time) ([]*domain.Shift, error) {
	query := `SELECT ` + shiftColumns + ` FROM shifts WHERE date >= $1 AND date < $2 ORDER BY date, site_id, id`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, domain.DateOnly(from), domain.DateOnly(to))
	if err != nil {
		return nil, err
	}
	return scanShifts(rows)
}

// ListShifts siteID 为 nil 时返回所有站点的班次
func (r *Repository) ListShifts(ctx context.Context, from, to time.Time, siteID *int64) ([]*domain.Shift, error) {
	query := `
		SELECT ` + shiftColumns + ` FROM shifts
		WHERE date >= $1 AND date < $2 AND ($3::BIGINT IS NULL OR site_id = $3)
		ORDER BY date, site_id, classification, id
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, domain.DateOnly(from), domain.DateOnly(to), siteID)
	if err != nil {
		return nil, err
	}
	return scanShifts(rows)
}

// InTx 在一个事务中执行 fn，fn 返回错误时回滚
func (r *Repository) InTx(ctx context.Context, fn func(tx roster.ShiftWriter) error) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(&shiftTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

type shiftTx struct {
	tx *sql.Tx
}

func (t *shiftTx) GetShiftByID(ctx context.Context, id int64) (*domain.Shift, error) {
	return getShiftByID(ctx, t.tx, id)
}

// ListShiftsBySiteAndDate 锁定该站点当天的所有班次，直到事务结束
func (t *shiftTx) ListShiftsBySiteAndDate(ctx context.Context, siteID int64, date time.Time) ([]*domain.Shift, error) {
	return listShiftsBySiteAndDate(ctx, t.tx, siteID, date, true)
}

func (t *shiftTx) InsertShift(ctx context.Context, s *domain.Shift) error {
	query := `
		INSERT INTO shifts (
			site_id, worker_id, date, start_time, end_time, starts_next_day, duration, classification,
			is_24_hour, twenty_four_hour_approver, twenty_four_hour_reason, duplicate_approver, duplicate_reason,
			extension_hours, extension_reason, extension_approver, extension_approval_reason,
			extension_auto_approved, extension_approved_at,
			status, decline_reason, notes, clock_in, clock_out
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
		RETURNING id, created_at, version
	`

	if err := t.tx.QueryRowContext(ctx, query, shiftArgs(s)...).Scan(&s.ID, &s.CreatedAt, &s.Version); err != nil {
		return err
	}
	return nil
}

func (t *shiftTx) UpdateShift(ctx context.Context, s *domain.Shift) error {
	query := `
		UPDATE shifts
		SET
			site_id = $1, worker_id = $2, date = $3, start_time = $4, end_time = $5, starts_next_day = $6,
			duration = $7, classification = $8,
			is_24_hour = $9, twenty_four_hour_approver = $10, twenty_four_hour_reason = $11,
			duplicate_approver = $12, duplicate_reason = $13,
			extension_hours = $14, extension_reason = $15, extension_approver = $16,
			extension_approval_reason = $17, extension_auto_approved = $18, extension_approved_at = $19,
			status = $20, decline_reason = $21, notes = $22, clock_in = $23, clock_out = $24,
			version = version + 1
		WHERE id = $25 AND version = $26
		RETURNING version
	`

	args := append(shiftArgs(s), s.ID, s.Version)
	if err := t.tx.QueryRowContext(ctx, query, args...).Scan(&s.Version); err != nil {
		return versioned(ctx, t.tx, err, "shifts", "班次", s.ID)
	}
	return nil
}

func (t *shiftTx) DeleteShift(ctx context.Context, s *domain.Shift) error {
	query := `
		DELETE FROM shifts WHERE id = $1 AND version = $2 RETURNING id
	`

	var id int64
	if err := t.tx.QueryRowContext(ctx, query, s.ID, s.Version).Scan(&id); err != nil {
		return versioned(ctx, t.tx, err, "shifts", "班次", s.ID)
	}
	return nil
}
