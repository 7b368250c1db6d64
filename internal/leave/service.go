// Package leave 管理请假申请与年度假期余额。
package leave

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sysu-ecnc-dev/care-roster/backend/internal/domain"
)

type Store interface {
	GetWorkerByID(ctx context.Context, id int64) (*domain.Worker, error)
	GetLeaveRequestByID(ctx context.Context, id int64) (*domain.LeaveRequest, error)
	InsertLeaveRequest(ctx context.Context, r *domain.LeaveRequest) error
	// UpdateLeaveRequest 按 Version 做乐观锁检查
	UpdateLeaveRequest(ctx context.Context, r *domain.LeaveRequest) error
	// ListApprovedLeaveForWorker 返回与 [from, to) 有重叠的已批准假期
	ListApprovedLeaveForWorker(ctx context.Context, workerID int64, from, to time.Time) ([]*domain.LeaveRequest, error)
	// GetLeaveBalance 没有记录时返回 NotFound
	GetLeaveBalance(ctx context.Context, workerID int64, year int) (*domain.LeaveBalance, error)
	UpsertLeaveBalance(ctx context.Context, b *domain.LeaveBalance) error
}

// Notifier 请假审批结果的通知，失败只记录日志
type Notifier interface {
	LeaveReviewed(ctx context.Context, r *domain.LeaveRequest) error
}

type Service struct {
	store    Store
	policy   Policy
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(store Store, policy Policy, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, policy: policy, notifier: notifier, logger: logger, now: time.Now}
}

type SubmitCommand struct {
	WorkerID  int64
	StartDate time.Time
	EndDate   time.Time
	Reason    string
}

func (s *Service) Submit(ctx context.Context, cmd SubmitCommand) (*domain.LeaveRequest, error) {
	start, end := domain.DateOnly(cmd.StartDate), domain.DateOnly(cmd.EndDate)
	if end.Before(start) {
		return nil, domain.NewError(domain.KindValidationBlocking, "假期结束日期不能早于开始日期")
	}
	if _, err := s.store.GetWorkerByID(ctx, cmd.WorkerID); err != nil {
		return nil, err
	}

	days := int(end.Sub(start).Hours()/24) + 1
	r := &domain.LeaveRequest{
		WorkerID:   cmd.WorkerID,
		StartDate:  start,
		EndDate:    end,
		TotalDays:  days,
		TotalHours: float64(days) * s.policy.HoursPerDay,
		Reason:     cmd.Reason,
		Status:     domain.LeaveStatusPending,
	}
	if err := s.store.InsertLeaveRequest(ctx, r); err != nil {
		return nil, err
	}
	s.logger.Info("请假申请已提交", slog.Int64("leaveRequestID", r.ID), slog.Int64("workerID", r.WorkerID))
	return r, nil
}

type ReviewCommand struct {
	ID              int64
	Approve         bool
	ReviewedBy      string
	Notes           string
	RejectionReason string
}

// Review 审批请假申请，每个申请只能审批一次；随后重新计算涉及年份的假期余额
func (s *Service) Review(ctx context.Context, cmd ReviewCommand) (*domain.LeaveRequest, error) {
	if strings.TrimSpace(cmd.ReviewedBy) == "" {
		return nil, domain.NewError(domain.KindApprovalIncomplete, "必须填写审批人")
	}
	if !cmd.Approve && strings.TrimSpace(cmd.RejectionReason) == "" {
		return nil, domain.NewError(domain.KindApprovalIncomplete, "拒绝请假必须填写理由")
	}

	r, err := s.store.GetLeaveRequestByID(ctx, cmd.ID)
	if err != nil {
		return nil, err
	}
	if r.Status != domain.LeaveStatusPending {
		return nil, domain.NewError(domain.KindInvalidTransition, "请假申请 %d 已是 %s 状态", r.ID, r.Status)
	}

	now := s.now()
	r.ReviewedBy = strings.TrimSpace(cmd.ReviewedBy)
	r.ReviewNotes = cmd.Notes
	r.ReviewedAt = &now
	if cmd.Approve {
		r.Status = domain.LeaveStatusApproved
	} else {
		r.Status = domain.LeaveStatusRejected
		r.RejectionReason = cmd.RejectionReason
	}
	if err := s.store.UpdateLeaveRequest(ctx, r); err != nil {
		return nil, err
	}

	for year := r.StartDate.Year(); year <= r.EndDate.Year(); year++ {
		if _, err := s.CalculateBalance(ctx, r.WorkerID, year); err != nil {
			return nil, fmt.Errorf("重新计算假期余额失败: %w", err)
		}
	}

	s.logger.Info("请假申请已审批", slog.Int64("leaveRequestID", r.ID), slog.String("status", string(r.Status)))
	if s.notifier != nil {
		if err := s.notifier.LeaveReviewed(ctx, r); err != nil {
			s.logger.Error("发送请假审批通知失败", slog.Int64("leaveRequestID", r.ID), slog.String("error", err.Error()))
		}
	}
	return r, nil
}

// CalculateBalance 计算并保存员工在 year 年的假期余额，上一年的剩余小时数按上限结转
func (s *Service) CalculateBalance(ctx context.Context, workerID int64, year int) (*domain.LeaveBalance, error) {
	worker, err := s.store.GetWorkerByID(ctx, workerID)
	if err != nil {
		return nil, err
	}

	approved, err := s.store.ListApprovedLeaveForWorker(ctx, workerID, yearStart(year), yearStart(year+1))
	if err != nil {
		return nil, err
	}

	var carryOver float64
	prev, err := s.store.GetLeaveBalance(ctx, workerID, year-1)
	switch {
	case err == nil:
		carryOver = max(prev.HoursRemaining, 0)
	case !domain.IsKind(err, domain.KindNotFound):
		return nil, err
	}

	b := Accrue(worker, year, s.now(), approved, carryOver, s.policy)
	if err := s.store.UpsertLeaveBalance(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}
