// Package payroll 按工资周期汇总员工的班次与假期，计算应发工资（税前）。
package payroll

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/sysu-ecnc-dev/care-roster/backend/internal/domain"
)

type Rates struct {
	// LeaveHourlyRate 假期按固定费率计算，与员工自身的费率无关
	LeaveHourlyRate  float64
	LeaveHoursPerDay float64
}

func DefaultRates() Rates {
	return Rates{
		LeaveHourlyRate:  12.50,
		LeaveHoursPerDay: 8,
	}
}

// LeaveDaysInPeriod 假期与周期重叠的天数，假期的起止日期都包含在内
func LeaveDaysInPeriod(req *domain.LeaveRequest, p Period) int {
	start := domain.DateOnly(req.StartDate)
	if start.Before(p.Start) {
		start = p.Start
	}
	end := domain.DateOnly(req.EndDate)
	if last := p.LastDay(); end.After(last) {
		end = last
	}
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}

// Compute 计算单个员工在周期内的工资。
// 所有已排班且未被拒绝的班次都计入工资，打卡不完整的班次另外列出供核实。
func Compute(worker *domain.Worker, p Period, shifts []*domain.Shift, leaves []*domain.LeaveRequest, rates Rates) *domain.PayBreakdown {
	b := &domain.PayBreakdown{
		WorkerID:    worker.ID,
		WorkerName:  worker.FullName,
		WorkerKind:  worker.Kind,
		PeriodStart: p.Start,
		PeriodEnd:   p.End,
		LeaveRate:   rates.LeaveHourlyRate,
		Unverified:  []domain.UnverifiedShift{},
	}

	for _, s := range shifts {
		if !s.AssignedTo(worker.ID) || s.IsDeclined() || !p.Contains(s.Date) {
			continue
		}
		b.ShiftCount++
		if s.Classification == domain.ClassificationNight {
			b.NightHours += s.Duration
		} else {
			b.DayHours += s.Duration
		}
		if s.ClockIn == nil || s.ClockOut == nil {
			b.Unverified = append(b.Unverified, domain.UnverifiedShift{
				ShiftID:         s.ID,
				SiteID:          s.SiteID,
				Date:            s.Date,
				Hours:           s.Duration,
				MissingClockIn:  s.ClockIn == nil,
				MissingClockOut: s.ClockOut == nil,
			})
		}
	}

	for _, req := range leaves {
		if req.WorkerID != worker.ID || !req.IsApproved() {
			continue
		}
		b.LeaveHours += float64(LeaveDaysInPeriod(req, p)) * rates.LeaveHoursPerDay
	}

	if worker.IsAgency() {
		b.HourlyRate = worker.HourlyRate
	} else {
		b.HourlyRate = worker.StandardRate
	}

	b.WorkedHours = b.DayHours + b.NightHours
	b.TotalHours = b.WorkedHours + b.LeaveHours
	b.WorkPay = domain.RoundMoney(b.WorkedHours * b.HourlyRate)
	b.LeavePay = domain.RoundMoney(b.LeaveHours * rates.LeaveHourlyRate)
	b.TotalPay = domain.RoundMoney(b.WorkPay + b.LeavePay)
	return b
}

// Source 工资计算所需的数据
type Source interface {
	GetWorkerByID(ctx context.Context, id int64) (*domain.Worker, error)
	ListWorkers(ctx context.Context) ([]*domain.Worker, error)
	ListShiftsBetween(ctx context.Context, from, to time.Time) ([]*domain.Shift, error)
	// ListApprovedLeaveBetween 返回与 [from, to) 有重叠的已批准假期
	ListApprovedLeaveBetween(ctx context.Context, from, to time.Time) ([]*domain.LeaveRequest, error)
}

type Calculator struct {
	source Source
	rates  Rates
	logger *slog.Logger
}

func NewCalculator(source Source, rates Rates, logger *slog.Logger) *Calculator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Calculator{source: source, rates: rates, logger: logger}
}

func (c *Calculator) load(ctx context.Context, p Period) ([]*domain.Shift, []*domain.LeaveRequest, error) {
	shifts, err := c.source.ListShiftsBetween(ctx, p.Start, p.End)
	if err != nil {
		return nil, nil, fmt.Errorf("读取班次失败: %w", err)
	}
	leaves, err := c.source.ListApprovedLeaveBetween(ctx, p.Start, p.End)
	if err != nil {
		return nil, nil, fmt.Errorf("读取假期失败: %w", err)
	}
	return shifts, leaves, nil
}

// CalculatePayPeriod 计算单个员工的工资，工时为 0 时也返回明细
func (c *Calculator) CalculatePayPeriod(ctx context.Context, workerID int64, p Period) (*domain.PayBreakdown, error) {
	worker, err := c.source.GetWorkerByID(ctx, workerID)
	if err != nil {
		return nil, err
	}
	shifts, leaves, err := c.load(ctx, p)
	if err != nil {
		return nil, err
	}
	return Compute(worker, p, shifts, leaves, c.rates), nil
}

// CalculatePayRun 计算所有员工的工资，总工时为 0 的员工不出现在结果中
func (c *Calculator) CalculatePayRun(ctx context.Context, p Period) ([]*domain.PayBreakdown, error) {
	workers, err := c.source.ListWorkers(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取员工失败: %w", err)
	}
	shifts, leaves, err := c.load(ctx, p)
	if err != nil {
		return nil, err
	}

	out := []*domain.PayBreakdown{}
	unverified := 0
	for _, w := range workers {
		b := Compute(w, p, shifts, leaves, c.rates)
		if b.TotalHours == 0 {
			continue
		}
		unverified += len(b.Unverified)
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WorkerName != out[j].WorkerName {
			return out[i].WorkerName < out[j].WorkerName
		}
		return out[i].WorkerID < out[j].WorkerID
	})

	c.logger.Info("工资计算完成", slog.String("period", p.String()), slog.Int("workers", len(out)), slog.Int("unverified", unverified))
	return out, nil
}
