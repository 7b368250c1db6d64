package leave

import (
	"math"
	"time"

	"github.com/sysu-ecnc-dev/care-roster/backend/internal/domain"
)

type Policy struct {
	HoursPerQuarter   float64
	HoursPerDay       float64
	MaxCarryOverHours float64
}

func DefaultPolicy() Policy {
	return Policy{
		HoursPerQuarter:   28,
		HoursPerDay:       8,
		MaxCarryOverHours: 40,
	}
}

// EntitlementHours 一整年可以累积的假期小时数
func (p Policy) EntitlementHours() float64 {
	return 4 * p.HoursPerQuarter
}

func yearStart(year int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// monthsBetween 从 from 到 to 经过的完整月数
func monthsBetween(from, to time.Time) int {
	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if to.Day() < from.Day() {
		months--
	}
	return max(months, 0)
}

// DaysInYear 假期落在指定年份内的天数
func DaysInYear(req *domain.LeaveRequest, year int) int {
	start := domain.DateOnly(req.StartDate)
	if ys := yearStart(year); start.Before(ys) {
		start = ys
	}
	end := domain.DateOnly(req.EndDate)
	if ye := yearStart(year + 1).AddDate(0, 0, -1); end.After(ye) {
		end = ye
	}
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}

// Accrue 计算员工在 year 年截至 asOf 的假期余额。
// 每完成一个季度（从入职日或年初起算，取较晚者）累积 HoursPerQuarter 小时，不超过全年额度。
func Accrue(worker *domain.Worker, year int, asOf time.Time, approved []*domain.LeaveRequest, carryOver float64, p Policy) *domain.LeaveBalance {
	b := &domain.LeaveBalance{
		WorkerID:         worker.ID,
		Year:             year,
		EntitlementHours: p.EntitlementHours(),
		CarryOverHours:   math.Min(carryOver, p.MaxCarryOverHours),
		UpdatedAt:        asOf,
	}

	windowStart := yearStart(year)
	if s := worker.ServiceStart(); s.After(windowStart) {
		windowStart = s
	}
	windowEnd := domain.DateOnly(asOf)
	if ye := yearStart(year + 1); windowEnd.After(ye) {
		windowEnd = ye
	}

	if windowEnd.After(windowStart) {
		b.QuartersCompleted = monthsBetween(windowStart, windowEnd) / 3
	}
	b.HoursAccrued = math.Min(float64(b.QuartersCompleted)*p.HoursPerQuarter, b.EntitlementHours)

	for _, req := range approved {
		if req.WorkerID != worker.ID || !req.IsApproved() {
			continue
		}
		b.HoursUsed += float64(DaysInYear(req, year)) * p.HoursPerDay
	}
	b.HoursRemaining = b.HoursAccrued + b.CarryOverHours - b.HoursUsed

	if b.HoursAccrued < b.EntitlementHours {
		next := windowStart.AddDate(0, 3*(b.QuartersCompleted+1), 0)
		if next.Before(yearStart(year + 1)) {
			b.NextAccrualDate = &next
			b.NextAccrualHours = math.Min(p.HoursPerQuarter, b.EntitlementHours-b.HoursAccrued)
		}
	}
	return b
}
