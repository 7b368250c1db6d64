package payroll

import (
	"fmt"
	"time"

	"github.com/sysu-ecnc-dev/care-roster/backend/internal/domain"
)

// cycleDay 月度工资周期从每月 14 日开始
const cycleDay = 14

// Period 半开区间 [Start, End)，按班次日期划分
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func NewPeriod(start, end time.Time) (Period, error) {
	p := Period{Start: domain.DateOnly(start), End: domain.DateOnly(end)}
	if !p.End.After(p.Start) {
		return Period{}, domain.NewError(domain.KindValidationBlocking, "工资周期的结束日期必须晚于开始日期")
	}
	return p, nil
}

func (p Period) Contains(date time.Time) bool {
	d := domain.DateOnly(date)
	return !d.Before(p.Start) && d.Before(p.End)
}

// LastDay 周期内的最后一天
func (p Period) LastDay() time.Time {
	return p.End.AddDate(0, 0, -1)
}

func (p Period) String() string {
	return fmt.Sprintf("%s ~ %s", p.Start.Format(time.DateOnly), p.LastDay().Format(time.DateOnly))
}

// WeekContaining 返回 date 所在的周一至周日
func WeekContaining(date time.Time) Period {
	d := domain.DateOnly(date)
	offset := (int(d.Weekday()) + 6) % 7
	start := d.AddDate(0, 0, -offset)
	return Period{Start: start, End: start.AddDate(0, 0, 7)}
}

// CycleContaining 返回 date 所在的 14 日至次月 14 日周期
func CycleContaining(date time.Time) Period {
	d := domain.DateOnly(date)
	start := time.Date(d.Year(), d.Month(), cycleDay, 0, 0, 0, 0, time.UTC)
	if d.Day() < cycleDay {
		start = start.AddDate(0, -1, 0)
	}
	return Period{Start: start, End: start.AddDate(0, 1, 0)}
}
