package seed

import (
	"time"

	"github.com/sysu-ecnc-dev/care-roster/backend/internal/domain"
)

const (
	dayStart   = "08:00"
	nightStart = "20:00"
)

// WeekRota 为每个站点每天生成一个白班和一个夜班。
// 员工固定在一个 (站点, 班次类型) 上轮换，相邻两天同一类型的班次间隔正好 12 小时。
func WeekRota(sites []*domain.Site, workers []*domain.Worker, weekStart time.Time, days int) [][]*domain.Shift {
	slots := 2 * len(sites)
	if slots == 0 || len(workers) == 0 {
		return nil
	}

	// 每个时段分到的员工
	pools := make([][]*domain.Worker, slots)
	for i, w := range workers {
		pools[i%slots] = append(pools[i%slots], w)
	}

	start := domain.DateOnly(weekStart)
	out := make([][]*domain.Shift, 0, days)
	for d := 0; d < days; d++ {
		date := start.AddDate(0, 0, d)
		shifts := make([]*domain.Shift, 0, slots)
		for i, site := range sites {
			for k, times := range [][2]string{{dayStart, nightStart}, {nightStart, dayStart}} {
				pool := pools[2*i+k]
				s := &domain.Shift{
					SiteID:    site.ID,
					Date:      date,
					StartTime: times[0],
					EndTime:   times[1],
					Status:    domain.StatusPending,
				}
				// 没有分到员工的时段留作 bank 占位
				if len(pool) > 0 {
					id := pool[d%len(pool)].ID
					s.WorkerID = &id
				}
				shifts = append(shifts, s)
			}
		}
		out = append(out, shifts)
	}
	return out
}
