// Package constraint 对一批候选班次进行约束检查。
//
// 检查是纯函数：输入候选班次与已提交的班次，输出分类后的冲突列表，不读写任何存储。
// 阻断类冲突（blocking）无法被审批覆盖；可升级类冲突（escalatable）在填写审批人与理由后可以提交。
package constraint

import (
	"fmt"
	"time"

	"github.com/sysu-ecnc-dev/care-roster/backend/internal/domain"
)

type Rules struct {
	MinRestHours      float64
	MaxWorkersPerSite int
}

func DefaultRules() Rules {
	return Rules{
		MinRestHours:      12,
		MaxWorkersPerSite: 4,
	}
}

type Input struct {
	Candidates []*domain.Shift
	Committed  []*domain.Shift
	// Workers 与 Sites 可以为空，为空时跳过可分配性检查
	Workers map[int64]*domain.Worker
	Sites   map[int64]*domain.Site
}

type Result struct {
	Valid      bool               `json:"valid"`
	Violations []domain.Violation `json:"errors"`
}

func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.IsBlocking() {
			return true
		}
	}
	return false
}

// EscalatableOnly 存在冲突且全部为可升级类
func (r Result) EscalatableOnly() bool {
	return len(r.Violations) > 0 && !r.HasBlocking()
}

type Checker struct {
	rules Rules
}

func New(rules Rules) *Checker {
	if rules.MinRestHours <= 0 {
		rules.MinRestHours = DefaultRules().MinRestHours
	}
	if rules.MaxWorkersPerSite <= 0 {
		rules.MaxWorkersPerSite = DefaultRules().MaxWorkersPerSite
	}
	return &Checker{rules: rules}
}

func (c *Checker) Rules() Rules {
	return c.rules
}

// Check 按优先级检查候选班次，出现阻断类冲突时不再检查可升级类规则
func (c *Checker) Check(in Input) Result {
	if vs := batchDuplicateWorkers(in.Candidates); len(vs) > 0 {
		return newResult(vs)
	}

	committed := effective(in.Committed)
	candidates := effective(in.Candidates)

	blocking := []domain.Violation{}
	for i, cand := range in.Candidates {
		if cand.IsDeclined() {
			continue
		}
		blocking = append(blocking, availability(i, cand, in)...)
		if cand.IsBank() {
			continue
		}
		if v, ok := doubleBooking(i, cand, committed); ok {
			blocking = append(blocking, v)
		} else if v, ok := siteExclusivity(i, cand, committed); ok {
			blocking = append(blocking, v)
		}
		if v, ok := c.restPeriod(i, cand, committed); ok {
			blocking = append(blocking, v)
		}
	}
	blocking = append(blocking, c.siteCap(in.Candidates, committed, candidates)...)
	if len(blocking) > 0 {
		return newResult(blocking)
	}

	return newResult(c.escalations(in.Candidates, committed, candidates))
}

func newResult(vs []domain.Violation) Result {
	if vs == nil {
		vs = []domain.Violation{}
	}
	return Result{Valid: len(vs) == 0, Violations: vs}
}

func effective(shifts []*domain.Shift) []*domain.Shift {
	out := make([]*domain.Shift, 0, len(shifts))
	for _, s := range shifts {
		if !s.IsDeclined() {
			out = append(out, s)
		}
	}
	return out
}

func violation(rule domain.Rule, sev domain.Severity, i int, s *domain.Shift, format string, args ...any) domain.Violation {
	return domain.Violation{
		Rule:           rule,
		Severity:       sev,
		CandidateIndex: i,
		SiteID:         s.SiteID,
		WorkerID:       s.WorkerID,
		Date:           s.Date,
		Classification: s.Classification,
		Message:        fmt.Sprintf(format, args...),
	}
}

func sameDate(a, b time.Time) bool {
	return domain.DateOnly(a).Equal(domain.DateOnly(b))
}

func sameShift(a, b *domain.Shift) bool {
	return a.ID != 0 && a.ID == b.ID
}

func overlapsClassification(a, b *domain.Shift) bool {
	return a.Covers(b.Classification) || b.Covers(a.Classification)
}

func batchDuplicateWorkers(candidates []*domain.Shift) []domain.Violation {
	vs := []domain.Violation{}
	seen := make(map[int64]int)
	for i, cand := range candidates {
		if cand.IsBank() {
			continue
		}
		if first, exists := seen[*cand.WorkerID]; exists {
			vs = append(vs, violation(domain.RuleBatchDuplicateWorker, domain.SeverityBlocking, i, cand,
				"员工 %d 在同一批次中出现多次（第 %d 项与第 %d 项）", *cand.WorkerID, first+1, i+1))
			continue
		}
		seen[*cand.WorkerID] = i
	}
	return vs
}

func availability(i int, cand *domain.Shift, in Input) []domain.Violation {
	vs := []domain.Violation{}
	if site, ok := in.Sites[cand.SiteID]; ok && !site.IsActive {
		vs = append(vs, violation(domain.RuleWorkerUnavailable, domain.SeverityBlocking, i, cand,
			"站点 %s 已停用", site.Name))
	}
	if cand.IsBank() {
		return vs
	}
	worker, ok := in.Workers[*cand.WorkerID]
	if !ok {
		return vs
	}
	if !worker.IsActive {
		vs = append(vs, violation(domain.RuleWorkerUnavailable, domain.SeverityBlocking, i, cand,
			"员工 %s 已停用", worker.FullName))
	} else if !worker.CoversDate(cand.Date) {
		vs = append(vs, violation(domain.RuleWorkerUnavailable, domain.SeverityBlocking, i, cand,
			"员工 %s 的派遣合同不覆盖 %s", worker.FullName, cand.Date.Format(time.DateOnly)))
	}
	return vs
}

// doubleBooking 同一员工在同一天同一时段已有班次
func doubleBooking(i int, cand *domain.Shift, committed []*domain.Shift) (domain.Violation, bool) {
	for _, s := range committed {
		if sameShift(s, cand) || !s.AssignedTo(*cand.WorkerID) || !sameDate(s.Date, cand.Date) {
			continue
		}
		if !overlapsClassification(s, cand) {
			continue
		}
		if s.SiteID != cand.SiteID {
			return violation(domain.RuleDoubleBooking, domain.SeverityBlocking, i, cand,
				"员工 %d 在 %s 的%s已在站点 %d 上班", *cand.WorkerID, cand.Date.Format(time.DateOnly), cand.Classification, s.SiteID), true
		}
		return violation(domain.RuleDoubleBooking, domain.SeverityBlocking, i, cand,
			"员工 %d 在 %s 的%s已被分配到该站点", *cand.WorkerID, cand.Date.Format(time.DateOnly), cand.Classification), true
	}
	return domain.Violation{}, false
}

// siteExclusivity 非 24 小时班次的员工当天只能在一个站点上班
func siteExclusivity(i int, cand *domain.Shift, committed []*domain.Shift) (domain.Violation, bool) {
	if cand.Is24Hour {
		return domain.Violation{}, false
	}
	for _, s := range committed {
		if sameShift(s, cand) || !s.AssignedTo(*cand.WorkerID) || !sameDate(s.Date, cand.Date) {
			continue
		}
		if s.SiteID != cand.SiteID {
			return violation(domain.RuleSiteExclusivity, domain.SeverityBlocking, i, cand,
				"员工 %d 在 %s 已在站点 %d 上班，不能同时分配到站点 %d", *cand.WorkerID, cand.Date.Format(time.DateOnly), s.SiteID, cand.SiteID), true
		}
	}
	return domain.Violation{}, false
}

// restPeriod 员工相邻两个班次之间的间隔必须不少于 MinRestHours，重叠或无关的班次忽略
func (c *Checker) restPeriod(i int, cand *domain.Shift, committed []*domain.Shift) (domain.Violation, bool) {
	minRest := domain.HoursToDuration(c.rules.MinRestHours)
	var closest time.Duration
	found := false

	for _, s := range committed {
		if sameShift(s, cand) || !s.AssignedTo(*cand.WorkerID) {
			continue
		}
		for _, gap := range []time.Duration{
			cand.StartAt().Sub(s.EndAt()),
			s.StartAt().Sub(cand.EndAt()),
		} {
			if gap <= 0 || gap >= minRest {
				continue
			}
			if !found || gap < closest {
				closest = gap
				found = true
			}
		}
	}

	if !found {
		return domain.Violation{}, false
	}
	return violation(domain.RuleRestPeriod, domain.SeverityBlocking, i, cand,
		"员工 %d 两个班次之间仅间隔 %.1f 小时，少于 %.0f 小时", *cand.WorkerID, closest.Hours(), c.rules.MinRestHours), true
}

type slotKey struct {
	siteID int64
	date   time.Time
}

func keyOf(s *domain.Shift) slotKey {
	return slotKey{siteID: s.SiteID, date: domain.DateOnly(s.Date)}
}

func groupBySlot(shifts ...[]*domain.Shift) map[slotKey][]*domain.Shift {
	m := make(map[slotKey][]*domain.Shift)
	for _, list := range shifts {
		for _, s := range list {
			k := keyOf(s)
			m[k] = append(m[k], s)
		}
	}
	return m
}

// withoutReplaced 去掉与候选班次 ID 相同的已提交班次，编辑时候选班次替代原班次
func withoutReplaced(committed, candidates []*domain.Shift) []*domain.Shift {
	out := make([]*domain.Shift, 0, len(committed))
	for _, s := range committed {
		replaced := false
		for _, cand := range candidates {
			if sameShift(s, cand) {
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, s)
		}
	}
	return out
}

// siteCap 每个站点每天最多 MaxWorkersPerSite 个未拒绝的班次
func (c *Checker) siteCap(all, committed, candidates []*domain.Shift) []domain.Violation {
	vs := []domain.Violation{}
	slots := groupBySlot(withoutReplaced(committed, candidates), candidates)
	reported := make(map[slotKey]bool)

	for i, cand := range all {
		if cand.IsDeclined() {
			continue
		}
		k := keyOf(cand)
		if reported[k] {
			continue
		}
		if n := len(slots[k]); n > c.rules.MaxWorkersPerSite {
			reported[k] = true
			vs = append(vs, violation(domain.RuleSiteCap, domain.SeverityBlocking, i, cand,
				"站点 %d 在 %s 将有 %d 人，超过上限 %d 人", cand.SiteID, cand.Date.Format(time.DateOnly), n, c.rules.MaxWorkersPerSite))
		}
	}
	return vs
}

func approved(s *domain.Shift) bool {
	return s.DuplicateApprover != "" && s.DuplicateReason != ""
}

// escalations 重复班次与多人班次需要审批
func (c *Checker) escalations(all, committed, candidates []*domain.Shift) []domain.Violation {
	vs := []domain.Violation{}
	slots := groupBySlot(withoutReplaced(committed, candidates), candidates)

	type seenKey struct {
		slot slotKey
		rule domain.Rule
		cls  domain.Classification
	}
	seen := make(map[seenKey]bool)

	for i, cand := range all {
		if cand.IsDeclined() || approved(cand) {
			continue
		}
		k := keyOf(cand)
		slot := slots[k]

		for _, cls := range []domain.Classification{domain.ClassificationDay, domain.ClassificationNight} {
			if !cand.Covers(cls) {
				continue
			}
			n := 0
			for _, s := range slot {
				if s.Covers(cls) {
					n++
				}
			}
			sk := seenKey{slot: k, rule: domain.RuleDuplicateShift, cls: cls}
			if n == 2 && !seen[sk] {
				seen[sk] = true
				v := violation(domain.RuleDuplicateShift, domain.SeverityEscalatable, i, cand,
					"站点 %d 在 %s 的%s将有 2 人，需要审批", cand.SiteID, cand.Date.Format(time.DateOnly), cls)
				v.Classification = cls
				vs = append(vs, v)
			}
		}

		sk := seenKey{slot: k, rule: domain.RuleMultiWorker}
		if n := len(slot); n >= 3 && n <= c.rules.MaxWorkersPerSite && !seen[sk] {
			seen[sk] = true
			vs = append(vs, violation(domain.RuleMultiWorker, domain.SeverityEscalatable, i, cand,
				"站点 %d 在 %s 将有 %d 人，需要审批", cand.SiteID, cand.Date.Format(time.DateOnly), n))
		}
	}
	return vs
}
