package roster

import (
	"context"
	"log/slog"

	"github.com/sysu-ecnc-dev/care-roster/backend/internal/approval"
	"github.com/sysu-ecnc-dev/care-roster/backend/internal/domain"
)

// twentyFourHourStart 24 小时班次从白班开始，覆盖当天的白班与夜班
const twentyFourHourStart = "08:00"

func (m *Manager) getActiveShift(ctx context.Context, id int64) (*domain.Shift, error) {
	s, err := m.store.GetShiftByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.IsDeclined() {
		return nil, domain.NewError(domain.KindInvalidTransition, "班次 %d 已被拒绝，只能替换或删除", id)
	}
	return s, nil
}

// Split 在 splitTime 处将班次拆成两段：前一段保留原员工，后一段分配给新员工并处于 pending 状态。
// 延长时间保留在后一段，原班次在同一事务中被删除。
func (m *Manager) Split(ctx context.Context, cmd SplitShiftCommand) ([]*domain.Shift, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	orig, err := m.getActiveShift(ctx, cmd.ShiftID)
	if err != nil {
		return nil, err
	}

	startMin, err := domain.ParseClock(orig.StartTime)
	if err != nil {
		return nil, invalidShift("%s", err.Error())
	}
	splitMin, _ := domain.ParseClock(cmd.SplitTime)
	offset := splitMin - startMin
	if offset <= 0 {
		offset += 24 * 60
	}
	if base := orig.Duration - orig.ExtensionHours(); float64(offset)/60 >= base {
		return nil, invalidShift("拆分时间 %s 必须在班次 %s-%s 之内", cmd.SplitTime, orig.StartTime, orig.EndTime)
	}

	first := orig.Clone()
	first.ID = 0
	first.EndTime = cmd.SplitTime
	first.Extension = nil
	first.ClockOut = nil
	clearTwentyFourHour(first)

	second := orig.Clone()
	second.ID = 0
	second.StartTime = cmd.SplitTime
	second.WorkerID = cmd.NewWorkerID
	second.Status = domain.StatusPending
	second.DeclineReason = ""
	second.Notes = cmd.Notes
	second.ClockIn = nil
	second.ClockOut = nil
	second.StartsNextDay = orig.StartsNextDay || splitMin < startMin
	clearTwentyFourHour(second)

	for _, s := range []*domain.Shift{first, second} {
		if err := s.Normalize(); err != nil {
			return nil, invalidShift("%s", err.Error())
		}
	}

	unlock, err := m.lockSlots(ctx, orig)
	if err != nil {
		return nil, err
	}
	defer unlock()

	parts := []*domain.Shift{first, second}
	in, err := m.snapshot(ctx, parts)
	if err != nil {
		return nil, err
	}
	in.Committed = excluding(in.Committed, orig.ID)
	// 两段按时间先后覆盖同一时段，不属于重复班次
	if err := m.checkBlocking(in); err != nil {
		return nil, err
	}

	err = m.store.InTx(ctx, func(tx ShiftWriter) error {
		if err := tx.DeleteShift(ctx, orig); err != nil {
			return err
		}
		for _, s := range parts {
			if err := m.recheckCap(ctx, tx, s); err != nil {
				return err
			}
			if err := tx.InsertShift(ctx, s); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("班次已拆分", slog.Int64("shiftID", orig.ID), slog.String("splitTime", cmd.SplitTime))
	m.notify(ctx, ShiftEvent{Type: EventSplit, Shifts: parts, Removed: []*domain.Shift{orig}})
	return parts, nil
}

func clearTwentyFourHour(s *domain.Shift) {
	s.Is24Hour = false
	s.TwentyFourHourApprover = ""
	s.TwentyFourHourReason = ""
}

// Extend 在班次结束后追加小时数，开始/结束时间不变，时长是计算工资的依据
func (m *Manager) Extend(ctx context.Context, cmd ExtendShiftCommand) (*domain.Shift, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	orig, err := m.getActiveShift(ctx, cmd.ShiftID)
	if err != nil {
		return nil, err
	}

	ext, err := m.extensions.Decide(orig.ExtensionHours()+cmd.Hours, cmd.Reason, cmd.Approval, m.now())
	if err != nil {
		return nil, err
	}
	updated := orig.Clone()
	updated.Extension = ext
	if err := updated.Normalize(); err != nil {
		return nil, invalidShift("%s", err.Error())
	}

	unlock, err := m.lockSlots(ctx, updated)
	if err != nil {
		return nil, err
	}
	defer unlock()

	in, err := m.snapshot(ctx, []*domain.Shift{updated})
	if err != nil {
		return nil, err
	}
	if err := m.checkBlocking(in); err != nil {
		return nil, err
	}

	if err := m.store.InTx(ctx, func(tx ShiftWriter) error {
		return tx.UpdateShift(ctx, updated)
	}); err != nil {
		return nil, err
	}

	m.logger.Info("班次已延长", slog.Int64("shiftID", updated.ID), slog.Float64("hours", ext.Hours), slog.Bool("autoApproved", ext.AutoApproved))
	m.notify(ctx, ShiftEvent{Type: EventExtended, Shifts: []*domain.Shift{updated}})
	return updated, nil
}

// Edit 修改日期或开始/结束时间，重新计算时长与类型，已批准的延长时间保持不变。
// 移出原时段时，原时段必须仍有人覆盖，否则返回 CoverageConflict；重复班次的审批不随班次移动。
func (m *Manager) Edit(ctx context.Context, cmd EditShiftCommand) (*domain.Shift, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	orig, err := m.store.GetShiftByID(ctx, cmd.ShiftID)
	if err != nil {
		return nil, err
	}
	if orig.Is24Hour && (cmd.StartTime != nil || cmd.EndTime != nil) {
		return nil, invalidShift("24 小时班次的开始与结束时间固定为 %s", twentyFourHourStart)
	}

	updated := orig.Clone()
	if cmd.Date != nil {
		updated.Date = *cmd.Date
	}
	if cmd.StartTime != nil {
		updated.StartTime = *cmd.StartTime
	}
	if cmd.EndTime != nil {
		updated.EndTime = *cmd.EndTime
	}
	if cmd.Notes != nil {
		updated.Notes = *cmd.Notes
	}
	if err := updated.Normalize(); err != nil {
		return nil, invalidShift("%s", err.Error())
	}
	moved := !sameSlot(orig, updated)
	if moved {
		updated.DuplicateApprover = ""
		updated.DuplicateReason = ""
	}

	unlock, err := m.lockSlots(ctx, orig, updated)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if moved && !orig.IsDeclined() {
		if err := m.checkVacated(ctx, orig, updated); err != nil {
			return nil, err
		}
	}

	in, err := m.snapshot(ctx, []*domain.Shift{updated})
	if err != nil {
		return nil, err
	}
	if err := m.checkWithApproval(in, cmd.Approval); err != nil {
		return nil, err
	}

	if err := m.store.InTx(ctx, func(tx ShiftWriter) error {
		if err := m.recheckCap(ctx, tx, updated); err != nil {
			return err
		}
		return tx.UpdateShift(ctx, updated)
	}); err != nil {
		return nil, err
	}

	m.logger.Info("班次已修改", slog.Int64("shiftID", updated.ID))
	m.notify(ctx, ShiftEvent{Type: EventEdited, Shifts: []*domain.Shift{updated}})
	return updated, nil
}

// sameSlot 两个班次占据同一站点同一天的同一类型时段
func sameSlot(a, b *domain.Shift) bool {
	return a.SiteID == b.SiteID &&
		domain.DateOnly(a.Date).Equal(domain.DateOnly(b.Date)) &&
		a.Classification == b.Classification &&
		a.Is24Hour == b.Is24Hour
}

// checkVacated 班次移出后，原时段必须仍被其他班次或移动后的班次覆盖
func (m *Manager) checkVacated(ctx context.Context, orig, updated *domain.Shift) error {
	slot, err := m.store.ListShiftsBySiteAndDate(ctx, orig.SiteID, orig.Date)
	if err != nil {
		return err
	}
	others := []*domain.Shift{}
	for _, s := range slot {
		if s.ID != orig.ID && !s.IsDeclined() {
			others = append(others, s)
		}
	}

	remaining := others
	if updated.SiteID == orig.SiteID && domain.DateOnly(updated.Date).Equal(domain.DateOnly(orig.Date)) {
		remaining = append(append([]*domain.Shift{}, others...), updated)
	}
	if stillCovered(orig, remaining) {
		return nil
	}
	return coverageConflict(orig, findOpposite(orig, others))
}

func toTwentyFourHour(s *domain.Shift, a *approval.Approval) (*domain.Shift, error) {
	out := s.Clone()
	a.StampTwentyFourHour(out)
	out.StartTime = twentyFourHourStart
	out.EndTime = twentyFourHourStart
	out.StartsNextDay = false
	if err := out.Normalize(); err != nil {
		return nil, invalidShift("%s", err.Error())
	}
	return out, nil
}

// ConvertTo24h 将班次转换为经过审批的 24 小时班次
func (m *Manager) ConvertTo24h(ctx context.Context, shiftID int64, a *approval.Approval) (*domain.Shift, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	orig, err := m.getActiveShift(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	if orig.Is24Hour {
		return nil, domain.NewError(domain.KindInvalidTransition, "班次 %d 已经是 24 小时班次", shiftID)
	}
	updated, err := toTwentyFourHour(orig, a)
	if err != nil {
		return nil, err
	}

	unlock, err := m.lockSlots(ctx, updated)
	if err != nil {
		return nil, err
	}
	defer unlock()

	in, err := m.snapshot(ctx, []*domain.Shift{updated})
	if err != nil {
		return nil, err
	}
	if err := m.checkWithApproval(in, a); err != nil {
		return nil, err
	}

	if err := m.store.InTx(ctx, func(tx ShiftWriter) error {
		return tx.UpdateShift(ctx, updated)
	}); err != nil {
		return nil, err
	}

	m.logger.Info("班次已转换为 24 小时班次", slog.Int64("shiftID", updated.ID), slog.String("approver", a.Approver))
	m.notify(ctx, ShiftEvent{Type: EventConverted, Shifts: []*domain.Shift{updated}})
	return updated, nil
}

// UpdateStatus 员工对 pending 班次的答复，accepted 与 declined 都是终态
func (m *Manager) UpdateStatus(ctx context.Context, cmd UpdateStatusCommand) (*domain.Shift, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	orig, err := m.store.GetShiftByID(ctx, cmd.ShiftID)
	if err != nil {
		return nil, err
	}
	if orig.IsBank() {
		return nil, domain.NewError(domain.KindInvalidTransition, "班次 %d 是 bank 占位，没有员工可以答复", orig.ID)
	}
	if orig.Status != domain.StatusPending {
		return nil, domain.NewError(domain.KindInvalidTransition, "班次 %d 已是 %s 状态，不能再修改", orig.ID, orig.Status)
	}

	updated := orig.Clone()
	updated.Status = cmd.Status
	if cmd.Status == domain.StatusDeclined {
		updated.DeclineReason = cmd.Reason
	}

	if err := m.store.InTx(ctx, func(tx ShiftWriter) error {
		return tx.UpdateShift(ctx, updated)
	}); err != nil {
		return nil, err
	}

	m.logger.Info("班次状态已更新", slog.Int64("shiftID", updated.ID), slog.String("status", string(updated.Status)))
	m.notify(ctx, ShiftEvent{Type: EventStatusChanged, Shifts: []*domain.Shift{updated}, Reason: cmd.Reason})
	return updated, nil
}

// RecordPunch 记录打卡时间，仅用于未核实班次报表，不影响工资
func (m *Manager) RecordPunch(ctx context.Context, cmd PunchCommand) (*domain.Shift, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	orig, err := m.getActiveShift(ctx, cmd.ShiftID)
	if err != nil {
		return nil, err
	}

	updated := orig.Clone()
	at := cmd.At
	switch cmd.Kind {
	case PunchIn:
		if updated.ClockOut != nil && at.After(*updated.ClockOut) {
			return nil, invalidShift("上班打卡时间不能晚于下班打卡时间")
		}
		updated.ClockIn = &at
	case PunchOut:
		if updated.ClockIn != nil && at.Before(*updated.ClockIn) {
			return nil, invalidShift("下班打卡时间不能早于上班打卡时间")
		}
		updated.ClockOut = &at
	}

	if err := m.store.InTx(ctx, func(tx ShiftWriter) error {
		return tx.UpdateShift(ctx, updated)
	}); err != nil {
		return nil, err
	}
	return updated, nil
}
