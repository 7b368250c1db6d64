package roster

import (
	"context"
	"log/slog"

	"github.com/sysu-ecnc-dev/care-roster/backend/internal/domain"
)

// stillCovered 其他未拒绝的班次仍然覆盖 target 占据的所有时段
func stillCovered(target *domain.Shift, others []*domain.Shift) bool {
	for _, cls := range []domain.Classification{domain.ClassificationDay, domain.ClassificationNight} {
		if !target.Covers(cls) {
			continue
		}
		covered := false
		for _, s := range others {
			if s.Covers(cls) {
				covered = true
				break
			}
		}
		if !covered {
			return false
		}
	}
	return true
}

// findOpposite 返回同一站点同一天另一类型的班次
func findOpposite(target *domain.Shift, others []*domain.Shift) *domain.Shift {
	if target.Is24Hour {
		return nil
	}
	for _, s := range others {
		if !s.Is24Hour && s.Classification == target.Classification.Opposite() {
			return s
		}
	}
	return nil
}

func coverageConflict(target, opposite *domain.Shift) *domain.Error {
	if opposite == nil {
		e := domain.NewError(domain.KindCoverageConflict,
			"删除班次 %d 会使站点 %d 在 %s 没有任何人值班，请先安排替班", target.ID, target.SiteID, target.Date.Format("2006-01-02"))
		e.Options = []domain.ResolutionKind{domain.ResolutionReplace, domain.ResolutionAbort}
		return e
	}
	e := domain.NewError(domain.KindCoverageConflict,
		"删除班次 %d 会使站点 %d 在 %s 的%s出现空缺", target.ID, target.SiteID, target.Date.Format("2006-01-02"), target.Classification)
	e.Options = []domain.ResolutionKind{
		domain.ResolutionReplace,
		domain.ResolutionConvertTo24h,
		domain.ResolutionAbort,
		domain.ResolutionDeleteBoth,
	}
	return e
}

// Remove 删除班次。删除会产生空缺时必须提供处理方式，否则返回 CoverageConflict，不做任何修改。
func (m *Manager) Remove(ctx context.Context, cmd RemoveShiftCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	target, err := m.store.GetShiftByID(ctx, cmd.ShiftID)
	if err != nil {
		return err
	}
	if cmd.Resolution != nil && cmd.Resolution.Kind == domain.ResolutionAbort {
		return nil
	}

	unlock, err := m.lockSlots(ctx, target)
	if err != nil {
		return err
	}
	defer unlock()

	slot, err := m.store.ListShiftsBySiteAndDate(ctx, target.SiteID, target.Date)
	if err != nil {
		return err
	}
	others := []*domain.Shift{}
	for _, s := range slot {
		if s.ID != target.ID && !s.IsDeclined() {
			others = append(others, s)
		}
	}

	if target.IsDeclined() || stillCovered(target, others) {
		return m.deleteShifts(ctx, "", target)
	}

	opposite := findOpposite(target, others)
	if cmd.Resolution == nil {
		return coverageConflict(target, opposite)
	}

	switch cmd.Resolution.Kind {
	case domain.ResolutionReplace:
		return m.replace(ctx, target, cmd.Resolution)
	case domain.ResolutionConvertTo24h:
		if opposite == nil {
			return domain.NewError(domain.KindInvalidTransition, "站点当天没有可以转换为 24 小时班次的对班")
		}
		return m.convertOpposite(ctx, target, opposite, cmd.Resolution)
	case domain.ResolutionDeleteBoth:
		if opposite == nil {
			return domain.NewError(domain.KindInvalidTransition, "站点当天没有对班可以一并删除")
		}
		return m.deleteShifts(ctx, cmd.Resolution.Reason, target, opposite)
	}
	return nil
}

func (m *Manager) deleteShifts(ctx context.Context, reason string, shifts ...*domain.Shift) error {
	if err := m.store.InTx(ctx, func(tx ShiftWriter) error {
		for _, s := range shifts {
			if err := tx.DeleteShift(ctx, s); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}

	for _, s := range shifts {
		m.logger.Info("班次已删除", slog.Int64("shiftID", s.ID), slog.String("reason", reason))
	}
	m.notify(ctx, ShiftEvent{Type: EventRemoved, Removed: shifts, Reason: reason})
	return nil
}

// replace 删除目标班次并在同一时段安排替班
func (m *Manager) replace(ctx context.Context, target *domain.Shift, res *Resolution) error {
	replacement := target.Clone()
	replacement.ID = 0
	replacement.WorkerID = res.ReplacementWorkerID
	replacement.Status = domain.StatusPending
	replacement.DeclineReason = ""
	replacement.ClockIn = nil
	replacement.ClockOut = nil
	replacement.DuplicateApprover = ""
	replacement.DuplicateReason = ""

	in, err := m.snapshot(ctx, []*domain.Shift{replacement})
	if err != nil {
		return err
	}
	in.Committed = excluding(in.Committed, target.ID)
	if err := m.checkWithApproval(in, res.Approval); err != nil {
		return err
	}

	if err := m.store.InTx(ctx, func(tx ShiftWriter) error {
		if err := tx.DeleteShift(ctx, target); err != nil {
			return err
		}
		if err := m.recheckCap(ctx, tx, replacement); err != nil {
			return err
		}
		return tx.InsertShift(ctx, replacement)
	}); err != nil {
		return err
	}

	m.logger.Info("班次已替换", slog.Int64("shiftID", target.ID), slog.Int64("replacementID", replacement.ID))
	m.notify(ctx, ShiftEvent{Type: EventReplaced, Shifts: []*domain.Shift{replacement}, Removed: []*domain.Shift{target}})
	return nil
}

// convertOpposite 删除目标班次，并将对班转换为 24 小时班次
func (m *Manager) convertOpposite(ctx context.Context, target, opposite *domain.Shift, res *Resolution) error {
	if err := res.Approval.Validate(); err != nil {
		return err
	}
	converted, err := toTwentyFourHour(opposite, res.Approval)
	if err != nil {
		return err
	}

	in, err := m.snapshot(ctx, []*domain.Shift{converted})
	if err != nil {
		return err
	}
	in.Committed = excluding(in.Committed, target.ID)
	if err := m.checkWithApproval(in, res.Approval); err != nil {
		return err
	}

	if err := m.store.InTx(ctx, func(tx ShiftWriter) error {
		if err := tx.DeleteShift(ctx, target); err != nil {
			return err
		}
		return tx.UpdateShift(ctx, converted)
	}); err != nil {
		return err
	}

	m.logger.Info("班次已删除，对班转换为 24 小时班次", slog.Int64("shiftID", target.ID), slog.Int64("convertedID", converted.ID))
	m.notify(ctx, ShiftEvent{Type: EventConverted, Shifts: []*domain.Shift{converted}, Removed: []*domain.Shift{target}})
	return nil
}
