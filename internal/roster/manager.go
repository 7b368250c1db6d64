// Package roster 管理班次的生命周期：新建、拆分、延长、编辑、删除与员工答复。
//
// 所有修改都经过约束检查，并在一个事务中提交；提交成功后通知 Observer。
package roster

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/sysu-ecnc-dev/care-roster/backend/internal/approval"
	"github.com/sysu-ecnc-dev/care-roster/backend/internal/constraint"
	"github.com/sysu-ecnc-dev/care-roster/backend/internal/domain"
)

// snapshotMarginDays 读取候选班次前后若干天的已提交班次，足以覆盖最长班次加休息间隔
const snapshotMarginDays = 3

type Manager struct {
	store      Store
	locker     Locker
	batches    BatchStore
	observer   Observer
	workflow   *approval.Workflow
	extensions approval.ExtensionPolicy
	logger     *slog.Logger
	now        func() time.Time
}

// NewManager locker、batches 与 observer 可以为 nil；batches 为 nil 时需要审批的批次无法挂起
func NewManager(
	store Store,
	workflow *approval.Workflow,
	extensions approval.ExtensionPolicy,
	locker Locker,
	batches BatchStore,
	observer Observer,
	logger *slog.Logger,
) *Manager {
	if locker == nil {
		locker = nopLocker{}
	}
	if observer == nil {
		observer = nopObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:      store,
		locker:     locker,
		batches:    batches,
		observer:   observer,
		workflow:   workflow,
		extensions: extensions,
		logger:     logger,
		now:        time.Now,
	}
}

func (m *Manager) maxWorkersPerSite() int {
	return m.workflow.Checker().Rules().MaxWorkersPerSite
}

// snapshot 读取与候选班次相关的已提交班次、员工与站点
func (m *Manager) snapshot(ctx context.Context, candidates []*domain.Shift) (constraint.Input, error) {
	in := constraint.Input{Candidates: candidates}
	if len(candidates) == 0 {
		return in, nil
	}

	from, to := candidates[0].Date, candidates[0].Date
	workerIDs := []int64{}
	siteIDs := []int64{}
	for _, s := range candidates {
		if s.Date.Before(from) {
			from = s.Date
		}
		if s.Date.After(to) {
			to = s.Date
		}
		if s.WorkerID != nil {
			workerIDs = append(workerIDs, *s.WorkerID)
		}
		siteIDs = append(siteIDs, s.SiteID)
	}

	committed, err := m.store.ListShiftsBetween(ctx,
		domain.DateOnly(from).AddDate(0, 0, -snapshotMarginDays),
		domain.DateOnly(to).AddDate(0, 0, snapshotMarginDays+1))
	if err != nil {
		return in, fmt.Errorf("读取已提交班次失败: %w", err)
	}
	in.Committed = committed

	if in.Workers, err = m.store.GetWorkersByIDs(ctx, workerIDs); err != nil {
		return in, fmt.Errorf("读取员工失败: %w", err)
	}
	for _, id := range workerIDs {
		if _, ok := in.Workers[id]; !ok {
			return in, domain.NotFound("员工", id)
		}
	}
	if in.Sites, err = m.store.GetSitesByIDs(ctx, siteIDs); err != nil {
		return in, fmt.Errorf("读取站点失败: %w", err)
	}
	for _, id := range siteIDs {
		if _, ok := in.Sites[id]; !ok {
			return in, domain.NotFound("站点", id)
		}
	}
	return in, nil
}

func excluding(shifts []*domain.Shift, ids ...int64) []*domain.Shift {
	out := make([]*domain.Shift, 0, len(shifts))
	for _, s := range shifts {
		skip := false
		for _, id := range ids {
			if s.ID == id {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, s)
		}
	}
	return out
}

// lockSlots 按固定顺序锁定所有涉及的 (站点, 日期)，避免互相等待
func (m *Manager) lockSlots(ctx context.Context, shifts ...*domain.Shift) (func(), error) {
	type key struct {
		siteID int64
		date   time.Time
	}
	seen := make(map[key]bool)
	keys := []key{}
	for _, s := range shifts {
		k := key{siteID: s.SiteID, date: domain.DateOnly(s.Date)}
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].siteID != keys[j].siteID {
			return keys[i].siteID < keys[j].siteID
		}
		return keys[i].date.Before(keys[j].date)
	})

	unlocks := make([]func(), 0, len(keys))
	release := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
	for _, k := range keys {
		unlock, err := m.locker.LockSlot(ctx, k.siteID, k.date)
		if err != nil {
			release()
			return nil, err
		}
		unlocks = append(unlocks, unlock)
	}
	return release, nil
}

// recheckCap 在事务中重新检查站点人数上限，self 为被修改的班次（新建时 ID 为 0）
func (m *Manager) recheckCap(ctx context.Context, tx ShiftWriter, self *domain.Shift) error {
	if self.IsDeclined() {
		return nil
	}
	slot, err := tx.ListShiftsBySiteAndDate(ctx, self.SiteID, self.Date)
	if err != nil {
		return err
	}
	n := 1
	for _, s := range slot {
		if s.IsDeclined() || (self.ID != 0 && s.ID == self.ID) {
			continue
		}
		n++
	}
	if limit := m.maxWorkersPerSite(); n > limit {
		return &domain.Error{
			Kind:    domain.KindValidationBlocking,
			Message: "分配违反约束，已拒绝",
			Violations: []domain.Violation{{
				Rule:           domain.RuleSiteCap,
				Severity:       domain.SeverityBlocking,
				SiteID:         self.SiteID,
				WorkerID:       self.WorkerID,
				Date:           self.Date,
				Classification: self.Classification,
				Message:        fmt.Sprintf("站点 %d 在 %s 将有 %d 人，超过上限 %d 人", self.SiteID, self.Date.Format(time.DateOnly), n, limit),
			}},
		}
	}
	return nil
}

func (m *Manager) notify(ctx context.Context, ev ShiftEvent) {
	ev.OccurredAt = m.now()
	if err := m.observer.ShiftsChanged(ctx, ev); err != nil {
		m.logger.Error("发送班次变更通知失败", slog.String("type", string(ev.Type)), slog.String("error", err.Error()))
	}
}

// checkBlocking 仅关心阻断类冲突，用于不改变站点人数结构的修改
func (m *Manager) checkBlocking(in constraint.Input) error {
	res := m.workflow.Checker().Check(in)
	if res.HasBlocking() {
		return &domain.Error{
			Kind:       domain.KindValidationBlocking,
			Message:    "分配违反约束，已拒绝",
			Violations: res.Violations,
		}
	}
	return nil
}

// checkWithApproval 阻断类冲突直接拒绝；可升级类冲突需要 a 完整，通过后写入候选班次并重新检查
func (m *Manager) checkWithApproval(in constraint.Input, a *approval.Approval) error {
	res := m.workflow.Checker().Check(in)
	if res.Valid {
		return nil
	}
	if res.HasBlocking() {
		return &domain.Error{Kind: domain.KindValidationBlocking, Message: "分配违反约束，已拒绝", Violations: res.Violations}
	}
	if a.IsEmpty() {
		return &domain.Error{Kind: domain.KindValidationEscalatable, Message: "该修改需要审批人与审批理由", Violations: res.Violations}
	}
	if err := a.Validate(); err != nil {
		return err
	}
	for _, s := range in.Candidates {
		a.StampDuplicate(s)
	}
	return m.checkBlocking(in)
}

// Validate 只做约束检查，不写入任何数据
func (m *Manager) Validate(ctx context.Context, candidates []*domain.Shift) (constraint.Result, error) {
	cmd := CreateCommand{Candidates: candidates}
	if err := cmd.Validate(); err != nil {
		return constraint.Result{}, err
	}
	in, err := m.snapshot(ctx, candidates)
	if err != nil {
		return constraint.Result{}, err
	}
	return m.workflow.Checker().Check(in), nil
}

// Create 检查并提交一批新班次。
// 只有可升级类冲突且未提供审批信息时，批次被挂起并返回带有 BatchID 的 ValidationEscalatable 错误。
func (m *Manager) Create(ctx context.Context, cmd CreateCommand) ([]*domain.Shift, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	for _, s := range cmd.Candidates {
		if err := approval.ValidateTwentyFourHour(s); err != nil {
			return nil, err
		}
	}

	unlock, err := m.lockSlots(ctx, cmd.Candidates...)
	if err != nil {
		return nil, err
	}
	defer unlock()

	in, err := m.snapshot(ctx, cmd.Candidates)
	if err != nil {
		return nil, err
	}
	batch, err := m.workflow.Propose(in)
	if err != nil {
		return nil, err
	}

	if batch.RequiresApproval() {
		if cmd.Approval.IsEmpty() {
			if m.batches == nil {
				return nil, &domain.Error{Kind: domain.KindValidationEscalatable, Message: "该分配需要审批人与审批理由", Violations: batch.Violations}
			}
			if err := m.batches.SaveBatch(ctx, batch); err != nil {
				return nil, fmt.Errorf("保存待审批批次失败: %w", err)
			}
			m.logger.Info("分配需要审批，批次已挂起", slog.String("batchID", batch.ID))
			return nil, batch.PendingError()
		}
		if err := m.workflow.Resolve(batch, in.Committed, cmd.Approval, in); err != nil {
			return nil, err
		}
	}

	return m.commit(ctx, batch)
}

// ApproveBatch 处理挂起批次的审批；审批信息为空时批次被丢弃，返回的状态为 Discarded
func (m *Manager) ApproveBatch(ctx context.Context, batchID string, a *approval.Approval) (approval.State, []*domain.Shift, error) {
	if m.batches == nil {
		return "", nil, domain.NewError(domain.KindNotFound, "批次 %s 不存在", batchID)
	}
	batch, err := m.batches.GetBatch(ctx, batchID)
	if err != nil {
		return "", nil, err
	}

	unlock, err := m.lockSlots(ctx, batch.Candidates...)
	if err != nil {
		return "", nil, err
	}
	defer unlock()

	in, err := m.snapshot(ctx, batch.Candidates)
	if err != nil {
		return "", nil, err
	}

	err = m.workflow.Resolve(batch, in.Committed, a, in)
	if batch.State == approval.StateDiscarded {
		if delErr := m.batches.DeleteBatch(ctx, batch.ID); delErr != nil {
			m.logger.Error("删除已丢弃的批次失败", slog.String("batchID", batch.ID), slog.String("error", delErr.Error()))
		}
		return batch.State, nil, err
	}
	if err != nil {
		return batch.State, nil, err
	}

	shifts, err := m.commit(ctx, batch)
	if err != nil {
		return batch.State, nil, err
	}
	if err := m.batches.DeleteBatch(ctx, batch.ID); err != nil {
		m.logger.Error("删除已提交的批次失败", slog.String("batchID", batch.ID), slog.String("error", err.Error()))
	}
	return batch.State, shifts, nil
}

// DiscardBatch 丢弃挂起的批次，没有任何副作用
func (m *Manager) DiscardBatch(ctx context.Context, batchID string) error {
	if m.batches == nil {
		return domain.NewError(domain.KindNotFound, "批次 %s 不存在", batchID)
	}
	batch, err := m.batches.GetBatch(ctx, batchID)
	if err != nil {
		return err
	}
	batch.Discard()
	return m.batches.DeleteBatch(ctx, batch.ID)
}

// commit 在一个事务中写入批次，同一时段已被拒绝的班次会先被删除
func (m *Manager) commit(ctx context.Context, batch *approval.Batch) ([]*domain.Shift, error) {
	created := make([]*domain.Shift, 0, len(batch.Candidates))
	replaced := []*domain.Shift{}

	err := m.store.InTx(ctx, func(tx ShiftWriter) error {
		for _, cand := range batch.Candidates {
			slot, err := tx.ListShiftsBySiteAndDate(ctx, cand.SiteID, cand.Date)
			if err != nil {
				return err
			}
			for _, s := range slot {
				if !s.IsDeclined() || !(cand.Covers(s.Classification) || s.Covers(cand.Classification)) {
					continue
				}
				if err := tx.DeleteShift(ctx, s); err != nil {
					return err
				}
				replaced = append(replaced, s)
			}
			if err := m.recheckCap(ctx, tx, cand); err != nil {
				return err
			}
			s := cand.Clone()
			s.Status = domain.StatusPending
			if err := tx.InsertShift(ctx, s); err != nil {
				return err
			}
			created = append(created, s)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	batch.MarkCommitted()
	m.logger.Info("班次已提交", slog.String("batchID", batch.ID), slog.Int("count", len(created)))

	ev := ShiftEvent{Type: EventCreated, Shifts: created}
	if len(replaced) > 0 {
		ev.Type = EventReplaced
		ev.Removed = replaced
	}
	m.notify(ctx, ev)
	return created, nil
}
