package roster

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sysu-ecnc-dev/care-roster/backend/internal/approval"
	"github.com/sysu-ecnc-dev/care-roster/backend/internal/constraint"
	"github.com/sysu-ecnc-dev/care-roster/backend/internal/domain"
)

var (
	day1 = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	day2 = day1.AddDate(0, 0, 1)
)

type fixture struct {
	store    *memoryStore
	batches  *memoryBatches
	observer *recordingObserver
	manager  *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemoryStore()
	for id := int64(10); id <= 16; id++ {
		store.workers[id] = &domain.Worker{ID: id, Kind: domain.WorkerKindStaff, FullName: "worker", IsActive: true, StandardRate: 12.5}
	}
	for id := int64(1); id <= 2; id++ {
		store.sites[id] = &domain.Site{ID: id, Name: "site", IsActive: true}
	}

	f := &fixture{
		store:    store,
		batches:  newMemoryBatches(),
		observer: &recordingObserver{},
	}
	f.manager = NewManager(
		store,
		approval.NewWorkflow(constraint.New(constraint.DefaultRules())),
		approval.DefaultExtensionPolicy(),
		nil,
		f.batches,
		f.observer,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return f
}

func workerID(id int64) *int64 {
	return &id
}

func candidate(siteID int64, worker *int64, date time.Time, start, end string) *domain.Shift {
	return &domain.Shift{SiteID: siteID, WorkerID: worker, Date: date, StartTime: start, EndTime: end}
}

// seed 直接写入已提交的班次
func (f *fixture) seed(t *testing.T, s *domain.Shift) *domain.Shift {
	t.Helper()
	require.NoError(t, s.Normalize())
	require.NoError(t, f.store.InTx(context.Background(), func(tx ShiftWriter) error {
		return tx.InsertShift(context.Background(), s)
	}))
	return s
}

func TestCreate_Commits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	shifts, err := f.manager.Create(ctx, CreateCommand{Candidates: []*domain.Shift{
		candidate(1, workerID(10), day1, "08:00", "20:00"),
		candidate(1, workerID(11), day1, "20:00", "08:00"),
	}})
	require.NoError(t, err)
	require.Len(t, shifts, 2)
	require.NotZero(t, shifts[0].ID)
	require.Equal(t, domain.StatusPending, shifts[0].Status)
	require.Equal(t, 12.0, shifts[1].Duration)
	require.Equal(t, domain.ClassificationNight, shifts[1].Classification)

	require.Len(t, f.store.all(), 2)
	require.Len(t, f.observer.events, 1)
	require.Equal(t, EventCreated, f.observer.events[0].Type)
}

func TestCreate_RestPeriodBlocks(t *testing.T) {
	f := newFixture(t)
	f.seed(t, candidate(1, workerID(10), day1, "08:00", "20:00"))

	_, err := f.manager.Create(context.Background(), CreateCommand{Candidates: []*domain.Shift{
		candidate(2, workerID(10), day2, "06:00", "14:00"),
	}})
	var e *domain.Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, domain.KindValidationBlocking, e.Kind)
	require.Equal(t, domain.RuleRestPeriod, e.Violations[0].Rule)
	require.Len(t, f.store.all(), 1)
	require.Empty(t, f.observer.events)
}

func TestCreate_EscalatedBatchApproved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, candidate(1, workerID(10), day1, "08:00", "20:00"))

	_, err := f.manager.Create(ctx, CreateCommand{Candidates: []*domain.Shift{
		candidate(1, workerID(11), day1, "09:00", "17:00"),
	}})
	var e *domain.Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, domain.KindValidationEscalatable, e.Kind)
	require.NotEmpty(t, e.BatchID)
	require.Len(t, f.store.all(), 1)

	_, _, err = f.manager.ApproveBatch(ctx, e.BatchID, &approval.Approval{Approver: "manager"})
	require.True(t, domain.IsKind(err, domain.KindApprovalIncomplete))
	require.Contains(t, f.batches.batches, e.BatchID)

	state, shifts, err := f.manager.ApproveBatch(ctx, e.BatchID, &approval.Approval{Approver: "manager", Reason: "training"})
	require.NoError(t, err)
	require.Equal(t, approval.StateCommitted, state)
	require.Len(t, shifts, 1)
	require.Equal(t, "manager", shifts[0].DuplicateApprover)
	require.Len(t, f.store.all(), 2)
	require.NotContains(t, f.batches.batches, e.BatchID)
}

func TestCreate_EscalatedBatchDiscardedWithoutApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, candidate(1, workerID(10), day1, "08:00", "20:00"))

	_, err := f.manager.Create(ctx, CreateCommand{Candidates: []*domain.Shift{
		candidate(1, workerID(11), day1, "09:00", "17:00"),
	}})
	var e *domain.Error
	require.ErrorAs(t, err, &e)

	state, shifts, err := f.manager.ApproveBatch(ctx, e.BatchID, &approval.Approval{})
	require.NoError(t, err)
	require.Equal(t, approval.StateDiscarded, state)
	require.Empty(t, shifts)
	require.Len(t, f.store.all(), 1)
	require.Empty(t, f.batches.batches)
	require.Empty(t, f.observer.events)
}

func TestDiscardBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, candidate(1, workerID(10), day1, "08:00", "20:00"))

	_, err := f.manager.Create(ctx, CreateCommand{Candidates: []*domain.Shift{
		candidate(1, workerID(11), day1, "09:00", "17:00"),
	}})
	var e *domain.Error
	require.ErrorAs(t, err, &e)
	require.Len(t, f.batches.batches, 1)

	require.NoError(t, f.manager.DiscardBatch(ctx, e.BatchID))
	require.Empty(t, f.batches.batches)
	require.Len(t, f.store.all(), 1)

	err = f.manager.DiscardBatch(ctx, e.BatchID)
	require.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestCreate_InlineApproval(t *testing.T) {
	f := newFixture(t)
	f.seed(t, candidate(1, workerID(10), day1, "08:00", "20:00"))

	shifts, err := f.manager.Create(context.Background(), CreateCommand{
		Candidates: []*domain.Shift{candidate(1, workerID(11), day1, "09:00", "17:00")},
		Approval:   &approval.Approval{Approver: "manager", Reason: "training"},
	})
	require.NoError(t, err)
	require.Equal(t, "training", shifts[0].DuplicateReason)
}

func TestCreate_ReplacesDeclinedShift(t *testing.T) {
	f := newFixture(t)
	declined := candidate(1, workerID(10), day1, "08:00", "20:00")
	declined.Status = domain.StatusDeclined
	f.seed(t, declined)

	shifts, err := f.manager.Create(context.Background(), CreateCommand{Candidates: []*domain.Shift{
		candidate(1, workerID(11), day1, "08:00", "20:00"),
	}})
	require.NoError(t, err)

	all := f.store.all()
	require.Len(t, all, 1)
	require.Equal(t, shifts[0].ID, all[0].ID)
	require.True(t, all[0].AssignedTo(11))
	require.Equal(t, EventReplaced, f.observer.events[0].Type)
	require.Len(t, f.observer.events[0].Removed, 1)
}

func TestCreate_SiteCapNeverExceeded(t *testing.T) {
	f := newFixture(t)
	a := &approval.Approval{Approver: "manager", Reason: "surge"}
	for i, c := range []*domain.Shift{
		candidate(1, workerID(10), day1, "08:00", "20:00"),
		candidate(1, workerID(11), day1, "20:00", "08:00"),
		candidate(1, workerID(12), day1, "08:00", "20:00"),
		candidate(1, workerID(13), day1, "20:00", "08:00"),
	} {
		_, err := f.manager.Create(context.Background(), CreateCommand{Candidates: []*domain.Shift{c}, Approval: a})
		require.NoError(t, err, "shift %d", i)
	}

	_, err := f.manager.Create(context.Background(), CreateCommand{
		Candidates: []*domain.Shift{candidate(1, workerID(14), day1, "08:00", "20:00")},
		Approval:   a,
	})
	var e *domain.Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, domain.KindValidationBlocking, e.Kind)
	require.Equal(t, domain.RuleSiteCap, e.Violations[0].Rule)
	require.Len(t, f.store.all(), 4)
}

func TestCreate_TwentyFourHourNeedsApproval(t *testing.T) {
	f := newFixture(t)
	c := candidate(1, workerID(10), day1, "08:00", "08:00")
	c.Is24Hour = true

	_, err := f.manager.Create(context.Background(), CreateCommand{Candidates: []*domain.Shift{c}})
	require.True(t, domain.IsKind(err, domain.KindApprovalIncomplete))
}

func TestCreate_TwentyFourHourTimesNormalised(t *testing.T) {
	f := newFixture(t)
	c := candidate(1, workerID(10), day1, "08:00", "20:00")
	c.Is24Hour = true
	c.TwentyFourHourApprover, c.TwentyFourHourReason = "manager", "no night cover"

	shifts, err := f.manager.Create(context.Background(), CreateCommand{Candidates: []*domain.Shift{c}})
	require.NoError(t, err)
	require.Len(t, shifts, 1)
	require.True(t, shifts[0].Is24Hour)
	require.Equal(t, "08:00", shifts[0].StartTime)
	require.Equal(t, "08:00", shifts[0].EndTime)
	require.Equal(t, 24.0, shifts[0].Duration)
	require.True(t, shifts[0].Covers(domain.ClassificationNight))
}

func TestSplit(t *testing.T) {
	f := newFixture(t)
	orig := f.seed(t, candidate(1, workerID(10), day1, "08:00", "20:00"))

	parts, err := f.manager.Split(context.Background(), SplitShiftCommand{
		ShiftID:     orig.ID,
		SplitTime:   "14:00",
		NewWorkerID: workerID(11),
		Notes:       "handover",
	})
	require.NoError(t, err)
	require.Len(t, parts, 2)
	require.Equal(t, 6.0, parts[0].Duration)
	require.Equal(t, 6.0, parts[1].Duration)
	require.Equal(t, orig.Duration, parts[0].Duration+parts[1].Duration)
	require.True(t, parts[0].AssignedTo(10))
	require.True(t, parts[1].AssignedTo(11))
	require.Equal(t, domain.StatusPending, parts[1].Status)

	all := f.store.all()
	require.Len(t, all, 2)
	for _, s := range all {
		require.NotEqual(t, orig.ID, s.ID)
	}
}

func TestSplit_OvernightSecondHalfStartsNextDay(t *testing.T) {
	f := newFixture(t)
	orig := f.seed(t, candidate(1, workerID(10), day1, "20:00", "08:00"))

	parts, err := f.manager.Split(context.Background(), SplitShiftCommand{
		ShiftID: orig.ID, SplitTime: "02:00", NewWorkerID: workerID(11),
	})
	require.NoError(t, err)
	require.Equal(t, 6.0, parts[0].Duration)
	require.Equal(t, 6.0, parts[1].Duration)
	require.True(t, parts[1].StartsNextDay)
	require.Equal(t, day2.Add(2*time.Hour), parts[1].StartAt())
}

func TestSplit_OutsideShiftRejected(t *testing.T) {
	f := newFixture(t)
	orig := f.seed(t, candidate(1, workerID(10), day1, "08:00", "20:00"))

	_, err := f.manager.Split(context.Background(), SplitShiftCommand{ShiftID: orig.ID, SplitTime: "21:00", NewWorkerID: workerID(11)})
	require.True(t, domain.IsKind(err, domain.KindValidationBlocking))
	require.Len(t, f.store.all(), 1)
}

func TestExtend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orig := f.seed(t, candidate(1, workerID(10), day1, "08:00", "20:00"))

	_, err := f.manager.Extend(ctx, ExtendShiftCommand{ShiftID: orig.ID, Hours: 3.5})
	require.True(t, domain.IsKind(err, domain.KindApprovalIncomplete))

	updated, err := f.manager.Extend(ctx, ExtendShiftCommand{ShiftID: orig.ID, Hours: 3.0, Reason: "late relief"})
	require.NoError(t, err)
	require.True(t, updated.Extension.AutoApproved)
	require.Equal(t, 15.0, updated.Duration)
	require.Equal(t, "20:00", updated.EndTime)

	updated, err = f.manager.Extend(ctx, ExtendShiftCommand{
		ShiftID: orig.ID, Hours: 2,
		Approval: &approval.Approval{Approver: "manager", Reason: "storm"},
	})
	require.NoError(t, err)
	require.False(t, updated.Extension.AutoApproved)
	require.Equal(t, 5.0, updated.Extension.Hours)
	require.Equal(t, 17.0, updated.Duration)

	_, err = f.manager.Extend(ctx, ExtendShiftCommand{
		ShiftID: orig.ID, Hours: 8,
		Approval: &approval.Approval{Approver: "manager", Reason: "storm"},
	})
	require.True(t, domain.IsKind(err, domain.KindValidationBlocking))
}

func TestEdit_RecomputesDuration(t *testing.T) {
	f := newFixture(t)
	orig := f.seed(t, candidate(1, workerID(10), day1, "08:00", "20:00"))
	// 另一个白班保证原时段在改为夜班后仍有人覆盖
	cover := candidate(1, workerID(11), day1, "08:00", "20:00")
	cover.DuplicateApprover, cover.DuplicateReason = "manager", "training"
	f.seed(t, cover)

	end := "18:00"
	updated, err := f.manager.Edit(context.Background(), EditShiftCommand{ShiftID: orig.ID, EndTime: &end})
	require.NoError(t, err)
	require.Equal(t, 10.0, updated.Duration)

	start := "21:00"
	updated, err = f.manager.Edit(context.Background(), EditShiftCommand{ShiftID: orig.ID, StartTime: &start})
	require.NoError(t, err)
	require.Equal(t, 21.0, updated.Duration)
	require.Equal(t, domain.ClassificationNight, updated.Classification)
}

func TestEdit_VacatingOnlyShiftIsCoverageConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orig := f.seed(t, candidate(1, workerID(10), day1, "08:00", "20:00"))

	_, err := f.manager.Edit(ctx, EditShiftCommand{ShiftID: orig.ID, Date: &day2})
	var e *domain.Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, domain.KindCoverageConflict, e.Kind)

	// 白班改为夜班同样会让白班时段空缺
	start, end := "20:00", "08:00"
	_, err = f.manager.Edit(ctx, EditShiftCommand{ShiftID: orig.ID, StartTime: &start, EndTime: &end})
	require.True(t, domain.IsKind(err, domain.KindCoverageConflict))

	all := f.store.all()
	require.Len(t, all, 1)
	require.True(t, all[0].Date.Equal(day1))
	require.Equal(t, domain.ClassificationDay, all[0].Classification)
	require.Empty(t, f.observer.events)
}

func TestEdit_MovedShiftNeedsFreshApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	moving := candidate(1, workerID(10), day1, "08:00", "20:00")
	moving.DuplicateApprover, moving.DuplicateReason = "boss", "induction"
	f.seed(t, moving)
	f.seed(t, candidate(1, workerID(11), day1, "08:00", "20:00"))
	f.seed(t, candidate(1, workerID(12), day2, "08:00", "20:00"))

	_, err := f.manager.Edit(ctx, EditShiftCommand{ShiftID: moving.ID, Date: &day2})
	var e *domain.Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, domain.KindValidationEscalatable, e.Kind)
	require.Equal(t, domain.RuleDuplicateShift, e.Violations[0].Rule)

	updated, err := f.manager.Edit(ctx, EditShiftCommand{
		ShiftID:  moving.ID,
		Date:     &day2,
		Approval: &approval.Approval{Approver: "manager", Reason: "extra cover"},
	})
	require.NoError(t, err)
	require.True(t, updated.Date.Equal(day2))
	require.Equal(t, "manager", updated.DuplicateApprover)
	require.Equal(t, "extra cover", updated.DuplicateReason)
}

func TestEdit_IntoFullSlotHitsSiteCap(t *testing.T) {
	f := newFixture(t)
	moving := f.seed(t, candidate(1, workerID(10), day1, "08:00", "20:00"))
	f.seed(t, candidate(1, workerID(15), day1, "08:00", "20:00"))
	f.seed(t, candidate(1, workerID(11), day2, "08:00", "20:00"))
	f.seed(t, candidate(1, workerID(12), day2, "08:00", "20:00"))
	f.seed(t, candidate(1, workerID(13), day2, "20:00", "08:00"))
	f.seed(t, candidate(1, workerID(14), day2, "20:00", "08:00"))

	_, err := f.manager.Edit(context.Background(), EditShiftCommand{
		ShiftID:  moving.ID,
		Date:     &day2,
		Approval: &approval.Approval{Approver: "manager", Reason: "extra cover"},
	})
	var e *domain.Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, domain.KindValidationBlocking, e.Kind)
	require.Equal(t, domain.RuleSiteCap, e.Violations[0].Rule)
	require.True(t, f.store.shifts[moving.ID].Date.Equal(day1))
}

func TestEdit_TwentyFourHourTimesAreFixed(t *testing.T) {
	f := newFixture(t)
	s := candidate(1, workerID(10), day1, "08:00", "08:00")
	s.Is24Hour = true
	s.TwentyFourHourApprover, s.TwentyFourHourReason = "manager", "no night cover"
	f.seed(t, s)

	end := "20:00"
	_, err := f.manager.Edit(context.Background(), EditShiftCommand{ShiftID: s.ID, EndTime: &end})
	require.True(t, domain.IsKind(err, domain.KindValidationBlocking))
}

func TestRemove_OnlyShiftIsCoverageConflict(t *testing.T) {
	f := newFixture(t)
	orig := f.seed(t, candidate(1, workerID(10), day1, "08:00", "20:00"))

	err := f.manager.Remove(context.Background(), RemoveShiftCommand{ShiftID: orig.ID})
	var e *domain.Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, domain.KindCoverageConflict, e.Kind)
	require.Equal(t, []domain.ResolutionKind{domain.ResolutionReplace, domain.ResolutionAbort}, e.Options)
	require.Len(t, f.store.all(), 1)
}

func TestRemove_WithOppositeOffersAllResolutions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	day := f.seed(t, candidate(1, workerID(10), day1, "08:00", "20:00"))
	f.seed(t, candidate(1, workerID(11), day1, "20:00", "08:00"))

	err := f.manager.Remove(ctx, RemoveShiftCommand{ShiftID: day.ID})
	var e *domain.Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, domain.KindCoverageConflict, e.Kind)
	require.Len(t, e.Options, 4)

	require.NoError(t, f.manager.Remove(ctx, RemoveShiftCommand{
		ShiftID:    day.ID,
		Resolution: &Resolution{Kind: domain.ResolutionAbort},
	}))
	require.Len(t, f.store.all(), 2)

	err = f.manager.Remove(ctx, RemoveShiftCommand{
		ShiftID:    day.ID,
		Resolution: &Resolution{Kind: domain.ResolutionDeleteBoth},
	})
	require.True(t, domain.IsKind(err, domain.KindApprovalIncomplete))
}

func TestRemove_DeleteBoth(t *testing.T) {
	f := newFixture(t)
	day := f.seed(t, candidate(1, workerID(10), day1, "08:00", "20:00"))
	f.seed(t, candidate(1, workerID(11), day1, "20:00", "08:00"))

	require.NoError(t, f.manager.Remove(context.Background(), RemoveShiftCommand{
		ShiftID:    day.ID,
		Resolution: &Resolution{Kind: domain.ResolutionDeleteBoth, Reason: "site closed"},
	}))
	require.Empty(t, f.store.all())
	require.Equal(t, EventRemoved, f.observer.events[0].Type)
	require.Equal(t, "site closed", f.observer.events[0].Reason)
}

func TestRemove_ConvertOppositeTo24h(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	day := f.seed(t, candidate(1, workerID(10), day1, "08:00", "20:00"))
	night := f.seed(t, candidate(1, workerID(11), day1, "20:00", "08:00"))

	err := f.manager.Remove(ctx, RemoveShiftCommand{
		ShiftID:    day.ID,
		Resolution: &Resolution{Kind: domain.ResolutionConvertTo24h, Approval: &approval.Approval{Approver: "manager"}},
	})
	require.True(t, domain.IsKind(err, domain.KindApprovalIncomplete))

	require.NoError(t, f.manager.Remove(ctx, RemoveShiftCommand{
		ShiftID: day.ID,
		Resolution: &Resolution{
			Kind:     domain.ResolutionConvertTo24h,
			Approval: &approval.Approval{Approver: "manager", Reason: "no day cover"},
		},
	}))

	all := f.store.all()
	require.Len(t, all, 1)
	require.Equal(t, night.ID, all[0].ID)
	require.True(t, all[0].Is24Hour)
	require.Equal(t, 24.0, all[0].Duration)
	require.Equal(t, "manager", all[0].TwentyFourHourApprover)
}

func TestRemove_Replace(t *testing.T) {
	f := newFixture(t)
	day := f.seed(t, candidate(1, workerID(10), day1, "08:00", "20:00"))
	f.seed(t, candidate(1, workerID(11), day1, "20:00", "08:00"))

	require.NoError(t, f.manager.Remove(context.Background(), RemoveShiftCommand{
		ShiftID:    day.ID,
		Resolution: &Resolution{Kind: domain.ResolutionReplace, ReplacementWorkerID: workerID(12)},
	}))

	all := f.store.all()
	require.Len(t, all, 2)
	require.True(t, all[1].AssignedTo(12))
	require.Equal(t, domain.ClassificationDay, all[1].Classification)
	require.Equal(t, EventReplaced, f.observer.events[0].Type)
}

func TestRemove_StillCoveredNeedsNoResolution(t *testing.T) {
	f := newFixture(t)
	a := f.seed(t, candidate(1, workerID(10), day1, "08:00", "20:00"))
	f.seed(t, candidate(1, workerID(11), day1, "08:00", "20:00"))

	require.NoError(t, f.manager.Remove(context.Background(), RemoveShiftCommand{ShiftID: a.ID}))
	require.Len(t, f.store.all(), 1)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.seed(t, candidate(1, workerID(10), day1, "08:00", "20:00"))

	updated, err := f.manager.UpdateStatus(ctx, UpdateStatusCommand{ShiftID: s.ID, Status: domain.StatusDeclined, Reason: "sick"})
	require.NoError(t, err)
	require.Equal(t, domain.StatusDeclined, updated.Status)
	require.Equal(t, "sick", updated.DeclineReason)

	_, err = f.manager.UpdateStatus(ctx, UpdateStatusCommand{ShiftID: s.ID, Status: domain.StatusAccepted})
	require.True(t, domain.IsKind(err, domain.KindInvalidTransition))

	_, err = f.manager.UpdateStatus(ctx, UpdateStatusCommand{ShiftID: s.ID, Status: domain.StatusPending})
	require.True(t, domain.IsKind(err, domain.KindInvalidTransition))
}

func TestUpdateStatus_BankShiftRejected(t *testing.T) {
	f := newFixture(t)
	bank := f.seed(t, candidate(1, nil, day1, "08:00", "20:00"))

	_, err := f.manager.UpdateStatus(context.Background(), UpdateStatusCommand{ShiftID: bank.ID, Status: domain.StatusAccepted})
	require.True(t, domain.IsKind(err, domain.KindInvalidTransition))
	require.Equal(t, domain.StatusPending, f.store.shifts[bank.ID].Status)
}

func TestRecordPunch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.seed(t, candidate(1, workerID(10), day1, "08:00", "20:00"))

	in := day1.Add(8 * time.Hour)
	updated, err := f.manager.RecordPunch(ctx, PunchCommand{ShiftID: s.ID, Kind: PunchIn, At: in})
	require.NoError(t, err)
	require.Equal(t, in, *updated.ClockIn)

	_, err = f.manager.RecordPunch(ctx, PunchCommand{ShiftID: s.ID, Kind: PunchOut, At: in.Add(-time.Hour)})
	require.True(t, domain.IsKind(err, domain.KindValidationBlocking))
}

func TestObserverFailureDoesNotRollBack(t *testing.T) {
	f := newFixture(t)
	f.observer.err = errBrokerDown

	_, err := f.manager.Create(context.Background(), CreateCommand{Candidates: []*domain.Shift{
		candidate(1, workerID(10), day1, "08:00", "20:00"),
	}})
	require.NoError(t, err)
	require.Len(t, f.store.all(), 1)
}

func TestValidate_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.seed(t, candidate(1, workerID(10), day1, "08:00", "20:00"))

	cands := []*domain.Shift{candidate(1, workerID(11), day1, "09:00", "17:00")}
	first, err := f.manager.Validate(context.Background(), cands)
	require.NoError(t, err)
	second, err := f.manager.Validate(context.Background(), cands)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.True(t, first.EscalatableOnly())
	require.Len(t, f.store.all(), 1)
}

func TestConvertTo24h(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	day := f.seed(t, candidate(1, workerID(10), day1, "08:00", "20:00"))

	_, err := f.manager.ConvertTo24h(ctx, day.ID, &approval.Approval{Approver: "manager"})
	require.True(t, domain.IsKind(err, domain.KindApprovalIncomplete))

	updated, err := f.manager.ConvertTo24h(ctx, day.ID, &approval.Approval{Approver: "manager", Reason: "night cover sick"})
	require.NoError(t, err)
	require.True(t, updated.Is24Hour)
	require.Equal(t, 24.0, updated.Duration)
	require.Equal(t, "night cover sick", updated.TwentyFourHourReason)
	require.Equal(t, EventConverted, f.observer.events[len(f.observer.events)-1].Type)

	_, err = f.manager.ConvertTo24h(ctx, day.ID, &approval.Approval{Approver: "manager", Reason: "again"})
	require.True(t, domain.IsKind(err, domain.KindInvalidTransition))
}
