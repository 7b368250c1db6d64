package approval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sysu-ecnc-dev/care-roster/backend/internal/constraint"
	"github.com/sysu-ecnc-dev/care-roster/backend/internal/domain"
)

var day1 = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func workerID(id int64) *int64 {
	return &id
}

func newShift(t *testing.T, id, siteID int64, worker *int64, start, end string) *domain.Shift {
	t.Helper()
	s := &domain.Shift{ID: id, SiteID: siteID, WorkerID: worker, Date: day1, StartTime: start, EndTime: end}
	require.NoError(t, s.Normalize())
	return s
}

func TestApproval_Validate(t *testing.T) {
	require.True(t, (*Approval)(nil).IsEmpty())
	require.True(t, (&Approval{Approver: " ", Reason: ""}).IsEmpty())

	err := (&Approval{Approver: "manager"}).Validate()
	require.True(t, domain.IsKind(err, domain.KindApprovalIncomplete))

	err = (&Approval{Reason: "sickness cover"}).Validate()
	require.True(t, domain.IsKind(err, domain.KindApprovalIncomplete))

	require.NoError(t, (&Approval{Approver: "manager", Reason: "sickness cover"}).Validate())
}

func TestExtensionPolicy(t *testing.T) {
	p := DefaultExtensionPolicy()
	now := time.Now()

	ext, err := p.Decide(3.0, "handover", nil, now)
	require.NoError(t, err)
	require.True(t, ext.AutoApproved)
	require.Empty(t, ext.Approver)

	_, err = p.Decide(3.5, "handover", nil, now)
	require.True(t, domain.IsKind(err, domain.KindApprovalIncomplete))

	ext, err = p.Decide(3.5, "resident fall", &Approval{Approver: "manager", Reason: "late relief"}, now)
	require.NoError(t, err)
	require.False(t, ext.AutoApproved)
	require.Equal(t, "manager", ext.Approver)
	require.Equal(t, "resident fall", ext.Reason)
	require.Equal(t, "late relief", ext.ApprovalReason)
	require.Equal(t, 3.5, ext.Hours)

	_, err = p.Decide(12.5, "", &Approval{Approver: "manager", Reason: "late relief"}, now)
	var e *domain.Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, domain.KindValidationBlocking, e.Kind)
	require.Equal(t, domain.RuleExtensionLimit, e.Violations[0].Rule)

	_, err = p.Decide(0, "", nil, now)
	require.True(t, domain.IsKind(err, domain.KindValidationBlocking))
}

func TestValidateTwentyFourHour(t *testing.T) {
	s := newShift(t, 0, 1, workerID(10), "08:00", "08:00")
	require.NoError(t, ValidateTwentyFourHour(s))

	s.Is24Hour = true
	s.TwentyFourHourApprover = "manager"
	require.True(t, domain.IsKind(ValidateTwentyFourHour(s), domain.KindApprovalIncomplete))

	s.TwentyFourHourReason = "no night cover"
	require.NoError(t, ValidateTwentyFourHour(s))
}

func TestWorkflow_ProposeBlocking(t *testing.T) {
	w := NewWorkflow(constraint.New(constraint.DefaultRules()))
	committed := []*domain.Shift{newShift(t, 1, 1, workerID(10), "08:00", "20:00")}
	cand := []*domain.Shift{newShift(t, 0, 2, workerID(10), "08:00", "20:00")}

	batch, err := w.Propose(constraint.Input{Candidates: cand, Committed: committed})
	require.Nil(t, batch)
	require.True(t, domain.IsKind(err, domain.KindValidationBlocking))
}

func TestWorkflow_ProposeClean(t *testing.T) {
	w := NewWorkflow(constraint.New(constraint.DefaultRules()))
	cand := []*domain.Shift{newShift(t, 0, 1, workerID(10), "08:00", "20:00")}

	batch, err := w.Propose(constraint.Input{Candidates: cand})
	require.NoError(t, err)
	require.Equal(t, StateProposed, batch.State)
	require.False(t, batch.RequiresApproval())
	require.NotEmpty(t, batch.ID)
}

func TestWorkflow_ResolveApproved(t *testing.T) {
	w := NewWorkflow(constraint.New(constraint.DefaultRules()))
	committed := []*domain.Shift{newShift(t, 1, 1, workerID(10), "08:00", "20:00")}
	cand := []*domain.Shift{newShift(t, 0, 1, workerID(11), "09:00", "17:00")}

	batch, err := w.Propose(constraint.Input{Candidates: cand, Committed: committed})
	require.NoError(t, err)
	require.True(t, batch.RequiresApproval())
	require.Equal(t, domain.RuleDuplicateShift, batch.Violations[0].Rule)

	err = w.Resolve(batch, committed, &Approval{Approver: "manager"}, constraint.Input{})
	require.True(t, domain.IsKind(err, domain.KindApprovalIncomplete))
	require.Equal(t, StateProposed, batch.State)

	err = w.Resolve(batch, committed, &Approval{Approver: "manager", Reason: "training shadow"}, constraint.Input{})
	require.NoError(t, err)
	require.False(t, batch.RequiresApproval())
	require.Equal(t, "manager", batch.Candidates[0].DuplicateApprover)
	require.Equal(t, "training shadow", batch.Candidates[0].DuplicateReason)
}

func TestWorkflow_ResolveEmptyDiscards(t *testing.T) {
	w := NewWorkflow(constraint.New(constraint.DefaultRules()))
	committed := []*domain.Shift{newShift(t, 1, 1, workerID(10), "08:00", "20:00")}
	cand := []*domain.Shift{newShift(t, 0, 1, workerID(11), "09:00", "17:00")}

	batch, err := w.Propose(constraint.Input{Candidates: cand, Committed: committed})
	require.NoError(t, err)

	require.NoError(t, w.Resolve(batch, committed, &Approval{}, constraint.Input{}))
	require.Equal(t, StateDiscarded, batch.State)

	err = w.Resolve(batch, committed, &Approval{Approver: "manager", Reason: "late"}, constraint.Input{})
	require.True(t, domain.IsKind(err, domain.KindInvalidTransition))
}

func TestWorkflow_ResolveFreshBlockingDiscards(t *testing.T) {
	w := NewWorkflow(constraint.New(constraint.DefaultRules()))
	committed := []*domain.Shift{newShift(t, 1, 1, workerID(10), "08:00", "20:00")}
	cand := []*domain.Shift{newShift(t, 0, 1, workerID(11), "09:00", "17:00")}

	batch, err := w.Propose(constraint.Input{Candidates: cand, Committed: committed})
	require.NoError(t, err)

	// 等待审批期间，同一员工在另一站点被分配了白班
	committed = append(committed, newShift(t, 2, 2, workerID(11), "08:00", "20:00"))

	err = w.Resolve(batch, committed, &Approval{Approver: "manager", Reason: "training"}, constraint.Input{})
	require.True(t, domain.IsKind(err, domain.KindValidationBlocking))
	require.Equal(t, StateDiscarded, batch.State)
	require.Equal(t, domain.RuleDoubleBooking, batch.Violations[0].Rule)
}
