package leave

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sysu-ecnc-dev/care-roster/backend/internal/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAccrue_QuartersFromEmploymentStart(t *testing.T) {
	start := date(2025, 2, 1)
	w := &domain.Worker{ID: 1, Kind: domain.WorkerKindStaff, EmploymentStart: &start}
	p := DefaultPolicy()

	b := Accrue(w, 2025, date(2025, 9, 15), nil, 0, p)
	require.Equal(t, 2, b.QuartersCompleted)
	require.Equal(t, 56.0, b.HoursAccrued)
	require.Equal(t, 56.0, b.HoursRemaining)
	require.NotNil(t, b.NextAccrualDate)
	require.Equal(t, date(2025, 11, 1), *b.NextAccrualDate)
	require.Equal(t, 28.0, b.NextAccrualHours)
}

func TestAccrue_FullYearCappedAtEntitlement(t *testing.T) {
	w := &domain.Worker{ID: 1, Kind: domain.WorkerKindStaff, CreatedAt: date(2020, 1, 1)}
	leaves := []*domain.LeaveRequest{
		{WorkerID: 1, StartDate: date(2024, 12, 30), EndDate: date(2025, 1, 2), Status: domain.LeaveStatusApproved},
		{WorkerID: 1, StartDate: date(2025, 6, 2), EndDate: date(2025, 6, 2), Status: domain.LeaveStatusRejected},
	}

	b := Accrue(w, 2025, date(2026, 3, 1), leaves, 100, DefaultPolicy())
	require.Equal(t, 4, b.QuartersCompleted)
	require.Equal(t, 112.0, b.HoursAccrued)
	require.Equal(t, 16.0, b.HoursUsed)
	require.Equal(t, 40.0, b.CarryOverHours)
	require.Equal(t, 136.0, b.HoursRemaining)
	require.Nil(t, b.NextAccrualDate)
}

type memoryStore struct {
	workers  map[int64]*domain.Worker
	requests map[int64]*domain.LeaveRequest
	balances map[[2]int64]*domain.LeaveBalance
	nextID   int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		workers:  map[int64]*domain.Worker{1: {ID: 1, Kind: domain.WorkerKindStaff, CreatedAt: date(2020, 1, 1)}},
		requests: make(map[int64]*domain.LeaveRequest),
		balances: make(map[[2]int64]*domain.LeaveBalance),
	}
}

func (s *memoryStore) GetWorkerByID(_ context.Context, id int64) (*domain.Worker, error) {
	w, ok := s.workers[id]
	if !ok {
		return nil, domain.NotFound("员工", id)
	}
	return w, nil
}

func (s *memoryStore) GetLeaveRequestByID(_ context.Context, id int64) (*domain.LeaveRequest, error) {
	r, ok := s.requests[id]
	if !ok {
		return nil, domain.NotFound("请假申请", id)
	}
	c := *r
	return &c, nil
}

func (s *memoryStore) InsertLeaveRequest(_ context.Context, r *domain.LeaveRequest) error {
	s.nextID++
	r.ID = s.nextID
	r.Version = 1
	c := *r
	s.requests[r.ID] = &c
	return nil
}

func (s *memoryStore) UpdateLeaveRequest(_ context.Context, r *domain.LeaveRequest) error {
	cur := s.requests[r.ID]
	if cur.Version != r.Version {
		return domain.ErrEditConflict
	}
	r.Version++
	c := *r
	s.requests[r.ID] = &c
	return nil
}

func (s *memoryStore) ListApprovedLeaveForWorker(_ context.Context, workerID int64, from, to time.Time) ([]*domain.LeaveRequest, error) {
	out := []*domain.LeaveRequest{}
	for _, r := range s.requests {
		if r.WorkerID == workerID && r.IsApproved() && r.StartDate.Before(to) && !r.EndDate.Before(from) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memoryStore) GetLeaveBalance(_ context.Context, workerID int64, year int) (*domain.LeaveBalance, error) {
	b, ok := s.balances[[2]int64{workerID, int64(year)}]
	if !ok {
		return nil, domain.NewError(domain.KindNotFound, "假期余额不存在")
	}
	return b, nil
}

func (s *memoryStore) UpsertLeaveBalance(_ context.Context, b *domain.LeaveBalance) error {
	s.balances[[2]int64{b.WorkerID, int64(b.Year)}] = b
	return nil
}

type recordingNotifier struct {
	reviewed []*domain.LeaveRequest
}

func (n *recordingNotifier) LeaveReviewed(_ context.Context, r *domain.LeaveRequest) error {
	n.reviewed = append(n.reviewed, r)
	return nil
}

func newService(store *memoryStore, notifier Notifier) *Service {
	s := NewService(store, DefaultPolicy(), notifier, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = func() time.Time { return date(2025, 7, 1) }
	return s
}

func TestService_SubmitAndApprove(t *testing.T) {
	store := newMemoryStore()
	notifier := &recordingNotifier{}
	svc := newService(store, notifier)
	ctx := context.Background()

	r, err := svc.Submit(ctx, SubmitCommand{WorkerID: 1, StartDate: date(2025, 3, 11), EndDate: date(2025, 3, 13), Reason: "holiday"})
	require.NoError(t, err)
	require.Equal(t, 3, r.TotalDays)
	require.Equal(t, 24.0, r.TotalHours)
	require.Equal(t, domain.LeaveStatusPending, r.Status)

	r, err = svc.Review(ctx, ReviewCommand{ID: r.ID, Approve: true, ReviewedBy: "manager"})
	require.NoError(t, err)
	require.Equal(t, domain.LeaveStatusApproved, r.Status)
	require.NotNil(t, r.ReviewedAt)
	require.Len(t, notifier.reviewed, 1)

	b := store.balances[[2]int64{1, 2025}]
	require.NotNil(t, b)
	require.Equal(t, 2, b.QuartersCompleted)
	require.Equal(t, 24.0, b.HoursUsed)
	require.Equal(t, 32.0, b.HoursRemaining)

	_, err = svc.Review(ctx, ReviewCommand{ID: r.ID, Approve: false, ReviewedBy: "manager", RejectionReason: "late"})
	require.True(t, domain.IsKind(err, domain.KindInvalidTransition))
}

func TestService_RejectRequiresReason(t *testing.T) {
	store := newMemoryStore()
	svc := newService(store, nil)
	ctx := context.Background()

	r, err := svc.Submit(ctx, SubmitCommand{WorkerID: 1, StartDate: date(2025, 3, 11), EndDate: date(2025, 3, 11)})
	require.NoError(t, err)

	_, err = svc.Review(ctx, ReviewCommand{ID: r.ID, ReviewedBy: "manager"})
	require.True(t, domain.IsKind(err, domain.KindApprovalIncomplete))

	r, err = svc.Review(ctx, ReviewCommand{ID: r.ID, ReviewedBy: "manager", RejectionReason: "short staffed"})
	require.NoError(t, err)
	require.Equal(t, domain.LeaveStatusRejected, r.Status)
	require.Equal(t, 0.0, store.balances[[2]int64{1, 2025}].HoursUsed)
}

func TestService_SubmitValidation(t *testing.T) {
	svc := newService(newMemoryStore(), nil)
	ctx := context.Background()

	_, err := svc.Submit(ctx, SubmitCommand{WorkerID: 1, StartDate: date(2025, 3, 11), EndDate: date(2025, 3, 10)})
	require.True(t, domain.IsKind(err, domain.KindValidationBlocking))

	_, err = svc.Submit(ctx, SubmitCommand{WorkerID: 9, StartDate: date(2025, 3, 11), EndDate: date(2025, 3, 11)})
	require.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestService_CarryOverFromPreviousYear(t *testing.T) {
	store := newMemoryStore()
	store.balances[[2]int64{1, 2024}] = &domain.LeaveBalance{WorkerID: 1, Year: 2024, HoursRemaining: 20}
	svc := newService(store, nil)

	b, err := svc.CalculateBalance(context.Background(), 1, 2025)
	require.NoError(t, err)
	require.Equal(t, 20.0, b.CarryOverHours)
	require.Equal(t, 76.0, b.HoursRemaining)
	require.Equal(t, b.HoursAccrued+b.CarryOverHours-b.HoursUsed, b.HoursRemaining)
}
