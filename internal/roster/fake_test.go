package roster

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/sysu-ecnc-dev/care-roster/backend/internal/approval"
	"github.com/sysu-ecnc-dev/care-roster/backend/internal/domain"
)

type memoryStore struct {
	mu      sync.Mutex
	shifts  map[int64]*domain.Shift
	workers map[int64]*domain.Worker
	sites   map[int64]*domain.Site
	nextID  int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		shifts:  make(map[int64]*domain.Shift),
		workers: make(map[int64]*domain.Worker),
		sites:   make(map[int64]*domain.Site),
	}
}

func (s *memoryStore) all() []*domain.Shift {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedClones(s.shifts)
}

func sortedClones(m map[int64]*domain.Shift) []*domain.Shift {
	out := make([]*domain.Shift, 0, len(m))
	for _, v := range m {
		out = append(out, v.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memoryStore) GetShiftByID(_ context.Context, id int64) (*domain.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return getShift(s.shifts, id)
}

func getShift(m map[int64]*domain.Shift, id int64) (*domain.Shift, error) {
	v, ok := m[id]
	if !ok {
		return nil, domain.NotFound("班次", id)
	}
	return v.Clone(), nil
}

func (s *memoryStore) ListShiftsBySiteAndDate(_ context.Context, siteID int64, date time.Time) ([]*domain.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return bySiteAndDate(s.shifts, siteID, date), nil
}

func bySiteAndDate(m map[int64]*domain.Shift, siteID int64, date time.Time) []*domain.Shift {
	out := []*domain.Shift{}
	for _, v := range sortedClones(m) {
		if v.SiteID == siteID && v.Date.Equal(domain.DateOnly(date)) {
			out = append(out, v)
		}
	}
	return out
}

func (s *memoryStore) ListShiftsBetween(_ context.Context, from, to time.Time) ([]*domain.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*domain.Shift{}
	for _, v := range sortedClones(s.shifts) {
		if !v.Date.Before(from) && v.Date.Before(to) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *memoryStore) GetWorkersByIDs(_ context.Context, ids []int64) (map[int64]*domain.Worker, error) {
	out := make(map[int64]*domain.Worker)
	for _, id := range ids {
		if w, ok := s.workers[id]; ok {
			out[id] = w
		}
	}
	return out, nil
}

func (s *memoryStore) GetSitesByIDs(_ context.Context, ids []int64) (map[int64]*domain.Site, error) {
	out := make(map[int64]*domain.Site)
	for _, id := range ids {
		if v, ok := s.sites[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

// InTx 在副本上执行，成功后整体替换，模拟事务的原子性
func (s *memoryStore) InTx(ctx context.Context, fn func(tx ShiftWriter) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{shifts: make(map[int64]*domain.Shift), nextID: s.nextID}
	for id, v := range s.shifts {
		tx.shifts[id] = v.Clone()
	}
	if err := fn(tx); err != nil {
		return err
	}
	s.shifts = tx.shifts
	s.nextID = tx.nextID
	return nil
}

type memoryTx struct {
	shifts map[int64]*domain.Shift
	nextID int64
}

func (tx *memoryTx) GetShiftByID(_ context.Context, id int64) (*domain.Shift, error) {
	return getShift(tx.shifts, id)
}

func (tx *memoryTx) ListShiftsBySiteAndDate(_ context.Context, siteID int64, date time.Time) ([]*domain.Shift, error) {
	return bySiteAndDate(tx.shifts, siteID, date), nil
}

func (tx *memoryTx) InsertShift(_ context.Context, s *domain.Shift) error {
	tx.nextID++
	s.ID = tx.nextID
	s.Version = 1
	tx.shifts[s.ID] = s.Clone()
	return nil
}

func (tx *memoryTx) UpdateShift(_ context.Context, s *domain.Shift) error {
	cur, ok := tx.shifts[s.ID]
	if !ok {
		return domain.NotFound("班次", s.ID)
	}
	if cur.Version != s.Version {
		return domain.ErrEditConflict
	}
	s.Version++
	tx.shifts[s.ID] = s.Clone()
	return nil
}

func (tx *memoryTx) DeleteShift(_ context.Context, s *domain.Shift) error {
	cur, ok := tx.shifts[s.ID]
	if !ok {
		return domain.NotFound("班次", s.ID)
	}
	if cur.Version != s.Version {
		return domain.ErrEditConflict
	}
	delete(tx.shifts, s.ID)
	return nil
}

type memoryBatches struct {
	batches map[string]*approval.Batch
}

func newMemoryBatches() *memoryBatches {
	return &memoryBatches{batches: make(map[string]*approval.Batch)}
}

func (b *memoryBatches) SaveBatch(_ context.Context, batch *approval.Batch) error {
	b.batches[batch.ID] = batch
	return nil
}

func (b *memoryBatches) GetBatch(_ context.Context, id string) (*approval.Batch, error) {
	batch, ok := b.batches[id]
	if !ok {
		return nil, domain.NewError(domain.KindNotFound, "批次 %s 不存在", id)
	}
	return batch, nil
}

func (b *memoryBatches) DeleteBatch(_ context.Context, id string) error {
	delete(b.batches, id)
	return nil
}

type recordingObserver struct {
	events []ShiftEvent
	err    error
}

func (o *recordingObserver) ShiftsChanged(_ context.Context, ev ShiftEvent) error {
	o.events = append(o.events, ev)
	return o.err
}

var errBrokerDown = errors.New("broker down")
