package roster

import (
	"context"
	"time"

	"github.com/sysu-ecnc-dev/care-roster/backend/internal/approval"
	"github.com/sysu-ecnc-dev/care-roster/backend/internal/domain"
)

// ShiftReader 读取已提交的班次
type ShiftReader interface {
	GetShiftByID(ctx context.Context, id int64) (*domain.Shift, error)
	// ListShiftsBySiteAndDate 在事务中调用时应锁定返回的行
	ListShiftsBySiteAndDate(ctx context.Context, siteID int64, date time.Time) ([]*domain.Shift, error)
}

// ShiftWriter 在一个事务内修改班次，UpdateShift 与 DeleteShift 按 Version 做乐观锁检查
type ShiftWriter interface {
	ShiftReader
	InsertShift(ctx context.Context, s *domain.Shift) error
	UpdateShift(ctx context.Context, s *domain.Shift) error
	DeleteShift(ctx context.Context, s *domain.Shift) error
}

type Store interface {
	ShiftReader
	// ListShiftsBetween 返回日期在 [from, to) 内的所有班次
	ListShiftsBetween(ctx context.Context, from, to time.Time) ([]*domain.Shift, error)
	GetWorkersByIDs(ctx context.Context, ids []int64) (map[int64]*domain.Worker, error)
	GetSitesByIDs(ctx context.Context, ids []int64) (map[int64]*domain.Site, error)
	// InTx 在一个事务中执行 fn，fn 返回错误时回滚
	InTx(ctx context.Context, fn func(tx ShiftWriter) error) error
}

// Locker 按 (站点, 日期) 加锁，缩小读取-校验-写入之间的竞争窗口
type Locker interface {
	LockSlot(ctx context.Context, siteID int64, date time.Time) (unlock func(), err error)
}

// BatchStore 保存等待审批的批次
type BatchStore interface {
	SaveBatch(ctx context.Context, b *approval.Batch) error
	GetBatch(ctx context.Context, id string) (*approval.Batch, error)
	DeleteBatch(ctx context.Context, id string) error
}

type EventType string

const (
	EventCreated       EventType = "created"
	EventReplaced      EventType = "replaced"
	EventSplit         EventType = "split"
	EventExtended      EventType = "extended"
	EventEdited        EventType = "edited"
	EventRemoved       EventType = "removed"
	EventConverted     EventType = "converted_24h"
	EventStatusChanged EventType = "status_changed"
)

// ShiftEvent 一次成功提交后产生的变更
type ShiftEvent struct {
	Type       EventType       `json:"type"`
	Shifts     []*domain.Shift `json:"shifts"`
	Removed    []*domain.Shift `json:"removed"`
	Reason     string          `json:"reason"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// Observer 接收提交后的变更通知，返回的错误只会被记录，不会回滚已提交的操作
type Observer interface {
	ShiftsChanged(ctx context.Context, ev ShiftEvent) error
}

type nopLocker struct{}

func (nopLocker) LockSlot(context.Context, int64, time.Time) (func(), error) {
	return func() {}, nil
}

type nopObserver struct{}

func (nopObserver) ShiftsChanged(context.Context, ShiftEvent) error {
	return nil
}
