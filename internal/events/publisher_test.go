package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"

	"github.com/sysu-ecnc-dev/care-roster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/care-roster/backend/internal/roster"
)

type recordingChannel struct {
	queue string
	sent  []domain.NotificationMessage
	err   error
}

func (c *recordingChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	if c.err != nil {
		return c.err
	}
	c.queue = key
	var m domain.NotificationMessage
	if err := json.Unmarshal(msg.Body, &m); err != nil {
		return err
	}
	c.sent = append(c.sent, m)
	return nil
}

type memoryDirectory struct {
	workers map[int64]*domain.Worker
	sites   map[int64]*domain.Site
}

func (d *memoryDirectory) GetWorkersByIDs(_ context.Context, ids []int64) (map[int64]*domain.Worker, error) {
	out := make(map[int64]*domain.Worker)
	for _, id := range ids {
		if w, ok := d.workers[id]; ok {
			out[id] = w
		}
	}
	return out, nil
}

func (d *memoryDirectory) GetSitesByIDs(_ context.Context, ids []int64) (map[int64]*domain.Site, error) {
	out := make(map[int64]*domain.Site)
	for _, id := range ids {
		if s, ok := d.sites[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

func (d *memoryDirectory) GetWorkerByID(_ context.Context, id int64) (*domain.Worker, error) {
	w, ok := d.workers[id]
	if !ok {
		return nil, domain.NotFound("员工", id)
	}
	return w, nil
}

func int64Ptr(v int64) *int64 { return &v }

func newTestPublisher() (*Publisher, *recordingChannel) {
	chatID := int64(5550001)
	dir := &memoryDirectory{
		workers: map[int64]*domain.Worker{
			1: {ID: 1, FullName: "张三", Email: "zhangsan@example.com", TelegramChatID: &chatID},
			2: {ID: 2, FullName: "李四", Email: "lisi@example.com"},
		},
		sites: map[int64]*domain.Site{
			7: {ID: 7, Name: "东区护理站"},
		},
	}
	ch := &recordingChannel{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPublisher(ch, "roster_notifications", time.Second, dir, logger), ch
}

func shift(id int64, worker *int64) *domain.Shift {
	return &domain.Shift{
		ID:             id,
		SiteID:         7,
		WorkerID:       worker,
		Date:           time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		StartTime:      "08:00",
		EndTime:        "20:00",
		Classification: domain.ClassificationDay,
		Status:         domain.StatusPending,
	}
}

func TestShiftsChanged_Created(t *testing.T) {
	p, ch := newTestPublisher()

	err := p.ShiftsChanged(context.Background(), roster.ShiftEvent{
		Type:   roster.EventCreated,
		Shifts: []*domain.Shift{shift(1, int64Ptr(1)), shift(2, nil)},
	})
	require.NoError(t, err)
	require.Equal(t, "roster_notifications", ch.queue)
	require.Len(t, ch.sent, 1)

	msg := ch.sent[0]
	require.Equal(t, domain.NotificationShiftAssigned, msg.Type)
	require.Equal(t, "zhangsan@example.com", msg.To)
	require.NotNil(t, msg.ChatID)
	require.EqualValues(t, 5550001, *msg.ChatID)

	data, ok := msg.Data.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "东区护理站", data["siteName"])
}

func TestShiftsChanged_Split(t *testing.T) {
	p, ch := newTestPublisher()

	err := p.ShiftsChanged(context.Background(), roster.ShiftEvent{
		Type:    roster.EventSplit,
		Shifts:  []*domain.Shift{shift(3, int64Ptr(1)), shift(4, int64Ptr(2))},
		Removed: []*domain.Shift{shift(1, int64Ptr(1))},
	})
	require.NoError(t, err)
	require.Len(t, ch.sent, 2)
	require.Equal(t, domain.NotificationShiftChanged, ch.sent[0].Type)
	require.Equal(t, domain.NotificationShiftAssigned, ch.sent[1].Type)
	require.Equal(t, "lisi@example.com", ch.sent[1].To)
}

func TestShiftsChanged_Replaced(t *testing.T) {
	p, ch := newTestPublisher()

	err := p.ShiftsChanged(context.Background(), roster.ShiftEvent{
		Type:    roster.EventReplaced,
		Shifts:  []*domain.Shift{shift(5, int64Ptr(2))},
		Removed: []*domain.Shift{shift(1, int64Ptr(1))},
		Reason:  "病假",
	})
	require.NoError(t, err)
	require.Len(t, ch.sent, 2)
	require.Equal(t, domain.NotificationShiftAssigned, ch.sent[0].Type)
	require.Equal(t, domain.NotificationShiftRemoved, ch.sent[1].Type)
	require.Equal(t, "zhangsan@example.com", ch.sent[1].To)
}

func TestShiftsChanged_BankOnly(t *testing.T) {
	p, ch := newTestPublisher()

	err := p.ShiftsChanged(context.Background(), roster.ShiftEvent{
		Type:    roster.EventRemoved,
		Removed: []*domain.Shift{shift(1, nil)},
	})
	require.NoError(t, err)
	require.Empty(t, ch.sent)
}

func TestShiftsChanged_PublishError(t *testing.T) {
	p, ch := newTestPublisher()
	ch.err = errors.New("channel closed")

	err := p.ShiftsChanged(context.Background(), roster.ShiftEvent{
		Type:   roster.EventEdited,
		Shifts: []*domain.Shift{shift(1, int64Ptr(1))},
	})
	require.Error(t, err)
}

func TestLeaveReviewed(t *testing.T) {
	p, ch := newTestPublisher()

	err := p.LeaveReviewed(context.Background(), &domain.LeaveRequest{
		ID:              9,
		WorkerID:        2,
		Status:          domain.LeaveStatusRejected,
		ReviewedBy:      "王经理",
		RejectionReason: "人手不足",
	})
	require.NoError(t, err)
	require.Len(t, ch.sent, 1)
	require.Equal(t, domain.NotificationLeaveReviewed, ch.sent[0].Type)
	require.Nil(t, ch.sent[0].ChatID)

	err = p.LeaveReviewed(context.Background(), &domain.LeaveRequest{ID: 10, WorkerID: 99})
	require.True(t, domain.IsKind(err, domain.KindNotFound))
}
