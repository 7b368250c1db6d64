// Package events 将排班与请假的变更整理为通知消息并投递到 RabbitMQ，由 notifier 进程发送邮件和 Telegram 消息。
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/sysu-ecnc-dev/care-roster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/care-roster/backend/internal/roster"
)

// Channel 是 *amqp.Channel 中发布消息所需的部分
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Directory 用于补全通知中的员工与站点信息
type Directory interface {
	GetWorkersByIDs(ctx context.Context, ids []int64) (map[int64]*domain.Worker, error)
	GetSitesByIDs(ctx context.Context, ids []int64) (map[int64]*domain.Site, error)
	GetWorkerByID(ctx context.Context, id int64) (*domain.Worker, error)
}

type Publisher struct {
	ch      Channel
	queue   string
	timeout time.Duration
	dir     Directory
	logger  *slog.Logger
}

func NewPublisher(ch Channel, queue string, timeout time.Duration, dir Directory, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{ch: ch, queue: queue, timeout: timeout, dir: dir, logger: logger}
}

func (p *Publisher) publish(ctx context.Context, msg *domain.NotificationMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.ch.PublishWithContext(
		ctx,
		"",
		p.queue,
		true,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// ShiftsChanged 为每个受影响的员工投递一条通知，空缺班次没有员工，不发送
func (p *Publisher) ShiftsChanged(ctx context.Context, ev roster.ShiftEvent) error {
	msgs, err := p.shiftMessages(ctx, ev)
	if err != nil {
		return err
	}

	for _, msg := range msgs {
		if err := p.publish(ctx, msg); err != nil {
			return err
		}
		p.logger.Info("已投递排班通知", slog.String("type", string(msg.Type)), slog.String("to", msg.To))
	}
	return nil
}

func (p *Publisher) shiftMessages(ctx context.Context, ev roster.ShiftEvent) ([]*domain.NotificationMessage, error) {
	workerIDs := make([]int64, 0, len(ev.Shifts)+len(ev.Removed))
	siteIDs := make([]int64, 0, len(ev.Shifts)+len(ev.Removed))
	for _, group := range [][]*domain.Shift{ev.Shifts, ev.Removed} {
		for _, s := range group {
			siteIDs = append(siteIDs, s.SiteID)
			if !s.IsBank() {
				workerIDs = append(workerIDs, *s.WorkerID)
			}
		}
	}
	if len(workerIDs) == 0 {
		return nil, nil
	}

	workers, err := p.dir.GetWorkersByIDs(ctx, workerIDs)
	if err != nil {
		return nil, err
	}
	sites, err := p.dir.GetSitesByIDs(ctx, siteIDs)
	if err != nil {
		return nil, err
	}

	// 同一事件中仍有班次的员工收到的是变更通知而非取消通知
	kept := make(map[int64]bool)
	for _, s := range ev.Shifts {
		if !s.IsBank() {
			kept[*s.WorkerID] = true
		}
	}
	removedFrom := make(map[int64]bool)
	for _, s := range ev.Removed {
		if !s.IsBank() {
			removedFrom[*s.WorkerID] = true
		}
	}

	msgs := make([]*domain.NotificationMessage, 0, len(workerIDs))
	build := func(s *domain.Shift, typ domain.NotificationType) {
		w, ok := workers[*s.WorkerID]
		if !ok {
			p.logger.Warn("通知的员工不存在", slog.Int64("workerID", *s.WorkerID))
			return
		}
		data := domain.ShiftNotificationData{
			ShiftID:        s.ID,
			Date:           s.Date,
			StartTime:      s.StartTime,
			EndTime:        s.EndTime,
			Classification: s.Classification,
			Status:         s.Status,
			Reason:         ev.Reason,
		}
		if site, ok := sites[s.SiteID]; ok {
			data.SiteName = site.Name
		}
		msgs = append(msgs, &domain.NotificationMessage{
			Type:     typ,
			To:       w.Email,
			ChatID:   w.TelegramChatID,
			FullName: w.FullName,
			Data:     data,
		})
	}

	for _, s := range ev.Shifts {
		if s.IsBank() {
			continue
		}
		switch {
		case ev.Type == roster.EventStatusChanged:
			build(s, domain.NotificationShiftResponded)
		case ev.Type == roster.EventCreated, ev.Type == roster.EventReplaced:
			build(s, domain.NotificationShiftAssigned)
		case ev.Type == roster.EventSplit && !removedFrom[*s.WorkerID]:
			build(s, domain.NotificationShiftAssigned)
		default:
			build(s, domain.NotificationShiftChanged)
		}
	}
	for _, s := range ev.Removed {
		if s.IsBank() || kept[*s.WorkerID] {
			continue
		}
		build(s, domain.NotificationShiftRemoved)
	}

	return msgs, nil
}

// LeaveReviewed 通知员工请假审批结果
func (p *Publisher) LeaveReviewed(ctx context.Context, r *domain.LeaveRequest) error {
	w, err := p.dir.GetWorkerByID(ctx, r.WorkerID)
	if err != nil {
		return err
	}

	return p.publish(ctx, &domain.NotificationMessage{
		Type:     domain.NotificationLeaveReviewed,
		To:       w.Email,
		ChatID:   w.TelegramChatID,
		FullName: w.FullName,
		Data: domain.LeaveNotificationData{
			LeaveRequestID:  r.ID,
			StartDate:       r.StartDate,
			EndDate:         r.EndDate,
			Status:          r.Status,
			ReviewedBy:      r.ReviewedBy,
			RejectionReason: r.RejectionReason,
		},
	})
}
