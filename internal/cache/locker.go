// Package cache 基于 Redis 实现站点时段锁与待审批批次的存储。
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sysu-ecnc-dev/care-roster/backend/internal/domain"
)

// unlockScript 只删除自己持有的锁，避免锁过期后误删其他请求的锁
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type SlotLocker struct {
	rdb      *redis.Client
	ttl      time.Duration
	attempts int
	backoff  time.Duration
	logger   *slog.Logger
}

func NewSlotLocker(rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *SlotLocker {
	return &SlotLocker{
		rdb:      rdb,
		ttl:      ttl,
		attempts: 20,
		backoff:  50 * time.Millisecond,
		logger:   logger,
	}
}

func slotKey(siteID int64, date time.Time) string {
	return fmt.Sprintf("roster_slot_%d_%s", siteID, domain.DateOnly(date).Format(time.DateOnly))
}

// LockSlot 获取 (站点, 日期) 的锁，锁在 ttl 后自动过期
func (l *SlotLocker) LockSlot(ctx context.Context, siteID int64, date time.Time) (func(), error) {
	key := slotKey(siteID, date)
	token := uuid.NewString()

	for i := 0; i < l.attempts; i++ {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				// 请求的 context 可能已经结束，解锁不应受其影响
				if err := unlockScript.Run(context.Background(), l.rdb, []string{key}, token).Err(); err != nil {
					l.logger.Error("释放站点锁失败", slog.String("key", key), slog.String("error", err.Error()))
				}
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.backoff):
		}
	}

	return nil, domain.NewError(domain.KindEditConflict,
		"站点 %d 在 %s 的排班正在被修改，请稍后重试", siteID, domain.DateOnly(date).Format(time.DateOnly))
}
