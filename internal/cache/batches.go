package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sysu-ecnc-dev/care-roster/backend/internal/approval"
	"github.com/sysu-ecnc-dev/care-roster/backend/internal/domain"
)

// BatchStore 待审批的批次保存在 Redis 中，过期后视为被丢弃
type BatchStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewBatchStore(rdb *redis.Client, ttl time.Duration) *BatchStore {
	return &BatchStore{rdb: rdb, ttl: ttl}
}

func batchKey(id string) string {
	return "roster_batch_" + id
}

func (s *BatchStore) SaveBatch(ctx context.Context, b *approval.Batch) error {
	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, batchKey(b.ID), data, s.ttl).Err()
}

func (s *BatchStore) GetBatch(ctx context.Context, id string) (*approval.Batch, error) {
	data, err := s.rdb.Get(ctx, batchKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.NewError(domain.KindNotFound, "批次 %s 不存在或已过期", id)
		}
		return nil, err
	}

	b := &approval.Batch{}
	if err := json.Unmarshal(data, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *BatchStore) DeleteBatch(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, batchKey(id)).Err()
}
