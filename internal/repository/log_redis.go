package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"X402/internal/domain/models"
	drepo "X402/internal/domain/repository"

	"github.com/redis/go-redis/v9"
)

// RedisLogStore keeps the audit trail in a capped Redis list, newest at the head.
type RedisLogStore struct {
	client   redis.Cmdable
	key      string
	capacity int64
}

var _ drepo.LogStore = (*RedisLogStore)(nil)

func NewRedisLogStore(client redis.Cmdable, key string, capacity int) *RedisLogStore {
	if capacity < models.MaxRecentLogs {
		capacity = models.MaxRecentLogs
	}
	return &RedisLogStore{client: client, key: key, capacity: int64(capacity)}
}

func (s *RedisLogStore) Append(ctx context.Context, e models.LogEntry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode log entry: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, s.key, b)
	pipe.LTrim(ctx, s.key, 0, s.capacity-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append log entry: %w", err)
	}
	return nil
}

func (s *RedisLogStore) Recent(ctx context.Context, n int) ([]models.LogEntry, error) {
	if n <= 0 {
		return []models.LogEntry{}, nil
	}
	raw, err := s.client.LRange(ctx, s.key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read log entries: %w", err)
	}
	out := make([]models.LogEntry, 0, len(raw))
	for _, r := range raw {
		var e models.LogEntry
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			continue // skip foreign values
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *RedisLogStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}
