package numbering

import (
	"context"
	"fmt"
	"sync"
	"time"

	"rma-engine-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Sequencer hands out human-readable RMA numbers, RMA-YYYYMMDD-NNNNN,
// counted per company per day.
type Sequencer interface {
	Next(ctx context.Context, companyID uuid.UUID, now time.Time) (string, error)
}

func Format(day time.Time, seq int64) string {
	return fmt.Sprintf("RMA-%s-%05d", day.UTC().Format("20060102"), seq)
}

func dayKey(companyID uuid.UUID, now time.Time) string {
	return fmt.Sprintf("rma:seq:%s:%s", companyID, now.UTC().Format("20060102"))
}

// LocalSequencer counts in process memory.
type LocalSequencer struct {
	mu       sync.Mutex
	counters map[string]int64
}

func NewLocalSequencer() *LocalSequencer {
	return &LocalSequencer{counters: make(map[string]int64)}
}

func (s *LocalSequencer) Next(ctx context.Context, companyID uuid.UUID, now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dayKey(companyID, now)
	s.counters[key]++
	return Format(now, s.counters[key]), nil
}

// RedisSequencer shares counters across instances through INCR. When Redis is
// unreachable it falls back to a local counter; collisions are then caught by
// the unique RMA number constraint.
type RedisSequencer struct {
	rdb      *redis.Client
	fallback *LocalSequencer
	logger   logger.ILogger
}

func NewRedisSequencer(rdb *redis.Client, logger logger.ILogger) *RedisSequencer {
	return &RedisSequencer{rdb: rdb, fallback: NewLocalSequencer(), logger: logger}
}

func (s *RedisSequencer) Next(ctx context.Context, companyID uuid.UUID, now time.Time) (string, error) {
	if s.rdb == nil {
		return s.fallback.Next(ctx, companyID, now)
	}

	key := dayKey(companyID, now)
	seq, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		s.logger.Warn("RMA", "Redis sequence unavailable, using local counter", map[string]interface{}{
			"company_id": companyID.String(),
			"error":      err.Error(),
		})
		return s.fallback.Next(ctx, companyID, now)
	}
	if seq == 1 {
		s.rdb.Expire(ctx, key, 48*time.Hour)
	}
	return Format(now, seq), nil
}
