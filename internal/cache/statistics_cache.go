package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/reparafacil/repair-service/internal/events"
)

const (
	statisticsKey           = "reparafacil:stats:summary"
	statisticsGenerationKey = "reparafacil:stats:generation"
)

// StatisticsCache keeps the last statistics snapshot in Redis as JSON next to
// a generation counter bumped on every invalidation.
type StatisticsCache struct {
	client *redis.Client
	ttl    time.Duration
	key    string
	genKey string
	logger *zap.Logger
}

// NewStatisticsCache builds a cache on the given client.
func NewStatisticsCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *StatisticsCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatisticsCache{
		client: client,
		ttl:    ttl,
		key:    statisticsKey,
		genKey: statisticsGenerationKey,
		logger: logger,
	}
}

// Get decodes the cached snapshot into dst. It reports false on a miss.
func (c *StatisticsCache) Get(ctx context.Context, dst any) (bool, error) {
	payload, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read statistics cache: %w", err)
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return false, fmt.Errorf("decode statistics cache: %w", err)
	}
	return true, nil
}

// Generation returns the current invalidation counter; zero before the first
// invalidation.
func (c *StatisticsCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, c.genKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read statistics generation: %w", err)
	}
	return gen, nil
}

// SetIfGeneration stores the snapshot with the configured TTL unless the
// generation moved past the given value. It reports whether it wrote.
func (c *StatisticsCache) SetIfGeneration(ctx context.Context, generation int64, value any) (bool, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("encode statistics cache: %w", err)
	}

	stored := false
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, c.genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.key, payload, c.ttl)
			return nil
		})
		if err == nil {
			stored = true
		}
		return err
	}, c.genKey)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("write statistics cache: %w", err)
	}
	return stored, nil
}

// Invalidate bumps the generation and drops the snapshot atomically.
func (c *StatisticsCache) Invalidate(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, c.genKey)
		pipe.Del(ctx, c.key)
		return nil
	})
	return err
}

// Subscribe drops the snapshot whenever a ticket changes.
func (c *StatisticsCache) Subscribe(dispatcher events.Dispatcher) {
	handler := func(ctx context.Context, event events.Event) error {
		if err := c.Invalidate(ctx); err != nil {
			c.logger.Warn("statistics cache invalidation failed",
				zap.String("event_type", string(event.Type)),
				zap.Error(err))
			return err
		}
		return nil
	}
	for _, eventType := range events.TicketEventTypes {
		dispatcher.Subscribe(eventType, handler)
	}
}
