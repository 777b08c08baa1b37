// Package analytics tallies storefront activity events into Redis
// counters. Consumption is at-least-once; a per-event dedup key keeps
// the tallies from double counting on redelivery.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/veltaire/storefront/internal/events"
	"github.com/veltaire/storefront/internal/kafka"
	"github.com/veltaire/storefront/internal/redisx"
)

// Store is the slice of the Redis client the tally needs; satisfied by
// *redis.Client.
type Store interface {
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	ZIncrBy(ctx context.Context, key string, increment float64, member string) *redis.FloatCmd
	ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) *redis.ZSliceCmd
}

type Service struct {
	Redis Store
	Log   *zap.Logger
}

// HandleCartActivity is wired as the consumer handler for the cart
// activity topic.
func (s *Service) HandleCartActivity(ctx context.Context, m kafkago.Message) error {
	var env events.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, "analytics", env.EventID)
	if n, _ := s.Redis.Exists(ctx, dkey).Result(); n > 0 {
		return nil
	}

	switch env.EventType {
	case events.EventItemAdded:
		p, err := kafka.UnwrapPayload[events.ItemAddedPayload](env.Payload)
		if err != nil {
			return err
		}
		if err := s.Redis.ZIncrBy(ctx, redisx.KeyCartAdds, float64(p.Quantity), p.ProductID).Err(); err != nil {
			return err
		}

	case events.EventCheckoutStarted:
		day := env.OccurredAt.UTC().Format("2006-01-02")
		key := fmt.Sprintf(redisx.KeyCheckoutStarts, day)
		if err := s.Redis.Incr(ctx, key).Err(); err != nil {
			return err
		}

	default:
		// cart created / updated / removed are not tallied yet
	}

	if err := s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err(); err != nil {
		s.Log.Warn("dedup mark failed", zap.String("event_id", env.EventID), zap.Error(err))
	}
	return nil
}

// TopAdds returns the n most added-to-cart product ids with their tallies.
func (s *Service) TopAdds(ctx context.Context, n int64) ([]redis.Z, error) {
	return s.Redis.ZRevRangeWithScores(ctx, redisx.KeyCartAdds, 0, n-1).Result()
}

// CheckoutStarts returns the tally for one UTC day.
func (s *Service) CheckoutStarts(ctx context.Context, day time.Time) (int64, error) {
	key := fmt.Sprintf(redisx.KeyCheckoutStarts, day.UTC().Format("2006-01-02"))
	n, err := s.Redis.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}
