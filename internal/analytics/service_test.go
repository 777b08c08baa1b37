package analytics

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/veltaire/storefront/internal/events"
	"github.com/veltaire/storefront/internal/kafka"
)

// memStore keeps the handful of keys the tally touches in maps.
type memStore struct {
	strings map[string]string
	ints    map[string]int64
	zsets   map[string]map[string]float64
}

func newMemStore() *memStore {
	return &memStore{
		strings: map[string]string{},
		ints:    map[string]int64{},
		zsets:   map[string]map[string]float64{},
	}
}

func (s *memStore) Exists(ctx context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := s.strings[k]; ok {
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (s *memStore) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	s.strings[key] = "1"
	return redis.NewStatusResult("OK", nil)
}

func (s *memStore) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := s.strings[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (s *memStore) Incr(ctx context.Context, key string) *redis.IntCmd {
	s.ints[key]++
	return redis.NewIntResult(s.ints[key], nil)
}

func (s *memStore) ZIncrBy(ctx context.Context, key string, increment float64, member string) *redis.FloatCmd {
	if s.zsets[key] == nil {
		s.zsets[key] = map[string]float64{}
	}
	s.zsets[key][member] += increment
	return redis.NewFloatResult(s.zsets[key][member], nil)
}

func (s *memStore) ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) *redis.ZSliceCmd {
	var zs []redis.Z
	for member, score := range s.zsets[key] {
		zs = append(zs, redis.Z{Member: member, Score: score})
	}
	sort.Slice(zs, func(i, j int) bool { return zs[i].Score > zs[j].Score })
	if stop >= 0 && int64(len(zs)) > stop+1 {
		zs = zs[:stop+1]
	}
	return redis.NewZSliceCmdResult(zs, nil)
}

func envelope(eventID, eventType string, occurredAt time.Time, payload any) kafkago.Message {
	env := events.Envelope{
		EventID:      eventID,
		EventType:    eventType,
		EventVersion: 1,
		OccurredAt:   occurredAt,
		Producer:     "test",
		Payload:      kafka.MustMarshal(payload),
	}
	return kafkago.Message{Value: kafka.MustMarshal(env)}
}

func testService() (*Service, *memStore) {
	store := newMemStore()
	return &Service{Redis: store, Log: zap.NewNop()}, store
}

func TestItemAddedTallied(t *testing.T) {
	svc, store := testService()
	ctx := context.Background()

	m := envelope("evt-1", events.EventItemAdded, time.Now(), events.ItemAddedPayload{
		CartID: "c1", ProductID: "p1", Quantity: 2,
	})
	require.NoError(t, svc.HandleCartActivity(ctx, m))
	assert.Equal(t, 2.0, store.zsets["analytics:cart:adds"]["p1"])
}

func TestRedeliveryCountedOnce(t *testing.T) {
	svc, store := testService()
	ctx := context.Background()

	m := envelope("evt-dup", events.EventItemAdded, time.Now(), events.ItemAddedPayload{
		CartID: "c1", ProductID: "p1", Quantity: 1,
	})
	require.NoError(t, svc.HandleCartActivity(ctx, m))
	require.NoError(t, svc.HandleCartActivity(ctx, m))
	assert.Equal(t, 1.0, store.zsets["analytics:cart:adds"]["p1"], "same event id increments once")
}

func TestCheckoutStartsPerDay(t *testing.T) {
	svc, store := testService()
	ctx := context.Background()
	day := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)

	for i, id := range []string{"evt-a", "evt-b"} {
		m := envelope(id, events.EventCheckoutStarted, day, events.CheckoutStartedPayload{CartID: "c1"})
		require.NoError(t, svc.HandleCartActivity(ctx, m), "event %d", i)
	}
	assert.Equal(t, int64(2), store.ints["analytics:checkout:2026-08-30"])

	// the read side goes through Get, which this fake serves from strings
	store.strings["analytics:checkout:2026-08-30"] = "2"
	n, err := svc.CheckoutStarts(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestCheckoutStartsMissingDay(t *testing.T) {
	svc, _ := testService()

	n, err := svc.CheckoutStarts(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestUntalliedEventsStillDeduped(t *testing.T) {
	svc, store := testService()
	ctx := context.Background()

	m := envelope("evt-rm", events.EventItemRemoved, time.Now(), events.ItemUpdatedPayload{
		CartID: "c1", ProductID: "p1", Quantity: 0,
	})
	require.NoError(t, svc.HandleCartActivity(ctx, m))
	assert.Contains(t, store.strings, "dedup:analytics:evt-rm")
}

func TestTopAddsOrdered(t *testing.T) {
	svc, _ := testService()
	ctx := context.Background()

	adds := []struct {
		id  string
		p   string
		qty int
	}{
		{"evt-1", "p1", 1},
		{"evt-2", "p2", 5},
		{"evt-3", "p1", 2},
	}
	for _, a := range adds {
		m := envelope(a.id, events.EventItemAdded, time.Now(), events.ItemAddedPayload{
			CartID: "c1", ProductID: a.p, Quantity: a.qty,
		})
		require.NoError(t, svc.HandleCartActivity(ctx, m))
	}

	top, err := svc.TopAdds(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "p2", top[0].Member)
	assert.Equal(t, 5.0, top[0].Score)
	assert.Equal(t, "p1", top[1].Member)
	assert.Equal(t, 3.0, top[1].Score)
}

func TestMalformedEnvelopeRejected(t *testing.T) {
	svc, _ := testService()

	err := svc.HandleCartActivity(context.Background(), kafkago.Message{Value: []byte("{")})
	assert.Error(t, err)
}
