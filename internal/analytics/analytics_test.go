package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/pkg/kafka"
)

func event(company, tier string, latency int64, cacheHit bool, sources ...string) GenerationEvent {
	return GenerationEvent{
		RequestID:   company + "-" + tier,
		CompanyID:   company,
		SectionType: "summary",
		Tier:        tier,
		Sources:     sources,
		CacheHit:    cacheHit,
		LatencyMs:   latency,
		Timestamp:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestAggregator_Stats(t *testing.T) {
	agg := NewAggregator()
	ctx := context.Background()
	agg.Record(ctx, event("acme", "exact", 10, false, "d1"))
	agg.Record(ctx, event("acme", "company", 20, true, "d2"))
	agg.Record(ctx, event("globex", "all", 30, false))

	s := agg.Stats()
	assert.Equal(t, int64(3), s.TotalGenerations)
	assert.Equal(t, map[string]int64{"exact": 1, "company": 1, "all": 1}, s.ByTier)
	assert.Equal(t, int64(1), s.CacheHits)
	assert.Equal(t, int64(2), s.CacheMisses)
	assert.Equal(t, int64(1), s.EmptyResults)
	assert.InDelta(t, 20.0, s.AvgLatencyMs, 0.001)
	assert.Equal(t, int64(20), s.P50LatencyMs)
	assert.Equal(t, int64(30), s.P99LatencyMs)
	assert.Equal(t, []Count{{Key: "acme", Count: 2}, {Key: "globex", Count: 1}}, s.TopCompanies)
	assert.Equal(t, []Count{{Key: "summary", Count: 3}}, s.TopSections)
}

func TestAggregator_LatencyWindowIsBounded(t *testing.T) {
	agg := NewAggregator()
	for i := 0; i < maxLatencySamples+10; i++ {
		agg.Record(context.Background(), event("acme", "exact", int64(i), false))
	}
	assert.Len(t, agg.latencies, maxLatencySamples)
	assert.Equal(t, int64(maxLatencySamples+10), agg.Stats().TotalGenerations)
}

func TestAggregator_Restore(t *testing.T) {
	agg := NewAggregator()
	agg.Restore(Stats{
		TotalGenerations: 5,
		ByTier:           map[string]int64{"exact": 5},
		TopCompanies:     []Count{{Key: "acme", Count: 5}},
	})
	agg.Record(context.Background(), event("acme", "exact", 1, false, "d1"))

	s := agg.Stats()
	assert.Equal(t, int64(6), s.TotalGenerations)
	assert.Equal(t, int64(6), s.ByTier["exact"])
	assert.Equal(t, []Count{{Key: "acme", Count: 6}}, s.TopCompanies)
}

func TestAggregator_RestoreKeepsRateWindow(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	agg := NewAggregator()
	agg.startTime = now
	agg.now = func() time.Time { return now.Add(time.Minute) }

	agg.Restore(Stats{TotalGenerations: 100, Since: now.Add(-9 * time.Minute)})

	s := agg.Stats()
	assert.Equal(t, now.Add(-9*time.Minute), s.Since)
	assert.InDelta(t, 10.0, s.GenerationsPerMinute, 0.001)
}

func TestAggregator_RestoreWithoutSince(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	agg := NewAggregator()
	agg.startTime = now
	agg.now = func() time.Time { return now.Add(2 * time.Minute) }

	agg.Restore(Stats{TotalGenerations: 10})
	assert.Equal(t, now, agg.Stats().Since)
}

func TestHandleEvent(t *testing.T) {
	agg := NewAggregator()
	handle := HandleEvent(agg)

	value, err := json.Marshal(event("acme", "exact", 5, false, "d1"))
	require.NoError(t, err)
	require.NoError(t, handle(context.Background(), []byte("acme"), value))
	require.NoError(t, handle(context.Background(), []byte("bad"), []byte("{oops")))

	assert.Equal(t, int64(1), agg.Stats().TotalGenerations)
}

func TestHandler_Stats(t *testing.T) {
	agg := NewAggregator()
	agg.Record(context.Background(), event("acme", "exact", 5, false, "d1"))

	rec := httptest.NewRecorder()
	NewHandler(agg).Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(1), body.TotalGenerations)
}

type fakePublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	err     error
}

func (f *fakePublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, append([]kafka.Event(nil), events...))
	return f.err
}

func (f *fakePublisher) published() []kafka.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []kafka.Event
	for _, b := range f.batches {
		all = append(all, b...)
	}
	return all
}

func TestCollector_BatchesAndFlushesOnClose(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, CollectorConfig{BatchSize: 2, FlushInterval: time.Hour})
	c.Start()

	for _, company := range []string{"acme", "globex", "initech"} {
		c.Record(context.Background(), event(company, "exact", 1, false))
	}
	c.Close()

	got := pub.published()
	require.Len(t, got, 3)
	assert.Equal(t, "acme", got[0].Key)
	assert.Equal(t, "initech", got[2].Key)
	assert.Len(t, pub.batches[0], 2)
}

func TestCollector_FlushesOnInterval(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, CollectorConfig{BatchSize: 100, FlushInterval: 10 * time.Millisecond})
	c.Start()
	defer c.Close()

	c.Record(context.Background(), event("acme", "exact", 1, false))
	assert.Eventually(t, func() bool { return len(pub.published()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestCollector_DropsWhenFull(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	c := NewCollector(pub, CollectorConfig{BufferSize: 1})
	// Not started: the channel fills after one event.
	c.Record(context.Background(), event("acme", "exact", 1, false))
	c.Record(context.Background(), event("globex", "exact", 1, false))
	assert.Len(t, c.eventCh, 1)
}

func TestCollector_RecordAfterClose(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, CollectorConfig{})
	c.Start()
	c.Record(context.Background(), event("acme", "exact", 1, false))
	c.Close()

	assert.NotPanics(t, func() {
		c.Record(context.Background(), event("globex", "exact", 1, false))
		c.Close()
	})
	require.Len(t, pub.published(), 1)
	assert.Equal(t, "acme", pub.published()[0].Key)
}

type countingRecorder struct{ n int }

func (c *countingRecorder) Record(context.Context, GenerationEvent) { c.n++ }

func TestFanout(t *testing.T) {
	a, b := &countingRecorder{}, &countingRecorder{}
	Fanout{a, nil, b}.Record(context.Background(), event("acme", "exact", 1, false))
	assert.Equal(t, 1, a.n)
	assert.Equal(t, 1, b.n)
}
