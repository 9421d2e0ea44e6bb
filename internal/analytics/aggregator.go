package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/pkg/kafka"
)

// maxLatencySamples bounds the latency window used for percentiles.
const maxLatencySamples = 10000

// Stats is the aggregated view served over HTTP.
type Stats struct {
	TotalGenerations     int64            `json:"total_generations"`
	ByTier               map[string]int64 `json:"by_tier"`
	CacheHits            int64            `json:"cache_hits"`
	CacheMisses          int64            `json:"cache_misses"`
	EmptyResults         int64            `json:"empty_results"`
	AvgLatencyMs         float64          `json:"avg_latency_ms"`
	P50LatencyMs         int64            `json:"p50_latency_ms"`
	P95LatencyMs         int64            `json:"p95_latency_ms"`
	P99LatencyMs         int64            `json:"p99_latency_ms"`
	TopCompanies         []Count          `json:"top_companies"`
	TopSections          []Count          `json:"top_sections"`
	GenerationsPerMinute float64          `json:"generations_per_minute"`
	// Since is when counting began; it survives snapshot restores so the
	// per-minute rate covers the same span as the totals.
	Since                time.Time        `json:"since"`
}

// Count is a key with its number of occurrences.
type Count struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// Aggregator keeps running totals of generation events.
type Aggregator struct {
	mu           sync.RWMutex
	total        int64
	byTier       map[string]int64
	byCompany    map[string]int64
	bySection    map[string]int64
	cacheHits    int64
	cacheMisses  int64
	emptyResults int64
	latencies    []int64
	next         int
	startTime    time.Time
	now          func() time.Time

	logger *slog.Logger
}

var _ Recorder = (*Aggregator)(nil)

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		byTier:    make(map[string]int64),
		byCompany: make(map[string]int64),
		bySection: make(map[string]int64),
		latencies: make([]int64, 0, 1024),
		startTime: time.Now(),
		now:       time.Now,
		logger:    slog.Default().With("component", "analytics-aggregator"),
	}
}

// Record folds event into the totals.
func (a *Aggregator) Record(_ context.Context, event GenerationEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.total++
	a.byTier[event.Tier]++
	a.byCompany[event.CompanyID]++
	a.bySection[event.SectionType]++
	if event.CacheHit {
		a.cacheHits++
	} else {
		a.cacheMisses++
	}
	if len(event.Sources) == 0 {
		a.emptyResults++
	}
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.next] = event.LatencyMs
		a.next = (a.next + 1) % maxLatencySamples
	}
}

// HandleEvent adapts the aggregator to a Kafka consumer. Undecodable
// messages are logged and acknowledged so they do not block the partition.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key, value []byte) error {
		event, err := kafka.DecodeJSON[GenerationEvent](value)
		if err != nil {
			agg.logger.Warn("skipping undecodable generation event", "key", string(key), "error", err)
			return nil
		}
		agg.Record(ctx, event)
		return nil
	}
}

// Stats returns a snapshot of the aggregated values.
func (a *Aggregator) Stats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := Stats{
		TotalGenerations: a.total,
		ByTier:           make(map[string]int64, len(a.byTier)),
		CacheHits:        a.cacheHits,
		CacheMisses:      a.cacheMisses,
		EmptyResults:     a.emptyResults,
		TopCompanies:     topN(a.byCompany, 10),
		TopSections:      topN(a.bySection, 10),
		Since:            a.startTime,
	}
	for tier, n := range a.byTier {
		stats.ByTier[tier] = n
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	if elapsed := a.now().Sub(a.startTime).Minutes(); elapsed > 0 {
		stats.GenerationsPerMinute = float64(a.total) / elapsed
	}
	return stats
}

// Restore seeds the counters from a persisted snapshot, including the time
// counting began. Latency samples are not persisted and start empty.
func (a *Aggregator) Restore(s Stats) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !s.Since.IsZero() && s.Since.Before(a.startTime) {
		a.startTime = s.Since
	}
	a.total = s.TotalGenerations
	a.cacheHits = s.CacheHits
	a.cacheMisses = s.CacheMisses
	a.emptyResults = s.EmptyResults
	for tier, n := range s.ByTier {
		a.byTier[tier] = n
	}
	for _, c := range s.TopCompanies {
		a.byCompany[c.Key] = c.Count
	}
	for _, c := range s.TopSections {
		a.bySection[c.Key] = c.Count
	}
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topN(counts map[string]int64, n int) []Count {
	result := make([]Count, 0, len(counts))
	for key, count := range counts {
		result = append(result, Count{Key: key, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Key < result[j].Key
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
