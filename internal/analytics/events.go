// Package analytics records section-generation events, ships them to Kafka
// and aggregates them into the stats served at /api/v1/analytics.
package analytics

import (
	"context"
	"time"
)

// GenerationEvent describes one successful POST /generate-section.
type GenerationEvent struct {
	RequestID   string    `json:"request_id"`
	CompanyID   string    `json:"company_id"`
	SectionType string    `json:"section_type"`
	Tier        string    `json:"tier"`
	Candidates  int       `json:"candidates"`
	Sources     []string  `json:"sources"`
	QueryWords  int       `json:"query_words"`
	CacheHit    bool      `json:"cache_hit"`
	LatencyMs   int64     `json:"latency_ms"`
	Timestamp   time.Time `json:"timestamp"`
}

// Recorder accepts generation events. Implementations must not block.
type Recorder interface {
	Record(ctx context.Context, event GenerationEvent)
}

// Fanout sends each event to every non-nil recorder.
type Fanout []Recorder

func (f Fanout) Record(ctx context.Context, event GenerationEvent) {
	for _, r := range f {
		if r != nil {
			r.Record(ctx, event)
		}
	}
}
