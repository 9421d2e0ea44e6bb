// Package cache memoises retrieval and composition results in Redis. Only
// the generated text and its sources are cached; request ids, timestamps and
// history are produced fresh for every request.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/internal/retrieval/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/grantbot-backend/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/pkg/resilience"
)

const keyPrefix = "section:"

// Backend is the key/value store behind the cache. Get returns
// pkgredis.ErrMiss for absent keys.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
}

var _ Backend = (*pkgredis.Client)(nil)

// Entry is the cached outcome of retrieval plus composition.
type Entry struct {
	GeneratedText string   `json:"generated_text"`
	Sources       []string `json:"sources"`
	Tier          string   `json:"tier"`
	Candidates    int      `json:"candidates"`
}

// Key identifies a cacheable computation. Fingerprint scopes entries to one
// loaded document set.
type Key struct {
	Fingerprint string
	CompanyID   string
	SectionType string
	Query       string
	TopK        int
}

// String hashes the key. Queries with the same distinct lower-cased words
// rank identically and share a key.
func (k Key) String() string {
	words := tokenizer.Words(k.Query).Sorted()
	raw := strings.Join([]string{
		k.Fingerprint,
		k.CompanyID,
		k.SectionType,
		strings.Join(words, " "),
		fmt.Sprint(k.TopK),
	}, "\x00")
	sum := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, sum[:16])
}

// SectionCache is a read-through cache guarded by a circuit breaker so a
// failing Redis degrades to direct computation.
type SectionCache struct {
	backend Backend
	ttl     time.Duration
	group   singleflight.Group
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a cache over backend. m may be nil.
func New(backend Backend, ttl time.Duration, m *metrics.Metrics) *SectionCache {
	cbCfg := resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
	}
	if m != nil {
		m.CircuitBreakerState.WithLabelValues("section-cache").Set(float64(resilience.StateClosed))
		cbCfg.OnStateChange = func(name string, to resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		}
	}
	return &SectionCache{
		backend: backend,
		ttl:     ttl,
		breaker: resilience.NewCircuitBreaker("section-cache", cbCfg),
		metrics: m,
		logger:  slog.Default().With("component", "section-cache"),
	}
}

// GetOrCompute returns the cached entry for key or runs compute, stores its
// result and returns it. Concurrent callers with the same key share one
// computation. The bool reports a cache hit.
func (c *SectionCache) GetOrCompute(ctx context.Context, key Key, compute func() (*Entry, error)) (*Entry, bool, error) {
	k := key.String()
	if entry, ok := c.get(ctx, k); ok {
		return entry, true, nil
	}
	val, err, _ := c.group.Do(k, func() (any, error) {
		if entry, ok := c.get(ctx, k); ok {
			return entry, nil
		}
		entry, err := compute()
		if err != nil {
			return nil, err
		}
		c.set(ctx, k, entry)
		return entry, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*Entry), false, nil
}

// Invalidate drops every cached section.
func (c *SectionCache) Invalidate(ctx context.Context) error {
	var deleted int64
	err := c.breaker.Execute(func() error {
		var err error
		deleted, err = c.backend.DeletePrefix(ctx, keyPrefix)
		return err
	})
	if err != nil {
		return fmt.Errorf("invalidating section cache: %w", err)
	}
	c.logger.Info("section cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *SectionCache) get(ctx context.Context, key string) (*Entry, bool) {
	var (
		data  []byte
		found bool
	)
	err := c.breaker.Execute(func() error {
		var err error
		data, err = c.backend.Get(ctx, key)
		if errors.Is(err, pkgredis.ErrMiss) {
			return nil
		}
		found = err == nil
		return err
	})
	if err != nil {
		c.logFailure("cache get failed", key, err)
	}
	if !found {
		c.miss()
		return nil, false
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.Warn("discarding undecodable cache entry", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	return &entry, true
}

func (c *SectionCache) set(ctx context.Context, key string, entry *Entry) {
	data, err := json.Marshal(entry)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.breaker.Execute(func() error {
		return c.backend.Set(ctx, key, data, c.ttl)
	}); err != nil {
		c.logFailure("cache set failed", key, err)
	}
}

func (c *SectionCache) miss() {
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

func (c *SectionCache) logFailure(msg, key string, err error) {
	if errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Debug(msg, "key", key, "error", err)
		return
	}
	c.logger.Warn(msg, "key", key, "error", err)
}
