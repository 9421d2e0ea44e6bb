package document

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Store holds the loaded document set. It is filled by Load at startup and
// read concurrently afterwards.
type Store struct {
	source Source
	gauge  prometheus.Gauge
	logger *slog.Logger

	mu          sync.RWMutex
	docs        []Document
	fingerprint string
}

// NewStore creates an empty store backed by source. A nil source always
// loads an empty set. gauge may be nil.
func NewStore(source Source, gauge prometheus.Gauge) *Store {
	return &Store{
		source: source,
		gauge:  gauge,
		logger: slog.Default().With("component", "document-store"),
	}
}

// Load replaces the document set with the source's contents and returns the
// number of documents held. A failing source leaves the store empty; the
// error is logged, never returned.
func (s *Store) Load(ctx context.Context) int {
	if s.source == nil {
		s.logger.Warn("no document source configured, store is empty")
		s.replace(nil)
		return 0
	}
	docs, err := s.source.Load(ctx)
	if err != nil {
		s.logger.Warn("failed to load documents, store is empty",
			"source", s.source.Name(),
			"error", err,
		)
		docs = nil
	}
	s.replace(docs)
	if err == nil {
		s.logger.Info("documents loaded", "source", s.source.Name(), "count", len(docs))
	}
	return len(docs)
}

func (s *Store) replace(docs []Document) {
	fp := fingerprint(docs)
	s.mu.Lock()
	s.docs = docs
	s.fingerprint = fp
	s.mu.Unlock()

	if s.gauge != nil {
		s.gauge.Set(float64(len(docs)))
	}
}

// ListAll returns the current document set. The slice is shared and must be
// treated as read-only.
func (s *Store) ListAll() []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs
}

// Snapshot returns the document set and its fingerprint read under one
// lock, so the two always describe the same load.
func (s *Store) Snapshot() ([]Document, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs, s.fingerprint
}

// Count returns the number of loaded documents.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Fingerprint identifies the loaded content; it changes whenever a reload
// yields different documents.
func (s *Store) Fingerprint() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fingerprint
}

func fingerprint(docs []Document) string {
	h := sha256.New()
	for _, d := range docs {
		for _, field := range []string{d.ID, d.CompanyID, d.SectionType, d.Text} {
			h.Write([]byte(field))
			h.Write([]byte{0})
		}
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
