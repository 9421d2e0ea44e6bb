// Package history keeps an in-memory, append-only record of generated
// sections for the lifetime of the process.
package history

import (
	"slices"
	"sync"
)

// Entry records one successful generation.
type Entry struct {
	RequestID   string   `json:"request_id"`
	CreatedAt   string   `json:"created_at"`
	CompanyID   string   `json:"company_id"`
	SectionType string   `json:"section_type"`
	Sources     []string `json:"sources"`
}

// Ledger is safe for concurrent use. Readers receive copies.
type Ledger struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Append records e.
func (l *Ledger) Append(e Entry) {
	e.Sources = slices.Clone(e.Sources)
	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()
}

// ListByCompany returns companyID's entries in insertion order. The result
// is never nil.
func (l *Ledger) ListByCompany(companyID string) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, 0)
	for _, e := range l.entries {
		if e.CompanyID == companyID {
			out = append(out, clone(e))
		}
	}
	return out
}

// ListAll returns every entry in insertion order.
func (l *Ledger) ListAll() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	for i, e := range l.entries {
		out[i] = clone(e)
	}
	return out
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

func clone(e Entry) Entry {
	e.Sources = slices.Clone(e.Sources)
	return e
}
