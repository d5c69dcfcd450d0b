// Package state holds the latest extraction result and the capture status shown to readers.
package state

import (
	"sync/atomic"
	"time"

	"github.com/hairizuan-noorazman/dashboard-watch/extraction"
)

// StatusInitializing is the status before the capture loop reports anything.
const StatusInitializing = "initializing..."

// Snapshot is one immutable view of the shared state.
type Snapshot struct {
	Status    string             `json:"status"`
	Data      *extraction.Result `json:"data"`
	UpdatedAt time.Time          `json:"-"`
}

// Store is the handle the capture loop writes through and the query surface reads from.
type Store interface {
	// Snapshot returns the current record without blocking.
	Snapshot() Snapshot

	// SetStatus replaces the status and keeps the current data.
	SetStatus(status string)

	// Replace swaps in a new result together with its status.
	Replace(data *extraction.Result, status string)
}

// MemoryStore keeps the record behind an atomic pointer. Every write builds a new Snapshot and
// swaps it in whole, so readers never see a partially updated record. It assumes a single writer.
type MemoryStore struct {
	current atomic.Pointer[Snapshot]
	now     func() time.Time
}

// NewMemoryStore creates a store with no data and the given status, or StatusInitializing
// when status is empty.
func NewMemoryStore(status string) *MemoryStore {
	if status == "" {
		status = StatusInitializing
	}
	s := &MemoryStore{now: time.Now}
	s.current.Store(&Snapshot{Status: status, UpdatedAt: s.now()})
	return s
}

// Snapshot returns the current record.
func (s *MemoryStore) Snapshot() Snapshot {
	return *s.current.Load()
}

// SetStatus ignores empty statuses so the status is never blank.
func (s *MemoryStore) SetStatus(status string) {
	if status == "" {
		return
	}
	prev := s.current.Load()
	s.current.Store(&Snapshot{Status: status, Data: prev.Data, UpdatedAt: s.now()})
}

// Replace stores a private copy of data so later changes by the caller are not visible to readers.
// A nil data keeps the current result. An empty status keeps the current status.
func (s *MemoryStore) Replace(data *extraction.Result, status string) {
	prev := s.current.Load()
	next := &Snapshot{Status: prev.Status, Data: prev.Data, UpdatedAt: s.now()}
	if status != "" {
		next.Status = status
	}
	if data != nil {
		next.Data = cloneResult(data)
	}
	s.current.Store(next)
}

func cloneResult(r *extraction.Result) *extraction.Result {
	c := *r
	c.Metrics = append([]extraction.Metric(nil), r.Metrics...)
	return &c
}
