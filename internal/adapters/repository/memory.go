package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/okian/artype/internal/domain/model"
	"github.com/okian/artype/pkg/metrics"
)

// MemoryStore keeps records in a map guarded by a RWMutex.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]model.GuestRecord
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]model.GuestRecord)}
}

// Load returns a copy of the stored record.
func (s *MemoryStore) Load(ctx context.Context, guestID string) (model.GuestRecord, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency(msSince(start)) }()

	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[guestID]
	if !ok {
		return model.GuestRecord{}, fmt.Errorf("%w: %s", ErrNotFound, guestID)
	}
	return rec.Clone(), nil
}

// Save stores a copy of rec.
func (s *MemoryStore) Save(ctx context.Context, rec model.GuestRecord) error {
	start := time.Now()
	defer func() { metrics.RecordRepositoryUpdateLatency(msSince(start)) }()

	if strings.TrimSpace(rec.GuestID) == "" {
		return ErrInvalidID
	}
	s.mu.Lock()
	s.records[rec.GuestID] = rec.Clone()
	n := len(s.records)
	s.mu.Unlock()

	metrics.UpdateGuestRecordsTotal(n)
	return nil
}

// Delete removes the record if present.
func (s *MemoryStore) Delete(ctx context.Context, guestID string) error {
	s.mu.Lock()
	delete(s.records, guestID)
	n := len(s.records)
	s.mu.Unlock()

	metrics.UpdateGuestRecordsTotal(n)
	return nil
}

// Count returns the number of records.
func (s *MemoryStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
