package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/leeforge/addonstate/install"
)

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]install.Record
	now     func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]install.Record),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, guid string) (install.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if rec, ok := s.records[guid]; ok {
		return rec, nil
	}
	return install.NewRecord(guid), nil
}

func (s *MemoryStore) Apply(_ context.Context, guid string, ev install.Event) (install.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[guid]
	if !ok {
		rec = install.NewRecord(guid)
	}
	rec = install.Reduce(rec, ev)
	rec.UpdatedAt = s.now()
	s.records[guid] = rec
	return rec, nil
}

func (s *MemoryStore) Clear(_ context.Context, guid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, guid)
	return nil
}

// List returns all records sorted by guid.
func (s *MemoryStore) List(_ context.Context) ([]install.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]install.Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GUID < out[j].GUID })
	return out, nil
}

var (
	_ Store  = (*MemoryStore)(nil)
	_ Lister = (*MemoryStore)(nil)
)
