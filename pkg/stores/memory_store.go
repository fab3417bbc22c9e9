package stores

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory SnapshotStore used by tests and the
// validate command.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]map[string]*SnapshotRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]map[string]*SnapshotRecord),
	}
}

// WriteObject upserts the snapshot record for (record.Type, record.Name).
func (s *MemoryStore) WriteObject(_ context.Context, record *SnapshotRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byName, ok := s.records[record.Type]
	if !ok {
		byName = make(map[string]*SnapshotRecord)
		s.records[record.Type] = byName
	}

	stored := *record
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	byName[record.Name] = &stored
	return nil
}

// GetObject returns the record for (typeName, name), or nil.
func (s *MemoryStore) GetObject(_ context.Context, typeName, name string) (*SnapshotRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[typeName][name]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

// ListByType returns all records of the given type.
func (s *MemoryStore) ListByType(_ context.Context, typeName string) ([]*SnapshotRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byName := s.records[typeName]
	records := make([]*SnapshotRecord, 0, len(byName))
	for _, record := range byName {
		copied := *record
		records = append(records, &copied)
	}
	return records, nil
}

// DeleteObject removes the record for (typeName, name).
func (s *MemoryStore) DeleteObject(_ context.Context, typeName, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records[typeName], name)
	return nil
}

// Close implements SnapshotStore.
func (s *MemoryStore) Close() error {
	return nil
}
