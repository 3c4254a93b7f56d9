package storage

import (
	"context"
	"sort"
	"sync"

	"mercator-hq/pricelist/pkg/audit"
)

// MemoryStorage implements audit.Storage with an in-memory map.
type MemoryStorage struct {
	records map[string]*audit.Record
	mu      sync.RWMutex
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*audit.Record),
	}
}

// Store persists a copy of the record.
func (s *MemoryStorage) Store(ctx context.Context, record *audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[record.ID] = cloneRecord(record)
	return nil
}

// StoreBatch persists copies of all records.
func (s *MemoryStorage) StoreBatch(ctx context.Context, records []*audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range records {
		s.records[record.ID] = cloneRecord(record)
	}
	return nil
}

// Query retrieves records matching the query filters, ordered by timestamp
// and row number.
func (s *MemoryStorage) Query(ctx context.Context, query *audit.Query) ([]*audit.Record, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	var results []*audit.Record
	for _, record := range s.records {
		if query.Matches(record) {
			results = append(results, cloneRecord(record))
		}
	}
	s.mu.RUnlock()

	desc := query.SortOrder == "desc"
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp) != desc
		}
		if a.RowNumber != b.RowNumber {
			return (a.RowNumber < b.RowNumber) != desc
		}
		return (a.ID < b.ID) != desc
	})

	start := query.Offset
	if start > len(results) {
		return []*audit.Record{}, nil
	}
	results = results[start:]
	if query.Limit > 0 && query.Limit < len(results) {
		results = results[:query.Limit]
	}
	return results, nil
}

// Count returns the number of records matching the query filters.
func (s *MemoryStorage) Count(ctx context.Context, query *audit.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, record := range s.records {
		if query.Matches(record) {
			count++
		}
	}
	return count, nil
}

// Delete removes records matching the query filters.
func (s *MemoryStorage) Delete(ctx context.Context, query *audit.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, record := range s.records {
		if query.Matches(record) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Close releases all records.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*audit.Record)
	return nil
}

func cloneRecord(r *audit.Record) *audit.Record {
	c := *r
	if r.Bag != nil {
		c.Bag = make(map[string]string, len(r.Bag))
		for k, v := range r.Bag {
			c.Bag[k] = v
		}
	}
	if r.Entries != nil {
		c.Entries = make([]audit.Entry, len(r.Entries))
		copy(c.Entries, r.Entries)
	}
	return &c
}
