// Package repository keeps analyzed strings in memory. Records are indexed by
// identity digest and by value; both indices are only ever changed together
// under the repository's write lock.
package repository

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/filter"
	apperrors "github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/errors"
)

type entry struct {
	record Record
	seq    uint64
}

type MemoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]*entry
	byValue map[string]string
	nextSeq uint64
}

func NewMemory() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[string]*entry),
		byValue: make(map[string]string),
	}
}

// Save inserts rec. A record whose value is already stored is rejected with
// ErrStringExists; existing records are never overwritten.
func (m *MemoryRepository) Save(rec Record) error {
	stored := rec.clone()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byValue[stored.Value]; exists {
		return fmt.Errorf("saving %s: %w", stored.ID, apperrors.ErrStringExists)
	}
	m.nextSeq++
	m.byID[stored.ID] = &entry{record: stored, seq: m.nextSeq}
	m.byValue[stored.Value] = stored.ID
	return nil
}

func (m *MemoryRepository) FindByValue(value string) (Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byValue[value]
	if !ok {
		return Record{}, false
	}
	e, ok := m.byID[id]
	if !ok {
		return Record{}, false
	}
	return e.record.clone(), true
}

func (m *MemoryRepository) Exists(value string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.byValue[value]
	return ok
}

// FindAll returns every record in insertion order.
func (m *MemoryRepository) FindAll() []Record {
	return m.collect(func(Record) bool { return true })
}

// Filter returns the records matching all present predicates of f, in
// insertion order.
func (m *MemoryRepository) Filter(f filter.Filter) []Record {
	return m.collect(func(r Record) bool {
		return f.Matches(r.Value, r.Properties)
	})
}

// DeleteByValue removes the record holding value from both indices. It
// reports whether a record was removed.
func (m *MemoryRepository) DeleteByValue(value string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byValue[value]
	if !ok {
		return false
	}
	delete(m.byID, id)
	delete(m.byValue, value)
	return true
}

func (m *MemoryRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

func (m *MemoryRepository) collect(keep func(Record) bool) []Record {
	m.mu.RLock()
	matched := make([]*entry, 0, len(m.byID))
	for _, e := range m.byID {
		if keep(e.record) {
			matched = append(matched, e)
		}
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].seq < matched[j].seq
	})
	result := make([]Record, 0, len(matched))
	for _, e := range matched {
		result = append(result, e.record.clone())
	}
	return result
}
