package store

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"call-review-go/internal/errs"
	"call-review-go/internal/types"
)

// MemoryStore keeps records in process memory. Used by tests and the
// "memory" driver.
type MemoryStore struct {
	mu      sync.RWMutex
	records []types.CallRecord
	// FailWith, when set, is returned by every Save.
	FailWith error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Save(_ context.Context, rec *types.CallRecord) error {
	if rec == nil {
		return errs.Store("save", errs.Invalid("record is nil"))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return errs.Store("save", m.FailWith)
	}
	prepare(rec, uuid.NewString)
	m.records = append(m.records, *rec)
	return nil
}

func (m *MemoryStore) Search(_ context.Context, field types.SearchField, query string) ([]types.CallRecord, error) {
	if _, err := types.ParseSearchField(string(field)); err != nil {
		return nil, err
	}
	needle := strings.ToLower(query)
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []types.CallRecord{}
	for _, r := range m.records {
		if strings.Contains(strings.ToLower(field.Value(r)), needle) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Len returns the number of stored records.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func (m *MemoryStore) Close(context.Context) error { return nil }
