package db

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mauv0809/etf-flows/internal/models"
)

// MemoryStore is a process-local Store used for dry runs and tests.
type MemoryStore struct {
	mu    sync.Mutex
	flows map[string]map[string]models.StoredFlow
	now   func() time.Time

	// FailOn makes UpsertFlow fail for the given natural key.
	FailOn map[string]error
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		flows: make(map[string]map[string]models.StoredFlow),
		now:   time.Now,
	}
}

// UpsertFlow creates or replaces the entry under (etf, key) atomically.
func (m *MemoryStore) UpsertFlow(_ context.Context, flow models.StoredFlow) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.FailOn[flow.Key]; ok {
		return false, err
	}

	byKey, ok := m.flows[flow.ETF]
	if !ok {
		byKey = make(map[string]models.StoredFlow)
		m.flows[flow.ETF] = byKey
	}

	now := m.now().UTC()
	prev, exists := byKey[flow.Key]
	stored := copyFlow(flow)
	stored.UpdatedAt = now
	stored.CreatedAt = now
	if exists {
		stored.CreatedAt = prev.CreatedAt
	}
	byKey[flow.Key] = stored

	return !exists, nil
}

// FindFlow returns the stored entry or ErrNotFound.
func (m *MemoryStore) FindFlow(_ context.Context, etf, key string) (models.StoredFlow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.flows[etf][key]
	if !ok {
		return models.StoredFlow{}, ErrNotFound
	}
	return copyFlow(f), nil
}

// ListFlows returns every entry of etf ordered by close of business.
func (m *MemoryStore) ListFlows(_ context.Context, etf string) ([]models.StoredFlow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.StoredFlow, 0, len(m.flows[etf]))
	for _, f := range m.flows[etf] {
		out = append(out, copyFlow(f))
	}
	sort.Slice(out, func(a, b int) bool {
		return out[a].CloseOfBusiness.Before(out[b].CloseOfBusiness)
	})
	return out, nil
}

// Len returns the number of entries stored for etf.
func (m *MemoryStore) Len(etf string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.flows[etf])
}

func copyFlow(f models.StoredFlow) models.StoredFlow {
	out := f
	out.Flows = make(map[string]decimal.Decimal, len(f.Flows))
	for k, v := range f.Flows {
		out.Flows[k] = v
	}
	if f.Raw != nil {
		out.Raw = append(json.RawMessage(nil), f.Raw...)
	}
	return out
}
