package store

import (
	"context"
	"sync"
	"time"

	"boxstore/internal/ids"
)

// MemoryBackend keeps all boxes in process memory. Data does not survive
// a restart; intended for ephemeral and test deployments.
type MemoryBackend struct {
	mu     sync.RWMutex
	boxes  map[string]map[string]Document
	policy SecurityPolicy
}

var _ Backend = (*MemoryBackend)(nil)

// NewMemory creates an empty in-memory backend. A nil policy means open
// access.
func NewMemory(policy SecurityPolicy) *MemoryBackend {
	if policy == nil {
		policy = AllowAll
	}
	return &MemoryBackend{
		boxes:  make(map[string]map[string]Document),
		policy: policy,
	}
}

func (m *MemoryBackend) CheckSecurity(ctx context.Context, boxID, resourceID string, write bool) bool {
	return m.policy(ctx, boxID, resourceID, write)
}

func (m *MemoryBackend) List(ctx context.Context, boxID string, opt ListOptions) ([]Document, error) {
	m.mu.RLock()
	box := m.boxes[boxID]
	docs := make([]Document, 0, len(box))
	for _, d := range box {
		docs = append(docs, d)
	}
	m.mu.RUnlock()

	return applyListOptions(docs, opt), nil
}

func (m *MemoryBackend) Get(ctx context.Context, boxID, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.boxes[boxID][id]
	if !ok {
		return nil, ErrNotFound
	}
	return doc, nil
}

func (m *MemoryBackend) Save(ctx context.Context, boxID, id string, doc Document) (Document, error) {
	stored, err := normalize(doc)
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = ids.New()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	box := m.boxes[boxID]
	if box == nil {
		box = make(map[string]Document)
		m.boxes[boxID] = box
	}

	stored[FieldID] = id
	if prev, ok := box[id]; ok {
		// Replace keeps the original creation timestamp.
		stored[FieldCreatedOn] = prev[FieldCreatedOn]
	} else {
		stored[FieldCreatedOn] = float64(time.Now().UnixMilli())
	}
	box[id] = stored

	return stored, nil
}

func (m *MemoryBackend) Update(ctx context.Context, boxID, id string, patch Document) (Document, error) {
	patch, err := normalize(patch)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	prev, ok := m.boxes[boxID][id]
	if !ok {
		return nil, ErrNotFound
	}

	merged := make(Document, len(prev)+len(patch))
	for k, v := range prev {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	// System fields are immutable.
	merged[FieldID] = prev[FieldID]
	merged[FieldCreatedOn] = prev[FieldCreatedOn]

	m.boxes[boxID][id] = merged
	return merged, nil
}

func (m *MemoryBackend) Delete(ctx context.Context, boxID, id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	box := m.boxes[boxID]
	if _, ok := box[id]; !ok {
		return 0, nil
	}
	delete(box, id)
	if len(box) == 0 {
		delete(m.boxes, boxID)
	}
	return 1, nil
}
