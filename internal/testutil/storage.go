package testutil

import (
	"context"
	"sync"

	"fleetsync/internal/queue"
)

// MemStorage is an in-memory queue.Storage.
//
// It honors the durable-store contract (ordered snapshots, loads never
// fail) and adds failure injection for the save paths so tests can exercise
// the propagate-on-write-failure behavior. Save/load counters let tests
// assert that an offline drain touched nothing.
type MemStorage struct {
	mu          sync.Mutex
	queueItems  []queue.QueueItem
	entities    []queue.LocalEntity
	queueErr    error
	entitiesErr error
	queueSaves  int
	entitySaves int
}

// NewMemStorage creates an empty in-memory store.
func NewMemStorage() *MemStorage {
	return &MemStorage{}
}

// LoadQueue implements queue.Storage.
func (m *MemStorage) LoadQueue(ctx context.Context) []queue.QueueItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]queue.QueueItem, len(m.queueItems))
	copy(out, m.queueItems)
	return out
}

// SaveQueue implements queue.Storage.
func (m *MemStorage) SaveQueue(ctx context.Context, items []queue.QueueItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queueErr != nil {
		return m.queueErr
	}
	m.queueItems = make([]queue.QueueItem, len(items))
	copy(m.queueItems, items)
	m.queueSaves++
	return nil
}

// LoadEntities implements queue.Storage.
func (m *MemStorage) LoadEntities(ctx context.Context) []queue.LocalEntity {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]queue.LocalEntity, len(m.entities))
	copy(out, m.entities)
	return out
}

// SaveEntities implements queue.Storage.
func (m *MemStorage) SaveEntities(ctx context.Context, entities []queue.LocalEntity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entitiesErr != nil {
		return m.entitiesErr
	}
	m.entities = make([]queue.LocalEntity, len(entities))
	copy(m.entities, entities)
	m.entitySaves++
	return nil
}

// FailQueueSaves makes SaveQueue fail with err until cleared with nil.
func (m *MemStorage) FailQueueSaves(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queueErr = err
}

// FailEntitySaves makes SaveEntities fail with err until cleared with nil.
func (m *MemStorage) FailEntitySaves(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entitiesErr = err
}

// QueueSaves returns how many successful SaveQueue calls happened.
func (m *MemStorage) QueueSaves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queueSaves
}

// EntitySaves returns how many successful SaveEntities calls happened.
func (m *MemStorage) EntitySaves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entitySaves
}
