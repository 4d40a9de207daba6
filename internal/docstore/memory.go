package docstore

import (
	"context"
	"sync"
)

// Memory is an in-process Store. It also records executed queries and can be
// told to fail, which makes it the backing store for tests.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
	fail        error
	executions  int
	last        *Query
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string]map[string]map[string]any)}
}

// FailWith makes every subsequent read and write return err. A nil err
// restores normal operation.
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

// Executions returns how many queries reached the store.
func (m *Memory) Executions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.executions
}

// LastQuery returns the most recently executed query, or nil.
func (m *Memory) LastQuery() *Query {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

// Get returns a document by id.
func (m *Memory) Get(ctx context.Context, collection, id string) (Document, bool, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.fail != nil {
		return Document{}, false, m.fail
	}
	data, ok := m.collections[collection][id]
	if !ok {
		return Document{}, false, nil
	}
	cp, err := normalize(data)
	if err != nil {
		return Document{}, false, err
	}
	return Document{ID: id, Data: cp}, true, nil
}

// Query starts a query over collection.
func (m *Memory) Query(collection string) *Query {
	return newQuery(collection, m.execute)
}

func (m *Memory) execute(_ context.Context, q *Query) ([]Document, error) {
	m.mu.Lock()
	m.executions++
	m.last = q
	fail := m.fail
	m.mu.Unlock()
	if fail != nil {
		return nil, fail
	}

	m.mu.RLock()
	docs := make([]Document, 0, len(m.collections[q.collection]))
	for id, data := range m.collections[q.collection] {
		cp, err := normalize(data)
		if err != nil {
			m.mu.RUnlock()
			return nil, err
		}
		docs = append(docs, Document{ID: id, Data: cp})
	}
	m.mu.RUnlock()
	return q.apply(docs), nil
}

// Add stores data under a generated id.
func (m *Memory) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := newID()
	if err := m.Set(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

// Set overwrites a document.
func (m *Memory) Set(ctx context.Context, collection, id string, data map[string]any) error {
	return m.Batch().Set(collection, id, data).Commit(ctx)
}

// Update merges fields into an existing document.
func (m *Memory) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	return m.Batch().Update(collection, id, fields).Commit(ctx)
}

// Delete removes a document.
func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	return m.Batch().Delete(collection, id).Commit(ctx)
}

// Batch starts a write batch.
func (m *Memory) Batch() *Batch {
	return &Batch{commit: m.commit}
}

func (m *Memory) commit(_ context.Context, ops []mutation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	// Validate updates first so a failing batch leaves no partial writes.
	present := make(map[string]map[string]bool)
	exists := func(collection, id string) bool {
		if p, ok := present[collection][id]; ok {
			return p
		}
		_, ok := m.collections[collection][id]
		return ok
	}
	for _, op := range ops {
		if op.kind == mutUpdate {
			if !exists(op.collection, op.id) {
				return ErrNotFound
			}
			continue
		}
		if present[op.collection] == nil {
			present[op.collection] = map[string]bool{}
		}
		present[op.collection][op.id] = op.kind == mutSet
	}
	for _, op := range ops {
		coll := m.collections[op.collection]
		switch op.kind {
		case mutSet:
			if coll == nil {
				coll = make(map[string]map[string]any)
				m.collections[op.collection] = coll
			}
			coll[op.id] = op.data
		case mutUpdate:
			coll[op.id] = merge(coll[op.id], op.data)
		case mutDelete:
			delete(coll, op.id)
		}
	}
	return nil
}
