package docstore

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory is an in-memory Store used by tests. Failures can be injected per
// operation, and call counters expose how many remote reads a code path
// performed.
type Memory struct {
	mu          sync.Mutex
	collections map[string]map[string]map[string]any

	// Injected failures; a non-nil error is returned by the matching
	// operation instead of touching stored data.
	GetErr    error
	GetAllErr error
	SetErr    error
	DeleteErr error
	CommitErr error

	// Call counters
	GetCalls    int
	GetAllCalls int
	SetCalls    int
	DeleteCalls int
	CommitCalls int

	now func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string]map[string]map[string]any),
		now:         time.Now,
	}
}

// SetNow overrides the clock used to resolve ServerTime sentinels.
func (m *Memory) SetNow(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Seed inserts a document without counting as a write. Test setup helper.
func (m *Memory) Seed(collection, id string, data map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(collection, id, data)
}

func (m *Memory) put(collection, id string, data map[string]any) {
	col, ok := m.collections[collection]
	if !ok {
		col = make(map[string]map[string]any)
		m.collections[collection] = col
	}
	col[id] = resolveServerTime(data, m.now())
}

// Get returns one document.
func (m *Memory) Get(ctx context.Context, collection, id string) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetCalls++
	if m.GetErr != nil {
		return nil, m.GetErr
	}

	data, ok := m.collections[collection][id]
	if !ok {
		return nil, Errorf(NotFound, "document %s/%s does not exist", collection, id)
	}
	return &Document{ID: id, Data: copyData(data)}, nil
}

// GetAll returns every document matching the query.
func (m *Memory) GetAll(ctx context.Context, collection string, q Query) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetAllCalls++
	if m.GetAllErr != nil {
		return nil, m.GetAllErr
	}

	var docs []Document
	for id, data := range m.collections[collection] {
		doc := Document{ID: id, Data: copyData(data)}
		if matchesFilters(doc, q.Filters) {
			docs = append(docs, doc)
		}
	}

	// Map iteration order is random; establish id order first so the
	// stable field sort leaves equal keys deterministically id-ordered.
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	if q.OrderBy != "" {
		sortDocuments(docs, q)
	}
	return docs, nil
}

// Set writes a document.
func (m *Memory) Set(ctx context.Context, collection, id string, data map[string]any, opts SetOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SetCalls++
	if m.SetErr != nil {
		return m.SetErr
	}

	if opts.Merge {
		if existing, ok := m.collections[collection][id]; ok {
			merged := copyData(existing)
			for k, v := range resolveServerTime(data, m.now()) {
				merged[k] = v
			}
			m.collections[collection][id] = merged
			return nil
		}
	}
	m.put(collection, id, data)
	return nil
}

// Delete removes a document.
func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DeleteCalls++
	if m.DeleteErr != nil {
		return m.DeleteErr
	}

	delete(m.collections[collection], id)
	return nil
}

// Batch starts an atomic batch write.
func (m *Memory) Batch() Batch {
	return &memoryBatch{store: m}
}

// Count returns the number of documents in a collection. Test helper.
func (m *Memory) Count(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.collections[collection])
}

type batchOp struct {
	del        bool
	collection string
	id         string
	data       map[string]any
}

type memoryBatch struct {
	store *Memory
	ops   []batchOp
}

func (b *memoryBatch) Set(collection, id string, data map[string]any) {
	b.ops = append(b.ops, batchOp{collection: collection, id: id, data: data})
}

func (b *memoryBatch) Delete(collection, id string) {
	b.ops = append(b.ops, batchOp{del: true, collection: collection, id: id})
}

// Commit applies every buffered operation, or none when a failure is
// injected. The transaction size cap matches the DynamoDB store so tests
// exercise the same contract.
func (b *memoryBatch) Commit(ctx context.Context) error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	b.store.CommitCalls++
	if b.store.CommitErr != nil {
		return b.store.CommitErr
	}
	if len(b.ops) > MaxBatchOps {
		return Errorf(InvalidArgument, "batch of %d operations exceeds the transaction limit", len(b.ops))
	}

	for _, op := range b.ops {
		if op.del {
			delete(b.store.collections[op.collection], op.id)
			continue
		}
		b.store.put(op.collection, op.id, op.data)
	}
	return nil
}

func copyData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
