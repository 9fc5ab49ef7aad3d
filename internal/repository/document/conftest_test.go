package document

import (
	"context"
	"sync"

	"github.com/kailas-cloud/docsearch/internal/db"
	"github.com/kailas-cloud/docsearch/internal/domain"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetMultiFn     func(ctx context.Context, items []db.HashSetItem) ([]error, error)
	hgetAllFn       func(ctx context.Context, key string) (map[string]string, error)
	createIndexFn   func(ctx context.Context, def *db.IndexDefinition) error
	dropIndexFn     func(ctx context.Context, name string) error
	indexExistsFn   func(ctx context.Context, name string) (bool, error)
	indexDocCountFn func(ctx context.Context, name string) (int, error)
	textSearch      bool
}

func (m *mockStore) HSetMulti(ctx context.Context, items []db.HashSetItem) ([]error, error) {
	if m.hsetMultiFn != nil {
		return m.hsetMultiFn(ctx, items)
	}
	return make([]error, len(items)), nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) DropIndex(ctx context.Context, name string) error {
	if m.dropIndexFn != nil {
		return m.dropIndexFn(ctx, name)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func (m *mockStore) IndexDocCount(ctx context.Context, name string) (int, error) {
	if m.indexDocCountFn != nil {
		return m.indexDocCountFn(ctx, name)
	}
	return 0, nil
}

func (m *mockStore) SupportsTextSearch(_ context.Context) bool {
	return m.textSearch
}

// memStore is an in-memory hash store with overwrite semantics.
type memStore struct {
	mockStore
	mu     sync.Mutex
	hashes map[string]map[string]string
}

func newMemStore() *memStore {
	return &memStore{hashes: make(map[string]map[string]string)}
}

func (m *memStore) HSetMulti(_ context.Context, items []db.HashSetItem) ([]error, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range items {
		h := make(map[string]string, len(it.Fields))
		for k, v := range it.Fields {
			h[k] = v
		}
		m.hashes[it.Key] = h
	}
	return make([]error, len(items)), nil
}

func (m *memStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hashes[key], nil
}

func (m *memStore) IndexDocCount(_ context.Context, _ string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.hashes), nil
}

func testConfig() domain.VectorConfig {
	cfg := domain.DefaultVectorConfig()
	cfg.Dimensions = 3
	cfg.IndexName = "docs"
	return cfg
}

func testDocs() []domain.Document {
	return []domain.Document{
		{Title: "Parts of Medicare", Content: "Part A covers hospital stays", URL: "https://example.org/a", Embedding: []float32{1, 0, 0}},
		{Title: "Enrollment", Content: "When to sign up", URL: "https://example.org/b", Embedding: []float32{0, 1, 0}},
	}
}
