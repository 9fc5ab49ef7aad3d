package indexing

import (
	"context"
	"fmt"
	"sync"

	"github.com/kailas-cloud/docsearch/internal/domain"
	dombatch "github.com/kailas-cloud/docsearch/internal/domain/batch"
)

// mockEmbedder maps each text to {len(text)} unless embedFn is set.
type mockEmbedder struct {
	mu      sync.Mutex
	calls   int
	embedFn func(ctx context.Context, texts []string) (domain.EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, texts []string) (domain.EmbeddingResult, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.embedFn != nil {
		return m.embedFn(ctx, texts)
	}
	return lengthVectors(texts), nil
}

func (m *mockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func lengthVectors(texts []string) domain.EmbeddingResult {
	embs := make([][]float32, len(texts))
	for i, t := range texts {
		embs[i] = []float32{float32(len(t))}
	}
	return domain.EmbeddingResult{Embeddings: embs, TotalTokens: len(texts)}
}

// memStore is an in-memory document store with overwrite-by-id semantics.
type memStore struct {
	mu     sync.Mutex
	docs   map[string]domain.Document
	calls  int
	writes int // successful BulkUpsert calls
	// failOn returns a request error for the given 1-based call number.
	failOn func(call int) error
	// rejectID marks a single document id as rejected by the store.
	rejectID string
}

func newMemStore() *memStore {
	return &memStore{docs: make(map[string]domain.Document)}
}

func (m *memStore) BulkUpsert(_ context.Context, docs []domain.Document) (dombatch.Results, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failOn != nil {
		if err := m.failOn(m.calls); err != nil {
			return nil, err
		}
	}
	m.writes++
	res := make(dombatch.Results, len(docs))
	for i, d := range docs {
		if d.ID() == m.rejectID {
			res[i] = dombatch.NewError(d.ID(), fmt.Errorf("rejected"))
			continue
		}
		m.docs[d.ID()] = d
		res[i] = dombatch.NewOK(d.ID())
	}
	return res, nil
}

func (m *memStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

// memCheckpoint is an in-memory Checkpoint.
type memCheckpoint struct {
	mu     sync.Mutex
	done   map[string]map[int]bool
	resets int
}

func newMemCheckpoint() *memCheckpoint {
	return &memCheckpoint{done: make(map[string]map[int]bool)}
}

func (c *memCheckpoint) Completed(_ context.Context, run string) (map[int]bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[int]bool, len(c.done[run]))
	for k, v := range c.done[run] {
		out[k] = v
	}
	return out, nil
}

func (c *memCheckpoint) MarkDone(_ context.Context, run string, index, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done[run] == nil {
		c.done[run] = make(map[int]bool)
	}
	c.done[run][index] = true
	return nil
}

func (c *memCheckpoint) Reset(_ context.Context, run string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.done, run)
	c.resets++
	return nil
}

func makeDocs(n int) []domain.Document {
	docs := make([]domain.Document, n)
	for i := range docs {
		docs[i] = domain.Document{
			Title:   fmt.Sprintf("Doc %d", i),
			Content: fmt.Sprintf("content %0*d", i%7+1, i),
			URL:     fmt.Sprintf("https://example.org/%d", i),
		}
	}
	return docs
}
