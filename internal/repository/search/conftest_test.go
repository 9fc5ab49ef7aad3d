package search

import (
	"context"

	"github.com/kailas-cloud/docsearch/internal/db"
	"github.com/kailas-cloud/docsearch/internal/domain"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchKNNFn func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func testConfig() domain.VectorConfig {
	cfg := domain.DefaultVectorConfig()
	cfg.Dimensions = 4
	cfg.IndexName = "docs"
	return cfg
}

func testQuery() domain.KNNQuery {
	return domain.KNNQuery{
		Vector:        []float32{0.1, 0.1, 0.1, 0.1},
		K:             domain.DefaultSearchK,
		NumCandidates: domain.DefaultSearchNumCandidates,
		Fields:        domain.DefaultSearchFields(),
		Limit:         domain.DefaultSearchLimit,
	}
}
