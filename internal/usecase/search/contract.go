package search

import (
	"context"

	"github.com/kailas-cloud/docsearch/internal/domain"
)

// Repository executes k-NN queries against the document index.
type Repository interface {
	KNNSearch(ctx context.Context, q domain.KNNQuery) ([]domain.SearchHit, error)
}
