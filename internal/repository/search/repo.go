package search

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/docsearch/internal/db"
	"github.com/kailas-cloud/docsearch/internal/domain"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Repo executes k-NN queries against the document index.
type Repo struct {
	store store
	cfg   domain.VectorConfig
}

// New creates a search repository.
func New(s store, cfg domain.VectorConfig) *Repo {
	return &Repo{store: s, cfg: cfg}
}

// KNNSearch runs an approximate nearest-neighbor query. Hits are returned in
// the order the store ranked them. A query the store cannot run yields
// *domain.QueryError; a failure to reach it yields *domain.TransportError.
func (r *Repo) KNNSearch(ctx context.Context, q domain.KNNQuery) ([]domain.SearchHit, error) {
	if r.cfg.Dimensions > 0 && len(q.Vector) != r.cfg.Dimensions {
		return nil, &domain.QueryError{
			Err: fmt.Errorf("%w: index expects %d, query has %d",
				domain.ErrVectorDimMismatch, r.cfg.Dimensions, len(q.Vector)),
		}
	}

	distance, err := db.ParseDistance(r.cfg.DistanceMetric)
	if err != nil {
		return nil, &domain.QueryError{Err: err}
	}

	fields := q.Fields
	if len(fields) == 0 {
		fields = domain.DefaultSearchFields()
	}

	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.cfg.IndexKey(),
		VectorField:  r.cfg.VectorField,
		Vector:       q.Vector,
		K:            q.K,
		EFRuntime:    q.NumCandidates,
		ReturnFields: fields,
		Limit:        q.Limit,
		// only cosine distance maps onto a bounded similarity
		RawScores: distance != db.DistanceCosine,
	})
	if err != nil {
		if db.IsRejected(err) {
			return nil, &domain.QueryError{Err: fmt.Errorf("search knn %s: %w", r.cfg.IndexKey(), err)}
		}
		return nil, &domain.TransportError{Op: "search knn", Err: err}
	}

	return r.toHits(sr), nil
}

// toHits projects store entries into SearchHits; an empty result is an empty, non-nil list.
func (r *Repo) toHits(sr *db.SearchResult) []domain.SearchHit {
	if sr == nil {
		return []domain.SearchHit{}
	}
	hits := make([]domain.SearchHit, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		id := e.Fields["url"]
		if id == "" {
			id = r.cfg.DocIDFromKey(e.Key)
		}
		hits = append(hits, domain.SearchHit{
			ID:      id,
			Score:   e.Score,
			Title:   e.Fields["title"],
			Content: e.Fields["content"],
			URL:     e.Fields["url"],
		})
	}
	return hits
}
