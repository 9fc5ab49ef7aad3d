// Package search answers free-text queries with a k-NN lookup over the document index.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/docsearch/internal/domain"
	"github.com/kailas-cloud/docsearch/internal/metrics"
)

// Params tune the k-NN query. Zero values fall back to the package defaults.
type Params struct {
	K             int
	NumCandidates int
	Limit         int
	Fields        []string
}

func (p Params) withDefaults() Params {
	if p.K <= 0 {
		p.K = domain.DefaultSearchK
	}
	if p.NumCandidates <= 0 {
		p.NumCandidates = domain.DefaultSearchNumCandidates
	}
	if p.Limit <= 0 {
		p.Limit = domain.DefaultSearchLimit
	}
	if len(p.Fields) == 0 {
		p.Fields = domain.DefaultSearchFields()
	}
	return p
}

// Service embeds a query and returns its nearest documents.
type Service struct {
	repo   Repository
	embed  domain.Embedder
	params Params
}

// New creates a search service.
func New(repo Repository, embed domain.Embedder, params Params) *Service {
	return &Service{repo: repo, embed: embed, params: params.withDefaults()}
}

// Search returns the hits for query in store order. A blank query fails with
// domain.ErrInvalidQuery before any network call.
func (s *Service) Search(ctx context.Context, query string) ([]domain.SearchHit, error) {
	hits, err := s.search(ctx, query)
	metrics.SearchRequestsTotal.WithLabelValues(outcome(err)).Inc()
	return hits, err
}

func (s *Service) search(ctx context.Context, query string) ([]domain.SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrInvalidQuery
	}

	emb, err := s.embed.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if err := domain.CheckAlignment(1, emb); err != nil {
		return nil, err
	}
	domain.UsageFromContext(ctx).AddTokens(emb.TotalTokens)

	hits, err := s.repo.KNNSearch(ctx, domain.KNNQuery{
		Vector:        emb.Embeddings[0],
		K:             s.params.K,
		NumCandidates: s.params.NumCandidates,
		Fields:        s.params.Fields,
		Limit:         s.params.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("knn search: %w", err)
	}
	return hits, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidQuery):
		return "invalid"
	case errors.Is(err, domain.ErrEmbeddingService), errors.Is(err, domain.ErrAlignment):
		return "embedding_error"
	case errors.Is(err, domain.ErrTransport):
		return "transport_error"
	case errors.Is(err, domain.ErrQuery):
		return "query_error"
	default:
		return "error"
	}
}
