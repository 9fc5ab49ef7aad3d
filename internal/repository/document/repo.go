package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/docsearch/internal/db"
	"github.com/kailas-cloud/docsearch/internal/domain"
	"github.com/kailas-cloud/docsearch/internal/domain/batch"
)

// store is the consumer interface for documents (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) ([]error, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	IndexDocCount(ctx context.Context, name string) (int, error)
	SupportsTextSearch(ctx context.Context) bool
}

// Repo implements the document half of the DocumentStore: bulk upsert, index bootstrap and lookups.
type Repo struct {
	store store
	cfg   domain.VectorConfig
}

// New creates a document repository.
func New(s store, cfg domain.VectorConfig) *Repo {
	return &Repo{store: s, cfg: cfg}
}

// BulkUpsert writes every document in one pipelined round-trip, keyed by URL.
// Existing keys are overwritten, so repeating a write leaves one copy per id.
// Documents the store refuses individually are reported in the result; a
// failure of the request as a whole is returned as *domain.BulkWriteError.
func (r *Repo) BulkUpsert(ctx context.Context, docs []domain.Document) (batch.Results, error) {
	results := make(batch.Results, len(docs))
	items := make([]db.HashSetItem, 0, len(docs))
	// positions maps items back to docs; skipped documents have no item.
	positions := make([]int, 0, len(docs))

	for i := range docs {
		doc := &docs[i]
		if err := r.checkDocument(doc); err != nil {
			results[i] = batch.NewError(doc.ID(), err)
			continue
		}
		items = append(items, db.HashSetItem{
			Key:    r.cfg.DocKey(doc.ID()),
			Fields: buildHashFields(doc, r.cfg.VectorField),
		})
		positions = append(positions, i)
	}

	if len(items) == 0 {
		return results, nil
	}

	itemErrs, err := r.store.HSetMulti(ctx, items)
	if err != nil {
		return nil, bulkWriteError(ctx, err)
	}

	for j, pos := range positions {
		id := docs[pos].ID()
		if j < len(itemErrs) && itemErrs[j] != nil {
			results[pos] = batch.NewError(id, itemErrs[j])
			continue
		}
		results[pos] = batch.NewOK(id)
	}
	return results, nil
}

func (r *Repo) checkDocument(doc *domain.Document) error {
	if doc.ID() == "" {
		return errors.New("document url is required")
	}
	if !doc.HasEmbedding() {
		return domain.ErrMissingEmbedding
	}
	if r.cfg.Dimensions > 0 && len(doc.Embedding) != r.cfg.Dimensions {
		return fmt.Errorf("%w: expected %d, got %d", domain.ErrVectorDimMismatch, r.cfg.Dimensions, len(doc.Embedding))
	}
	return nil
}

func bulkWriteError(ctx context.Context, err error) error {
	if db.IsRejected(err) {
		return &domain.BulkWriteError{Err: err}
	}
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return &domain.BulkWriteError{Err: fmt.Errorf("bulk upsert: %w", ctxErr)}
	}
	return &domain.BulkWriteError{Err: &domain.TransportError{Op: "bulk upsert", Err: err}}
}

// EnsureIndex creates the FT index over document hashes unless it already exists.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	name := r.cfg.IndexKey()

	exists, err := r.store.IndexExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check index %s: %w", name, err)
	}
	if exists {
		return nil
	}

	def, err := r.indexDefinition(ctx)
	if err != nil {
		return fmt.Errorf("build index %s: %w", name, err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		// lost a race with another runner
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w", name, err)
	}
	return nil
}

// DropIndex removes the FT index; document hashes are kept. A missing index is not an error.
func (r *Repo) DropIndex(ctx context.Context) error {
	name := r.cfg.IndexKey()
	if err := r.store.DropIndex(ctx, name); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", name, err)
	}
	return nil
}

func (r *Repo) indexDefinition(ctx context.Context) (*db.IndexDefinition, error) {
	distance, err := db.ParseDistance(r.cfg.DistanceMetric)
	if err != nil {
		return nil, err
	}

	b := db.NewIndex(r.cfg.IndexKey()).
		Prefix(r.cfg.DocPrefix()).
		Tag(fieldURL)
	if r.store.SupportsTextSearch(ctx) {
		b = b.Text(fieldTitle).Text(fieldContent)
	}
	return b.VectorHNSW(r.cfg.VectorField, r.cfg.Dimensions, distance, r.cfg.HNSWM, r.cfg.HNSWEFConstruction).
		Build()
}

// Count returns the number of documents covered by the index.
func (r *Repo) Count(ctx context.Context) (int, error) {
	name := r.cfg.IndexKey()
	n, err := r.store.IndexDocCount(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", name, err)
	}
	return n, nil
}

// Get returns a stored document by URL.
func (r *Repo) Get(ctx context.Context, url string) (domain.Document, error) {
	key := r.cfg.DocKey(url)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domain.Document{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	if len(m) == 0 {
		return domain.Document{}, domain.ErrDocumentNotFound
	}
	doc, err := parseHashFields(m, r.cfg.VectorField)
	if err != nil {
		return domain.Document{}, fmt.Errorf("parse %s: %w", key, err)
	}
	if doc.URL == "" {
		doc.URL = url
	}
	return doc, nil
}

// IndexName exposes the FT index name for diagnostics.
func (r *Repo) IndexName() string { return r.cfg.IndexKey() }
