package indexing

import (
	"context"

	"github.com/kailas-cloud/docsearch/internal/domain"
	dombatch "github.com/kailas-cloud/docsearch/internal/domain/batch"
)

// BulkUpserter writes embedded documents, overwriting by id.
type BulkUpserter interface {
	BulkUpsert(ctx context.Context, docs []domain.Document) (dombatch.Results, error)
}

// Checkpoint remembers which batches of a run fingerprint already completed.
type Checkpoint interface {
	Completed(ctx context.Context, run string) (map[int]bool, error)
	MarkDone(ctx context.Context, run string, index, docs int) error
	Reset(ctx context.Context, run string) error
}
