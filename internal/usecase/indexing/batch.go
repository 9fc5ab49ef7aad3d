package indexing

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/kailas-cloud/docsearch/internal/domain"
)

// Batch is a contiguous, non-overlapping slice of the corpus.
type Batch struct {
	Index int
	Docs  []domain.Document
}

// Partition splits docs into ceil(len/size) batches in corpus order; only the
// last may be shorter. Batches share the backing array with docs.
func Partition(docs []domain.Document, size int) []Batch {
	if size <= 0 {
		size = domain.DefaultBatchSize
	}
	batches := make([]Batch, 0, (len(docs)+size-1)/size)
	for start := 0; start < len(docs); start += size {
		end := min(start+size, len(docs))
		batches = append(batches, Batch{Index: len(batches), Docs: docs[start:end:end]})
	}
	return batches
}

// Fingerprint identifies a corpus split into batches of size, for checkpoints.
// Any change to a document's url or content, their order, the batch size or
// the salt yields a new fingerprint. The salt carries whatever shapes the
// vectors (model, dimensions, instruction), so a resumed run never keeps
// batches embedded under another model.
func Fingerprint(docs []domain.Document, size int, salt ...string) string {
	h := sha256.New()
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(size))
	h.Write(n[:])
	for _, part := range salt {
		fmt.Fprintf(h, "%d:%s\x00", len(part), part)
	}
	for i := range docs {
		fmt.Fprintf(h, "%s\x00%s\x00", docs[i].URL, docs[i].Content)
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}

// BatchError reports the batch that aborted a run.
type BatchError struct {
	Index int
	Err   error
}

func (e *BatchError) Error() string { return fmt.Sprintf("batch %d: %v", e.Index, e.Err) }
func (e *BatchError) Unwrap() error { return e.Err }
