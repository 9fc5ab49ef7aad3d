// Package indexing embeds a corpus batch by batch and writes it to the document store.
package indexing

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docsearch/internal/domain"
	dombatch "github.com/kailas-cloud/docsearch/internal/domain/batch"
	"github.com/kailas-cloud/docsearch/internal/metrics"
)

// Result summarizes a run.
type Result struct {
	RunID            string        `json:"runId"`
	BatchesProcessed int           `json:"batchesProcessed"`
	DocumentsIndexed int           `json:"documentsIndexed"`
	DocumentsFailed  int           `json:"documentsFailed"`
	BatchesSkipped   int           `json:"batchesSkipped"`
	Duration         time.Duration `json:"duration"`
}

// Service runs the indexing pipeline: partition, embed, align, bulk write.
type Service struct {
	embed      domain.Embedder
	store      BulkUpserter
	batchSize  int
	workers    int
	pace       time.Duration
	progress   ProgressFunc
	checkpoint Checkpoint
	salt       []string
	fresh      bool
	logger     *zap.Logger
}

// New creates an indexing service.
func New(embed domain.Embedder, store BulkUpserter, opts ...Option) *Service {
	s := &Service{
		embed:     embed,
		store:     store,
		batchSize: domain.DefaultBatchSize,
		workers:   1,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// run is the shared state of one Run call.
type run struct {
	id          string
	fingerprint string
	batches     int
	docsTotal   int

	processed atomic.Int64
	indexed   atomic.Int64
	failed    atomic.Int64
	skipped   atomic.Int64
	docsDone  atomic.Int64

	mu       sync.Mutex // guards err and serializes progress callbacks
	err      *BatchError
	doneSeen int
}

// Run indexes docs and assigns each its embedding. Batches are embedded and
// written in corpus order when workers is 1. The first batch-level failure
// stops the run and is returned as *BatchError; documents the store rejects
// individually are counted in Result.DocumentsFailed without stopping it.
// Cancelling ctx stops the run before the next batch; no write starts after
// cancellation is observed.
func (s *Service) Run(ctx context.Context, docs []domain.Document) (Result, error) {
	start := time.Now()
	batches := Partition(docs, s.batchSize)

	r := &run{id: uuid.NewString(), batches: len(batches), docsTotal: len(docs)}
	log := s.logger.With(zap.String("run_id", r.id))

	completed, err := s.loadCheckpoint(ctx, r, docs)
	if err != nil {
		return Result{RunID: r.id}, err
	}

	log.Info("Indexing started",
		zap.Int("documents", len(docs)),
		zap.Int("batches", len(batches)),
		zap.Int("batch_size", s.batchSize),
		zap.Int("workers", s.workers),
		zap.Int("resumable_batches", len(completed)),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan Batch)
	var wg sync.WaitGroup
	for i := 0; i < min(s.workers, max(len(batches), 1)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.worker(ctx, cancel, log, r, completed, jobs)
		}()
	}

	for _, b := range batches {
		jobs <- b
	}
	close(jobs)
	wg.Wait()

	res := Result{
		RunID:            r.id,
		BatchesProcessed: int(r.processed.Load()),
		DocumentsIndexed: int(r.indexed.Load()),
		DocumentsFailed:  int(r.failed.Load()),
		BatchesSkipped:   int(r.skipped.Load()),
		Duration:         time.Since(start),
	}

	if r.err != nil {
		log.Error("Indexing aborted",
			zap.Int("batch", r.err.Index),
			zap.Int("batches_processed", res.BatchesProcessed),
			zap.Error(r.err.Err),
		)
		return res, r.err
	}

	if s.checkpoint != nil {
		if err := s.checkpoint.Reset(context.WithoutCancel(ctx), r.fingerprint); err != nil {
			log.Warn("Failed to reset checkpoint", zap.Error(err))
		}
	}

	log.Info("Indexing finished",
		zap.Int("batches_processed", res.BatchesProcessed),
		zap.Int("batches_skipped", res.BatchesSkipped),
		zap.Int("documents_indexed", res.DocumentsIndexed),
		zap.Int("documents_failed", res.DocumentsFailed),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

func (s *Service) loadCheckpoint(ctx context.Context, r *run, docs []domain.Document) (map[int]bool, error) {
	if s.checkpoint == nil {
		return nil, nil
	}
	r.fingerprint = Fingerprint(docs, s.batchSize, s.salt...)
	if s.fresh {
		if err := s.checkpoint.Reset(ctx, r.fingerprint); err != nil {
			return nil, fmt.Errorf("reset checkpoint: %w", err)
		}
	}
	completed, err := s.checkpoint.Completed(ctx, r.fingerprint)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	return completed, nil
}

func (s *Service) worker(
	ctx context.Context, cancel context.CancelFunc, log *zap.Logger,
	r *run, completed map[int]bool, jobs <-chan Batch,
) {
	first := true
	for b := range jobs {
		// drain after failure or cancellation, recording the first unstarted batch
		if err := ctx.Err(); err != nil {
			r.fail(b.Index, err)
			continue
		}

		if completed[b.Index] {
			r.skipped.Add(1)
			r.docsDone.Add(int64(len(b.Docs)))
			metrics.IndexBatchesTotal.WithLabelValues("skipped").Inc()
			s.emit(r, b.Index, true)
			continue
		}

		if !first && !sleep(ctx, s.pace) {
			r.fail(b.Index, ctx.Err())
			continue
		}
		first = false

		start := time.Now()
		results, err := s.processBatch(ctx, b)
		metrics.IndexBatchDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.IndexBatchesTotal.WithLabelValues("error").Inc()
			r.fail(b.Index, err)
			cancel()
			continue
		}

		ok, failed := results.Succeeded(), results.Failed()
		r.processed.Add(1)
		r.indexed.Add(int64(ok))
		r.failed.Add(int64(failed))
		r.docsDone.Add(int64(len(b.Docs)))
		metrics.IndexBatchesTotal.WithLabelValues("ok").Inc()
		metrics.IndexDocumentsTotal.WithLabelValues("ok").Add(float64(ok))

		if failed > 0 {
			metrics.IndexDocumentsTotal.WithLabelValues("failed").Add(float64(failed))
			bad, _ := results.FirstError()
			log.Warn("Documents rejected by store",
				zap.Int("batch", b.Index),
				zap.Int("failed", failed),
				zap.String("first_id", bad.ID()),
				zap.Error(bad.Err()),
			)
		}

		log.Debug("Batch indexed",
			zap.Int("batch", b.Index),
			zap.Int("documents", len(b.Docs)),
			zap.Int("failed", failed),
			zap.Duration("duration", time.Since(start)),
		)

		if s.checkpoint != nil {
			if err := s.checkpoint.MarkDone(ctx, r.fingerprint, b.Index, len(b.Docs)); err != nil {
				log.Warn("Failed to record checkpoint", zap.Int("batch", b.Index), zap.Error(err))
			}
		}

		s.emit(r, b.Index, false)
	}
}

// processBatch embeds the batch contents, checks alignment, assigns vectors
// positionally and writes the batch.
func (s *Service) processBatch(ctx context.Context, b Batch) (dombatch.Results, error) {
	texts := make([]string, len(b.Docs))
	for i := range b.Docs {
		texts[i] = b.Docs[i].Content
	}

	res, err := s.embed.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if err := domain.CheckAlignment(len(texts), res); err != nil {
		return nil, err
	}

	for i := range b.Docs {
		b.Docs[i].Embedding = res.Embeddings[i]
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results, err := s.store.BulkUpsert(ctx, b.Docs)
	if err != nil {
		return nil, fmt.Errorf("bulk upsert: %w", err)
	}
	return results, nil
}

func (s *Service) emit(r *run, index int, skipped bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.doneSeen++
	if s.progress == nil {
		return
	}
	s.progress(Progress{
		RunID:          r.id,
		BatchIndex:     index,
		Batches:        r.batches,
		BatchesDone:    r.doneSeen,
		DocumentsDone:  int(r.docsDone.Load()),
		DocumentsTotal: r.docsTotal,
		Skipped:        skipped,
	})
}

// fail records the first batch-level error of the run.
func (r *run) fail(index int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err == nil {
		r.err = &BatchError{Index: index, Err: err}
	}
}

// sleep waits d or until ctx is done; it reports whether the full delay elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
