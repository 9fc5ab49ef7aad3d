package indexing

import (
	"time"

	"go.uber.org/zap"
)

// Progress is emitted once per finished batch.
type Progress struct {
	RunID          string
	BatchIndex     int
	Batches        int
	BatchesDone    int
	DocumentsDone  int
	DocumentsTotal int
	Skipped        bool // restored from a checkpoint, not re-embedded
}

// ProgressFunc receives progress events. Calls are serialized.
type ProgressFunc func(Progress)

// Option configures a Service.
type Option func(*Service)

// WithBatchSize sets the number of documents per embedding call and bulk write.
func WithBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithWorkers sets how many batches run concurrently.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithPace inserts a delay between consecutive batches of a worker.
func WithPace(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.pace = d
		}
	}
}

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(s *Service) {
		s.progress = fn
	}
}

// WithCheckpoint enables resumable runs.
func WithCheckpoint(cp Checkpoint) Option {
	return func(s *Service) {
		s.checkpoint = cp
	}
}

// WithFingerprintSalt mixes embedding settings into the checkpoint key.
func WithFingerprintSalt(parts ...string) Option {
	return func(s *Service) {
		s.salt = parts
	}
}

// WithFreshStart discards checkpointed batches of the run before starting,
// so every batch is embedded and written again.
func WithFreshStart() Option {
	return func(s *Service) {
		s.fresh = true
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
