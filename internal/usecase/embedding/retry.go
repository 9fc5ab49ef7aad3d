package embedding

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docsearch/internal/domain"
	"github.com/kailas-cloud/docsearch/internal/metrics"
)

// RetryEmbedder re-issues a failed call when the provider throttled it or the
// network failed. Other errors, including AlignmentError, are returned at once.
type RetryEmbedder struct {
	inner      domain.Embedder
	maxRetries int
	backoff    time.Duration
	sleep      func(ctx context.Context, d time.Duration) bool
	logger     *zap.Logger
}

// NewRetryEmbedder wraps inner with up to maxRetries extra attempts, each
// after the same fixed backoff.
func NewRetryEmbedder(inner domain.Embedder, maxRetries int, backoff time.Duration, logger *zap.Logger) *RetryEmbedder {
	return &RetryEmbedder{
		inner:      inner,
		maxRetries: maxRetries,
		backoff:    backoff,
		sleep:      sleepCtx,
		logger:     logger,
	}
}

// Embed implements domain.Embedder.
func (r *RetryEmbedder) Embed(ctx context.Context, texts []string) (domain.EmbeddingResult, error) {
	for attempt := 0; ; attempt++ {
		res, err := r.inner.Embed(ctx, texts)
		if err == nil {
			return res, nil
		}

		reason := retryReason(err)
		if reason == "" || attempt >= r.maxRetries || ctx.Err() != nil {
			return domain.EmbeddingResult{}, err
		}

		metrics.EmbeddingRetriesTotal.WithLabelValues(reason).Inc()
		r.logger.Warn("Retrying embedding request",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", r.maxRetries),
			zap.Duration("backoff", r.backoff),
			zap.Error(err),
		)

		if !r.sleep(ctx, r.backoff) {
			return domain.EmbeddingResult{}, err
		}
	}
}

// sleepCtx waits for d and reports false when ctx ends first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// HealthCheck delegates to the inner embedder when it supports health checks.
func (r *RetryEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := r.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}

func retryReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, domain.ErrTransport):
		return "transport"
	default:
		return ""
	}
}
