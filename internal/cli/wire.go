package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docsearch/internal/config"
	dbRedis "github.com/kailas-cloud/docsearch/internal/db/redis"
	"github.com/kailas-cloud/docsearch/internal/domain"
	"github.com/kailas-cloud/docsearch/internal/metrics"
	"github.com/kailas-cloud/docsearch/internal/repository/checkpoint"
	documentrepo "github.com/kailas-cloud/docsearch/internal/repository/document"
	"github.com/kailas-cloud/docsearch/internal/repository/embcache"
	searchrepo "github.com/kailas-cloud/docsearch/internal/repository/search"
	"github.com/kailas-cloud/docsearch/internal/transport/httpembed"
	openaiEmb "github.com/kailas-cloud/docsearch/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/docsearch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/docsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/docsearch/internal/usecase/search"
)

// app is the composition root shared by the subcommands.
type app struct {
	cfg           config.Config
	logger        *zap.Logger
	store         *dbRedis.Store
	documents     *documentrepo.Repo
	docEmbedder   domain.Embedder
	queryEmbedder domain.Embedder
}

// newApp connects to the store and assembles repositories and embedders.
func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterIndexingMetrics()

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:          cfg.Database.Addrs,
		Username:       cfg.Database.Username,
		Password:       cfg.Database.Password,
		DB:             cfg.Database.DB,
		CommandTimeout: cfg.Database.CommandTimeout,
		TextSearch:     cfg.Database.Driver == "redis",
	})
	if err != nil {
		return nil, fmt.Errorf("create %s store: %w", cfg.Database.Driver, err)
	}

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database",
		zap.String("driver", cfg.Database.Driver),
		zap.Strings("addrs", cfg.Database.Addrs),
	)

	a := &app{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		documents: documentrepo.New(store, cfg.VectorConfig()),
	}
	a.docEmbedder = buildEmbedder(cfg.Embedding, cfg.Embedding.DocumentInstruction, cfg.Index.KeyPrefix, store, logger)
	a.queryEmbedder = buildEmbedder(cfg.Embedding, cfg.Embedding.QueryInstruction, cfg.Index.KeyPrefix, store, logger)

	logger.Info("Embedders created",
		zap.String("client", cfg.Embedding.Client),
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("cache", cfg.Embedding.Cache),
		zap.Int("max_retries", cfg.Embedding.MaxRetries),
	)
	return a, nil
}

func (a *app) Close() {
	a.store.Close()
}

func (a *app) searcher() *searchuc.Service {
	return searchuc.New(searchrepo.New(a.store, a.cfg.VectorConfig()), a.queryEmbedder, searchuc.Params{
		K:             a.cfg.Search.K,
		NumCandidates: a.cfg.Search.NumCandidates,
		Limit:         a.cfg.Search.Limit,
		Fields:        a.cfg.Search.Fields,
	})
}

func (a *app) health() *healthuc.Service {
	var checker healthuc.EmbeddingChecker
	if hc, ok := a.queryEmbedder.(domain.HealthChecker); ok {
		checker = hc
	}
	return healthuc.New(a.store, a.documents, checker)
}

// openCheckpoint opens the bbolt checkpoint file, creating its directory.
func openCheckpoint(path string) (*checkpoint.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create checkpoint dir: %w", err)
		}
	}
	return checkpoint.Open(path)
}

// buildEmbedder assembles the decorator chain:
// transport -> cache -> instrumented -> retry -> instruction.
func buildEmbedder(
	cfg config.EmbeddingConfig,
	instruction, keyPrefix string,
	store *dbRedis.Store,
	logger *zap.Logger,
) domain.Embedder {
	var embedder domain.Embedder
	switch cfg.Client {
	case "http":
		embedder = httpembed.New(httpembed.Config{
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Provider:   cfg.Provider,
			Timeout:    cfg.Timeout,
			Logger:     logger,
		})
	default:
		embedder = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Provider:   cfg.Provider,
			Timeout:    cfg.Timeout,
			Logger:     logger,
		})
	}

	if cfg.Cache && store != nil {
		embedder = embcache.New(embedder, store, keyPrefix, cfg.Model, metrics.EmbeddingCacheTotal, logger).
			WithTTL(cfg.CacheTTL)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Provider, cfg.Model, logger)

	if cfg.MaxRetries > 0 {
		embedder = embeddinguc.NewRetryEmbedder(embedder, cfg.MaxRetries, cfg.RetryBackoff, logger)
	}

	// outermost, so the cache key includes the instruction
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}
	return embedder
}
