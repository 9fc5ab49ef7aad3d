package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docsearch/internal/config"
	"github.com/kailas-cloud/docsearch/internal/corpus"
	"github.com/kailas-cloud/docsearch/internal/usecase/indexing"
)

type indexOptions struct {
	corpus       []string
	batchSize    int
	workers      int
	pace         time.Duration
	noCheckpoint bool
	noProgress   bool
	recreate     bool
}

func newIndexCommand(root *rootOptions) *cobra.Command {
	opts := &indexOptions{}
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Embed a corpus and write it to the vector index",
		Long: `Load every corpus file matching --corpus (a JSON array of {title, content, url}
objects, or a .parquet file with those columns), embed the content in batches and upsert the documents into the index.
The index is created when missing. Re-running is safe: documents are keyed by url.

Examples:
  docsearch index --corpus 'data/*.json'
  docsearch index --corpus 'data/**/*.json' --batch-size 50 --workers 4
  docsearch index --corpus 'export/*.parquet' --recreate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd, root, opts)
		},
	}

	cmd.Flags().StringArrayVar(&opts.corpus, "corpus", nil, "corpus file glob, repeatable (required)")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", 0, "documents per embedding call (default from config)")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "concurrent batches (default from config)")
	cmd.Flags().DurationVar(&opts.pace, "pace", -1, "delay between batches (default from config)")
	cmd.Flags().BoolVar(&opts.noCheckpoint, "no-checkpoint", false, "do not record or resume completed batches")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "disable the progress bar")
	cmd.Flags().BoolVar(&opts.recreate, "recreate", false, "drop and rebuild the index schema before indexing")
	_ = cmd.MarkFlagRequired("corpus")
	return cmd
}

// indexSummary is printed to stdout after a run.
type indexSummary struct {
	RunID            string  `json:"runId"`
	BatchesProcessed int     `json:"batchesProcessed"`
	DocumentsIndexed int     `json:"documentsIndexed"`
	DocumentsFailed  int     `json:"documentsFailed"`
	BatchesSkipped   int     `json:"batchesSkipped"`
	IndexedTotal     int     `json:"indexedTotal"`
	DurationSeconds  float64 `json:"durationSeconds"`
	FailedBatch      *int    `json:"failedBatch,omitempty"`
	Error            string  `json:"error,omitempty"`
}

func runIndex(cmd *cobra.Command, root *rootOptions, opts *indexOptions) error {
	ctx := cmd.Context()
	cfg := root.cfg
	log := root.logger

	if opts.batchSize > 0 {
		cfg.Index.BatchSize = opts.batchSize
	}
	if opts.workers > 0 {
		cfg.Index.Workers = opts.workers
	}
	if opts.pace >= 0 {
		cfg.Index.Pace = opts.pace
	}

	docs, err := corpus.Load(opts.corpus...)
	if err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	log.Info("Corpus loaded", zap.Strings("patterns", opts.corpus), zap.Int("documents", len(docs)))

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if opts.recreate {
		if err := a.documents.DropIndex(ctx); err != nil {
			return err
		}
		log.Info("Index dropped", zap.String("index", a.documents.IndexName()))
	}
	if err := a.documents.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("ensure index: %w", err)
	}

	svcOpts := []indexing.Option{
		indexing.WithBatchSize(cfg.Index.BatchSize),
		indexing.WithWorkers(cfg.Index.Workers),
		indexing.WithPace(cfg.Index.Pace),
		indexing.WithLogger(log),
	}

	if !opts.noCheckpoint && cfg.Index.CheckpointPath != "" {
		cp, err := openCheckpoint(cfg.Index.CheckpointPath)
		if err != nil {
			return err
		}
		defer func() { _ = cp.Close() }()
		svcOpts = append(svcOpts,
			indexing.WithCheckpoint(cp),
			indexing.WithFingerprintSalt(checkpointSalt(cfg.Embedding)...),
		)
		if opts.recreate {
			svcOpts = append(svcOpts, indexing.WithFreshStart())
		}
	}

	if !opts.noProgress {
		bar := newProgressBar(root.stderr, len(docs))
		svcOpts = append(svcOpts, indexing.WithProgress(bar.update))
		defer bar.finish()
	}

	res, runErr := indexing.New(a.docEmbedder, a.documents, svcOpts...).Run(ctx, docs)

	summary, runErr := indexOutcome(res, runErr)
	if total, err := a.documents.Count(ctx); err == nil {
		summary.IndexedTotal = total
	}

	if err := writeJSON(root.stdout, summary); err != nil {
		return err
	}
	return runErr
}

// errDocumentsRejected fails a run that finished but left documents unwritten.
var errDocumentsRejected = errors.New("documents rejected by the store")

// indexOutcome builds the printed summary and the command error of a run.
func indexOutcome(res indexing.Result, runErr error) (indexSummary, error) {
	summary := summarize(res)
	if runErr == nil && res.DocumentsFailed > 0 {
		runErr = fmt.Errorf("%w: %d of %d", errDocumentsRejected,
			res.DocumentsFailed, res.DocumentsFailed+res.DocumentsIndexed)
	}
	if runErr != nil {
		var be *indexing.BatchError
		if errors.As(runErr, &be) {
			summary.FailedBatch = &be.Index
		}
		summary.Error = runErr.Error()
	}
	return summary, runErr
}

// checkpointSalt lists the settings that change the stored vectors.
func checkpointSalt(cfg config.EmbeddingConfig) []string {
	return []string{
		cfg.Model,
		strconv.Itoa(cfg.Dimensions),
		cfg.DocumentInstruction,
	}
}

func summarize(res indexing.Result) indexSummary {
	return indexSummary{
		RunID:            res.RunID,
		BatchesProcessed: res.BatchesProcessed,
		DocumentsIndexed: res.DocumentsIndexed,
		DocumentsFailed:  res.DocumentsFailed,
		BatchesSkipped:   res.BatchesSkipped,
		DurationSeconds:  res.Duration.Seconds(),
	}
}

// progressBar renders indexing progress events on a terminal.
type progressBar struct {
	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func newProgressBar(w io.Writer, total int) *progressBar {
	return &progressBar{bar: progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("docs"),
		progressbar.OptionShowIts(),
		progressbar.OptionSetDescription("[cyan]Indexing[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(w)
		}),
	)}
}

func (p *progressBar) update(ev indexing.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	desc := fmt.Sprintf("[cyan]Indexing[reset] batch %d/%d", ev.BatchesDone, ev.Batches)
	if ev.Skipped {
		desc += " (resumed)"
	}
	p.bar.Describe(desc)
	_ = p.bar.Set(ev.DocumentsDone)
}

func (p *progressBar) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.bar.Exit()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
