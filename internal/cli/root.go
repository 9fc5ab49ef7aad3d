// Package cli implements the docsearch command line: index, search and serve.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docsearch/internal/config"
	"github.com/kailas-cloud/docsearch/internal/domain"
	logpkg "github.com/kailas-cloud/docsearch/internal/logger"
	"github.com/kailas-cloud/docsearch/internal/version"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// rootOptions are shared by every subcommand.
type rootOptions struct {
	cfgFile  string
	env      string
	logLevel string

	cfg    config.Config
	logger *zap.Logger
	stdout io.Writer
	stderr io.Writer
}

// Execute runs the root command and exits with its status code.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts := &rootOptions{stdout: stdout, stderr: stderr}
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if opts.logger != nil {
		_ = opts.logger.Sync()
	}
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
	}
	return exitCode(err)
}

func newRootCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docsearch",
		Short: "Semantic document search over Redis or Valkey vector indexes",
		Long: `docsearch embeds a JSON corpus with an OpenAI-compatible embedding API,
stores it in a Redis Stack or Valkey-search HNSW index, and answers natural
language queries with a k-NN lookup.

Example usage:
  docsearch index --corpus 'data/*.json'   # Embed and index a corpus
  docsearch search "what does part b cover" # Query from the terminal
  docsearch serve                          # Expose GET /search over HTTP`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default is config/{env}.yaml)")
	cmd.PersistentFlags().StringVar(&opts.env, "env", config.GetEnv(), "environment: local, dev, docker, prod")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level")

	cmd.AddCommand(
		newIndexCommand(opts),
		newSearchCommand(opts),
		newServeCommand(opts),
	)
	return cmd
}

func (o *rootOptions) load() error {
	var err error
	if o.cfgFile != "" {
		o.cfg, err = config.LoadFile(o.cfgFile)
	} else {
		o.cfg, err = config.Load(o.env)
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := o.cfg.Logging.Level
	if o.logLevel != "" {
		level = o.logLevel
	}
	o.logger, err = logpkg.NewLogger(o.env, level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	return nil
}

// exitCode maps command errors onto process exit codes.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, domain.ErrInvalidQuery), errors.Is(err, errUsage):
		return exitUsage
	default:
		return exitError
	}
}

// errUsage marks invalid command input detected after flag parsing.
var errUsage = errors.New("usage error")
