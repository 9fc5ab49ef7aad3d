package cli

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/docsearch/internal/domain"
)

type searchOptions struct {
	json       bool
	showVector bool
}

func newSearchCommand(root *rootOptions) *cobra.Command {
	opts := &searchOptions{}
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a semantic query against the index",
		Long: `Embed the query and print the nearest documents, most relevant first.

Examples:
  docsearch search "what does part b cover"
  docsearch search "enrollment periods" --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, root, opts, strings.Join(args, " "))
		},
	}
	cmd.Flags().BoolVar(&opts.json, "json", false, "output as JSON")
	cmd.Flags().BoolVar(&opts.showVector, "show-vector", false, "print the stored vector of the top hit")
	return cmd
}

func runSearch(cmd *cobra.Command, root *rootOptions, opts *searchOptions, query string) error {
	ctx := cmd.Context()
	if strings.TrimSpace(query) == "" {
		return domain.ErrInvalidQuery
	}

	a, err := newApp(ctx, root.cfg, root.logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, usage := domain.NewContextWithUsage(ctx)
	hits, err := a.searcher().Search(ctx, query)
	if err != nil {
		return err
	}

	if opts.json {
		if err := writeJSON(root.stdout, struct {
			Query string             `json:"query"`
			Hits  []domain.SearchHit `json:"hits"`
		}{strings.TrimSpace(query), hits}); err != nil {
			return err
		}
	} else {
		printHits(root.stdout, query, hits, usage.TotalTokens)
	}

	if opts.showVector && len(hits) > 0 {
		doc, err := a.documents.Get(ctx, hits[0].ID)
		if err != nil {
			return fmt.Errorf("fetch top hit: %w", err)
		}
		printVector(root.stdout, doc)
	}
	return nil
}

const maxContentPreview = 300

func printHits(w io.Writer, query string, hits []domain.SearchHit, tokens int) {
	if len(hits) == 0 {
		_, _ = fmt.Fprintln(w, "No results found.")
		return
	}
	_, _ = fmt.Fprintf(w, "Found %d results for: %s (%d embedding tokens)\n\n", len(hits), strings.TrimSpace(query), tokens)
	for i, h := range hits {
		_, _ = fmt.Fprintf(w, "--- [%d] %s (score: %.4f) ---\n", i+1, h.Title, h.Score)
		_, _ = fmt.Fprintln(w, h.URL)
		_, _ = fmt.Fprintln(w, preview(h.Content, maxContentPreview))
		_, _ = fmt.Fprintln(w)
	}
}

func printVector(w io.Writer, doc domain.Document) {
	head := doc.Embedding
	if len(head) > 8 {
		head = head[:8]
	}
	_, _ = fmt.Fprintf(w, "Vector of %s: dim=%d head=%v\n", doc.URL, len(doc.Embedding), head)
}

// preview truncates s to n runes.
func preview(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
