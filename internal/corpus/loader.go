// Package corpus loads documents from JSON or Parquet corpus files.
package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/kailas-cloud/docsearch/internal/domain"
)

// ErrNoFiles is returned when no file matches the corpus patterns.
var ErrNoFiles = errors.New("no corpus files matched")

// Load reads every file matching patterns (doublestar globs, e.g. "data/**/*.json").
// A .parquet file holds title, content and url columns; any other file holds a
// JSON array of {title, content, url} objects. Files are read in lexical order
// and documents keep their in-file order.
func Load(patterns ...string) ([]domain.Document, error) {
	files, err := Files(patterns...)
	if err != nil {
		return nil, err
	}

	var docs []domain.Document
	for _, f := range files {
		fileDocs, err := ReadFile(f)
		if err != nil {
			return nil, err
		}
		docs = append(docs, fileDocs...)
	}
	return docs, nil
}

// Files expands patterns into a sorted, de-duplicated list of regular files.
func Files(patterns ...string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil {
				return nil, fmt.Errorf("stat %s: %w", m, err)
			}
			if info.IsDir() {
				continue
			}
			clean := filepath.Clean(m)
			if _, dup := seen[clean]; dup {
				continue
			}
			seen[clean] = struct{}{}
			files = append(files, clean)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoFiles, strings.Join(patterns, ", "))
	}
	sort.Strings(files)
	return files, nil
}

// ReadFile decodes one corpus file. Embeddings present in the file are ignored.
func ReadFile(path string) ([]domain.Document, error) {
	var (
		docs []domain.Document
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		docs, err = readParquet(path)
	} else {
		docs, err = readJSON(path)
	}
	if err != nil {
		return nil, err
	}

	for i := range docs {
		docs[i].URL = strings.TrimSpace(docs[i].URL)
		if docs[i].URL == "" {
			return nil, fmt.Errorf("corpus %s: document %d has no url", path, i)
		}
		docs[i].Embedding = nil
	}
	return docs, nil
}

func readJSON(path string) ([]domain.Document, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read corpus %s: %w", path, err)
	}

	var docs []domain.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("decode corpus %s: %w", path, err)
	}
	return docs, nil
}
