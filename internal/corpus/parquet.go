package corpus

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/kailas-cloud/docsearch/internal/domain"
)

const parquetBatchRows = 1000

// documentColumns holds leaf column indexes; -1 means absent.
type documentColumns struct {
	title   int
	content int
	url     int
}

func resolveDocumentColumns(pf *parquet.File) documentColumns {
	cols := documentColumns{title: -1, content: -1, url: -1}
	for i, path := range pf.Schema().Columns() {
		if len(path) == 0 {
			continue
		}
		switch path[0] {
		case "title":
			cols.title = i
		case "content":
			cols.content = i
		case "url":
			cols.url = i
		}
	}
	return cols
}

// readParquet reads rows through the generic row reader, so nullable and
// extra columns do not need a matching Go struct.
func readParquet(path string) ([]domain.Document, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read corpus %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat corpus %s: %w", path, err)
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet %s: %w", path, err)
	}

	cols := resolveDocumentColumns(pf)
	if cols.url < 0 {
		return nil, fmt.Errorf("corpus %s: url column not found", path)
	}

	docs := make([]domain.Document, 0, pf.NumRows())
	buf := make([]parquet.Row, parquetBatchRows)
	for _, rg := range pf.RowGroups() {
		rows := parquet.NewRowGroupReader(rg)
		for {
			n, readErr := rows.ReadRows(buf)
			for i := 0; i < n; i++ {
				docs = append(docs, rowToDocument(buf[i], cols))
			}
			if readErr != nil {
				if errors.Is(readErr, io.EOF) {
					break
				}
				return nil, fmt.Errorf("read rows %s: %w", path, readErr)
			}
		}
	}
	return docs, nil
}

func rowToDocument(row parquet.Row, cols documentColumns) domain.Document {
	var doc domain.Document
	for _, v := range row {
		if v.IsNull() {
			continue
		}
		switch v.Column() {
		case cols.title:
			doc.Title = v.String()
		case cols.content:
			doc.Content = v.String()
		case cols.url:
			doc.URL = v.String()
		}
	}
	return doc
}
