package document

import (
	"github.com/kailas-cloud/docsearch/internal/db"
	"github.com/kailas-cloud/docsearch/internal/domain"
)

// Hash field names of a stored document.
const (
	fieldTitle   = "title"
	fieldContent = "content"
	fieldURL     = "url"
)

// buildHashFields converts a domain Document into a flat map[string]string for HSET.
func buildHashFields(doc *domain.Document, vectorField string) map[string]string {
	return map[string]string{
		fieldTitle:   doc.Title,
		fieldContent: doc.Content,
		fieldURL:     doc.URL,
		vectorField:  db.VectorToBytes(doc.Embedding),
	}
}

// parseHashFields converts a flat hash map back into a domain Document.
func parseHashFields(m map[string]string, vectorField string) (domain.Document, error) {
	doc := domain.Document{
		Title:   m[fieldTitle],
		Content: m[fieldContent],
		URL:     m[fieldURL],
	}
	if blob, ok := m[vectorField]; ok {
		v, err := db.BytesToVector(blob)
		if err != nil {
			return domain.Document{}, err
		}
		doc.Embedding = v
	}
	return doc, nil
}
