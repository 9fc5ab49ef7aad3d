package domain

// Document is a corpus entry. The source URL doubles as its identifier.
type Document struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	URL     string `json:"url"`
	// Embedding stays nil until the indexing pipeline has run.
	Embedding []float32 `json:"embedding,omitempty"`
}

// ID returns the store identifier of the document.
func (d Document) ID() string { return d.URL }

// HasEmbedding reports whether the document was vectorized.
func (d Document) HasEmbedding() bool { return len(d.Embedding) > 0 }

// SearchHit is a single ranked k-NN match, built fresh per query.
type SearchHit struct {
	ID      string  `json:"id"`
	Score   float64 `json:"score"` // similarity, higher is more relevant
	Title   string  `json:"title"`
	Content string  `json:"content"`
	URL     string  `json:"url"`
}

// KNNQuery is a store-agnostic approximate nearest-neighbor request.
type KNNQuery struct {
	Vector        []float32
	K             int
	NumCandidates int // breadth of the approximate scan before top-K selection
	Fields        []string
	Limit         int
}
