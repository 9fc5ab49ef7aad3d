package domain

import "strings"

// VectorConfig holds vectorization and index settings shared by the write and read paths.
type VectorConfig struct {
	Model              string
	Dimensions         int
	DistanceMetric     string
	VectorField        string
	IndexName          string
	KeyPrefix          string
	HNSWM              int // 0 keeps the engine default
	HNSWEFConstruction int
}

// IndexKey returns the FT index name, e.g. "docsearch:openai-integration:idx".
func (c VectorConfig) IndexKey() string {
	return c.KeyPrefix + c.IndexName + ":idx"
}

// DocPrefix is the hash key prefix the index covers.
func (c VectorConfig) DocPrefix() string {
	return c.KeyPrefix + c.IndexName + ":"
}

// DocKey returns the hash key of a document id.
func (c VectorConfig) DocKey(id string) string {
	return c.DocPrefix() + id
}

// DocIDFromKey strips the document prefix from a hash key.
func (c VectorConfig) DocIDFromKey(key string) string {
	return strings.TrimPrefix(key, c.DocPrefix())
}

// DefaultVectorConfig returns defaults matching OpenAI text-embedding-ada-002.
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{
		Model:              "text-embedding-ada-002",
		Dimensions:         1536,
		DistanceMetric:     "cosine",
		VectorField:        "embedding",
		IndexName:          "openai-integration",
		KeyPrefix:          "docsearch:",
		HNSWM:              16,
		HNSWEFConstruction: 200,
	}
}

// Search defaults kept for compatibility with existing clients.
const (
	DefaultSearchK             = 10
	DefaultSearchNumCandidates = 100
	DefaultSearchLimit         = 10
	DefaultBatchSize           = 10
)

// DefaultSearchFields are the source fields returned with every hit.
func DefaultSearchFields() []string {
	return []string{"url", "title", "content"}
}
