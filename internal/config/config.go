// Package config loads docsearch settings from per-environment YAML files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/docsearch/internal/domain"
)

// Config holds the docsearch configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Index     IndexConfig     `yaml:"index"`
	Search    SearchConfig    `yaml:"search"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds document store connection settings.
type DatabaseConfig struct {
	Driver           string        `yaml:"driver"` // redis, valkey (default: redis)
	Addrs            []string      `yaml:"addrs"`
	Username         string        `yaml:"username"`
	Password         string        `yaml:"password"`
	DB               int           `yaml:"db"`
	ReadinessTimeout int           `yaml:"readiness_timeout_sec"`
	CommandTimeout   time.Duration `yaml:"command_timeout"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Client              string        `yaml:"client"`   // sdk (go-openai) or http
	Provider            string        `yaml:"provider"` // metrics label, e.g. openai, nebius
	BaseURL             string        `yaml:"base_url"`
	APIKey              string        `yaml:"api_key"`
	Model               string        `yaml:"model"`
	Dimensions          int           `yaml:"dimensions"`
	Timeout             time.Duration `yaml:"timeout"`
	DocumentInstruction string        `yaml:"document_instruction"`
	QueryInstruction    string        `yaml:"query_instruction"`
	Cache               bool          `yaml:"cache"`
	CacheTTL            time.Duration `yaml:"cache_ttl"`   // 0 keeps cached vectors forever
	MaxRetries          int           `yaml:"max_retries"` // 0 disables retries
	RetryBackoff        time.Duration `yaml:"retry_backoff"`
}

// IndexConfig holds index layout and indexing run settings.
type IndexConfig struct {
	Name            string        `yaml:"name"`
	KeyPrefix       string        `yaml:"key_prefix"`
	VectorField     string        `yaml:"vector_field"`
	Metric          string        `yaml:"metric"` // cosine, l2, ip
	HNSWM           int           `yaml:"hnsw_m"`
	HNSWEFConstruct int           `yaml:"hnsw_ef_construction"`
	BatchSize       int           `yaml:"batch_size"`
	Workers         int           `yaml:"workers"`
	Pace            time.Duration `yaml:"pace"` // delay between batches, 0 disables
	CheckpointPath  string        `yaml:"checkpoint_path"`
}

// SearchConfig holds k-NN query settings.
type SearchConfig struct {
	K             int      `yaml:"k"`
	NumCandidates int      `yaml:"num_candidates"`
	Limit         int      `yaml:"limit"`
	Fields        []string `yaml:"fields"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit YAML path.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	def := domain.DefaultVectorConfig()

	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.CommandTimeout <= 0 {
		c.Database.CommandTimeout = 5 * time.Second
	}

	if c.Embedding.Client == "" {
		c.Embedding.Client = "sdk"
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = def.Model
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = def.Dimensions
	}
	if c.Embedding.Timeout <= 0 {
		c.Embedding.Timeout = 30 * time.Second
	}
	if c.Embedding.RetryBackoff <= 0 {
		c.Embedding.RetryBackoff = time.Second
	}

	if c.Index.Name == "" {
		c.Index.Name = def.IndexName
	}
	if c.Index.KeyPrefix == "" {
		c.Index.KeyPrefix = def.KeyPrefix
	}
	if c.Index.VectorField == "" {
		c.Index.VectorField = def.VectorField
	}
	if c.Index.Metric == "" {
		c.Index.Metric = def.DistanceMetric
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = def.HNSWM
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = def.HNSWEFConstruction
	}
	if c.Index.BatchSize <= 0 {
		c.Index.BatchSize = domain.DefaultBatchSize
	}
	if c.Index.Workers <= 0 {
		c.Index.Workers = 1
	}

	if c.Search.K <= 0 {
		c.Search.K = domain.DefaultSearchK
	}
	if c.Search.NumCandidates <= 0 {
		c.Search.NumCandidates = domain.DefaultSearchNumCandidates
	}
	if c.Search.Limit <= 0 {
		c.Search.Limit = domain.DefaultSearchLimit
	}
	if len(c.Search.Fields) == 0 {
		c.Search.Fields = domain.DefaultSearchFields()
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	switch c.Database.Driver {
	case "redis", "valkey":
	default:
		return fmt.Errorf("database.driver must be \"redis\" or \"valkey\", got %q", c.Database.Driver)
	}
	switch c.Embedding.Client {
	case "sdk", "http":
	default:
		return fmt.Errorf("embedding.client must be \"sdk\" or \"http\", got %q", c.Embedding.Client)
	}
	if c.Embedding.Client == "http" && c.Embedding.BaseURL == "" {
		return fmt.Errorf("embedding.base_url is required for the http client")
	}
	if c.Embedding.MaxRetries < 0 {
		return fmt.Errorf("embedding.max_retries must not be negative, got %d", c.Embedding.MaxRetries)
	}
	if c.Embedding.CacheTTL < 0 {
		return fmt.Errorf("embedding.cache_ttl must not be negative, got %s", c.Embedding.CacheTTL)
	}
	switch c.Index.Metric {
	case "cosine", "l2", "ip":
	default:
		return fmt.Errorf("index.metric must be one of cosine, l2, ip, got %q", c.Index.Metric)
	}
	if strings.ContainsAny(c.Index.Name, ": ") {
		return fmt.Errorf("index.name must not contain ':' or spaces, got %q", c.Index.Name)
	}
	if c.Search.K < c.Search.Limit {
		return fmt.Errorf("search.limit (%d) must not exceed search.k (%d)", c.Search.Limit, c.Search.K)
	}
	return nil
}

// VectorConfig projects the index and embedding sections onto the shared domain settings.
func (c *Config) VectorConfig() domain.VectorConfig {
	return domain.VectorConfig{
		Model:              c.Embedding.Model,
		Dimensions:         c.Embedding.Dimensions,
		DistanceMetric:     c.Index.Metric,
		VectorField:        c.Index.VectorField,
		IndexName:          c.Index.Name,
		KeyPrefix:          c.Index.KeyPrefix,
		HNSWM:              c.Index.HNSWM,
		HNSWEFConstruction: c.Index.HNSWEFConstruct,
	}
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// relative to the source file, for tests run from package directories
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b)))
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// envVarRegex matches ${VAR} and ${VAR:-default}.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
