package config

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every runtime option. It is loaded once and passed
// explicitly through each component's entry point; nothing reads it from
// ambient state.
type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	// Static API key protecting the HTTP API. Auth is disabled when empty.
	APIKey string `envconfig:"API_KEY"`

	// Index persistence. The file store under IndexDir is always active;
	// a Postgres store is used instead when DATABASE_URL is set.
	IndexDir    string `envconfig:"INDEX_DIR" default:"./index"`
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// Optional S3-compatible archive for uploaded source documents.
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"legisearch-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`

	Retrieval RetrievalConfig
	Chunking  ChunkingConfig
	LLM       LLMConfig

	// Directory polled by the reindex worker for changed source documents.
	// The worker is disabled when empty.
	WatchDir          string `envconfig:"WATCH_DIR"`
	WatchPollInterval int    `envconfig:"WATCH_POLL_SECONDS" default:"60"`
}

// RetrievalConfig controls hybrid search and aggregation.
type RetrievalConfig struct {
	TopKResults         int     `envconfig:"TOP_K_RESULTS" default:"20"`
	ResultsPerSubQuery  int     `envconfig:"RESULTS_PER_SUB_QUERY" default:"5"`
	SimilarityThreshold float64 `envconfig:"SIMILARITY_THRESHOLD" default:"0.3"`
	SemanticWeight      float64 `envconfig:"SEMANTIC_WEIGHT" default:"0.6"`
	LexicalWeight       float64 `envconfig:"LEXICAL_WEIGHT" default:"0.4"`
	MultiQueryCount     int     `envconfig:"MULTI_QUERY_COUNT" default:"3"`
}

// ChunkingConfig controls document segmentation.
type ChunkingConfig struct {
	MaxChunkSize int `envconfig:"MAX_CHUNK_SIZE" default:"1500"`
	ChunkOverlap int `envconfig:"CHUNK_OVERLAP" default:"200"`
	MinChunkSize int `envconfig:"MIN_CHUNK_SIZE" default:"100"`
}

// LLMConfig controls calls to the generation service.
type LLMConfig struct {
	Model             string  `envconfig:"LLM_MODEL" default:"gpt-4o-mini"`
	Temperature       float64 `envconfig:"LLM_TEMPERATURE" default:"0.1"`
	MaxTokens         int     `envconfig:"LLM_MAX_TOKENS" default:"2048"`
	DecomposeTimeout  int     `envconfig:"LLM_DECOMPOSE_TIMEOUT_SECONDS" default:"60"`
	SynthesizeTimeout int     `envconfig:"LLM_SYNTHESIZE_TIMEOUT_SECONDS" default:"300"`
	EmbeddingModel    string  `envconfig:"EMBEDDING_MODEL"`
	EmbeddingDims     int     `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("LEGISEARCH", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}
