package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"sailor-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	// Remote markdown conversion service; optional, native extraction is
	// used when unset.
	ConverterURL   string        `envconfig:"CONVERTER_URL"`
	ConvertTimeout time.Duration `envconfig:"CONVERT_TIMEOUT" default:"120s"`

	DenseEmbeddingURL  string        `envconfig:"DENSE_EMBEDDING_URL"`
	SparseEmbeddingURL string        `envconfig:"SPARSE_EMBEDDING_URL"`
	EmbedTimeout       time.Duration `envconfig:"EMBED_TIMEOUT" default:"60s"`
	EmbedMaxRetries    int           `envconfig:"EMBED_MAX_RETRIES" default:"3"`
	EmbedRetryDelay    time.Duration `envconfig:"EMBED_RETRY_DELAY" default:"1s"`
	EmbedBatchSize     int           `envconfig:"EMBED_BATCH_SIZE" default:"32"`
	DenseDim           int           `envconfig:"DENSE_DIM" default:"384"`
	// SparseDim is the sparse vocabulary size. It must stay constant for
	// the lifetime of a collection.
	SparseDim int `envconfig:"SPARSE_DIM" default:"30522"`

	LLMAPIKey  string        `envconfig:"LLM_API_KEY"`
	LLMBaseURL string        `envconfig:"LLM_BASE_URL" default:"https://api.groq.com/openai/v1"`
	LLMModel   string        `envconfig:"LLM_MODEL" default:"llama-3.3-70b-versatile"`
	LLMTimeout time.Duration `envconfig:"LLM_TIMEOUT" default:"60s"`

	ChunkSizeTokens    int `envconfig:"CHUNK_SIZE_TOKENS" default:"512"`
	PagesPerBatch      int `envconfig:"PAGES_PER_BATCH" default:"6"`
	MaxParallelBatches int `envconfig:"MAX_PARALLEL_BATCHES" default:"6"`

	ScoreThreshold float64 `envconfig:"SCORE_THRESHOLD" default:"0.7"`
	NeighborChunks int     `envconfig:"NEIGHBOR_CHUNKS" default:"3"`

	MaxUploadMB int `envconfig:"MAX_UPLOAD_MB" default:"50"`

	// SyncIngest processes uploads in-request instead of handing them to
	// the background ingest worker.
	SyncIngest         bool          `envconfig:"SYNC_INGEST" default:"false"`
	WorkerPollInterval time.Duration `envconfig:"WORKER_POLL_INTERVAL" default:"5s"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("SAILOR", &cfg); err != nil {
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

func (c *Config) HasLLM() bool {
	return c.LLMAPIKey != ""
}

func (c *Config) HasConverter() bool {
	return c.ConverterURL != ""
}

func (c *Config) HasEmbedding() bool {
	return c.DenseEmbeddingURL != "" && c.SparseEmbeddingURL != ""
}

func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) * 1024 * 1024
}
