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

	JWTSecret string        `envconfig:"JWT_SECRET"`
	JWTTTL    time.Duration `envconfig:"JWT_TTL" default:"12h"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"brandgov-audit-images"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	OpenAIAPIKey        string `envconfig:"OPENAI_API_KEY"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"768"`
	TextModel           string `envconfig:"TEXT_MODEL" default:"gpt-4o"`
	VisionModel         string `envconfig:"VISION_MODEL" default:"gpt-4o"`

	ChunkMaxChars int `envconfig:"CHUNK_MAX_CHARS" default:"700"`
	ChunkOverlap  int `envconfig:"CHUNK_OVERLAP" default:"120"`

	RetrieverTopK  int `envconfig:"RETRIEVER_TOP_K" default:"5"`
	ExactThreshold int `envconfig:"EXACT_THRESHOLD" default:"1000"`
	IVFFlatProbes  int `envconfig:"IVFFLAT_PROBES" default:"10"`

	PromptBudget int `envconfig:"PROMPT_BUDGET" default:"6000"`

	IndexRebuildChurn    int64         `envconfig:"INDEX_REBUILD_CHURN" default:"5000"`
	IndexRebuildInterval time.Duration `envconfig:"INDEX_REBUILD_INTERVAL" default:"5m"`

	SentryDSN        string  `envconfig:"SENTRY_DSN"`
	SentryEnv        string  `envconfig:"SENTRY_ENVIRONMENT" default:"development"`
	SentrySampleRate float64 `envconfig:"SENTRY_SAMPLE_RATE" default:"1.0"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("BRANDGOV", &cfg); err != nil {
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
