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
	S3Bucket    string `envconfig:"S3_BUCKET" default:"chronicle-sources"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	LLMProvider     string `envconfig:"LLM_PROVIDER" default:"openai"`
	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`
	LLMModel        string `envconfig:"LLM_MODEL"`

	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`

	TopK                int           `envconfig:"TOP_K" default:"10"`
	DefaultLookbackDays int           `envconfig:"DEFAULT_LOOKBACK_DAYS" default:"30"`
	AlignmentThreshold  float64       `envconfig:"ALIGNMENT_THRESHOLD" default:"0.6"`
	EntityBoost         float64       `envconfig:"ENTITY_BOOST" default:"0.1"`
	LLMTimeout          time.Duration `envconfig:"LLM_TIMEOUT" default:"60s"`

	// Hour of day (UTC) at which daily session summaries are generated.
	SummaryHour int `envconfig:"SUMMARY_HOUR" default:"23"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("CHRONICLE", &cfg); err != nil {
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
	return c.OpenAIAPIKey != "" || c.AnthropicAPIKey != ""
}
