// Package config loads and validates the process configuration once at
// startup. A missing model endpoint or database URL is fatal here, before
// any document is accepted or consumed.
package config

import (
	"fmt"

	"github.com/textgraph-ai/textgraph/internal/util"
	"github.com/textgraph-ai/textgraph/pkg/ai"
	"github.com/textgraph-ai/textgraph/pkg/ai/ollama"
	"github.com/textgraph-ai/textgraph/pkg/ai/openai"
	"github.com/textgraph-ai/textgraph/pkg/kg"

	"github.com/go-playground/validator"
)

// Config is the explicit configuration passed to each component at
// construction time. Nothing reads credentials from globals after Load.
// Settings with defaults treat an empty environment value as unset.
type Config struct {
	DatabaseURL    string `validate:"required"`
	MigrationsPath string

	AIAdapter       string `validate:"oneof=openai ollama"`
	ChatURL         string `validate:"required"`
	ChatKey         string
	EmbedURL        string
	EmbedKey        string
	CompletionModel string
	ExtractionModel string `validate:"required"`
	EmbeddingModel  string

	// EmbedDimensions must match the kg_nodes.embedding column, which
	// the initial migration declares as vector(1536).
	EmbedDimensions int `validate:"min=1"`

	MaxWords     int
	TokenEncoder string
	MaxTokens    int

	ParallelExtractions int
	MaxRetries          int
	ParallelRequests    int
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:    util.GetEnv("DATABASE_URL"),
		MigrationsPath: util.GetEnvString("MIGRATIONS_PATH", "migrations"),

		AIAdapter:       util.GetEnvString("AI_ADAPTER", "openai"),
		ChatURL:         util.GetEnv("AI_CHAT_URL"),
		ChatKey:         util.GetEnv("AI_CHAT_KEY"),
		EmbedURL:        util.GetEnv("AI_EMBED_URL"),
		EmbedKey:        util.GetEnv("AI_EMBED_KEY"),
		CompletionModel: util.GetEnv("AI_CHAT_MODEL"),
		ExtractionModel: util.GetEnv("AI_CHAT_EXTRACT_MODEL"),
		EmbeddingModel:  util.GetEnv("AI_EMBED_MODEL"),
		EmbedDimensions: int(util.GetEnvNumeric("AI_EMBED_DIMENSIONS", 1536)),

		MaxWords:     int(util.GetEnvNumeric("CHUNK_MAX_WORDS", 600)),
		TokenEncoder: util.GetEnvString("TOKEN_ENCODER", ""),
		MaxTokens:    int(util.GetEnvNumeric("CHUNK_MAX_TOKENS", 0)),

		ParallelExtractions: int(util.GetEnvNumeric("PARALLEL_EXTRACTIONS", 1)),
		MaxRetries:          int(util.GetEnvNumeric("MAX_RETRIES", 3)),
		ParallelRequests:    int(util.GetEnvNumeric("AI_PARALLEL_REQ", 15)),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// NewAIClient builds the configured model client.
func (c *Config) NewAIClient() (ai.Client, error) {
	switch c.AIAdapter {
	case "ollama":
		return ollama.NewClient(ollama.NewClientParams{
			CompletionModel: c.CompletionModel,
			ExtractionModel: c.ExtractionModel,
			EmbeddingModel:  c.EmbeddingModel,

			EmbeddingDimensions: c.EmbedDimensions,

			BaseURL: c.ChatURL,
			APIKey:  c.ChatKey,

			MaxConcurrentRequests: int64(c.ParallelRequests),
		})
	default:
		return openai.NewClient(openai.NewClientParams{
			CompletionModel: c.CompletionModel,
			ExtractionModel: c.ExtractionModel,
			EmbeddingModel:  c.EmbeddingModel,

			EmbeddingDimensions: c.EmbedDimensions,

			ChatURL:      c.ChatURL,
			ChatKey:      c.ChatKey,
			EmbeddingURL: c.EmbedURL,
			EmbeddingKey: c.EmbedKey,
		}), nil
	}
}

// PipelineParams translates the configuration into pipeline parameters.
// Model and store are supplied by the caller.
func (c *Config) PipelineParams() kg.NewPipelineParams {
	return kg.NewPipelineParams{
		MaxWords:     c.MaxWords,
		TokenEncoder: c.TokenEncoder,
		MaxTokens:    c.MaxTokens,

		ParallelExtractions: c.ParallelExtractions,
		MaxRetries:          c.MaxRetries,
	}
}
