package openai

import (
	"math"
	"sync"

	"github.com/textgraph-ai/textgraph/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Client implements ai.Client against OpenAI-compatible endpoints. It
// keeps separate API clients for chat and embedding calls so the two can
// point at different providers.
//
// A Client should be created using NewClient.
type Client struct {
	completionModel string
	extractionModel string
	embeddingModel  string

	embeddingDimensions int

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	chat  *openai.Client
	embed *openai.Client
}

// NewClientParams defines the configuration for creating a Client.
//
// CompletionModel is used for plain completions (answers, summaries),
// ExtractionModel for structured-output extraction calls, and
// EmbeddingModel for embeddings. The URL fields may be left empty to use
// the default OpenAI endpoint.
type NewClientParams struct {
	CompletionModel string
	ExtractionModel string
	EmbeddingModel  string

	EmbeddingDimensions int

	ChatURL      string
	ChatKey      string
	EmbeddingURL string
	EmbeddingKey string
}

// NewClient creates a Client configured with the provided parameters.
func NewClient(params NewClientParams) *Client {
	dim := params.EmbeddingDimensions
	if dim <= 0 {
		dim = 1536
	}

	return &Client{
		completionModel: params.CompletionModel,
		extractionModel: params.ExtractionModel,
		embeddingModel:  params.EmbeddingModel,

		embeddingDimensions: dim,

		chat:  newAPIClient(params.ChatURL, params.ChatKey),
		embed: newAPIClient(params.EmbeddingURL, params.EmbeddingKey),
	}
}

func newAPIClient(baseURL, apiKey string) *openai.Client {
	if apiKey == "" {
		return nil
	}
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)
	return &client
}

// ResetMetrics clears all accumulated token and timing metrics to zero.
func (c *Client) ResetMetrics() {
	c.metricsLock.Lock()
	c.metrics = ai.ModelMetrics{}
	c.metricsLock.Unlock()
}

// GetMetrics returns the accumulated token usage and timing metrics
// since the last reset.
func (c *Client) GetMetrics() ai.ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	return c.metrics
}

func (c *Client) modifyMetrics(m ai.ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	c.metrics.InputTokens += m.InputTokens
	c.metrics.OutputTokens += m.OutputTokens
	c.metrics.TotalTokens += m.TotalTokens
	c.metrics.DurationMs += m.DurationMs

	if c.metrics.DurationMs > 0 {
		tokensPerSecond := (float64(c.metrics.TotalTokens) * 1000.0) / float64(c.metrics.DurationMs)
		c.metrics.TokenPerSecond = float32(math.Round(tokensPerSecond*100) / 100)
	}
}
