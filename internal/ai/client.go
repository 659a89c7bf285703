package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = string(openai.SmallEmbedding3)
	// DefaultEmbeddingDimensions is the embedding dimension requested per deployment
	DefaultEmbeddingDimensions = 768
	// DefaultTextModel is the model used for creative text generation
	DefaultTextModel = openai.GPT4oMini
	// DefaultVisionModel is the model used for multimodal audits
	DefaultVisionModel = openai.GPT4o
	// DefaultMaxRetries bounds retries of transient provider failures
	DefaultMaxRetries = 3
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrEmptyImage is returned when no image bytes are supplied for an audit
	ErrEmptyImage = errors.New("image cannot be empty")
	// ErrWrongDimensions is returned when an embedding has unexpected dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrNoAPIKey is returned when the OpenAI API key is not set
	ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")
	// ErrEmptyResponse is returned when the provider returns no usable content
	ErrEmptyResponse = errors.New("provider returned an empty response")
)

// ProviderAPI is the raw provider surface the client wraps. It exists so
// tests can substitute a fake without touching the network.
type ProviderAPI interface {
	CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config holds provider configuration
type Config struct {
	APIKey              string
	EmbeddingModel      string
	EmbeddingDimensions int
	TextModel           string
	VisionModel         string
	MaxRetries          int
}

// Client implements the embed / generate / audit-image capabilities the
// core depends on, backed by the OpenAI API.
type Client struct {
	api         ProviderAPI
	embedModel  string
	textModel   string
	visionModel string
	dimensions  int
	maxRetries  int
}

// NewClient creates a new provider client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new provider client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	c := &Client{
		api:         openai.NewClient(cfg.APIKey),
		embedModel:  cfg.EmbeddingModel,
		textModel:   cfg.TextModel,
		visionModel: cfg.VisionModel,
		dimensions:  cfg.EmbeddingDimensions,
		maxRetries:  cfg.MaxRetries,
	}
	if c.embedModel == "" {
		c.embedModel = DefaultEmbeddingModel
	}
	if c.textModel == "" {
		c.textModel = DefaultTextModel
	}
	if c.visionModel == "" {
		c.visionModel = DefaultVisionModel
	}
	if c.dimensions <= 0 {
		c.dimensions = DefaultEmbeddingDimensions
	}
	if c.maxRetries <= 0 {
		c.maxRetries = DefaultMaxRetries
	}
	return c
}

// NewClientFromEnv creates a provider client using the OPENAI_API_KEY environment variable
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClient(apiKey), nil
}

// NewClientWithAPI creates a client over a caller-supplied provider surface (for tests).
func NewClientWithAPI(api ProviderAPI, cfg Config) *Client {
	c := NewClientWithConfig(cfg)
	c.api = api
	return c
}

// Dimensions returns the embedding dimension this client enforces.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// GenerateEmbedding generates an embedding for the given text. Transient
// provider failures are retried with exponential backoff up to the
// configured attempt bound before the error surfaces.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	var embedding []float32
	op := func() error {
		resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input:      []string{text},
			Model:      openai.EmbeddingModel(c.embedModel),
			Dimensions: c.dimensions,
		})
		if err != nil {
			return err
		}
		if len(resp.Data) == 0 {
			return backoff.Permanent(ErrEmptyResponse)
		}
		embedding = resp.Data[0].Embedding
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.maxRetries)),
		ctx,
	)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	if len(embedding) != c.dimensions {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrWrongDimensions, c.dimensions, len(embedding))
	}

	return embedding, nil
}

// GenerateText produces a completion for a system/user prompt pair. When
// schema is non-nil the provider is constrained to return JSON matching it.
func (c *Client) GenerateText(ctx context.Context, systemPrompt, userPrompt string, schema json.RawMessage) (string, error) {
	if userPrompt == "" {
		return "", ErrEmptyText
	}

	req := openai.ChatCompletionRequest{
		Model:       c.textModel,
		Temperature: 0.2,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	}
	if schema != nil {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "generation",
				Schema: schema,
				Strict: true,
			},
		}
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}

	return resp.Choices[0].Message.Content, nil
}

// AuditImage sends an image plus textual brand context to the vision model
// and returns the raw textual response. Parsing the verdict is the
// caller's concern.
func (c *Client) AuditImage(ctx context.Context, prompt string, image []byte, mimeType string, schema json.RawMessage) (string, error) {
	if prompt == "" {
		return "", ErrEmptyText
	}
	if len(image) == 0 {
		return "", ErrEmptyImage
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))

	req := openai.ChatCompletionRequest{
		Model: c.visionModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: openai.ImageURLDetailAuto,
						},
					},
				},
			},
		},
	}
	if schema != nil {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "audit_verdict",
				Schema: schema,
				Strict: true,
			},
		}
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create vision completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}

	return resp.Choices[0].Message.Content, nil
}
