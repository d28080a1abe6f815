// Package llm adapts the OpenAI-compatible chat and embedding APIs to
// the capabilities the core consumes: text to vector, messages to
// text, and text+image to text.
package llm

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"

	"github.com/parley-ai/parley/internal/domain"
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when an embedding has unexpected dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
)

// API is the slice of the OpenAI client the adapter needs. Kept as an
// interface so tests can stub the transport.
type API interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Config struct {
	APIKey              string
	BaseURL             string
	EmbeddingModel      string
	EmbeddingDimensions int
}

// Client wraps an OpenAI-compatible API endpoint.
type Client struct {
	api        API
	model      openai.EmbeddingModel
	dimensions int
}

// NewClient creates a client against the configured endpoint. An empty
// BaseURL targets the default OpenAI API; setting it points the client
// at any OpenAI-compatible gateway.
func NewClient(cfg Config) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return NewClientWithAPI(openai.NewClientWithConfig(clientCfg), cfg)
}

// NewClientWithAPI creates a client over an explicit API implementation.
func NewClientWithAPI(api API, cfg Config) *Client {
	model := cfg.EmbeddingModel
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = 1536
	}
	return &Client{
		api:        api,
		model:      openai.EmbeddingModel(model),
		dimensions: dimensions,
	}
}

// Embed generates an embedding for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for several texts in one call,
// returned in input order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyText
	}
	for _, t := range texts {
		if t == "" {
			return nil, ErrEmptyText
		}
	}

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: c.model,
	})
	if err != nil {
		return nil, domain.NewInferenceError("embedding request failed", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, domain.NewInferenceError("embedding response is incomplete", nil)
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if len(d.Embedding) != c.dimensions {
			return nil, domain.NewInferenceError("unexpected embedding dimensions", ErrWrongDimensions)
		}
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, domain.NewInferenceError("embedding response index out of range", nil)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

// Complete runs a text chat completion and returns the first choice.
func (c *Client) Complete(ctx context.Context, messages []domain.Message, model string, temperature float32, maxTokens int) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", domain.NewInferenceError("chat completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", domain.NewInferenceError("chat completion returned no choices", nil)
	}
	return resp.Choices[0].Message.Content, nil
}

// CompleteMultimodal runs a vision chat completion over a prompt and a
// single image, given as an https URL or a data URL.
func (c *Client) CompleteMultimodal(ctx context.Context, text, image, model string, temperature float32, maxTokens int) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: text},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: image},
					},
				},
			},
		},
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", domain.NewInferenceError("multimodal completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", domain.NewInferenceError("multimodal completion returned no choices", nil)
	}
	return resp.Choices[0].Message.Content, nil
}
