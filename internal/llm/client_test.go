package llm

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-ai/parley/internal/domain"
)

type stubAPI struct {
	embedResp openai.EmbeddingResponse
	embedErr  error
	chatResp  openai.ChatCompletionResponse
	chatErr   error

	lastChatReq openai.ChatCompletionRequest
}

func (s *stubAPI) CreateEmbeddings(_ context.Context, _ openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	return s.embedResp, s.embedErr
}

func (s *stubAPI) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.lastChatReq = req
	return s.chatResp, s.chatErr
}

func testConfig() Config {
	return Config{
		APIKey:              "test-key",
		EmbeddingModel:      "text-embedding-3-small",
		EmbeddingDimensions: 3,
	}
}

func TestEmbedBatchOrdersByIndex(t *testing.T) {
	api := &stubAPI{
		embedResp: openai.EmbeddingResponse{
			Data: []openai.Embedding{
				{Index: 1, Embedding: []float32{4, 5, 6}},
				{Index: 0, Embedding: []float32{1, 2, 3}},
			},
		},
	}
	client := NewClientWithAPI(api, testConfig())

	vectors, err := client.EmbedBatch(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{1, 2, 3}, vectors[0])
	assert.Equal(t, []float32{4, 5, 6}, vectors[1])
}

func TestEmbedBatchRejectsEmptyInput(t *testing.T) {
	client := NewClientWithAPI(&stubAPI{}, testConfig())

	_, err := client.EmbedBatch(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyText)

	_, err = client.EmbedBatch(context.Background(), []string{"ok", ""})
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestEmbedBatchChecksDimensions(t *testing.T) {
	api := &stubAPI{
		embedResp: openai.EmbeddingResponse{
			Data: []openai.Embedding{{Index: 0, Embedding: []float32{1, 2}}},
		},
	}
	client := NewClientWithAPI(api, testConfig())

	_, err := client.EmbedBatch(context.Background(), []string{"text"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWrongDimensions)
	assert.Equal(t, domain.ErrCodeInference, domain.ErrorCode(err))
}

func TestEmbedWrapsTransportErrors(t *testing.T) {
	api := &stubAPI{embedErr: errors.New("connection refused")}
	client := NewClientWithAPI(api, testConfig())

	_, err := client.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeInference, domain.ErrorCode(err))
	assert.True(t, domain.IsInferenceError(err))
}

func TestCompleteConvertsMessages(t *testing.T) {
	api := &stubAPI{
		chatResp: openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: "answer"}},
			},
		},
	}
	client := NewClientWithAPI(api, testConfig())

	messages := []domain.Message{
		{Role: domain.RoleSystem, Content: "rules"},
		{Role: domain.RoleUser, Content: "question"},
	}
	answer, err := client.Complete(context.Background(), messages, "gpt-4o-mini", 0.7, 2000)
	require.NoError(t, err)
	assert.Equal(t, "answer", answer)

	require.Len(t, api.lastChatReq.Messages, 2)
	assert.Equal(t, "system", api.lastChatReq.Messages[0].Role)
	assert.Equal(t, "user", api.lastChatReq.Messages[1].Role)
	assert.Equal(t, "gpt-4o-mini", api.lastChatReq.Model)
}

func TestCompleteNoChoices(t *testing.T) {
	client := NewClientWithAPI(&stubAPI{}, testConfig())

	_, err := client.Complete(context.Background(), []domain.Message{{Role: domain.RoleUser, Content: "q"}}, "gpt-4o-mini", 0, 100)
	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeInference, domain.ErrorCode(err))
}

func TestCompleteMultimodalBuildsImagePart(t *testing.T) {
	api := &stubAPI{
		chatResp: openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: "a cat"}},
			},
		},
	}
	client := NewClientWithAPI(api, testConfig())

	answer, err := client.CompleteMultimodal(context.Background(), "describe", "https://example.com/cat.png", "gpt-4o", 0.7, 2000)
	require.NoError(t, err)
	assert.Equal(t, "a cat", answer)

	require.Len(t, api.lastChatReq.Messages, 1)
	parts := api.lastChatReq.Messages[0].MultiContent
	require.Len(t, parts, 2)
	assert.Equal(t, openai.ChatMessagePartTypeText, parts[0].Type)
	require.NotNil(t, parts[1].ImageURL)
	assert.Equal(t, "https://example.com/cat.png", parts[1].ImageURL.URL)
}
