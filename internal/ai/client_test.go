package ai

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	embedResponses []openai.EmbeddingResponse
	embedErrs      []error
	embedCalls     int

	chatResponse openai.ChatCompletionResponse
	chatErr      error
	lastChatReq  openai.ChatCompletionRequest
}

func (f *fakeProvider) CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	i := f.embedCalls
	f.embedCalls++
	if i < len(f.embedErrs) && f.embedErrs[i] != nil {
		return openai.EmbeddingResponse{}, f.embedErrs[i]
	}
	if i < len(f.embedResponses) {
		return f.embedResponses[i], nil
	}
	return openai.EmbeddingResponse{}, errors.New("no response configured")
}

func (f *fakeProvider) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.lastChatReq = req
	if f.chatErr != nil {
		return openai.ChatCompletionResponse{}, f.chatErr
	}
	return f.chatResponse, nil
}

func embeddingOf(dim int) openai.EmbeddingResponse {
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = float32(i)
	}
	return openai.EmbeddingResponse{Data: []openai.Embedding{{Embedding: vec}}}
}

func TestGenerateEmbedding(t *testing.T) {
	ctx := context.Background()

	t.Run("returns embedding with configured dimensions", func(t *testing.T) {
		fake := &fakeProvider{embedResponses: []openai.EmbeddingResponse{embeddingOf(8)}}
		client := NewClientWithAPI(fake, Config{EmbeddingDimensions: 8})

		vec, err := client.GenerateEmbedding(ctx, "logo usage")
		require.NoError(t, err)
		assert.Len(t, vec, 8)
		assert.Equal(t, 1, fake.embedCalls)
	})

	t.Run("rejects empty text", func(t *testing.T) {
		client := NewClientWithAPI(&fakeProvider{}, Config{})
		_, err := client.GenerateEmbedding(ctx, "")
		assert.ErrorIs(t, err, ErrEmptyText)
	})

	t.Run("retries transient failures up to the bound", func(t *testing.T) {
		fake := &fakeProvider{
			embedErrs:      []error{errors.New("503"), errors.New("503"), nil},
			embedResponses: []openai.EmbeddingResponse{{}, {}, embeddingOf(4)},
		}
		client := NewClientWithAPI(fake, Config{EmbeddingDimensions: 4, MaxRetries: 3})

		vec, err := client.GenerateEmbedding(ctx, "palette")
		require.NoError(t, err)
		assert.Len(t, vec, 4)
		assert.Equal(t, 3, fake.embedCalls)
	})

	t.Run("surfaces error after retries exhausted", func(t *testing.T) {
		fake := &fakeProvider{
			embedErrs: []error{errors.New("503"), errors.New("503"), errors.New("503")},
		}
		client := NewClientWithAPI(fake, Config{EmbeddingDimensions: 4, MaxRetries: 2})

		_, err := client.GenerateEmbedding(ctx, "palette")
		assert.Error(t, err)
		assert.Equal(t, 3, fake.embedCalls)
	})

	t.Run("rejects wrong dimensions", func(t *testing.T) {
		fake := &fakeProvider{embedResponses: []openai.EmbeddingResponse{embeddingOf(16)}}
		client := NewClientWithAPI(fake, Config{EmbeddingDimensions: 8})

		_, err := client.GenerateEmbedding(ctx, "typography")
		assert.ErrorIs(t, err, ErrWrongDimensions)
	})
}

func TestGenerateText(t *testing.T) {
	ctx := context.Background()

	t.Run("returns completion content", func(t *testing.T) {
		fake := &fakeProvider{
			chatResponse: openai.ChatCompletionResponse{
				Choices: []openai.ChatCompletionChoice{
					{Message: openai.ChatCompletionMessage{Content: "generated copy"}},
				},
			},
		}
		client := NewClientWithAPI(fake, Config{})

		out, err := client.GenerateText(ctx, "system", "user", nil)
		require.NoError(t, err)
		assert.Equal(t, "generated copy", out)
		assert.Nil(t, fake.lastChatReq.ResponseFormat)
	})

	t.Run("sets JSON schema response format when provided", func(t *testing.T) {
		fake := &fakeProvider{
			chatResponse: openai.ChatCompletionResponse{
				Choices: []openai.ChatCompletionChoice{
					{Message: openai.ChatCompletionMessage{Content: `{"sections":[]}`}},
				},
			},
		}
		client := NewClientWithAPI(fake, Config{})

		_, err := client.GenerateText(ctx, "system", "user", []byte(`{"type":"object"}`))
		require.NoError(t, err)
		require.NotNil(t, fake.lastChatReq.ResponseFormat)
		assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONSchema, fake.lastChatReq.ResponseFormat.Type)
	})

	t.Run("empty response is an error", func(t *testing.T) {
		fake := &fakeProvider{chatResponse: openai.ChatCompletionResponse{}}
		client := NewClientWithAPI(fake, Config{})

		_, err := client.GenerateText(ctx, "system", "user", nil)
		assert.ErrorIs(t, err, ErrEmptyResponse)
	})
}

func TestAuditImage(t *testing.T) {
	ctx := context.Background()

	t.Run("sends text and image parts", func(t *testing.T) {
		fake := &fakeProvider{
			chatResponse: openai.ChatCompletionResponse{
				Choices: []openai.ChatCompletionChoice{
					{Message: openai.ChatCompletionMessage{Content: `{"verdict":"pass"}`}},
				},
			},
		}
		client := NewClientWithAPI(fake, Config{})

		out, err := client.AuditImage(ctx, "audit this", []byte{0xFF, 0xD8}, "image/jpeg", nil)
		require.NoError(t, err)
		assert.Contains(t, out, "pass")

		require.Len(t, fake.lastChatReq.Messages, 1)
		parts := fake.lastChatReq.Messages[0].MultiContent
		require.Len(t, parts, 2)
		assert.Equal(t, openai.ChatMessagePartTypeText, parts[0].Type)
		assert.Equal(t, openai.ChatMessagePartTypeImageURL, parts[1].Type)
		assert.Contains(t, parts[1].ImageURL.URL, "data:image/jpeg;base64,")
	})

	t.Run("rejects missing image", func(t *testing.T) {
		client := NewClientWithAPI(&fakeProvider{}, Config{})
		_, err := client.AuditImage(ctx, "audit", nil, "image/png", nil)
		assert.ErrorIs(t, err, ErrEmptyImage)
	})
}
