package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/marca-labs/brandgov/internal/domain"
)

// MockEmbeddingClient is a mock implementation of EmbeddingClient
type MockEmbeddingClient struct {
	mock.Mock
	dims int
}

func NewMockEmbeddingClient(dims int) *MockEmbeddingClient {
	return &MockEmbeddingClient{dims: dims}
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockEmbeddingClient) Dimensions() int {
	return m.dims
}

// MockChunkRepository is a mock implementation of ChunkRepositoryInterface
type MockChunkRepository struct {
	mock.Mock
}

func (m *MockChunkRepository) ReplaceChunks(ctx context.Context, manualID string, chunks []domain.ManualChunk) error {
	args := m.Called(ctx, manualID, chunks)
	return args.Error(0)
}

func (m *MockChunkRepository) CountByManual(ctx context.Context, manualID string) (int, error) {
	args := m.Called(ctx, manualID)
	return args.Int(0), args.Error(1)
}

func (m *MockChunkRepository) ListByManual(ctx context.Context, manualID string) ([]domain.ManualChunk, error) {
	args := m.Called(ctx, manualID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ManualChunk), args.Error(1)
}

func (m *MockChunkRepository) SearchByEmbedding(ctx context.Context, manualID string, embedding []float32, limit int) ([]domain.ScoredChunk, error) {
	args := m.Called(ctx, manualID, embedding, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScoredChunk), args.Error(1)
}

// MockUUIDGenerator is a mock implementation of UUIDGenerator
type MockUUIDGenerator struct {
	callCount int
	uuids     []string
}

func NewMockUUIDGenerator(uuids ...string) *MockUUIDGenerator {
	return &MockUUIDGenerator{uuids: uuids}
}

func (m *MockUUIDGenerator) NewString() string {
	if m.callCount < len(m.uuids) {
		uuid := m.uuids[m.callCount]
		m.callCount++
		return uuid
	}
	return "default-uuid"
}

func testVector(dims int, fill float32) []float32 {
	v := make([]float32, dims)
	for i := range v {
		v[i] = fill
	}
	return v
}

func TestIndexService_IndexManual(t *testing.T) {
	ctx := context.Background()
	cfg := ChunkConfig{MaxChars: 50, MinChars: 10, Overlap: 0, MaxChunks: 64}

	t.Run("chunks, embeds and replaces atomically", func(t *testing.T) {
		mockClient := NewMockEmbeddingClient(3)
		mockChunks := new(MockChunkRepository)
		runner := &testTxRunner{repos: &testTxRepos{chunks: mockChunks}}
		service := NewIndexServiceWithUUIDGen(mockClient, runner, cfg, NewMockUUIDGenerator("chunk-1", "chunk-2", "chunk-3"))

		text := strings.Repeat("brand tone rules. ", 10)

		mockClient.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(testVector(3, 0.5), nil)
		mockChunks.On("ReplaceChunks", mock.Anything, "manual-1", mock.MatchedBy(func(chunks []domain.ManualChunk) bool {
			if len(chunks) == 0 {
				return false
			}
			for i, c := range chunks {
				if c.ManualID != "manual-1" || c.ChunkIndex != i || len(c.Embedding) != 3 {
					return false
				}
			}
			return chunks[0].ID == "chunk-1"
		})).Return(nil)

		count, err := service.IndexManual(ctx, "manual-1", text)

		require.NoError(t, err)
		assert.Greater(t, count, 1)
		assert.True(t, runner.called)
		mockChunks.AssertExpectations(t)
	})

	t.Run("rejects empty text", func(t *testing.T) {
		mockClient := NewMockEmbeddingClient(3)
		runner := &testTxRunner{repos: &testTxRepos{chunks: new(MockChunkRepository)}}
		service := NewIndexService(mockClient, runner, cfg)

		count, err := service.IndexManual(ctx, "manual-1", "   \n ")

		require.Error(t, err)
		assert.Zero(t, count)
		assert.Equal(t, domain.ErrCodeValidation, domain.ErrorCode(err))
		assert.False(t, runner.called)
	})

	t.Run("rejects missing manual ID", func(t *testing.T) {
		mockClient := NewMockEmbeddingClient(3)
		runner := &testTxRunner{repos: &testTxRepos{chunks: new(MockChunkRepository)}}
		service := NewIndexService(mockClient, runner, cfg)

		_, err := service.IndexManual(ctx, "", "some text")

		require.Error(t, err)
		assert.Equal(t, domain.ErrCodeValidation, domain.ErrorCode(err))
	})

	t.Run("embedding failure leaves prior chunks untouched", func(t *testing.T) {
		mockClient := NewMockEmbeddingClient(3)
		mockChunks := new(MockChunkRepository)
		runner := &testTxRunner{repos: &testTxRepos{chunks: mockChunks}}
		service := NewIndexService(mockClient, runner, cfg)

		mockClient.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(nil, errors.New("provider down"))

		count, err := service.IndexManual(ctx, "manual-1", strings.Repeat("color rules. ", 10))

		require.Error(t, err)
		assert.Zero(t, count)
		assert.Equal(t, domain.ErrCodeExternalService, domain.ErrorCode(err))
		// No transaction was ever opened.
		assert.False(t, runner.called)
		mockChunks.AssertNotCalled(t, "ReplaceChunks", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects mismatched embedding dimensions", func(t *testing.T) {
		mockClient := NewMockEmbeddingClient(3)
		runner := &testTxRunner{repos: &testTxRepos{chunks: new(MockChunkRepository)}}
		service := NewIndexService(mockClient, runner, cfg)

		mockClient.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(testVector(5, 0.1), nil)

		_, err := service.IndexManual(ctx, "manual-1", strings.Repeat("voice rules. ", 10))

		require.ErrorIs(t, err, domain.ErrDimensionMismatch)
		assert.False(t, runner.called)
	})

	t.Run("replace failure surfaces as persistence error", func(t *testing.T) {
		mockClient := NewMockEmbeddingClient(3)
		mockChunks := new(MockChunkRepository)
		runner := &testTxRunner{repos: &testTxRepos{chunks: mockChunks}}
		service := NewIndexService(mockClient, runner, cfg)

		mockClient.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(testVector(3, 0.5), nil)
		mockChunks.On("ReplaceChunks", mock.Anything, "manual-1", mock.Anything).Return(errors.New("disk full"))

		_, err := service.IndexManual(ctx, "manual-1", strings.Repeat("logo rules. ", 10))

		require.Error(t, err)
		assert.Equal(t, domain.ErrCodePersistence, domain.ErrorCode(err))
	})
}
