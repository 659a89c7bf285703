package service

import (
	"context"
	"strings"
	"time"

	"github.com/marca-labs/brandgov/internal/domain"
	"github.com/marca-labs/brandgov/internal/telemetry"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// ChunkRepositoryInterface defines the repository interface for manual chunk persistence
type ChunkRepositoryInterface interface {
	ReplaceChunks(ctx context.Context, manualID string, chunks []domain.ManualChunk) error
	CountByManual(ctx context.Context, manualID string) (int, error)
	ListByManual(ctx context.Context, manualID string) ([]domain.ManualChunk, error)
	SearchByEmbedding(ctx context.Context, manualID string, embedding []float32, limit int) ([]domain.ScoredChunk, error)
}

// IndexService turns manual text into an embedded chunk set. The chunk set
// of a manual is replaced as one unit: embeddings are computed up front,
// outside any transaction, and the delete+insert happens in a single
// transaction so readers see either the old set or the new set.
type IndexService struct {
	client   EmbeddingClient
	txRunner TxRunner
	chunkCfg ChunkConfig
	uuidGen  UUIDGenerator
}

// NewIndexService creates a new IndexService instance
func NewIndexService(client EmbeddingClient, txRunner TxRunner, cfg ChunkConfig) *IndexService {
	return &IndexService{
		client:   client,
		txRunner: txRunner,
		chunkCfg: cfg,
		uuidGen:  &DefaultUUIDGenerator{},
	}
}

// NewIndexServiceWithUUIDGen creates an IndexService with a custom UUID generator (for testing)
func NewIndexServiceWithUUIDGen(client EmbeddingClient, txRunner TxRunner, cfg ChunkConfig, uuidGen UUIDGenerator) *IndexService {
	return &IndexService{
		client:   client,
		txRunner: txRunner,
		chunkCfg: cfg,
		uuidGen:  uuidGen,
	}
}

// IndexManual chunks and embeds text for a manual and atomically replaces
// any prior chunk set. Returns the number of chunks written. If any
// embedding call fails the prior chunk set remains untouched.
func (s *IndexService) IndexManual(ctx context.Context, manualID, text string) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "IndexService.IndexManual", telemetry.SpanAttributes{
		ManualID:  manualID,
		Operation: "index",
	})
	defer span.End()

	if manualID == "" {
		return 0, domain.ErrMissingRequiredField
	}
	if strings.TrimSpace(text) == "" {
		return 0, domain.ErrEmptyManualText
	}

	pieces := ChunkText(text, s.chunkCfg)

	now := time.Now().UTC()
	entries := make([]domain.ManualChunk, 0, len(pieces))
	for i, piece := range pieces {
		embedding, err := s.client.GenerateEmbedding(ctx, piece)
		if err != nil {
			span.SetError(err)
			return 0, domain.NewDomainErrorWithCause(domain.ErrCodeExternalService, "embedding provider call failed", err)
		}
		if len(embedding) != s.client.Dimensions() {
			return 0, domain.ErrDimensionMismatch
		}
		entries = append(entries, domain.ManualChunk{
			ID:         s.uuidGen.NewString(),
			ManualID:   manualID,
			ChunkIndex: i,
			ChunkText:  piece,
			Embedding:  embedding,
			CreatedAt:  now,
		})
	}

	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		return repos.Chunks().ReplaceChunks(ctx, manualID, entries)
	})
	if err != nil {
		span.SetError(err)
		return 0, domain.NewDomainErrorWithCause(domain.ErrCodePersistence, "failed to replace chunk set", err)
	}

	return len(entries), nil
}
