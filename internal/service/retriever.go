package service

import (
	"context"
	"math"
	"sort"

	"github.com/marca-labs/brandgov/internal/domain"
	"github.com/marca-labs/brandgov/internal/telemetry"
)

// RetrieverConfig controls retrieval behaviour.
type RetrieverConfig struct {
	// DefaultTopK is used when a caller passes k <= 0.
	DefaultTopK int
	// ExactThreshold switches between scan strategies: manuals with fewer
	// chunks than this are scored in memory against every chunk, larger
	// manuals go through the approximate vector index.
	ExactThreshold int
}

// DefaultRetrieverConfig provides sane defaults for retrieval.
func DefaultRetrieverConfig() RetrieverConfig {
	return RetrieverConfig{
		DefaultTopK:    5,
		ExactThreshold: 1000,
	}
}

// RetrievalService ranks a manual's chunks by cosine similarity to a query.
type RetrievalService struct {
	client EmbeddingClient
	chunks ChunkRepositoryInterface
	cfg    RetrieverConfig
}

// NewRetrievalService creates a new RetrievalService instance
func NewRetrievalService(client EmbeddingClient, chunks ChunkRepositoryInterface, cfg RetrieverConfig) *RetrievalService {
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = DefaultRetrieverConfig().DefaultTopK
	}
	if cfg.ExactThreshold <= 0 {
		cfg.ExactThreshold = DefaultRetrieverConfig().ExactThreshold
	}
	return &RetrievalService{
		client: client,
		chunks: chunks,
		cfg:    cfg,
	}
}

// Retrieve returns the top k chunks of a manual ranked by descending
// cosine similarity to the query, ties broken by ascending chunk ordinal.
func (s *RetrievalService) Retrieve(ctx context.Context, manualID, query string, k int) ([]domain.ScoredChunk, error) {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.Retrieve", telemetry.SpanAttributes{
		ManualID:  manualID,
		Operation: "retrieve",
	})
	defer span.End()

	if manualID == "" || query == "" {
		return nil, domain.ErrMissingRequiredField
	}
	if k <= 0 {
		k = s.cfg.DefaultTopK
	}

	count, err := s.chunks.CountByManual(ctx, manualID)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodePersistence, "failed to count chunks", err)
	}
	if count == 0 {
		return nil, domain.ErrNoChunksIndexed
	}

	embedding, err := s.client.GenerateEmbedding(ctx, query)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeExternalService, "query embedding failed", err)
	}
	if len(embedding) != s.client.Dimensions() {
		return nil, domain.ErrDimensionMismatch
	}

	if count < s.cfg.ExactThreshold {
		return s.retrieveExact(ctx, manualID, embedding, k)
	}

	results, err := s.chunks.SearchByEmbedding(ctx, manualID, embedding, k)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodePersistence, "vector search failed", err)
	}
	return results, nil
}

// retrieveExact scores every chunk of the manual in memory. Used below the
// threshold where a brute-force pass is cheaper and exactly deterministic.
func (s *RetrievalService) retrieveExact(ctx context.Context, manualID string, query []float32, k int) ([]domain.ScoredChunk, error) {
	chunks, err := s.chunks.ListByManual(ctx, manualID)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodePersistence, "failed to list chunks", err)
	}

	scored := make([]domain.ScoredChunk, 0, len(chunks))
	for _, c := range chunks {
		scored = append(scored, domain.ScoredChunk{
			Chunk: c,
			Score: CosineSimilarity(query, c.Embedding),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Chunk.ChunkIndex < scored[j].Chunk.ChunkIndex
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// CosineSimilarity computes cosine similarity between two vectors. A zero
// vector contributes a norm of 1 to avoid division by zero.
func CosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	na := math.Sqrt(normA)
	nb := math.Sqrt(normB)
	if na == 0 {
		na = 1
	}
	if nb == 0 {
		nb = 1
	}
	return dot / (na * nb)
}
