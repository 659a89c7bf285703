package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/marca-labs/brandgov/internal/domain"
)

// ChunkRepository handles persistence of manual chunks and their embeddings.
type ChunkRepository struct {
	db     dbtx
	probes int
}

func NewChunkRepository(pool *pgxpool.Pool, probes int) *ChunkRepository {
	return &ChunkRepository{db: pool, probes: probes}
}

func NewChunkRepositoryWithTx(tx dbtx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

// ReplaceChunks deletes the manual's existing chunks and inserts the new
// set. The approximate index churn counter advances by the number of rows
// touched so the maintenance worker knows when to rebuild. Callers run
// this inside a transaction.
func (r *ChunkRepository) ReplaceChunks(ctx context.Context, manualID string, chunks []domain.ManualChunk) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM manual_chunks WHERE manual_id = $1`, manualID)
	if err != nil {
		return err
	}
	churn := tag.RowsAffected()

	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		_, err := r.db.Exec(ctx,
			`INSERT INTO manual_chunks (id, manual_id, chunk_index, chunk_text, embedding, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			c.ID, c.ManualID, c.ChunkIndex, c.ChunkText, pgvector.NewVector(c.Embedding), createdAt,
		)
		if err != nil {
			return err
		}
	}
	churn += int64(len(chunks))

	if churn > 0 {
		_, err = r.db.Exec(ctx,
			`UPDATE ann_index_state SET churn = churn + $1 WHERE id = 1`,
			churn,
		)
	}
	return err
}

func (r *ChunkRepository) CountByManual(ctx context.Context, manualID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM manual_chunks WHERE manual_id = $1`,
		manualID,
	).Scan(&count)
	return count, err
}

func (r *ChunkRepository) ListByManual(ctx context.Context, manualID string) ([]domain.ManualChunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, manual_id, chunk_index, chunk_text, embedding, created_at
		 FROM manual_chunks WHERE manual_id = $1 ORDER BY chunk_index ASC`,
		manualID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []domain.ManualChunk
	for rows.Next() {
		var c domain.ManualChunk
		var vec pgvector.Vector
		if err := rows.Scan(&c.ID, &c.ManualID, &c.ChunkIndex, &c.ChunkText, &vec, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Embedding = vec.Slice()
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// SearchByEmbedding runs an approximate nearest-neighbor query over the
// manual's chunks. Score is cosine similarity (1 - distance); ties break
// by ascending chunk ordinal.
func (r *ChunkRepository) SearchByEmbedding(ctx context.Context, manualID string, embedding []float32, limit int) ([]domain.ScoredChunk, error) {
	if limit <= 0 {
		limit = 20
	}

	if r.probes > 0 {
		// Best effort on pooled connections; the session default applies
		// when this lands on a different conn than the query.
		_, _ = r.db.Exec(ctx, fmt.Sprintf(`SET ivfflat.probes = %d`, r.probes))
	}

	vec := pgvector.NewVector(embedding)
	rows, err := r.db.Query(ctx,
		`SELECT id, manual_id, chunk_index, chunk_text, embedding, created_at,
		        1 - (embedding <=> $1) AS score
		 FROM manual_chunks
		 WHERE manual_id = $2
		 ORDER BY embedding <=> $1 ASC, chunk_index ASC
		 LIMIT $3`,
		vec, manualID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.ScoredChunk
	for rows.Next() {
		var sc domain.ScoredChunk
		var v pgvector.Vector
		if err := rows.Scan(&sc.Chunk.ID, &sc.Chunk.ManualID, &sc.Chunk.ChunkIndex, &sc.Chunk.ChunkText, &v, &sc.Chunk.CreatedAt, &sc.Score); err != nil {
			return nil, err
		}
		sc.Chunk.Embedding = v.Slice()
		results = append(results, sc)
	}
	return results, rows.Err()
}

// IndexState returns the churn counters driving index maintenance.
func (r *ChunkRepository) IndexState(ctx context.Context) (churn, rebuiltChurn int64, err error) {
	err = r.db.QueryRow(ctx,
		`SELECT churn, rebuilt_churn FROM ann_index_state WHERE id = 1`,
	).Scan(&churn, &rebuiltChurn)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, nil
	}
	return churn, rebuiltChurn, err
}

// MarkIndexRebuilt records that the approximate index now reflects the
// given churn level.
func (r *ChunkRepository) MarkIndexRebuilt(ctx context.Context, churn int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE ann_index_state SET rebuilt_churn = $1, rebuilt_at = $2 WHERE id = 1`,
		churn, time.Now().UTC(),
	)
	return err
}

// RebuildIndex reindexes the ivfflat index so its structure reflects the
// current chunk distribution. Must run outside a transaction.
func (r *ChunkRepository) RebuildIndex(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `REINDEX INDEX manual_chunks_embedding_idx`)
	return err
}
