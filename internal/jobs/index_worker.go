package jobs

import (
	"context"
	"fmt"
	"log"
)

// DefaultRebuildChurn is the number of chunk writes tolerated before the
// approximate index is reclustered.
const DefaultRebuildChurn = 5000

// ChunkIndexRepository exposes the index maintenance surface of the chunk store.
type ChunkIndexRepository interface {
	IndexState(ctx context.Context) (churn, rebuiltChurn int64, err error)
	MarkIndexRebuilt(ctx context.Context, churn int64) error
	RebuildIndex(ctx context.Context) error
}

// IndexMaintainer rebuilds the approximate vector index once enough chunk
// rows have been written or replaced since the last rebuild. Chunk churn
// degrades ivfflat recall because the cluster centroids go stale.
type IndexMaintainer struct {
	chunks       ChunkIndexRepository
	rebuildChurn int64
}

// NewIndexMaintainer creates a new IndexMaintainer. rebuildChurn is the
// write count that triggers a rebuild.
func NewIndexMaintainer(chunks ChunkIndexRepository, rebuildChurn int64) *IndexMaintainer {
	if rebuildChurn <= 0 {
		rebuildChurn = DefaultRebuildChurn
	}
	return &IndexMaintainer{
		chunks:       chunks,
		rebuildChurn: rebuildChurn,
	}
}

// Run checks accumulated churn and rebuilds the index when it crosses the
// threshold.
func (m *IndexMaintainer) Run(ctx context.Context) error {
	churn, rebuiltChurn, err := m.chunks.IndexState(ctx)
	if err != nil {
		return fmt.Errorf("failed to read index state: %w", err)
	}

	if churn-rebuiltChurn < m.rebuildChurn {
		return nil
	}

	log.Printf("Rebuilding vector index: churn %d since last rebuild at %d", churn, rebuiltChurn)

	if err := m.chunks.RebuildIndex(ctx); err != nil {
		return fmt.Errorf("failed to rebuild vector index: %w", err)
	}

	if err := m.chunks.MarkIndexRebuilt(ctx, churn); err != nil {
		return fmt.Errorf("failed to record index rebuild: %w", err)
	}

	log.Printf("Vector index rebuilt at churn %d", churn)
	return nil
}
