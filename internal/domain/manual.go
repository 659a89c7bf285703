package domain

import (
	"fmt"
	"time"
)

// BrandManual is the retrieval source for creative generation and audits.
// A manual exclusively owns its chunks: re-indexing replaces the whole
// chunk set as one unit.
type BrandManual struct {
	ID             string
	ProductName    string
	Tone           string
	Audience       string
	RawInput       string
	ManualMarkdown string
	CreatedByID    string
	CreatedAt      time.Time
}

// ManualChunk is a bounded span of manual text stored with its embedding.
type ManualChunk struct {
	ID         string
	ManualID   string
	ChunkIndex int
	ChunkText  string
	Embedding  []float32
	CreatedAt  time.Time
}

// ScoredChunk is a chunk with its similarity score from a retrieval query.
type ScoredChunk struct {
	Chunk ManualChunk
	Score float64
}

// ValidateManual validates a BrandManual instance
func ValidateManual(m *BrandManual) error {
	if m == nil {
		return fmt.Errorf("manual cannot be nil")
	}

	if m.ID == "" {
		return fmt.Errorf("manual ID is required")
	}

	if m.ProductName == "" {
		return fmt.Errorf("manual ProductName is required")
	}

	if m.ManualMarkdown == "" {
		return fmt.Errorf("manual ManualMarkdown is required")
	}

	if m.CreatedByID == "" {
		return fmt.Errorf("manual CreatedByID is required")
	}

	return nil
}
