package service

import (
	"strings"
	"unicode"
)

// ChunkConfig controls how manual text is split before embedding.
// Size and overlap are deployment parameters, not fixed constants.
type ChunkConfig struct {
	MaxChars  int
	MinChars  int
	Overlap   int
	MaxChunks int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChars:  700,
		MinChars:  200,
		Overlap:   100,
		MaxChunks: 64,
	}
}

// ChunkText splits text into ordered, bounded, overlapping chunks. Cuts
// prefer a paragraph break, then any whitespace, inside the window so
// sentences survive intact where possible.
func ChunkText(text string, cfg ChunkConfig) []string {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil
	}
	if cfg.MaxChars <= 0 {
		cfg = DefaultChunkConfig()
	}
	runes := []rune(clean)
	if len(runes) <= cfg.MaxChars {
		return []string{clean}
	}

	chunks := make([]string, 0, 8)
	start := 0
	for start < len(runes) {
		if cfg.MaxChunks > 0 && len(chunks) >= cfg.MaxChunks {
			break
		}

		end := start + cfg.MaxChars
		if end > len(runes) {
			end = len(runes)
		}

		if end < len(runes) {
			minCut := start + cfg.MinChars
			if minCut > end {
				minCut = start
			}
			end = findCut(runes, minCut, end)
		}

		if end <= start {
			break
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= len(runes) {
			break
		}

		nextStart := end
		if cfg.Overlap > 0 && end-start > cfg.Overlap {
			nextStart = end - cfg.Overlap
		}
		if nextStart <= start {
			nextStart = end
		}
		start = nextStart
	}

	return chunks
}

// findCut returns the best cut position in (minCut, end]: a paragraph
// break if one exists in the window, otherwise the last whitespace,
// otherwise end (hard cut mid-word).
func findCut(runes []rune, minCut, end int) int {
	for i := end; i > minCut+1; i-- {
		if runes[i-1] == '\n' && runes[i-2] == '\n' {
			return i
		}
	}
	for i := end; i > minCut; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return end
}
