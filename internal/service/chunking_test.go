package service

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkText(t *testing.T) {
	cfg := ChunkConfig{MaxChars: 100, MinChars: 30, Overlap: 20, MaxChunks: 64}

	t.Run("returns nil for empty or whitespace input", func(t *testing.T) {
		assert.Nil(t, ChunkText("", cfg))
		assert.Nil(t, ChunkText("   \n\t  ", cfg))
	})

	t.Run("short text is a single chunk", func(t *testing.T) {
		chunks := ChunkText("A short brand rule.", cfg)
		require.Len(t, chunks, 1)
		assert.Equal(t, "A short brand rule.", chunks[0])
	})

	t.Run("every chunk respects the max size", func(t *testing.T) {
		text := strings.Repeat("The logo must always keep its clear space. ", 40)
		chunks := ChunkText(text, cfg)
		require.Greater(t, len(chunks), 1)
		for _, c := range chunks {
			assert.LessOrEqual(t, len([]rune(c)), cfg.MaxChars)
			assert.NotEmpty(t, strings.TrimSpace(c))
		}
	})

	t.Run("consecutive chunks overlap", func(t *testing.T) {
		text := strings.Repeat("color palette rules apply here. ", 30)
		chunks := ChunkText(text, cfg)
		require.Greater(t, len(chunks), 1)

		// The tail of chunk N reappears at the head of chunk N+1.
		tail := chunks[0][len(chunks[0])-10:]
		assert.Contains(t, chunks[1], strings.TrimSpace(tail))
	})

	t.Run("prefers paragraph breaks over mid-sentence cuts", func(t *testing.T) {
		para := strings.Repeat("x", 60)
		text := para + "\n\n" + para + "\n\n" + para
		chunks := ChunkText(text, ChunkConfig{MaxChars: 100, MinChars: 30, Overlap: 0, MaxChunks: 64})
		require.Greater(t, len(chunks), 1)
		assert.Equal(t, para, chunks[0])
	})

	t.Run("honors the chunk cap", func(t *testing.T) {
		text := strings.Repeat("word ", 2000)
		chunks := ChunkText(text, ChunkConfig{MaxChars: 50, MinChars: 10, Overlap: 0, MaxChunks: 5})
		assert.Len(t, chunks, 5)
	})

	t.Run("zero config falls back to defaults", func(t *testing.T) {
		text := strings.Repeat("brand voice guidance sentence. ", 100)
		chunks := ChunkText(text, ChunkConfig{})
		require.NotEmpty(t, chunks)
		for _, c := range chunks {
			assert.LessOrEqual(t, len([]rune(c)), DefaultChunkConfig().MaxChars)
		}
	})

	t.Run("multibyte text splits on rune boundaries", func(t *testing.T) {
		text := strings.Repeat("ação é ótima para divulgação. ", 50)
		chunks := ChunkText(text, cfg)
		require.Greater(t, len(chunks), 1)
		for _, c := range chunks {
			assert.True(t, utf8.ValidString(c))
			assert.LessOrEqual(t, len([]rune(c)), cfg.MaxChars)
		}
	})
}
