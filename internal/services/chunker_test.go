package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkTextShortText(t *testing.T) {
	chunker := NewTextChunker()

	chunks := chunker.ChunkText("A single short paragraph.", 1000, 200)
	require.Len(t, chunks, 1)
	assert.Equal(t, "A single short paragraph.", chunks[0])
}

func TestChunkTextEmpty(t *testing.T) {
	chunker := NewTextChunker()

	assert.Empty(t, chunker.ChunkText("", 1000, 200))
	assert.Empty(t, chunker.ChunkText("\n\n\n\n", 1000, 200))
}

func TestChunkTextSplitsAndOverlaps(t *testing.T) {
	chunker := NewTextChunker()

	var paragraphs []string
	for i := 0; i < 20; i++ {
		paragraphs = append(paragraphs, strings.Repeat("word ", 30))
	}
	text := strings.Join(paragraphs, "\n\n")

	maxChunkSize, overlap := 400, 100
	chunks := chunker.ChunkText(text, maxChunkSize, overlap)
	require.Greater(t, len(chunks), 1)

	for i, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), maxChunkSize+overlap+2, "chunk %d too large", i)
		if i > 0 {
			carry := lastNChars(chunks[i-1], overlap)
			assert.True(t, strings.HasPrefix(chunk, carry),
				"chunk %d must start with the tail of chunk %d", i, i-1)
		}
	}
}

func TestChunkTextLongParagraph(t *testing.T) {
	chunker := NewTextChunker()

	text := strings.Repeat("x", 2500)
	chunks := chunker.ChunkText(text, 1000, 0)
	require.Len(t, chunks, 3)
	assert.Equal(t, strings.Repeat("x", 1000), chunks[0])
	assert.Equal(t, strings.Repeat("x", 500), chunks[2])
}
