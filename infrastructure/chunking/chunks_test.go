package chunking

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeContent(lines int) string {
	var sb strings.Builder
	for i := 1; i <= lines; i++ {
		fmt.Fprintf(&sb, "line %d\n", i)
	}
	return sb.String()
}

func TestChunkFileSingleWindow(t *testing.T) {
	chunker, err := NewChunker(DefaultChunkParams())
	require.NoError(t, err)

	chunks := chunker.ChunkFile(uuid.New(), "sha", "app/main.py", "python", makeContent(100))
	require.Len(t, chunks, 1)

	c := chunks[0]
	assert.Equal(t, 1, c.StartLine())
	assert.Equal(t, 100, c.EndLine())
	assert.True(t, strings.HasPrefix(c.Content(), "// File: app/main.py (Lines 1-100)\n"))
	assert.Contains(t, c.Content(), "line 100")
}

func TestChunkFileOverlap(t *testing.T) {
	chunker, err := NewChunker(DefaultChunkParams())
	require.NoError(t, err)

	chunks := chunker.ChunkFile(uuid.New(), "sha", "big.py", "python", makeContent(700))
	require.Len(t, chunks, 3)

	assert.Equal(t, 1, chunks[0].StartLine())
	assert.Equal(t, 300, chunks[0].EndLine())
	assert.Equal(t, 251, chunks[1].StartLine())
	assert.Equal(t, 550, chunks[1].EndLine())
	assert.Equal(t, 501, chunks[2].StartLine())
	assert.Equal(t, 700, chunks[2].EndLine())

	// 50 lines shared between consecutive windows
	assert.Contains(t, chunks[0].Content(), "line 300")
	assert.Contains(t, chunks[1].Content(), "line 300")
}

func TestChunkFileDeterministicIDs(t *testing.T) {
	chunker, err := NewChunker(DefaultChunkParams())
	require.NoError(t, err)

	repoID := uuid.New()
	a := chunker.ChunkFile(repoID, "sha", "f.py", "python", makeContent(700))
	b := chunker.ChunkFile(repoID, "sha", "f.py", "python", makeContent(700))

	require.Len(t, b, len(a))
	for i := range a {
		assert.Equal(t, a[i].ID(), b[i].ID())
	}
}

func TestChunkFileEmpty(t *testing.T) {
	chunker, err := NewChunker(DefaultChunkParams())
	require.NoError(t, err)

	assert.Empty(t, chunker.ChunkFile(uuid.New(), "sha", "empty.py", "python", ""))
	assert.Empty(t, chunker.ChunkFile(uuid.New(), "sha", "blank.py", "python", "\n\n\n"))
}

func TestNewChunkerValidation(t *testing.T) {
	_, err := NewChunker(ChunkParams{WindowLines: 0, StrideLines: 10})
	assert.Error(t, err)

	_, err = NewChunker(ChunkParams{WindowLines: 100, StrideLines: 0})
	assert.Error(t, err)

	_, err = NewChunker(ChunkParams{WindowLines: 100, StrideLines: 200})
	assert.Error(t, err)
}
