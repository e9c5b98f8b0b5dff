package graphgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkDocument_ShortTextIsSingleChunk(t *testing.T) {
	text := "a short document"
	chunks := ChunkDocument(text, ChunkerOptions{})
	require.Len(t, chunks, 1)
	require.Equal(t, text, chunks[0].Text)
	require.Equal(t, 0, chunks[0].Index)
}

func TestChunkDocument_EmptyTextProducesNoChunks(t *testing.T) {
	require.Nil(t, ChunkDocument("", ChunkerOptions{}))
}

func TestChunkDocument_SplitsLongTextIntoMultipleWindows(t *testing.T) {
	para := strings.Repeat("word ", 50) + "\n\n"
	text := strings.Repeat(para, 20)

	chunks := ChunkDocument(text, ChunkerOptions{Size: 500, Overlap: 50})
	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		require.Equal(t, i, c.Index)
		require.NotEmpty(t, c.Text)
	}
}

func TestChunkDocument_PrefersParagraphBoundary(t *testing.T) {
	first := strings.Repeat("a", 90)
	second := strings.Repeat("b", 90)
	text := first + "\n\n" + second

	chunks := ChunkDocument(text, ChunkerOptions{Size: 100, Overlap: 10})
	require.GreaterOrEqual(t, len(chunks), 2)
	require.True(t, strings.HasSuffix(chunks[0].Text, "\n\n") || !strings.Contains(chunks[0].Text, "b"))
}

func TestChunkDocument_OverlapKeepsContextBetweenWindows(t *testing.T) {
	text := strings.Repeat("x", 1000)
	chunks := ChunkDocument(text, ChunkerOptions{Size: 300, Overlap: 50})
	require.Greater(t, len(chunks), 1)
	require.Less(t, chunks[1].Start, chunks[0].End)
}
