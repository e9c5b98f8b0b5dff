// Package graphgen implements the multi-chunk graph-assembly pipeline:
// chunking a document, calling the Orchestrator per chunk, deduplicating
// nodes across chunks, and validating (with auto-fix) the assembled graph.
package graphgen

import "strings"

// Chunk is one overlapping window of a chunked document.
type Chunk struct {
	Index int
	Text  string
	Start int
	End   int
}

const (
	defaultChunkSize    = 12_000
	defaultChunkOverlap = 1_000
)

// ChunkerOptions configures Chunk's window size and overlap.
type ChunkerOptions struct {
	Size    int
	Overlap int
}

func (o ChunkerOptions) withDefaults() ChunkerOptions {
	if o.Size == 0 {
		o.Size = defaultChunkSize
	}
	if o.Overlap == 0 {
		o.Overlap = defaultChunkOverlap
	}
	return o
}

// ChunkDocument splits text into overlapping windows, preferring to break
// at a paragraph boundary ("\n\n") near the window edge so a chunk doesn't
// split mid-paragraph when avoidable.
func ChunkDocument(text string, opts ChunkerOptions) []Chunk {
	opts = opts.withDefaults()
	if len(text) == 0 {
		return nil
	}
	if len(text) <= opts.Size {
		return []Chunk{{Index: 0, Text: text, Start: 0, End: len(text)}}
	}

	var chunks []Chunk
	start := 0
	index := 0
	for start < len(text) {
		end := start + opts.Size
		if end >= len(text) {
			end = len(text)
		} else if boundary := lastParagraphBoundary(text, start, end); boundary > start {
			end = boundary
		}

		chunks = append(chunks, Chunk{Index: index, Text: text[start:end], Start: start, End: end})
		index++

		if end >= len(text) {
			break
		}
		next := end - opts.Overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// lastParagraphBoundary finds the end of the last "\n\n" paragraph break in
// text[start:end], searching backward from end. Returns start-1 (no
// boundary found) when none exists in the window.
func lastParagraphBoundary(text string, start, end int) int {
	window := text[start:end]
	if idx := strings.LastIndex(window, "\n\n"); idx > 0 {
		return start + idx + 2
	}
	return start - 1
}
