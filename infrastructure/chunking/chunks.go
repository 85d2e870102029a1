// Package chunking splits source files into overlapping line windows
// for embedding.
package chunking

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/codesense-ai/codesense/domain/chunk"
)

// ChunkParams configures the line-window algorithm.
type ChunkParams struct {
	// WindowLines is the number of source lines per chunk.
	WindowLines int
	// StrideLines is the distance between consecutive window starts;
	// WindowLines - StrideLines lines overlap.
	StrideLines int
}

// DefaultChunkParams returns the standard window of 300 lines with a
// 50-line overlap.
func DefaultChunkParams() ChunkParams {
	return ChunkParams{
		WindowLines: 300,
		StrideLines: 250,
	}
}

// Chunker produces chunks for one snapshot.
type Chunker struct {
	params ChunkParams
}

// NewChunker creates a Chunker.
func NewChunker(params ChunkParams) (*Chunker, error) {
	if params.WindowLines <= 0 {
		return nil, fmt.Errorf("window must be positive, got %d", params.WindowLines)
	}
	if params.StrideLines <= 0 || params.StrideLines > params.WindowLines {
		return nil, fmt.Errorf("stride must be in (0, %d], got %d", params.WindowLines, params.StrideLines)
	}
	return &Chunker{params: params}, nil
}

// ChunkFile splits one file's content into windows. Each chunk's
// content carries a header naming the file and line range so the
// embedding keeps its provenance. A final short window is kept when
// non-empty.
func (c *Chunker) ChunkFile(repoID uuid.UUID, commitSHA, filePath, language, content string) []chunk.Chunk {
	lines := splitLines(content)
	if len(lines) == 0 {
		return nil
	}

	var chunks []chunk.Chunk
	for start := 0; start < len(lines); start += c.params.StrideLines {
		end := min(start+c.params.WindowLines, len(lines))
		window := strings.Join(lines[start:end], "\n")
		if strings.TrimSpace(window) == "" {
			if end == len(lines) {
				break
			}
			continue
		}

		startLine := start + 1
		endLine := end
		header := fmt.Sprintf("// File: %s (Lines %d-%d)\n", filePath, startLine, endLine)

		chunks = append(chunks, chunk.NewChunk(
			repoID, commitSHA, filePath,
			startLine, endLine,
			language, header+window,
		))

		if end == len(lines) {
			break
		}
	}

	return chunks
}

// splitLines splits on newlines without keeping terminators; a trailing
// newline does not produce an empty final line.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
