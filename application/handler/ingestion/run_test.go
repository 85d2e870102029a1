package ingestion

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codesense-ai/codesense/infrastructure/chunking"
	"github.com/codesense-ai/codesense/infrastructure/git"
	"github.com/codesense-ai/codesense/infrastructure/parsing"
)

func chunkingRun(t *testing.T) *Run {
	t.Helper()

	chunker, err := chunking.NewChunker(chunking.DefaultChunkParams())
	require.NoError(t, err)
	return NewRun(Stores{}, nil, parsing.NewParser(1<<20), nil, nil, nil, chunker, nil, nil, nil, nil)
}

func TestChunkFilesCoversUnparsedFiles(t *testing.T) {
	contents := map[string]string{
		"main.py":    "def main():\n    pass\n",
		"README.md":  "# widgets\n\nHow ingestion works.\n",
		"notes.txt":  "operational notes\n",
		"Dockerfile": "FROM alpine\nRUN true\n",
	}

	var files []git.SourceFile
	for path, content := range contents {
		files = append(files, git.SourceFile{Path: path, Size: int64(len(content))})
	}
	readFile := func(path string) ([]byte, error) {
		content, ok := contents[path]
		if !ok {
			return nil, fmt.Errorf("file %s not in checkout", path)
		}
		return []byte(content), nil
	}

	chunks, err := chunkingRun(t).chunkFiles(uuid.New(), "abc123", files, readFile)
	require.NoError(t, err)

	languages := make(map[string]string)
	for _, c := range chunks {
		languages[c.FilePath()] = c.Language()
	}
	assert.Equal(t, "python", languages["main.py"])
	assert.Equal(t, "markdown", languages["README.md"])
	assert.Equal(t, "text", languages["notes.txt"])
	assert.Equal(t, "dockerfile", languages["Dockerfile"])
}

func TestChunkFilesSkipsOversizeAndBinary(t *testing.T) {
	big := strings.Repeat("x", 64) + "\n"
	contents := map[string]string{
		"logo.png": "\x89PNG\x00\x00binary",
		"big.py":   big,
		"ok.py":    "def ok():\n    pass\n",
	}

	files := []git.SourceFile{
		{Path: "logo.png", Size: int64(len(contents["logo.png"]))},
		{Path: "big.py", Size: 2 << 20},
		{Path: "ok.py", Size: int64(len(contents["ok.py"]))},
	}
	readFile := func(path string) ([]byte, error) {
		return []byte(contents[path]), nil
	}

	chunks, err := chunkingRun(t).chunkFiles(uuid.New(), "abc123", files, readFile)
	require.NoError(t, err)

	require.Len(t, chunks, 1)
	assert.Equal(t, "ok.py", chunks[0].FilePath())
}
