package chunk

import (
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

var uuidShape = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func TestDeterministicIDStable(t *testing.T) {
	repoID := uuid.MustParse("4fa52718-4894-4725-a180-7ad2f4000000")

	a := DeterministicID(repoID, "abc123", "pkg/server.go", 1)
	b := DeterministicID(repoID, "abc123", "pkg/server.go", 1)

	assert.Equal(t, a, b)
	assert.Regexp(t, uuidShape, a)
}

func TestDeterministicIDVariesByCoordinate(t *testing.T) {
	repoID := uuid.New()
	base := DeterministicID(repoID, "abc123", "pkg/server.go", 1)

	assert.NotEqual(t, base, DeterministicID(repoID, "abc123", "pkg/server.go", 251))
	assert.NotEqual(t, base, DeterministicID(repoID, "def456", "pkg/server.go", 1))
	assert.NotEqual(t, base, DeterministicID(repoID, "abc123", "pkg/client.go", 1))
	assert.NotEqual(t, base, DeterministicID(uuid.New(), "abc123", "pkg/server.go", 1))
}

func TestNewChunkUsesDeterministicID(t *testing.T) {
	repoID := uuid.New()
	c := NewChunk(repoID, "abc123", "main.py", 1, 300, "python", "// File: main.py (Lines 1-300)\n...")

	assert.Equal(t, DeterministicID(repoID, "abc123", "main.py", 1), c.ID())
	assert.Equal(t, 1, c.StartLine())
	assert.Equal(t, 300, c.EndLine())
	assert.Equal(t, "python", c.Language())
}
