// Package chunk defines embeddable source chunks.
package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Chunk is a window of source lines prepared for embedding. Its ID is
// deterministic so re-ingesting the same commit upserts rather than
// duplicates.
type Chunk struct {
	id        string
	repoID    uuid.UUID
	commitSHA string
	filePath  string
	startLine int
	endLine   int
	language  string
	content   string
	createdAt time.Time
}

// DeterministicID derives the chunk ID from its coordinates:
// SHA256("repoID:commitSHA:filePath:startLine"), hex, formatted as a UUID.
func DeterministicID(repoID uuid.UUID, commitSHA, filePath string, startLine int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%s:%d", repoID, commitSHA, filePath, startLine)))
	h := hex.EncodeToString(sum[:])
	return h[0:8] + "-" + h[8:12] + "-" + h[12:16] + "-" + h[16:20] + "-" + h[20:32]
}

// NewChunk creates a Chunk with its deterministic ID.
func NewChunk(repoID uuid.UUID, commitSHA, filePath string, startLine, endLine int, language, content string) Chunk {
	return Chunk{
		id:        DeterministicID(repoID, commitSHA, filePath, startLine),
		repoID:    repoID,
		commitSHA: commitSHA,
		filePath:  filePath,
		startLine: startLine,
		endLine:   endLine,
		language:  language,
		content:   content,
		createdAt: time.Now().UTC(),
	}
}

// NewChunkWithID reconstructs a Chunk from persisted state.
func NewChunkWithID(id string, repoID uuid.UUID, commitSHA, filePath string, startLine, endLine int, language, content string, createdAt time.Time) Chunk {
	return Chunk{
		id:        id,
		repoID:    repoID,
		commitSHA: commitSHA,
		filePath:  filePath,
		startLine: startLine,
		endLine:   endLine,
		language:  language,
		content:   content,
		createdAt: createdAt,
	}
}

// ID returns the deterministic chunk ID.
func (c Chunk) ID() string { return c.id }

// RepoID returns the owning repository ID.
func (c Chunk) RepoID() uuid.UUID { return c.repoID }

// CommitSHA returns the snapshot commit.
func (c Chunk) CommitSHA() string { return c.commitSHA }

// FilePath returns the repo-relative file path.
func (c Chunk) FilePath() string { return c.filePath }

// StartLine returns the 1-based first line covered.
func (c Chunk) StartLine() int { return c.startLine }

// EndLine returns the 1-based last line covered.
func (c Chunk) EndLine() int { return c.endLine }

// Language returns the detected source language.
func (c Chunk) Language() string { return c.language }

// Content returns the chunk text including its header line.
func (c Chunk) Content() string { return c.content }

// CreatedAt returns the creation timestamp.
func (c Chunk) CreatedAt() time.Time { return c.createdAt }
