package symbol

import (
	"time"

	"github.com/google/uuid"
)

// RelationshipType classifies an edge between two symbols.
type RelationshipType string

// Relationship types.
const (
	RelCalls    RelationshipType = "calls"
	RelImports  RelationshipType = "imports"
	RelInherits RelationshipType = "inherits"
	RelUses     RelationshipType = "uses"
)

// Relationship is a directed edge between two symbols in the same
// (repo, commit) snapshot.
type Relationship struct {
	id        uuid.UUID
	repoID    uuid.UUID
	commitSHA string
	sourceID  uuid.UUID
	targetID  uuid.UUID
	relType   RelationshipType
	filePath  string
	line      int
	createdAt time.Time
}

// NewRelationship creates a Relationship with a fresh ID.
func NewRelationship(repoID uuid.UUID, commitSHA string, sourceID, targetID uuid.UUID, relType RelationshipType, filePath string, line int) Relationship {
	return Relationship{
		id:        uuid.New(),
		repoID:    repoID,
		commitSHA: commitSHA,
		sourceID:  sourceID,
		targetID:  targetID,
		relType:   relType,
		filePath:  filePath,
		line:      line,
		createdAt: time.Now().UTC(),
	}
}

// NewRelationshipWithID reconstructs a Relationship from persisted state.
func NewRelationshipWithID(
	id, repoID uuid.UUID,
	commitSHA string,
	sourceID, targetID uuid.UUID,
	relType RelationshipType,
	filePath string,
	line int,
	createdAt time.Time,
) Relationship {
	return Relationship{
		id:        id,
		repoID:    repoID,
		commitSHA: commitSHA,
		sourceID:  sourceID,
		targetID:  targetID,
		relType:   relType,
		filePath:  filePath,
		line:      line,
		createdAt: createdAt,
	}
}

// ID returns the relationship ID.
func (r Relationship) ID() uuid.UUID { return r.id }

// RepoID returns the owning repository ID.
func (r Relationship) RepoID() uuid.UUID { return r.repoID }

// CommitSHA returns the snapshot commit.
func (r Relationship) CommitSHA() string { return r.commitSHA }

// SourceID returns the edge source symbol.
func (r Relationship) SourceID() uuid.UUID { return r.sourceID }

// TargetID returns the edge target symbol.
func (r Relationship) TargetID() uuid.UUID { return r.targetID }

// RelType returns the relationship type.
func (r Relationship) RelType() RelationshipType { return r.relType }

// FilePath returns the file where the edge was observed.
func (r Relationship) FilePath() string { return r.filePath }

// Line returns the line where the edge was observed.
func (r Relationship) Line() int { return r.line }

// CreatedAt returns the creation timestamp.
func (r Relationship) CreatedAt() time.Time { return r.createdAt }
