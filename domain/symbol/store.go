package symbol

import (
	"context"

	"github.com/google/uuid"
)

// Snapshot identifies one indexed (repository, commit) pair. All symbol and
// relationship queries are scoped to a snapshot.
type Snapshot struct {
	RepoID    uuid.UUID
	CommitSHA string
}

// Hop is a symbol reached during a graph traversal, with the depth at which
// it was first encountered.
type Hop struct {
	Symbol Symbol
	Depth  int
}

// Store persists symbols and answers name lookups.
type Store interface {
	SaveBatch(ctx context.Context, symbols []Symbol) error
	Get(ctx context.Context, id uuid.UUID) (Symbol, error)

	// FindByName resolves a name within a snapshot: exact name match first,
	// then qualified-name suffix (".name"), then fuzzy similarity.
	FindByName(ctx context.Context, snap Snapshot, name string) ([]Symbol, error)

	FindByType(ctx context.Context, snap Snapshot, symbolType Type) ([]Symbol, error)
	FindInFile(ctx context.Context, snap Snapshot, filePath string) ([]Symbol, error)
	CountBySnapshot(ctx context.Context, snap Snapshot) (int64, error)
	DeleteByRepo(ctx context.Context, repoID uuid.UUID) error
}

// RelationshipStore persists relationships and answers graph traversals.
// Traversals are cycle-safe and depth-bounded.
type RelationshipStore interface {
	SaveBatch(ctx context.Context, rels []Relationship) error
	FindBySource(ctx context.Context, snap Snapshot, sourceID uuid.UUID, relType RelationshipType) ([]Relationship, error)
	FindByType(ctx context.Context, snap Snapshot, relType RelationshipType) ([]Relationship, error)

	// Callers walks "calls" edges backwards from the target symbol.
	Callers(ctx context.Context, snap Snapshot, targetID uuid.UUID, maxDepth int) ([]Hop, error)

	// Callees walks "calls" edges forward from the source symbol.
	Callees(ctx context.Context, snap Snapshot, sourceID uuid.UUID, maxDepth int) ([]Hop, error)

	// CallPath returns the shortest call chain from one symbol to another,
	// inclusive of both endpoints. A symbol trivially reaches itself with a
	// path of length one. Returns nil when no path exists within maxDepth.
	CallPath(ctx context.Context, snap Snapshot, fromID, toID uuid.UUID, maxDepth int) ([]Symbol, error)

	// Reachable returns every symbol transitively callable from the source.
	Reachable(ctx context.Context, snap Snapshot, fromID uuid.UUID, maxDepth int) ([]Hop, error)

	DeleteByRepo(ctx context.Context, repoID uuid.UUID) error
}
