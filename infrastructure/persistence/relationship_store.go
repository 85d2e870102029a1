package persistence

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	domainrepo "github.com/codesense-ai/codesense/domain/repository"
	"github.com/codesense-ai/codesense/domain/symbol"
	"github.com/codesense-ai/codesense/internal/database"
)

const relationshipBatchSize = 500

// walkRow is one row produced by a graph traversal CTE.
type walkRow struct {
	SymbolID string `gorm:"column:symbol_id"`
	Depth    int    `gorm:"column:depth"`
}

// Traversals use WITH RECURSIVE with a comma-delimited visited path per
// branch. The path guard stops cycles; the depth guard bounds the walk.
// Both sqlite and postgres run the same SQL.
const callersQuery = `
WITH RECURSIVE walk(symbol_id, depth, path) AS (
	SELECT r.source_id, 1, ',' || r.target_id || ',' || r.source_id || ','
	FROM relationships r
	WHERE r.repo_id = ? AND r.commit_sha = ? AND r.rel_type = ? AND r.target_id = ?
	UNION ALL
	SELECT r.source_id, w.depth + 1, w.path || r.source_id || ','
	FROM relationships r
	JOIN walk w ON r.target_id = w.symbol_id
	WHERE r.repo_id = ? AND r.commit_sha = ? AND r.rel_type = ?
		AND w.depth < ?
		AND w.path NOT LIKE '%,' || r.source_id || ',%'
)
SELECT symbol_id, MIN(depth) AS depth FROM walk GROUP BY symbol_id`

const calleesQuery = `
WITH RECURSIVE walk(symbol_id, depth, path) AS (
	SELECT r.target_id, 1, ',' || r.source_id || ',' || r.target_id || ','
	FROM relationships r
	WHERE r.repo_id = ? AND r.commit_sha = ? AND r.rel_type = ? AND r.source_id = ?
	UNION ALL
	SELECT r.target_id, w.depth + 1, w.path || r.target_id || ','
	FROM relationships r
	JOIN walk w ON r.source_id = w.symbol_id
	WHERE r.repo_id = ? AND r.commit_sha = ? AND r.rel_type = ?
		AND w.depth < ?
		AND w.path NOT LIKE '%,' || r.target_id || ',%'
)
SELECT symbol_id, MIN(depth) AS depth FROM walk GROUP BY symbol_id`

const callPathQuery = `
WITH RECURSIVE walk(symbol_id, depth, path) AS (
	SELECT r.target_id, 1, ',' || r.source_id || ',' || r.target_id || ','
	FROM relationships r
	WHERE r.repo_id = ? AND r.commit_sha = ? AND r.rel_type = ? AND r.source_id = ?
	UNION ALL
	SELECT r.target_id, w.depth + 1, w.path || r.target_id || ','
	FROM relationships r
	JOIN walk w ON r.source_id = w.symbol_id
	WHERE r.repo_id = ? AND r.commit_sha = ? AND r.rel_type = ?
		AND w.depth < ?
		AND w.path NOT LIKE '%,' || r.target_id || ',%'
)
SELECT path FROM walk WHERE symbol_id = ? ORDER BY depth ASC LIMIT 1`

// RelationshipStore persists relationships and runs graph traversals.
type RelationshipStore struct {
	db      database.Database
	repo    database.Repository[symbol.Relationship, RelationshipModel]
	symbols *SymbolStore
}

// NewRelationshipStore creates a new RelationshipStore.
func NewRelationshipStore(db database.Database) *RelationshipStore {
	return &RelationshipStore{
		db:      db,
		repo:    database.NewRepository[symbol.Relationship, RelationshipModel](db, RelationshipMapper{}, "relationship"),
		symbols: NewSymbolStore(db),
	}
}

// SaveBatch upserts relationships by ID in batches.
func (s *RelationshipStore) SaveBatch(ctx context.Context, rels []symbol.Relationship) error {
	if len(rels) == 0 {
		return nil
	}

	models := make([]RelationshipModel, len(rels))
	for i, rel := range rels {
		models[i] = RelationshipMapper{}.ToModel(rel)
	}

	result := s.db.Session(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).CreateInBatches(models, relationshipBatchSize)
	if result.Error != nil {
		return fmt.Errorf("save relationships: %w", result.Error)
	}
	return nil
}

// FindBySource retrieves edges of the given type leaving the source symbol.
func (s *RelationshipStore) FindBySource(ctx context.Context, snap symbol.Snapshot, sourceID uuid.UUID, relType symbol.RelationshipType) ([]symbol.Relationship, error) {
	return s.repo.Find(ctx,
		domainrepo.WithRepoID(snap.RepoID),
		domainrepo.WithCommitSHA(snap.CommitSHA),
		domainrepo.WithCondition("source_id", sourceID.String()),
		domainrepo.WithCondition("rel_type", string(relType)),
	)
}

// FindByType retrieves every edge of the given type within a snapshot.
func (s *RelationshipStore) FindByType(ctx context.Context, snap symbol.Snapshot, relType symbol.RelationshipType) ([]symbol.Relationship, error) {
	return s.repo.Find(ctx,
		domainrepo.WithRepoID(snap.RepoID),
		domainrepo.WithCommitSHA(snap.CommitSHA),
		domainrepo.WithCondition("rel_type", string(relType)),
	)
}

// Callers walks "calls" edges backwards from the target symbol.
func (s *RelationshipStore) Callers(ctx context.Context, snap symbol.Snapshot, targetID uuid.UUID, maxDepth int) ([]symbol.Hop, error) {
	return s.walk(ctx, callersQuery, snap, targetID, maxDepth)
}

// Callees walks "calls" edges forward from the source symbol.
func (s *RelationshipStore) Callees(ctx context.Context, snap symbol.Snapshot, sourceID uuid.UUID, maxDepth int) ([]symbol.Hop, error) {
	return s.walk(ctx, calleesQuery, snap, sourceID, maxDepth)
}

// Reachable returns every symbol transitively callable from the source,
// the source itself included at depth 0. The walk's visited guard never
// revisits the start, so a cycle back to it is covered by the union.
func (s *RelationshipStore) Reachable(ctx context.Context, snap symbol.Snapshot, fromID uuid.UUID, maxDepth int) ([]symbol.Hop, error) {
	hops, err := s.walk(ctx, calleesQuery, snap, fromID, maxDepth)
	if err != nil {
		return nil, err
	}
	start, err := s.symbols.Get(ctx, fromID)
	if err != nil {
		return nil, err
	}
	return append([]symbol.Hop{{Symbol: start, Depth: 0}}, hops...), nil
}

// CallPath returns the shortest call chain between two symbols, both
// endpoints included. A symbol trivially reaches itself.
func (s *RelationshipStore) CallPath(ctx context.Context, snap symbol.Snapshot, fromID, toID uuid.UUID, maxDepth int) ([]symbol.Symbol, error) {
	if fromID == toID {
		sym, err := s.symbols.Get(ctx, fromID)
		if err != nil {
			return nil, err
		}
		return []symbol.Symbol{sym}, nil
	}
	if maxDepth < 1 {
		return nil, nil
	}

	var path string
	result := s.db.Session(ctx).Raw(callPathQuery,
		snap.RepoID.String(), snap.CommitSHA, string(symbol.RelCalls), fromID.String(),
		snap.RepoID.String(), snap.CommitSHA, string(symbol.RelCalls),
		maxDepth,
		toID.String(),
	).Scan(&path)
	if result.Error != nil {
		return nil, fmt.Errorf("find call path: %w", result.Error)
	}
	if path == "" {
		return nil, nil
	}

	ids := strings.Split(strings.Trim(path, ","), ",")
	loaded, err := s.loadSymbols(ctx, ids)
	if err != nil {
		return nil, err
	}

	chain := make([]symbol.Symbol, 0, len(ids))
	for _, id := range ids {
		sym, ok := loaded[id]
		if !ok {
			return nil, fmt.Errorf("call path references unknown symbol %s", id)
		}
		chain = append(chain, sym)
	}
	return chain, nil
}

// DeleteByRepo removes all relationships for the repository.
func (s *RelationshipStore) DeleteByRepo(ctx context.Context, repoID uuid.UUID) error {
	return s.repo.DeleteBy(ctx, domainrepo.WithRepoID(repoID))
}

func (s *RelationshipStore) walk(ctx context.Context, query string, snap symbol.Snapshot, startID uuid.UUID, maxDepth int) ([]symbol.Hop, error) {
	if maxDepth < 1 {
		return nil, nil
	}

	var rows []walkRow
	result := s.db.Session(ctx).Raw(query,
		snap.RepoID.String(), snap.CommitSHA, string(symbol.RelCalls), startID.String(),
		snap.RepoID.String(), snap.CommitSHA, string(symbol.RelCalls),
		maxDepth,
	).Scan(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("walk call graph: %w", result.Error)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.SymbolID
	}
	loaded, err := s.loadSymbols(ctx, ids)
	if err != nil {
		return nil, err
	}

	hops := make([]symbol.Hop, 0, len(rows))
	for _, row := range rows {
		sym, ok := loaded[row.SymbolID]
		if !ok {
			continue
		}
		hops = append(hops, symbol.Hop{Symbol: sym, Depth: row.Depth})
	}
	sort.Slice(hops, func(i, j int) bool {
		if hops[i].Depth != hops[j].Depth {
			return hops[i].Depth < hops[j].Depth
		}
		return hops[i].Symbol.Name() < hops[j].Symbol.Name()
	})
	return hops, nil
}

func (s *RelationshipStore) loadSymbols(ctx context.Context, ids []string) (map[string]symbol.Symbol, error) {
	var models []SymbolModel
	result := s.db.Session(ctx).Where("id IN ?", ids).Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("load symbols: %w", result.Error)
	}

	loaded := make(map[string]symbol.Symbol, len(models))
	for _, model := range models {
		loaded[model.ID] = SymbolMapper{}.ToDomain(model)
	}
	return loaded, nil
}
