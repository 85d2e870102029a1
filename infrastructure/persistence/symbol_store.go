package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	domainrepo "github.com/codesense-ai/codesense/domain/repository"
	"github.com/codesense-ai/codesense/domain/symbol"
	"github.com/codesense-ai/codesense/internal/database"
)

const symbolBatchSize = 500

// fuzzyMinSimilarity is the pg_trgm similarity floor for fuzzy name matches.
const fuzzyMinSimilarity = 0.3

// SymbolStore persists symbols.
type SymbolStore struct {
	db   database.Database
	repo database.Repository[symbol.Symbol, SymbolModel]
}

// NewSymbolStore creates a new SymbolStore.
func NewSymbolStore(db database.Database) *SymbolStore {
	return &SymbolStore{
		db:   db,
		repo: database.NewRepository[symbol.Symbol, SymbolModel](db, SymbolMapper{}, "symbol"),
	}
}

// SaveBatch upserts symbols by ID in batches.
func (s *SymbolStore) SaveBatch(ctx context.Context, symbols []symbol.Symbol) error {
	if len(symbols) == 0 {
		return nil
	}

	models := make([]SymbolModel, len(symbols))
	for i, sym := range symbols {
		models[i] = SymbolMapper{}.ToModel(sym)
	}

	result := s.db.Session(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).CreateInBatches(models, symbolBatchSize)
	if result.Error != nil {
		return fmt.Errorf("save symbols: %w", result.Error)
	}
	return nil
}

// Get retrieves a symbol by ID.
func (s *SymbolStore) Get(ctx context.Context, id uuid.UUID) (symbol.Symbol, error) {
	return s.repo.FindOne(ctx, domainrepo.WithID(id))
}

// FindByName resolves a name within a snapshot. Exact matches win; when
// none exist the qualified-name suffix is tried, then fuzzy matching.
func (s *SymbolStore) FindByName(ctx context.Context, snap symbol.Snapshot, name string) ([]symbol.Symbol, error) {
	exact, err := s.repo.Find(ctx,
		snapshotOptions(snap, domainrepo.WithCondition("name", name))...)
	if err != nil {
		return nil, err
	}
	if len(exact) > 0 {
		return exact, nil
	}

	qualified, err := s.findByQualifiedSuffix(ctx, snap, name)
	if err != nil {
		return nil, err
	}
	if len(qualified) > 0 {
		return qualified, nil
	}

	return s.findFuzzy(ctx, snap, name)
}

func (s *SymbolStore) findByQualifiedSuffix(ctx context.Context, snap symbol.Snapshot, name string) ([]symbol.Symbol, error) {
	var models []SymbolModel
	result := s.db.Session(ctx).
		Where("repo_id = ? AND commit_sha = ?", snap.RepoID.String(), snap.CommitSHA).
		Where("qualified_name LIKE ?", "%."+name).
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("find symbols by qualified name: %w", result.Error)
	}
	return s.toDomain(models), nil
}

// findFuzzy uses trigram similarity on postgres and a substring match on
// sqlite, which has no pg_trgm equivalent.
func (s *SymbolStore) findFuzzy(ctx context.Context, snap symbol.Snapshot, name string) ([]symbol.Symbol, error) {
	var models []SymbolModel
	session := s.db.Session(ctx).
		Where("repo_id = ? AND commit_sha = ?", snap.RepoID.String(), snap.CommitSHA)

	var result error
	if s.db.IsPostgres() {
		result = session.
			Where("similarity(name, ?) > ?", name, fuzzyMinSimilarity).
			Order(clause.OrderBy{Expression: clause.Expr{SQL: "similarity(name, ?) DESC", Vars: []any{name}}}).
			Find(&models).Error
	} else {
		result = session.
			Where("name LIKE ?", "%"+name+"%").
			Order("name ASC").
			Find(&models).Error
	}
	if result != nil {
		return nil, fmt.Errorf("find symbols by fuzzy name: %w", result)
	}
	return s.toDomain(models), nil
}

// FindByType retrieves all symbols of the given type within a snapshot.
func (s *SymbolStore) FindByType(ctx context.Context, snap symbol.Snapshot, symbolType symbol.Type) ([]symbol.Symbol, error) {
	return s.repo.Find(ctx,
		snapshotOptions(snap, domainrepo.WithCondition("symbol_type", string(symbolType)))...)
}

// FindInFile retrieves all symbols declared in the given file, ordered by
// start line.
func (s *SymbolStore) FindInFile(ctx context.Context, snap symbol.Snapshot, filePath string) ([]symbol.Symbol, error) {
	return s.repo.Find(ctx,
		snapshotOptions(snap,
			domainrepo.WithFilePath(filePath),
			domainrepo.WithOrderAsc("start_line"))...)
}

// CountBySnapshot returns the number of symbols in the snapshot.
func (s *SymbolStore) CountBySnapshot(ctx context.Context, snap symbol.Snapshot) (int64, error) {
	return s.repo.Count(ctx, snapshotOptions(snap)...)
}

// DeleteByRepo removes all symbols for the repository.
func (s *SymbolStore) DeleteByRepo(ctx context.Context, repoID uuid.UUID) error {
	return s.repo.DeleteBy(ctx, domainrepo.WithRepoID(repoID))
}

func (s *SymbolStore) toDomain(models []SymbolModel) []symbol.Symbol {
	symbols := make([]symbol.Symbol, len(models))
	for i, model := range models {
		symbols[i] = SymbolMapper{}.ToDomain(model)
	}
	return symbols
}

func snapshotOptions(snap symbol.Snapshot, extra ...domainrepo.Option) []domainrepo.Option {
	options := []domainrepo.Option{
		domainrepo.WithRepoID(snap.RepoID),
		domainrepo.WithCommitSHA(snap.CommitSHA),
	}
	return append(options, extra...)
}
