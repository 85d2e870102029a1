// Package persistence provides GORM-backed stores for repositories,
// ingestion runs, symbols, relationships, chunks, and queued tasks.
package persistence

import (
	"time"

	"github.com/codesense-ai/codesense/internal/database"
)

// RepositoryModel is the repositories table.
type RepositoryModel struct {
	ID              string     `gorm:"column:id;primaryKey"`
	Provider        string     `gorm:"column:provider;index:idx_repositories_coords,unique"`
	Owner           string     `gorm:"column:owner;index:idx_repositories_coords,unique"`
	Name            string     `gorm:"column:name;index:idx_repositories_coords,unique"`
	RemoteURL       string     `gorm:"column:remote_url"`
	DefaultBranch   string     `gorm:"column:default_branch"`
	LatestCommitSHA string     `gorm:"column:latest_commit_sha"`
	LastIndexedAt   *time.Time `gorm:"column:last_indexed_at"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at"`
}

// TableName returns the table name.
func (RepositoryModel) TableName() string { return "repositories" }

// IngestionRunModel is the ingestion_runs table.
type IngestionRunModel struct {
	ID             string     `gorm:"column:id;primaryKey"`
	RepoID         string     `gorm:"column:repo_id;index"`
	Branch         string     `gorm:"column:branch"`
	CommitSHA      string     `gorm:"column:commit_sha;index"`
	Status         string     `gorm:"column:status;index"`
	Stage          string     `gorm:"column:stage"`
	ErrorMessage   string     `gorm:"column:error_message"`
	ChunksTotal    int        `gorm:"column:chunks_total"`
	ChunksEmbedded int        `gorm:"column:chunks_embedded"`
	ChunksFailed   int        `gorm:"column:chunks_failed"`
	Degraded       bool       `gorm:"column:degraded"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	StartedAt      *time.Time `gorm:"column:started_at"`
	FinishedAt     *time.Time `gorm:"column:finished_at"`
}

// TableName returns the table name.
func (IngestionRunModel) TableName() string { return "ingestion_runs" }

// SymbolModel is the symbols table. Metadata is JSON-encoded.
type SymbolModel struct {
	ID             string    `gorm:"column:id;primaryKey"`
	RepoID         string    `gorm:"column:repo_id;index:idx_symbols_snapshot"`
	CommitSHA      string    `gorm:"column:commit_sha;index:idx_symbols_snapshot"`
	Name           string    `gorm:"column:name;index"`
	QualifiedName  string    `gorm:"column:qualified_name;index"`
	SymbolType     string    `gorm:"column:symbol_type;index"`
	FilePath       string    `gorm:"column:file_path;index"`
	StartLine      int       `gorm:"column:start_line"`
	EndLine        int       `gorm:"column:end_line"`
	Scope          string    `gorm:"column:scope"`
	Signature      string    `gorm:"column:signature"`
	ParentSymbolID string    `gorm:"column:parent_symbol_id"`
	Metadata       string    `gorm:"column:metadata;type:json"`
	CreatedAt      time.Time `gorm:"column:created_at"`
}

// TableName returns the table name.
func (SymbolModel) TableName() string { return "symbols" }

// RelationshipModel is the relationships table.
type RelationshipModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	RepoID    string    `gorm:"column:repo_id;index:idx_relationships_snapshot"`
	CommitSHA string    `gorm:"column:commit_sha;index:idx_relationships_snapshot"`
	SourceID  string    `gorm:"column:source_id;index"`
	TargetID  string    `gorm:"column:target_id;index"`
	RelType   string    `gorm:"column:rel_type;index"`
	FilePath  string    `gorm:"column:file_path"`
	Line      int       `gorm:"column:line"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

// TableName returns the table name.
func (RelationshipModel) TableName() string { return "relationships" }

// ChunkModel is the chunks table.
type ChunkModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	RepoID    string    `gorm:"column:repo_id;index:idx_chunks_snapshot"`
	CommitSHA string    `gorm:"column:commit_sha;index:idx_chunks_snapshot"`
	FilePath  string    `gorm:"column:file_path"`
	StartLine int       `gorm:"column:start_line"`
	EndLine   int       `gorm:"column:end_line"`
	Language  string    `gorm:"column:language"`
	Content   string    `gorm:"column:content"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

// TableName returns the table name.
func (ChunkModel) TableName() string { return "chunks" }

// TaskModel is the tasks table. Existence implies pending.
type TaskModel struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	DedupKey  string    `gorm:"column:dedup_key;uniqueIndex:idx_tasks_dedup_key"`
	Operation string    `gorm:"column:operation"`
	Priority  int       `gorm:"column:priority;index"`
	Payload   string    `gorm:"column:payload;type:json"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName returns the table name.
func (TaskModel) TableName() string { return "tasks" }

// AutoMigrate runs GORM auto migration for all models.
func AutoMigrate(db database.Database) error {
	if err := db.GORM().AutoMigrate(
		&RepositoryModel{},
		&IngestionRunModel{},
		&SymbolModel{},
		&RelationshipModel{},
		&ChunkModel{},
		&TaskModel{},
	); err != nil {
		return err
	}
	return postMigrate(db)
}

// postMigrate enables PostgreSQL extensions the stores rely on. SQLite
// deployments need nothing extra.
func postMigrate(db database.Database) error {
	if !db.IsPostgres() {
		return nil
	}
	// pg_trgm backs fuzzy symbol name lookups.
	return db.GORM().Exec(`CREATE EXTENSION IF NOT EXISTS pg_trgm`).Error
}
