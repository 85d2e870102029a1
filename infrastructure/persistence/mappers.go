package persistence

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/codesense-ai/codesense/domain/chunk"
	domainrepo "github.com/codesense-ai/codesense/domain/repository"
	"github.com/codesense-ai/codesense/domain/symbol"
	"github.com/codesense-ai/codesense/domain/task"
)

func parseUUID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func uuidString(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// RepositoryMapper maps between domain Repository and RepositoryModel.
type RepositoryMapper struct{}

// ToDomain converts a RepositoryModel to a domain Repository.
func (RepositoryMapper) ToDomain(e RepositoryModel) domainrepo.Repository {
	return domainrepo.NewRepositoryWithID(
		parseUUID(e.ID),
		domainrepo.Provider(e.Provider),
		e.Owner,
		e.Name,
		e.RemoteURL,
		e.DefaultBranch,
		e.LatestCommitSHA,
		timeOrZero(e.LastIndexedAt),
		e.CreatedAt,
		e.UpdatedAt,
	)
}

// ToModel converts a domain Repository to a RepositoryModel.
func (RepositoryMapper) ToModel(r domainrepo.Repository) RepositoryModel {
	return RepositoryModel{
		ID:              r.ID().String(),
		Provider:        string(r.Provider()),
		Owner:           r.Owner(),
		Name:            r.Name(),
		RemoteURL:       r.RemoteURL(),
		DefaultBranch:   r.DefaultBranch(),
		LatestCommitSHA: r.LatestCommitSHA(),
		LastIndexedAt:   timePtr(r.LastIndexedAt()),
		CreatedAt:       r.CreatedAt(),
		UpdatedAt:       r.UpdatedAt(),
	}
}

// RunMapper maps between domain IngestionRun and IngestionRunModel.
type RunMapper struct{}

// ToDomain converts an IngestionRunModel to a domain IngestionRun.
func (RunMapper) ToDomain(e IngestionRunModel) domainrepo.IngestionRun {
	return domainrepo.NewIngestionRunWithID(
		parseUUID(e.ID),
		parseUUID(e.RepoID),
		e.Branch,
		e.CommitSHA,
		domainrepo.RunStatus(e.Status),
		domainrepo.RunStage(e.Stage),
		e.ErrorMessage,
		e.ChunksTotal,
		e.ChunksEmbedded,
		e.ChunksFailed,
		e.Degraded,
		e.CreatedAt,
		timeOrZero(e.StartedAt),
		timeOrZero(e.FinishedAt),
	)
}

// ToModel converts a domain IngestionRun to an IngestionRunModel.
func (RunMapper) ToModel(r domainrepo.IngestionRun) IngestionRunModel {
	return IngestionRunModel{
		ID:             r.ID().String(),
		RepoID:         r.RepoID().String(),
		Branch:         r.Branch(),
		CommitSHA:      r.CommitSHA(),
		Status:         string(r.Status()),
		Stage:          string(r.Stage()),
		ErrorMessage:   r.ErrorMessage(),
		ChunksTotal:    r.ChunksTotal(),
		ChunksEmbedded: r.ChunksEmbedded(),
		ChunksFailed:   r.ChunksFailed(),
		Degraded:       r.Degraded(),
		CreatedAt:      r.CreatedAt(),
		StartedAt:      timePtr(r.StartedAt()),
		FinishedAt:     timePtr(r.FinishedAt()),
	}
}

// SymbolMapper maps between domain Symbol and SymbolModel.
type SymbolMapper struct{}

// ToDomain converts a SymbolModel to a domain Symbol.
func (SymbolMapper) ToDomain(e SymbolModel) symbol.Symbol {
	var metadata map[string]any
	if e.Metadata != "" {
		_ = json.Unmarshal([]byte(e.Metadata), &metadata)
	}
	return symbol.NewSymbolWithID(
		parseUUID(e.ID),
		parseUUID(e.RepoID),
		e.CommitSHA,
		e.Name,
		e.QualifiedName,
		symbol.Type(e.SymbolType),
		e.FilePath,
		e.StartLine,
		e.EndLine,
		e.Scope,
		e.Signature,
		parseUUID(e.ParentSymbolID),
		metadata,
		e.CreatedAt,
	)
}

// ToModel converts a domain Symbol to a SymbolModel.
func (SymbolMapper) ToModel(s symbol.Symbol) SymbolModel {
	metadata := "{}"
	if m := s.Metadata(); m != nil {
		if data, err := json.Marshal(m); err == nil {
			metadata = string(data)
		}
	}
	return SymbolModel{
		ID:             s.ID().String(),
		RepoID:         s.RepoID().String(),
		CommitSHA:      s.CommitSHA(),
		Name:           s.Name(),
		QualifiedName:  s.QualifiedName(),
		SymbolType:     string(s.SymbolType()),
		FilePath:       s.FilePath(),
		StartLine:      s.StartLine(),
		EndLine:        s.EndLine(),
		Scope:          s.Scope(),
		Signature:      s.Signature(),
		ParentSymbolID: uuidString(s.ParentSymbolID()),
		Metadata:       metadata,
		CreatedAt:      s.CreatedAt(),
	}
}

// RelationshipMapper maps between domain Relationship and RelationshipModel.
type RelationshipMapper struct{}

// ToDomain converts a RelationshipModel to a domain Relationship.
func (RelationshipMapper) ToDomain(e RelationshipModel) symbol.Relationship {
	return symbol.NewRelationshipWithID(
		parseUUID(e.ID),
		parseUUID(e.RepoID),
		e.CommitSHA,
		parseUUID(e.SourceID),
		parseUUID(e.TargetID),
		symbol.RelationshipType(e.RelType),
		e.FilePath,
		e.Line,
		e.CreatedAt,
	)
}

// ToModel converts a domain Relationship to a RelationshipModel.
func (RelationshipMapper) ToModel(r symbol.Relationship) RelationshipModel {
	return RelationshipModel{
		ID:        r.ID().String(),
		RepoID:    r.RepoID().String(),
		CommitSHA: r.CommitSHA(),
		SourceID:  r.SourceID().String(),
		TargetID:  r.TargetID().String(),
		RelType:   string(r.RelType()),
		FilePath:  r.FilePath(),
		Line:      r.Line(),
		CreatedAt: r.CreatedAt(),
	}
}

// ChunkMapper maps between domain Chunk and ChunkModel.
type ChunkMapper struct{}

// ToDomain converts a ChunkModel to a domain Chunk.
func (ChunkMapper) ToDomain(e ChunkModel) chunk.Chunk {
	return chunk.NewChunkWithID(
		e.ID,
		parseUUID(e.RepoID),
		e.CommitSHA,
		e.FilePath,
		e.StartLine,
		e.EndLine,
		e.Language,
		e.Content,
		e.CreatedAt,
	)
}

// ToModel converts a domain Chunk to a ChunkModel.
func (ChunkMapper) ToModel(c chunk.Chunk) ChunkModel {
	return ChunkModel{
		ID:        c.ID(),
		RepoID:    c.RepoID().String(),
		CommitSHA: c.CommitSHA(),
		FilePath:  c.FilePath(),
		StartLine: c.StartLine(),
		EndLine:   c.EndLine(),
		Language:  c.Language(),
		Content:   c.Content(),
		CreatedAt: c.CreatedAt(),
	}
}

// TaskMapper maps between domain Task and TaskModel.
type TaskMapper struct{}

// ToDomain converts a TaskModel to a domain Task.
func (TaskMapper) ToDomain(e TaskModel) task.Task {
	var payload map[string]any
	if e.Payload != "" {
		_ = json.Unmarshal([]byte(e.Payload), &payload)
	}
	return task.NewTaskWithID(
		e.ID,
		e.DedupKey,
		task.Operation(e.Operation),
		e.Priority,
		payload,
		e.CreatedAt,
		e.UpdatedAt,
	)
}

// ToModel converts a domain Task to a TaskModel.
func (TaskMapper) ToModel(t task.Task) TaskModel {
	payload := "{}"
	if data, err := t.PayloadJSON(); err == nil {
		payload = string(data)
	}
	return TaskModel{
		ID:        t.ID(),
		DedupKey:  t.DedupKey(),
		Operation: t.Operation().String(),
		Priority:  t.Priority(),
		Payload:   payload,
		CreatedAt: t.CreatedAt(),
		UpdatedAt: t.UpdatedAt(),
	}
}
