package repository

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus is the lifecycle state of an ingestion run.
type RunStatus string

// Run states. A run moves PENDING -> RUNNING -> COMPLETED or FAILED.
// Cancellation is recorded as FAILED with the error "cancelled".
const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// IsTerminal reports whether the status admits no further transitions.
func (s RunStatus) IsTerminal() bool {
	return s == RunCompleted || s == RunFailed
}

// RunStage names the pipeline stage a running ingestion is in.
type RunStage string

// Pipeline stages in execution order.
const (
	StageClone    RunStage = "clone"
	StageParse    RunStage = "parse"
	StageIndex    RunStage = "index"
	StageResolve  RunStage = "resolve"
	StageGraph    RunStage = "graph"
	StageChunk    RunStage = "chunk"
	StageEmbed    RunStage = "embed"
	StagePersist  RunStage = "persist"
	StageFinalize RunStage = "finalize"
)

// IngestionRun tracks one ingestion of a repository at a commit.
type IngestionRun struct {
	id             uuid.UUID
	repoID         uuid.UUID
	branch         string
	commitSHA      string
	status         RunStatus
	stage          RunStage
	errorMessage   string
	chunksTotal    int
	chunksEmbedded int
	chunksFailed   int
	degraded       bool
	createdAt      time.Time
	startedAt      time.Time
	finishedAt     time.Time
}

// NewIngestionRun creates a pending run for the given repository and branch.
func NewIngestionRun(repoID uuid.UUID, branch, commitSHA string) IngestionRun {
	return IngestionRun{
		id:        uuid.New(),
		repoID:    repoID,
		branch:    branch,
		commitSHA: commitSHA,
		status:    RunPending,
		createdAt: time.Now().UTC(),
	}
}

// NewIngestionRunWithID reconstructs an IngestionRun from persisted state.
func NewIngestionRunWithID(
	id, repoID uuid.UUID,
	branch, commitSHA string,
	status RunStatus,
	stage RunStage,
	errorMessage string,
	chunksTotal, chunksEmbedded, chunksFailed int,
	degraded bool,
	createdAt, startedAt, finishedAt time.Time,
) IngestionRun {
	return IngestionRun{
		id:             id,
		repoID:         repoID,
		branch:         branch,
		commitSHA:      commitSHA,
		status:         status,
		stage:          stage,
		errorMessage:   errorMessage,
		chunksTotal:    chunksTotal,
		chunksEmbedded: chunksEmbedded,
		chunksFailed:   chunksFailed,
		degraded:       degraded,
		createdAt:      createdAt,
		startedAt:      startedAt,
		finishedAt:     finishedAt,
	}
}

// ID returns the run ID.
func (r IngestionRun) ID() uuid.UUID { return r.id }

// RepoID returns the repository this run belongs to.
func (r IngestionRun) RepoID() uuid.UUID { return r.repoID }

// Branch returns the requested branch, empty for the default branch.
func (r IngestionRun) Branch() string { return r.branch }

// CommitSHA returns the commit being ingested.
func (r IngestionRun) CommitSHA() string { return r.commitSHA }

// Status returns the run status.
func (r IngestionRun) Status() RunStatus { return r.status }

// Stage returns the current pipeline stage.
func (r IngestionRun) Stage() RunStage { return r.stage }

// ErrorMessage returns the failure reason for FAILED runs.
func (r IngestionRun) ErrorMessage() string { return r.errorMessage }

// ChunksTotal returns the number of chunks produced.
func (r IngestionRun) ChunksTotal() int { return r.chunksTotal }

// ChunksEmbedded returns the number of chunks successfully embedded.
func (r IngestionRun) ChunksEmbedded() int { return r.chunksEmbedded }

// ChunksFailed returns the number of chunks whose embedding failed.
func (r IngestionRun) ChunksFailed() int { return r.chunksFailed }

// Degraded reports whether more than half the chunks failed to embed.
func (r IngestionRun) Degraded() bool { return r.degraded }

// CreatedAt returns the creation timestamp.
func (r IngestionRun) CreatedAt() time.Time { return r.createdAt }

// StartedAt returns when the run entered RUNNING.
func (r IngestionRun) StartedAt() time.Time { return r.startedAt }

// FinishedAt returns when the run reached a terminal state.
func (r IngestionRun) FinishedAt() time.Time { return r.finishedAt }

// Start returns a copy transitioned to RUNNING.
func (r IngestionRun) Start() IngestionRun {
	r.status = RunRunning
	r.startedAt = time.Now().UTC()
	return r
}

// WithStage returns a copy with the given pipeline stage recorded.
func (r IngestionRun) WithStage(stage RunStage) IngestionRun {
	r.stage = stage
	return r
}

// WithChunkCounts returns a copy with embedding progress recorded.
func (r IngestionRun) WithChunkCounts(total, embedded, failed int) IngestionRun {
	r.chunksTotal = total
	r.chunksEmbedded = embedded
	r.chunksFailed = failed
	return r
}

// Complete returns a copy transitioned to COMPLETED.
func (r IngestionRun) Complete(degraded bool) IngestionRun {
	r.status = RunCompleted
	r.stage = StageFinalize
	r.degraded = degraded
	r.finishedAt = time.Now().UTC()
	return r
}

// Fail returns a copy transitioned to FAILED with the given reason.
func (r IngestionRun) Fail(reason string) IngestionRun {
	r.status = RunFailed
	r.errorMessage = reason
	r.finishedAt = time.Now().UTC()
	return r
}

// Cancel returns a copy recorded as FAILED with the error "cancelled".
func (r IngestionRun) Cancel() IngestionRun {
	return r.Fail("cancelled")
}
