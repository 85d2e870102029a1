package codesense

import (
	"errors"

	"github.com/codesense-ai/codesense/infrastructure/git"
	"github.com/codesense-ai/codesense/infrastructure/parsing"
	"github.com/codesense-ai/codesense/infrastructure/provider"
	"github.com/codesense-ai/codesense/internal/database"
)

// Sentinel errors returned by the public API. Callers match them with
// errors.Is; wrapped causes carry the underlying detail. Most alias the
// sentinel of the package that produces them, so errors flow through the
// facade unchanged.
var (
	// ErrNoDatabase indicates New was called without a database option.
	ErrNoDatabase = errors.New("no database configured")

	// ErrClientClosed indicates the client has already been closed.
	ErrClientClosed = errors.New("client is closed")

	// ErrNoEmbedder indicates no embedding provider is configured and no
	// local model is available.
	ErrNoEmbedder = errors.New("no embedding provider available")

	// ErrInvalidRepoURL indicates the remote URL could not be parsed
	// into a provider, owner and repository name.
	ErrInvalidRepoURL = git.ErrInvalidRemoteURL

	// ErrRepoUnavailable indicates the remote could not be reached or
	// refused access during resolution or cloning.
	ErrRepoUnavailable = git.ErrRemoteUnavailable

	// ErrCloneTimeout indicates the clone exceeded the configured deadline.
	ErrCloneTimeout = git.ErrCloneTimeout

	// ErrParseSkipped indicates a source file was skipped rather than
	// parsed, because of its size or an unsupported language.
	ErrParseSkipped = parsing.ErrSkipped

	// ErrEmbedRateLimited indicates the embedding provider rejected a
	// batch with a rate-limit response after all retries.
	ErrEmbedRateLimited = provider.ErrEmbedRateLimited

	// ErrEmbedFailed indicates an embedding batch failed permanently.
	ErrEmbedFailed = provider.ErrEmbedFailed

	// ErrGeneratorUnavailable indicates the answer generator endpoint is
	// not configured or did not respond.
	ErrGeneratorUnavailable = provider.ErrGeneratorUnavailable

	// ErrNotFound indicates the requested repository, run or record
	// does not exist.
	ErrNotFound = database.ErrNotFound

	// ErrNotIndexed indicates the repository has no completed ingestion
	// to query against.
	ErrNotIndexed = errors.New("repository not indexed")

	// ErrIngestionDegraded indicates ingestion completed but some
	// stages produced partial results.
	ErrIngestionDegraded = errors.New("ingestion degraded")

	// ErrInternal indicates an unexpected internal failure.
	ErrInternal = errors.New("internal error")
)
