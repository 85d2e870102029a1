// Package repository defines repositories, ingestion runs, and the query
// option vocabulary shared by all stores.
package repository

import (
	"time"

	"github.com/google/uuid"
)

// Provider identifies the hosting service a repository came from.
type Provider string

// Known providers.
const (
	ProviderGitHub    Provider = "github"
	ProviderGitLab    Provider = "gitlab"
	ProviderBitbucket Provider = "bitbucket"
	ProviderOther     Provider = "other"
)

// Repository is an ingested source repository.
type Repository struct {
	id              uuid.UUID
	provider        Provider
	owner           string
	name            string
	remoteURL       string
	defaultBranch   string
	latestCommitSHA string
	lastIndexedAt   time.Time
	createdAt       time.Time
	updatedAt       time.Time
}

// NewRepository creates a Repository with a fresh ID.
func NewRepository(provider Provider, owner, name, remoteURL string) Repository {
	now := time.Now().UTC()
	return Repository{
		id:        uuid.New(),
		provider:  provider,
		owner:     owner,
		name:      name,
		remoteURL: remoteURL,
		createdAt: now,
		updatedAt: now,
	}
}

// NewRepositoryWithID reconstructs a Repository from persisted state.
func NewRepositoryWithID(
	id uuid.UUID,
	provider Provider,
	owner, name, remoteURL, defaultBranch, latestCommitSHA string,
	lastIndexedAt, createdAt, updatedAt time.Time,
) Repository {
	return Repository{
		id:              id,
		provider:        provider,
		owner:           owner,
		name:            name,
		remoteURL:       remoteURL,
		defaultBranch:   defaultBranch,
		latestCommitSHA: latestCommitSHA,
		lastIndexedAt:   lastIndexedAt,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}

// ID returns the repository ID.
func (r Repository) ID() uuid.UUID { return r.id }

// Provider returns the hosting provider.
func (r Repository) Provider() Provider { return r.provider }

// Owner returns the repository owner or organization.
func (r Repository) Owner() string { return r.owner }

// Name returns the repository name.
func (r Repository) Name() string { return r.name }

// RemoteURL returns the canonical remote URL.
func (r Repository) RemoteURL() string { return r.remoteURL }

// DefaultBranch returns the resolved default branch, empty until first clone.
func (r Repository) DefaultBranch() string { return r.defaultBranch }

// LatestCommitSHA returns the most recently indexed commit.
func (r Repository) LatestCommitSHA() string { return r.latestCommitSHA }

// LastIndexedAt returns when the repository was last indexed.
func (r Repository) LastIndexedAt() time.Time { return r.lastIndexedAt }

// CreatedAt returns the creation timestamp.
func (r Repository) CreatedAt() time.Time { return r.createdAt }

// UpdatedAt returns the last-modified timestamp.
func (r Repository) UpdatedAt() time.Time { return r.updatedAt }

// FullName returns "owner/name".
func (r Repository) FullName() string { return r.owner + "/" + r.name }

// WithDefaultBranch returns a copy with the default branch set.
func (r Repository) WithDefaultBranch(branch string) Repository {
	r.defaultBranch = branch
	r.updatedAt = time.Now().UTC()
	return r
}

// WithIndexedCommit returns a copy recording a completed index of commitSHA.
func (r Repository) WithIndexedCommit(commitSHA string) Repository {
	now := time.Now().UTC()
	r.latestCommitSHA = commitSHA
	r.lastIndexedAt = now
	r.updatedAt = now
	return r
}
