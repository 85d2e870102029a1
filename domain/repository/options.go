package repository

import "github.com/google/uuid"

// WithID filters by the "id" column.
func WithID(id uuid.UUID) Option {
	return WithCondition("id", id.String())
}

// WithRepoID filters by the "repo_id" column.
func WithRepoID(id uuid.UUID) Option {
	return WithCondition("repo_id", id.String())
}

// WithCommitSHA filters by the "commit_sha" column.
func WithCommitSHA(sha string) Option {
	return WithCondition("commit_sha", sha)
}

// WithName filters by the "name" column.
func WithName(name string) Option {
	return WithCondition("name", name)
}

// WithRemoteURL filters by the "remote_url" column.
func WithRemoteURL(url string) Option {
	return WithCondition("remote_url", url)
}

// WithProviderOwnerName filters by the provider/owner/name triple.
func WithProviderOwnerName(provider Provider, owner, name string) Option {
	return func(q Query) Query {
		q = WithCondition("provider", string(provider))(q)
		q = WithCondition("owner", owner)(q)
		return WithCondition("name", name)(q)
	}
}

// WithStatus filters by the "status" column.
func WithStatus(status RunStatus) Option {
	return WithCondition("status", string(status))
}

// WithFilePath filters by the "file_path" column.
func WithFilePath(path string) Option {
	return WithCondition("file_path", path)
}
