package git

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codesense-ai/codesense/domain/repository"
)

func TestParseRemoteURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		provider repository.Provider
		owner    string
		repo     string
	}{
		{
			name:     "github https",
			url:      "https://github.com/helix-editor/helix",
			provider: repository.ProviderGitHub,
			owner:    "helix-editor",
			repo:     "helix",
		},
		{
			name:     "github https with .git suffix",
			url:      "https://github.com/golang/go.git",
			provider: repository.ProviderGitHub,
			owner:    "golang",
			repo:     "go",
		},
		{
			name:     "github ssh",
			url:      "git@github.com:torvalds/linux.git",
			provider: repository.ProviderGitHub,
			owner:    "torvalds",
			repo:     "linux",
		},
		{
			name:     "ssh scheme",
			url:      "ssh://git@gitlab.com/group/project.git",
			provider: repository.ProviderGitLab,
			owner:    "group",
			repo:     "project",
		},
		{
			name:     "gitlab https",
			url:      "https://gitlab.example.com/team/service",
			provider: repository.ProviderGitLab,
			owner:    "team",
			repo:     "service",
		},
		{
			name:     "bitbucket",
			url:      "https://bitbucket.org/atlassian/jira",
			provider: repository.ProviderBitbucket,
			owner:    "atlassian",
			repo:     "jira",
		},
		{
			name:     "self hosted",
			url:      "https://git.internal.corp/platform/tooling",
			provider: repository.ProviderOther,
			owner:    "platform",
			repo:     "tooling",
		},
		{
			name:     "trailing slash",
			url:      "https://github.com/owner/name/",
			provider: repository.ProviderGitHub,
			owner:    "owner",
			repo:     "name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := ParseRemoteURL(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.provider, info.Provider)
			assert.Equal(t, tt.owner, info.Owner)
			assert.Equal(t, tt.repo, info.Name)
		})
	}
}

func TestParseRemoteURLInvalid(t *testing.T) {
	for _, url := range []string{
		"",
		"   ",
		"not-a-url",
		"https://github.com/only-owner",
		"ftp://github.com/a/b",
	} {
		t.Run(url, func(t *testing.T) {
			_, err := ParseRemoteURL(url)
			assert.ErrorIs(t, err, ErrInvalidRemoteURL)
		})
	}
}
