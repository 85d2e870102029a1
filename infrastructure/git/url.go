package git

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/codesense-ai/codesense/domain/repository"
)

// ErrInvalidRemoteURL indicates the remote URL could not be parsed into
// a provider, owner and repository name.
var ErrInvalidRemoteURL = errors.New("invalid repository URL")

var (
	httpsURLPattern = regexp.MustCompile(`^https?://([^/]+)/([^/]+)/([^/]+?)(?:\.git)?/?$`)
	sshURLPattern   = regexp.MustCompile(`^(?:ssh://)?git@([^:/]+)[:/]([^/]+)/([^/]+?)(?:\.git)?/?$`)
)

// RemoteInfo identifies a repository on a hosting provider.
type RemoteInfo struct {
	Provider repository.Provider
	Owner    string
	Name     string
}

// ParseRemoteURL extracts the provider, owner and repository name from a
// remote URL. Both https and ssh forms are accepted.
func ParseRemoteURL(remoteURL string) (RemoteInfo, error) {
	trimmed := strings.TrimSpace(remoteURL)
	if trimmed == "" {
		return RemoteInfo{}, fmt.Errorf("%w: empty URL", ErrInvalidRemoteURL)
	}

	var host, owner, name string
	if m := httpsURLPattern.FindStringSubmatch(trimmed); m != nil {
		host, owner, name = m[1], m[2], m[3]
	} else if m := sshURLPattern.FindStringSubmatch(trimmed); m != nil {
		host, owner, name = m[1], m[2], m[3]
	} else {
		return RemoteInfo{}, fmt.Errorf("%w: %s", ErrInvalidRemoteURL, remoteURL)
	}

	if owner == "" || name == "" {
		return RemoteInfo{}, fmt.Errorf("%w: %s", ErrInvalidRemoteURL, remoteURL)
	}

	return RemoteInfo{
		Provider: providerFromHost(host),
		Owner:    owner,
		Name:     name,
	}, nil
}

func providerFromHost(host string) repository.Provider {
	host = strings.ToLower(host)
	// Strip a user@ prefix and any port.
	if at := strings.LastIndex(host, "@"); at >= 0 {
		host = host[at+1:]
	}
	if colon := strings.Index(host, ":"); colon >= 0 {
		host = host[:colon]
	}

	switch {
	case host == "github.com" || strings.HasSuffix(host, ".github.com"):
		return repository.ProviderGitHub
	case strings.Contains(host, "gitlab"):
		return repository.ProviderGitLab
	case strings.Contains(host, "bitbucket"):
		return repository.ProviderBitbucket
	default:
		return repository.ProviderOther
	}
}
