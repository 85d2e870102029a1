package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/storage/memory"
)

// Adapter abstracts git operations so the cloner can be tested against
// a fake implementation.
type Adapter interface {
	ResolveHead(ctx context.Context, remoteURL string, branch string) (string, error)
	ShallowClone(ctx context.Context, remoteURL string, commitSHA string, localPath string) error
}

// ErrRemoteUnavailable indicates the remote could not be reached or
// refused access.
var ErrRemoteUnavailable = errors.New("repository unavailable")

// ErrBranchNotFound indicates the requested branch was not found on
// the remote.
var ErrBranchNotFound = errors.New("branch not found")

// GoGitAdapter implements Adapter using go-git.
type GoGitAdapter struct {
	logger *slog.Logger
}

// NewGoGitAdapter creates a new GoGitAdapter.
func NewGoGitAdapter(logger *slog.Logger) *GoGitAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &GoGitAdapter{logger: logger}
}

// ResolveHead returns the commit SHA the ingestion should pin to,
// without cloning. When branch is empty it follows the remote HEAD
// symref, then falls back to main and master.
func (g *GoGitAdapter) ResolveHead(ctx context.Context, remoteURL string, branch string) (string, error) {
	remote := gogit.NewRemote(memory.NewStorage(), &config.RemoteConfig{
		Name: "origin",
		URLs: []string{remoteURL},
	})

	refs, err := remote.ListContext(ctx, &gogit.ListOptions{})
	if err != nil {
		return "", fmt.Errorf("%w: list refs: %w", classifyRemoteErr(err), err)
	}

	byName := make(map[string]*plumbing.Reference, len(refs))
	for _, ref := range refs {
		byName[ref.Name().String()] = ref
	}

	if branch != "" {
		if ref, ok := byName["refs/heads/"+branch]; ok {
			return ref.Hash().String(), nil
		}
		return "", fmt.Errorf("%w: %s", ErrBranchNotFound, branch)
	}

	// HEAD is usually symbolic; follow it to the branch it points at.
	if head, ok := byName["HEAD"]; ok {
		if head.Type() == plumbing.SymbolicReference {
			if target, ok := byName[head.Target().String()]; ok {
				return target.Hash().String(), nil
			}
		} else if !head.Hash().IsZero() {
			return head.Hash().String(), nil
		}
	}

	for _, candidate := range []string{"refs/heads/main", "refs/heads/master"} {
		if ref, ok := byName[candidate]; ok {
			return ref.Hash().String(), nil
		}
	}

	return "", fmt.Errorf("%w: no HEAD, main or master on remote", ErrBranchNotFound)
}

// ShallowClone clones at depth 1 and checks out the given commit.
// When the commit is no longer the tip a full fetch is performed so
// the checkout can still succeed.
func (g *GoGitAdapter) ShallowClone(ctx context.Context, remoteURL string, commitSHA string, localPath string) error {
	if _, err := os.Stat(localPath); err == nil {
		if err := os.RemoveAll(localPath); err != nil {
			return fmt.Errorf("remove existing directory: %w", err)
		}
	}

	repo, err := gogit.PlainCloneContext(ctx, localPath, false, &gogit.CloneOptions{
		URL:          remoteURL,
		Depth:        1,
		SingleBranch: false,
		Tags:         gogit.NoTags,
	})
	if err != nil {
		return fmt.Errorf("%w: clone: %w", classifyRemoteErr(err), err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("get worktree: %w", err)
	}

	checkout := func() error {
		return worktree.Checkout(&gogit.CheckoutOptions{
			Hash:  plumbing.NewHash(commitSHA),
			Force: true,
		})
	}

	if err := checkout(); err == nil {
		return nil
	}

	// The pinned commit moved past the shallow tip between resolve and
	// clone. Unshallow and retry.
	g.logger.Debug("commit not in shallow clone, fetching full history",
		slog.String("sha", shortSHA(commitSHA)),
	)

	err = repo.FetchContext(ctx, &gogit.FetchOptions{
		RemoteName: "origin",
		Depth:      0,
		Force:      true,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return fmt.Errorf("%w: full fetch: %w", classifyRemoteErr(err), err)
	}

	if err := checkout(); err != nil {
		return fmt.Errorf("checkout commit %s: %w", shortSHA(commitSHA), err)
	}

	return nil
}

func classifyRemoteErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return context.DeadlineExceeded
	}
	if errors.Is(err, transport.ErrRepositoryNotFound) ||
		errors.Is(err, transport.ErrAuthenticationRequired) ||
		errors.Is(err, transport.ErrAuthorizationFailed) {
		return ErrRemoteUnavailable
	}
	// go-git wraps network failures inconsistently; treat the rest as
	// the remote being unavailable too.
	if strings.Contains(err.Error(), "context deadline exceeded") {
		return context.DeadlineExceeded
	}
	return ErrRemoteUnavailable
}

func shortSHA(sha string) string {
	if len(sha) >= 8 {
		return sha[:8]
	}
	return sha
}

var _ Adapter = (*GoGitAdapter)(nil)
