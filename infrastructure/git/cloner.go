package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// ErrCloneTimeout indicates a clone exceeded its configured deadline.
var ErrCloneTimeout = errors.New("clone timed out")

// Cloner materialises a pinned commit of a remote repository into a
// scratch directory under the configured clone root.
type Cloner struct {
	adapter  Adapter
	cloneDir string
	timeout  time.Duration
	logger   *slog.Logger
}

// NewCloner creates a Cloner writing scratch checkouts under cloneDir.
func NewCloner(adapter Adapter, cloneDir string, timeout time.Duration, logger *slog.Logger) *Cloner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cloner{
		adapter:  adapter,
		cloneDir: cloneDir,
		timeout:  timeout,
		logger:   logger,
	}
}

// ResolveHead pins the commit SHA to ingest for the given remote and
// optional branch.
func (c *Cloner) ResolveHead(ctx context.Context, remoteURL string, branch string) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	sha, err := c.adapter.ResolveHead(ctx, remoteURL, branch)
	if err != nil {
		return "", c.mapErr(err)
	}
	return sha, nil
}

// Clone checks out the pinned commit into a fresh scratch directory and
// returns its path together with a cleanup func. The cleanup func is
// safe to call even when Clone fails partway.
func (c *Cloner) Clone(ctx context.Context, remoteURL string, commitSHA string) (string, func(), error) {
	if err := os.MkdirAll(c.cloneDir, 0o755); err != nil {
		return "", func() {}, fmt.Errorf("create clone dir: %w", err)
	}

	scratch, err := os.MkdirTemp(c.cloneDir, "clone-"+shortSHA(commitSHA)+"-")
	if err != nil {
		return "", func() {}, fmt.Errorf("create scratch dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(scratch) }

	c.logger.Info("cloning repository",
		slog.String("url", remoteURL),
		slog.String("sha", shortSHA(commitSHA)),
		slog.String("path", scratch),
	)

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	if err := c.adapter.ShallowClone(ctx, remoteURL, commitSHA, scratch); err != nil {
		cleanup()
		return "", func() {}, c.mapErr(err)
	}

	c.logger.Info("cloned repository",
		slog.String("sha", shortSHA(commitSHA)),
		slog.Duration("took", time.Since(start)),
	)

	return scratch, cleanup, nil
}

func (c *Cloner) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Cloner) mapErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: %w", ErrCloneTimeout, c.timeout, err)
	}
	return err
}
