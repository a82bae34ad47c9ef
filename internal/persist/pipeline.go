// ABOUTME: Standing pipeline mirroring controller state changes into the stores
// ABOUTME: Wraps each snapshot in the current envelope and syncs the remote best-effort

package persist

import (
	"context"
	"log/slog"

	"github.com/keyfold/walletd/internal/store"
)

// RemoteSyncer is the slice of the secondary store the pipeline needs.
type RemoteSyncer interface {
	Enabled() bool
	Sync(ctx context.Context, data map[string]any) error
}

// Pipeline forwards controller state snapshots to persistence. It drains
// its updates channel in a single goroutine, so pipeline runs are
// serialized and the read-version/write-version pairing of each run
// cannot interleave with another run's.
type Pipeline struct {
	primary store.Primary
	remote  RemoteSyncer // may be nil
	updates <-chan map[string]any
	logger  *slog.Logger
}

// New creates a Pipeline consuming the given snapshot stream.
func New(primary store.Primary, remote RemoteSyncer, updates <-chan map[string]any, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		primary: primary,
		remote:  remote,
		updates: updates,
		logger:  logger.With("component", "persist"),
	}
}

// Run processes snapshots until ctx is cancelled or the updates channel
// closes. Persistence failures for one snapshot are logged and do not
// stop the pipeline.
func (p *Pipeline) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case snapshot, ok := <-p.updates:
			if !ok {
				return
			}
			if err := p.persist(ctx, snapshot); err != nil {
				p.logger.Error("persisting state snapshot failed", "error", err)
			}
		}
	}
}

// persist runs the fixed stage order for one snapshot: read the current
// envelope for its version, replace the data, dispatch the remote sync,
// then write the envelope. The version written always equals the version
// read at the start of the same run.
func (p *Pipeline) persist(ctx context.Context, snapshot map[string]any) error {
	env, err := p.primary.GetState(ctx)
	if err != nil {
		return err
	}

	env.Data = snapshot

	if p.remote != nil && p.remote.Enabled() {
		// Fire-and-forget: a remote failure never interrupts the
		// primary write.
		if err := p.remote.Sync(ctx, snapshot); err != nil {
			p.logger.Warn("remote sync failed", "error", err)
		}
	}

	return p.primary.PutState(ctx, env)
}
