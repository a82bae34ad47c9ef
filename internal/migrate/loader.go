// ABOUTME: StateLoader that produces the controller's initial state at startup
// ABOUTME: Read primary, merge optional remote data, migrate, write back, unwrap

package migrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/keyfold/walletd/internal/store"
)

// RemoteFetcher is the slice of the secondary store the loader needs.
type RemoteFetcher interface {
	Enabled() bool
	Fetch(ctx context.Context) (map[string]any, error)
}

// Loader assembles the wallet's initial state from persistence.
// It runs exactly once at process start, before any channel is accepted.
type Loader struct {
	primary   store.Primary
	remote    RemoteFetcher // may be nil when the host has no secondary store
	migrator  *Migrator
	firstTime func() map[string]any
	logger    *slog.Logger
}

// NewLoader creates a Loader. remote may be nil. firstTime may be nil, in
// which case FirstTimeState is used.
func NewLoader(primary store.Primary, remote RemoteFetcher, migrator *Migrator, firstTime func() map[string]any, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if firstTime == nil {
		firstTime = FirstTimeState
	}
	return &Loader{
		primary:   primary,
		remote:    remote,
		migrator:  migrator,
		firstTime: firstTime,
		logger:    logger.With("component", "loader"),
	}
}

// Load reads, merges, migrates, and writes back the state envelope, then
// returns the unwrapped data. The envelope's version is not exposed past
// this point. Primary read/write and migration errors are fatal; a remote
// fetch failure degrades to loading from the primary document alone.
func (l *Loader) Load(ctx context.Context) (map[string]any, error) {
	env, err := l.primary.GetState(ctx)
	if errors.Is(err, store.ErrNoState) {
		l.logger.Info("no persisted state, seeding first-time defaults")
		env = l.migrator.GenerateInitialState(l.firstTime())
	} else if err != nil {
		return nil, fmt.Errorf("reading primary state: %w", err)
	}

	if l.remote != nil && l.remote.Enabled() {
		remoteData, err := l.remote.Fetch(ctx)
		if err != nil {
			l.logger.Warn("remote fetch failed, continuing with local state", "error", err)
		} else if remoteData != nil {
			// A stored null blob decodes to a nil map.
			if env.Data == nil {
				env.Data = map[string]any{}
			}
			// Shallow merge: remote wins per top-level key.
			for k, v := range remoteData {
				env.Data[k] = v
			}
			l.logger.Info("merged remote state", "keys", len(remoteData))
		}
	}

	migrated, err := l.migrator.MigrateData(ctx, env)
	if err != nil {
		return nil, fmt.Errorf("migrating state: %w", err)
	}
	if migrated.Version > env.Version {
		l.logger.Info("state migrated",
			"from_version", env.Version,
			"to_version", migrated.Version,
		)
	}

	// Write-back so future cold starts skip already-applied migrations.
	if err := l.primary.PutState(ctx, migrated); err != nil {
		return nil, fmt.Errorf("writing back migrated state: %w", err)
	}

	return migrated.Data, nil
}
