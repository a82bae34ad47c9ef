// ABOUTME: Ordered schema migration engine for the wallet state envelope
// ABOUTME: Applies each pending migration exactly once, in ascending version order

package migrate

import (
	"context"
	"errors"
	"fmt"

	"github.com/keyfold/walletd/internal/store"
)

// ErrBadMigrationList indicates the configured migration list is not
// strictly increasing in version. This is a fatal configuration error.
var ErrBadMigrationList = errors.New("migration list must be strictly increasing in version")

// Migration transforms the state data from one schema version to the next.
// The transform receives the data produced by the previous migration (or
// the original data) and must return the replacement wholesale.
type Migration struct {
	Version int
	Migrate func(ctx context.Context, data map[string]any) (map[string]any, error)
}

// Migrator advances a versioned envelope through an ordered migration list.
type Migrator struct {
	migrations []Migration
}

// New validates the migration list and returns a Migrator.
// Returns ErrBadMigrationList unless versions are strictly increasing.
func New(migrations []Migration) (*Migrator, error) {
	last := 0
	for i, m := range migrations {
		if m.Version <= last {
			return nil, fmt.Errorf("%w: version %d at index %d", ErrBadMigrationList, m.Version, i)
		}
		if m.Migrate == nil {
			return nil, fmt.Errorf("migration %d has no transform", m.Version)
		}
		last = m.Version
	}
	return &Migrator{migrations: migrations}, nil
}

// GenerateInitialState wraps first-time defaults in a version-zero envelope.
func (m *Migrator) GenerateInitialState(seed map[string]any) *store.Envelope {
	return &store.Envelope{Version: 0, Data: seed}
}

// LatestVersion returns the highest version in the migration list, or zero
// when the list is empty.
func (m *Migrator) LatestVersion() int {
	if len(m.migrations) == 0 {
		return 0
	}
	return m.migrations[len(m.migrations)-1].Version
}

// MigrateData applies every migration whose version exceeds the envelope's,
// strictly ascending, threading the data through each transform. After each
// successful transform the envelope's version advances to that migration's
// version. On transform failure the sequence halts: the returned envelope
// retains the version reached by the last successful migration, and the
// error is returned for the caller to treat as fatal.
func (m *Migrator) MigrateData(ctx context.Context, env *store.Envelope) (*store.Envelope, error) {
	out := env.Clone()
	for _, mig := range m.migrations {
		if mig.Version <= out.Version {
			continue
		}
		data, err := mig.Migrate(ctx, out.Data)
		if err != nil {
			return out, fmt.Errorf("migration %d: %w", mig.Version, err)
		}
		out.Data = data
		out.Version = mig.Version
	}
	return out, nil
}
