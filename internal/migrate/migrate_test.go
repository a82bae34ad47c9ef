// ABOUTME: Tests for the migration engine
// ABOUTME: Covers ordering, exactly-once application, halt-on-error, and list validation

package migrate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyfold/walletd/internal/store"
)

// stampMigration returns a migration that appends its version to an
// "applied" slice in the data, recording application order.
func stampMigration(version int) Migration {
	return Migration{
		Version: version,
		Migrate: func(ctx context.Context, data map[string]any) (map[string]any, error) {
			applied, _ := data["applied"].([]int)
			data["applied"] = append(applied, version)
			return data, nil
		},
	}
}

func TestNew_RejectsUnsortedList(t *testing.T) {
	_, err := New([]Migration{stampMigration(2), stampMigration(1)})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadMigrationList)
}

func TestNew_RejectsDuplicateVersions(t *testing.T) {
	_, err := New([]Migration{stampMigration(1), stampMigration(1)})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadMigrationList)
}

func TestNew_RejectsNonPositiveVersion(t *testing.T) {
	_, err := New([]Migration{stampMigration(0)})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadMigrationList)
}

func TestGenerateInitialState(t *testing.T) {
	m, err := New(nil)
	require.NoError(t, err)

	seed := map[string]any{"hello": "world"}
	env := m.GenerateInitialState(seed)

	assert.Equal(t, 0, env.Version)
	assert.Equal(t, seed, env.Data)
}

func TestMigrateData_AppliesOnlyPending(t *testing.T) {
	m, err := New([]Migration{stampMigration(1), stampMigration(2), stampMigration(3)})
	require.NoError(t, err)

	env := &store.Envelope{Version: 1, Data: map[string]any{}}
	out, err := m.MigrateData(context.Background(), env)
	require.NoError(t, err)

	assert.Equal(t, 3, out.Version)
	assert.Equal(t, []int{2, 3}, out.Data["applied"])
}

func TestMigrateData_NothingPending(t *testing.T) {
	m, err := New([]Migration{stampMigration(1), stampMigration(2)})
	require.NoError(t, err)

	env := &store.Envelope{Version: 2, Data: map[string]any{"k": "v"}}
	out, err := m.MigrateData(context.Background(), env)
	require.NoError(t, err)

	assert.Equal(t, 2, out.Version)
	assert.Nil(t, out.Data["applied"])
}

func TestMigrateData_Idempotent(t *testing.T) {
	m, err := New([]Migration{stampMigration(1), stampMigration(2)})
	require.NoError(t, err)

	env := &store.Envelope{Version: 0, Data: map[string]any{}}
	once, err := m.MigrateData(context.Background(), env)
	require.NoError(t, err)

	twice, err := m.MigrateData(context.Background(), once)
	require.NoError(t, err)

	assert.Equal(t, once.Version, twice.Version)
	assert.Equal(t, once.Data["applied"], twice.Data["applied"])
}

func TestMigrateData_HaltsOnError(t *testing.T) {
	boom := errors.New("boom")
	failing := Migration{
		Version: 2,
		Migrate: func(ctx context.Context, data map[string]any) (map[string]any, error) {
			return nil, boom
		},
	}

	m, err := New([]Migration{stampMigration(1), failing, stampMigration(3)})
	require.NoError(t, err)

	env := &store.Envelope{Version: 0, Data: map[string]any{}}
	out, err := m.MigrateData(context.Background(), env)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	// Version retained at the last successful migration; the third never ran.
	assert.Equal(t, 1, out.Version)
	assert.Equal(t, []int{1}, out.Data["applied"])
}

func TestLatestVersion(t *testing.T) {
	empty, err := New(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.LatestVersion())

	m, err := New([]Migration{stampMigration(1), stampMigration(5)})
	require.NoError(t, err)
	assert.Equal(t, 5, m.LatestVersion())
}
