// ABOUTME: Tests for the startup state loader
// ABOUTME: Covers seeding, remote merge semantics, degraded mode, and write-back

package migrate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyfold/walletd/internal/store"
)

// mockRemote is an in-memory RemoteFetcher for loader tests.
type mockRemote struct {
	enabled bool
	data    map[string]any
	err     error
}

func (m *mockRemote) Enabled() bool { return m.enabled }

func (m *mockRemote) Fetch(ctx context.Context) (map[string]any, error) {
	return m.data, m.err
}

func TestLoad_SeedsWhenEmpty(t *testing.T) {
	primary := store.NewMock()
	m, err := New(Builtin())
	require.NoError(t, err)

	loader := NewLoader(primary, nil, m, nil, nil)
	data, err := loader.Load(context.Background())
	require.NoError(t, err)

	prefs, ok := data["preferences"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "en", prefs["locale"])

	// Write-back persisted the fully migrated envelope.
	require.Len(t, primary.Puts, 1)
	assert.Equal(t, m.LatestVersion(), primary.Puts[0].Version)
}

func TestLoad_MergesRemoteOverPrimary(t *testing.T) {
	primary := store.NewMock()
	primary.Seed(&store.Envelope{Version: 3, Data: map[string]any{
		"onlyLocal": "kept",
		"shared":    "local value",
	}})

	remote := &mockRemote{enabled: true, data: map[string]any{
		"shared":     "remote value",
		"onlyRemote": "added",
	}}

	m, err := New(Builtin())
	require.NoError(t, err)

	loader := NewLoader(primary, remote, m, nil, nil)
	data, err := loader.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "kept", data["onlyLocal"])
	assert.Equal(t, "remote value", data["shared"])
	assert.Equal(t, "added", data["onlyRemote"])
}

func TestLoad_MergesRemoteIntoNilPrimaryData(t *testing.T) {
	// A stored null blob decodes to a nil data map; the merge must still
	// land the remote keys instead of panicking.
	primary := store.NewMock()
	primary.Seed(&store.Envelope{Version: 3, Data: nil})

	remote := &mockRemote{enabled: true, data: map[string]any{"shared": "remote"}}

	m, err := New(Builtin())
	require.NoError(t, err)

	loader := NewLoader(primary, remote, m, nil, nil)
	data, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "remote", data["shared"])
}

func TestLoad_RemoteDisabledIsIgnored(t *testing.T) {
	primary := store.NewMock()
	primary.Seed(&store.Envelope{Version: 3, Data: map[string]any{"shared": "local"}})

	remote := &mockRemote{enabled: false, data: map[string]any{"shared": "remote"}}

	m, err := New(Builtin())
	require.NoError(t, err)

	loader := NewLoader(primary, remote, m, nil, nil)
	data, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "local", data["shared"])
}

func TestLoad_RemoteFetchFailureDegrades(t *testing.T) {
	primary := store.NewMock()
	primary.Seed(&store.Envelope{Version: 3, Data: map[string]any{"k": "v"}})

	remote := &mockRemote{enabled: true, err: errors.New("network down")}

	m, err := New(Builtin())
	require.NoError(t, err)

	loader := NewLoader(primary, remote, m, nil, nil)
	data, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v", data["k"])
}

func TestLoad_PrimaryReadErrorIsFatal(t *testing.T) {
	primary := store.NewMock()
	primary.GetErr = errors.New("disk gone")

	m, err := New(Builtin())
	require.NoError(t, err)

	loader := NewLoader(primary, nil, m, nil, nil)
	_, err = loader.Load(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "reading primary state")
}

func TestLoad_MigrationErrorIsFatal(t *testing.T) {
	primary := store.NewMock()
	primary.Seed(&store.Envelope{Version: 0, Data: map[string]any{}})

	failing := Migration{
		Version: 1,
		Migrate: func(ctx context.Context, data map[string]any) (map[string]any, error) {
			return nil, errors.New("bad transform")
		},
	}
	m, err := New([]Migration{failing})
	require.NoError(t, err)

	loader := NewLoader(primary, nil, m, nil, nil)
	_, err = loader.Load(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "migrating state")

	// Nothing was written back.
	assert.Empty(t, primary.Puts)
}

func TestLoad_WriteBackErrorIsFatal(t *testing.T) {
	primary := store.NewMock()
	primary.PutErr = errors.New("disk full")

	m, err := New(Builtin())
	require.NoError(t, err)

	loader := NewLoader(primary, nil, m, nil, nil)
	_, err = loader.Load(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "writing back")
}

func TestLoad_MigratesRemoteDataToo(t *testing.T) {
	// A legacy-shaped remote document gets migrated after the merge.
	primary := store.NewMock()
	remote := &mockRemote{enabled: true, data: map[string]any{
		"currentLocale": "ja",
	}}

	m, err := New(Builtin())
	require.NoError(t, err)

	loader := NewLoader(primary, remote, m, func() map[string]any { return map[string]any{} }, nil)
	data, err := loader.Load(context.Background())
	require.NoError(t, err)

	prefs, ok := data["preferences"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ja", prefs["locale"])
}
