package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndList(t *testing.T) {
	s := openStore(t)

	require.NoError(t, s.Record("ctr-1", "tcp://node-a:2375"))
	require.NoError(t, s.Record("ctr-2", "tcp://node-b:2375"))

	assignments, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"ctr-1": "tcp://node-a:2375",
		"ctr-2": "tcp://node-b:2375",
	}, assignments)
}

func TestForget(t *testing.T) {
	s := openStore(t)

	require.NoError(t, s.Record("ctr-1", "tcp://node-a:2375"))
	require.NoError(t, s.Forget("ctr-1"))

	assignments, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, assignments)

	// Unknown ids are fine.
	assert.NoError(t, s.Forget("never-existed"))
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Record("ctr-1", "unix:///var/run/docker.sock"))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	assignments, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, "unix:///var/run/docker.sock", assignments["ctr-1"])
}
