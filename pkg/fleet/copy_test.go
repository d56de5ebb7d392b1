package fleet

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hutchlabs/hutch/pkg/types"
)

func TestCopyFile(t *testing.T) {
	payload := []byte(`{"task": "fix the tests"}`)
	local := filepath.Join(t.TempDir(), "task.json")
	require.NoError(t, os.WriteFile(local, payload, 0644))

	eng := newFakeEngine("a")
	eng.running("c1")
	m := execManager(t, eng)

	err := m.CopyFile(context.Background(), "c1", local, "/workspace/input/task.json")
	require.NoError(t, err)

	require.Len(t, eng.archives, 1)
	got := eng.archives[0]
	assert.Equal(t, "c1", got.id)
	assert.Equal(t, "/workspace/input", got.dir)

	tr := tar.NewReader(bytes.NewReader(got.data))
	hdr, err := tr.Next()
	require.NoError(t, err)
	assert.Equal(t, "task.json", hdr.Name)

	content, err := io.ReadAll(tr)
	require.NoError(t, err)
	assert.Equal(t, payload, content)

	_, err = tr.Next()
	assert.Equal(t, io.EOF, err, "archive holds exactly one entry")
}

func TestCopyFileRootDestination(t *testing.T) {
	local := filepath.Join(t.TempDir(), "env")
	require.NoError(t, os.WriteFile(local, []byte("A=1\n"), 0644))

	eng := newFakeEngine("a")
	eng.running("c1")
	m := execManager(t, eng)

	require.NoError(t, m.CopyFile(context.Background(), "c1", local, "env"))
	require.Len(t, eng.archives, 1)
	assert.Equal(t, "/", eng.archives[0].dir, "bare file name extracts at the root")
}

func TestCopyFileErrors(t *testing.T) {
	eng := newFakeEngine("a")
	eng.running("c1")
	m := execManager(t, eng)

	t.Run("missing local file", func(t *testing.T) {
		err := m.CopyFile(context.Background(), "c1", "/does/not/exist", "/tmp/x")
		assert.Error(t, err)
		assert.Empty(t, eng.archives)
	})

	t.Run("unknown container", func(t *testing.T) {
		local := filepath.Join(t.TempDir(), "f")
		require.NoError(t, os.WriteFile(local, []byte("x"), 0644))

		err := m.CopyFile(context.Background(), "nope", local, "/tmp/f")
		var notFound *types.ContainerNotFoundError
		assert.ErrorAs(t, err, &notFound)
	})
}
