package fleet

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/docker/docker/pkg/stdcopy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hutchlabs/hutch/pkg/types"
)

// multiplexedStream packs stdout and stderr into stdcopy frames the way
// a daemon does for a non-TTY exec.
func multiplexedStream(stdout, stderr string) *ExecStream {
	var buf bytes.Buffer
	if stdout != "" {
		_, _ = stdcopy.NewStdWriter(&buf, stdcopy.Stdout).Write([]byte(stdout))
	}
	if stderr != "" {
		_, _ = stdcopy.NewStdWriter(&buf, stdcopy.Stderr).Write([]byte(stderr))
	}
	return &ExecStream{Reader: &buf, Multiplexed: true}
}

func execManager(t *testing.T, eng *fakeEngine) *Manager {
	t.Helper()
	return newTestManager(t, []string{"unix:///a.sock"}, map[string]*fakeEngine{"unix:///a.sock": eng})
}

func TestExecDemultiplexesOutput(t *testing.T) {
	eng := newFakeEngine("a")
	eng.running("c1")
	eng.execStream = multiplexedStream("hello stdout\n", "hello stderr\n")
	m := execManager(t, eng)

	result, err := m.Exec(context.Background(), "c1", "echo hi", types.ExecOptions{})
	require.NoError(t, err)
	assert.Equal(t, "hello stdout\n", result.Stdout)
	assert.Equal(t, "hello stderr\n", result.Stderr)

	require.Len(t, eng.execCmds, 1)
	assert.Equal(t, []string{"bash", "-c", "echo hi"}, eng.execCmds[0])
}

func TestExecRawStreamFoldsToStdout(t *testing.T) {
	eng := newFakeEngine("a")
	eng.running("c1")
	eng.execStream = &ExecStream{Reader: bytes.NewBufferString("plain output")}
	m := execManager(t, eng)

	result, err := m.Exec(context.Background(), "c1", "true", types.ExecOptions{})
	require.NoError(t, err)
	assert.Equal(t, "plain output", result.Stdout)
	assert.Empty(t, result.Stderr)
}

func TestExecTimeoutBoundsReadLoop(t *testing.T) {
	pr, pw := io.Pipe()
	eng := newFakeEngine("a")
	eng.running("c1")
	eng.execStream = &ExecStream{
		Reader: pr,
		CloseFn: func() {
			pr.Close()
			pw.Close()
		},
		Multiplexed: true,
	}
	m := execManager(t, eng)

	start := time.Now()
	_, err := m.Exec(context.Background(), "c1", "sleep 600", types.ExecOptions{Timeout: 50 * time.Millisecond})
	elapsed := time.Since(start)

	var timeoutErr *types.ExecTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, "c1", timeoutErr.ContainerID)
	assert.Less(t, elapsed, 2*time.Second, "timeout must cut the read loop, not wait for it")
}

func TestExecRejectsStoppedContainer(t *testing.T) {
	eng := newFakeEngine("a")
	eng.mu.Lock()
	eng.states["c1"] = types.ContainerState{Status: "exited"}
	eng.mu.Unlock()
	m := execManager(t, eng)

	_, err := m.Exec(context.Background(), "c1", "true", types.ExecOptions{})
	var notRunning *types.ContainerNotRunningError
	require.ErrorAs(t, err, &notRunning)
	assert.Equal(t, "exited", notRunning.Status)
	assert.Equal(t, 0, eng.execCalls, "no exec session for a stopped container")
}

func TestExecPurgesStaleRegistryEntry(t *testing.T) {
	eng := newFakeEngine("a")
	m := execManager(t, eng)

	// Entry for a container the engine no longer knows.
	m.mu.Lock()
	m.containers["gone"] = containerRecord{node: 0}
	m.mu.Unlock()

	_, err := m.Exec(context.Background(), "gone", "true", types.ExecOptions{})
	var notFound *types.ContainerNotFoundError
	require.ErrorAs(t, err, &notFound)

	m.mu.Lock()
	_, still := m.containers["gone"]
	m.mu.Unlock()
	assert.False(t, still, "stale entry must be purged")
}

func TestExecReplacesInvalidUTF8(t *testing.T) {
	eng := newFakeEngine("a")
	eng.running("c1")
	eng.execStream = &ExecStream{Reader: bytes.NewBuffer([]byte{0xff, 'o', 'k'})}
	m := execManager(t, eng)

	result, err := m.Exec(context.Background(), "c1", "cat binary", types.ExecOptions{})
	require.NoError(t, err)
	assert.Equal(t, "�ok", result.Stdout)
}

func TestExecBackgroundWrapsInNohup(t *testing.T) {
	eng := newFakeEngine("a")
	eng.running("c1")
	m := execManager(t, eng)

	m.ExecBackground(context.Background(), "c1", "python server.py")

	require.Len(t, eng.detached, 1)
	assert.Equal(t,
		[]string{"bash", "-c", "nohup python server.py > /dev/null 2>&1 &"},
		eng.detached[0])
}

func TestExecBackgroundSwallowsFailures(t *testing.T) {
	eng := newFakeEngine("a")
	m := execManager(t, eng)

	// Unknown container: must not panic, must not launch anything.
	m.ExecBackground(context.Background(), "nope", "true")
	assert.Empty(t, eng.detached)
}
