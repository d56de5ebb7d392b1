package fleet

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/hutchlabs/hutch/pkg/types"
)

// fakeEngine is an in-memory Engine for tests. State transitions are
// driven by the test through the states map and the optional hooks.
type fakeEngine struct {
	mu       sync.Mutex
	endpoint string

	nextID int
	states map[string]types.ContainerState

	createErr error
	startErr  error

	// inspectSeq, when non-empty, overrides the states map one call at
	// a time. Used to script the start verification poll.
	inspectSeq   []types.ContainerState
	inspectCalls int

	logs    string
	logsErr error

	execStream *ExecStream
	execErr    error
	execCalls  int
	execCmds   [][]string

	detached [][]string

	archives []fakeArchive

	stopped []string
	removed []string
	ops     []string

	closed bool
}

type fakeArchive struct {
	id   string
	dir  string
	data []byte
}

func newFakeEngine(endpoint string) *fakeEngine {
	return &fakeEngine{
		endpoint: endpoint,
		states:   make(map[string]types.ContainerState),
	}
}

// fakeDial returns a DialFunc serving pre-built engines by endpoint.
func fakeDial(engines map[string]*fakeEngine) DialFunc {
	return func(endpoint string) (Engine, error) {
		eng, ok := engines[endpoint]
		if !ok {
			return nil, fmt.Errorf("no engine for %s", endpoint)
		}
		return eng, nil
	}
}

func (e *fakeEngine) CreateContainer(ctx context.Context, image string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.createErr != nil {
		return "", e.createErr
	}
	e.nextID++
	id := fmt.Sprintf("%s-ctr-%d", e.endpoint, e.nextID)
	e.states[id] = types.ContainerState{Status: "created"}
	return id, nil
}

func (e *fakeEngine) StartContainer(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.startErr != nil {
		return e.startErr
	}
	if len(e.inspectSeq) == 0 {
		e.states[id] = types.ContainerState{Status: "running", Running: true}
	}
	return nil
}

func (e *fakeEngine) InspectContainer(ctx context.Context, id string) (types.ContainerState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inspectCalls++
	if len(e.inspectSeq) > 0 {
		state := e.inspectSeq[0]
		if len(e.inspectSeq) > 1 {
			e.inspectSeq = e.inspectSeq[1:]
		}
		return state, nil
	}
	state, ok := e.states[id]
	if !ok {
		return types.ContainerState{}, fmt.Errorf("container %s: %w", id, types.ErrNotFound)
	}
	return state, nil
}

func (e *fakeEngine) StopContainer(ctx context.Context, id string, grace time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped = append(e.stopped, id)
	if _, ok := e.states[id]; !ok {
		return fmt.Errorf("container %s: %w", id, types.ErrNotFound)
	}
	e.states[id] = types.ContainerState{Status: "exited"}
	return nil
}

func (e *fakeEngine) RemoveContainer(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.removed = append(e.removed, id)
	if _, ok := e.states[id]; !ok {
		return fmt.Errorf("container %s: %w", id, types.ErrNotFound)
	}
	delete(e.states, id)
	return nil
}

func (e *fakeEngine) ContainerLogs(ctx context.Context, id string, tail int) (string, error) {
	if e.logsErr != nil {
		return "", e.logsErr
	}
	return e.logs, nil
}

func (e *fakeEngine) OpenExec(ctx context.Context, id string, cmd []string, opts types.ExecOptions) (*ExecStream, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.execCalls++
	e.execCmds = append(e.execCmds, cmd)
	if e.execErr != nil {
		return nil, e.execErr
	}
	return e.execStream, nil
}

func (e *fakeEngine) StartDetachedExec(ctx context.Context, id string, cmd []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.detached = append(e.detached, cmd)
	return nil
}

func (e *fakeEngine) PutArchive(ctx context.Context, id string, dir string, content io.Reader) error {
	data, err := io.ReadAll(content)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.archives = append(e.archives, fakeArchive{id: id, dir: dir, data: data})
	return nil
}

func (e *fakeEngine) ListContainers(ctx context.Context, all bool) ([]types.ContainerSummary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []types.ContainerSummary
	for id, state := range e.states {
		if !all && !state.Running {
			continue
		}
		out = append(out, types.ContainerSummary{ID: id, State: state.Status})
	}
	return out, nil
}

func (e *fakeEngine) RemoveImage(ctx context.Context, tag string) error {
	e.op("remove-image " + tag)
	return nil
}

func (e *fakeEngine) PruneImages(ctx context.Context, all bool) error {
	e.op(fmt.Sprintf("prune-images all=%t", all))
	return nil
}

func (e *fakeEngine) PruneBuildCache(ctx context.Context) error {
	e.op("prune-build-cache")
	return nil
}

func (e *fakeEngine) PruneContainers(ctx context.Context) error {
	e.op("prune-containers")
	return nil
}

func (e *fakeEngine) PruneNetworks(ctx context.Context) error {
	e.op("prune-networks")
	return nil
}

func (e *fakeEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

func (e *fakeEngine) op(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ops = append(e.ops, name)
}

// running registers a container as already running on the engine,
// bypassing create/start. Used for lookup and exec tests.
func (e *fakeEngine) running(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.states[id] = types.ContainerState{Status: "running", Running: true}
}

// fakeJournal records assignments in memory.
type fakeJournal struct {
	mu      sync.Mutex
	entries map[string]string
}

func newFakeJournal() *fakeJournal {
	return &fakeJournal{entries: make(map[string]string)}
}

func (j *fakeJournal) Record(containerID, endpoint string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries[containerID] = endpoint
	return nil
}

func (j *fakeJournal) Forget(containerID string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.entries, containerID)
	return nil
}

func (j *fakeJournal) get(containerID string) (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	ep, ok := j.entries[containerID]
	return ep, ok
}
