package fleet

import (
	"context"
	"io"
	"time"

	"github.com/hutchlabs/hutch/pkg/types"
)

// Engine is the capability surface the fleet needs from one container
// engine daemon. Implementations wrap a concrete client (pkg/engine
// provides the Docker one) and wrap types.ErrNotFound around errors for
// resources the daemon no longer knows.
type Engine interface {
	// CreateContainer creates an anonymous sandbox container from image,
	// configured for an interactive shell so it idles until torn down.
	CreateContainer(ctx context.Context, image string) (string, error)
	StartContainer(ctx context.Context, id string) error
	InspectContainer(ctx context.Context, id string) (types.ContainerState, error)
	StopContainer(ctx context.Context, id string, grace time.Duration) error
	RemoveContainer(ctx context.Context, id string) error

	// ContainerLogs returns the last tail lines of container output.
	ContainerLogs(ctx context.Context, id string, tail int) (string, error)

	// OpenExec starts a non-interactive exec session and returns its
	// output stream. The caller owns the stream and must close it.
	OpenExec(ctx context.Context, id string, cmd []string, opts types.ExecOptions) (*ExecStream, error)

	// StartDetachedExec launches cmd without attaching to its output.
	StartDetachedExec(ctx context.Context, id string, cmd []string) error

	// PutArchive extracts a tar stream into dir inside the container.
	PutArchive(ctx context.Context, id string, dir string, content io.Reader) error

	ListContainers(ctx context.Context, all bool) ([]types.ContainerSummary, error)

	RemoveImage(ctx context.Context, tag string) error
	PruneImages(ctx context.Context, all bool) error
	PruneBuildCache(ctx context.Context) error
	PruneContainers(ctx context.Context) error
	PruneNetworks(ctx context.Context) error

	Close() error
}

// ExecStream is the output side of an exec session. When Multiplexed is
// set, frames on Reader are tagged by stream and must be demultiplexed;
// otherwise the bytes are raw and belong to stdout.
type ExecStream struct {
	Reader      io.Reader
	CloseFn     func()
	Multiplexed bool
}

// Close releases the underlying connection. Safe on a nil CloseFn.
func (s *ExecStream) Close() {
	if s.CloseFn != nil {
		s.CloseFn()
	}
}

// DialFunc creates an Engine for one daemon endpoint. Dialing must be
// cheap and must not contact the daemon; connection failures surface on
// the first operation instead.
type DialFunc func(endpoint string) (Engine, error)

// AssignmentJournal records container→endpoint assignments durably so
// an external reaper can find sandboxes after a crash. Implementations
// must tolerate Forget for unknown ids.
type AssignmentJournal interface {
	Record(containerID, endpoint string) error
	Forget(containerID string) error
}
