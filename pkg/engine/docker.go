package engine

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	dockertypes "github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/hutchlabs/hutch/pkg/fleet"
	"github.com/hutchlabs/hutch/pkg/types"
)

// Client implements fleet.Engine against one Docker Engine API
// endpoint. Constructing a Client does not contact the daemon;
// connection failures surface on the first operation.
type Client struct {
	cli      *client.Client
	endpoint string
}

// Dial creates a client for the daemon at endpoint (unix:// or tcp://
// form).
func Dial(endpoint string) (*Client, error) {
	if !strings.HasPrefix(endpoint, "unix://") && !strings.HasPrefix(endpoint, "tcp://") {
		return nil, fmt.Errorf("unsupported endpoint %q: expected unix:// or tcp:// address", endpoint)
	}
	cli, err := client.NewClientWithOpts(
		client.WithHost(endpoint),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine client for %s: %w", endpoint, err)
	}
	return &Client{cli: cli, endpoint: endpoint}, nil
}

// Dialer adapts Dial to the fleet.DialFunc signature.
func Dialer(endpoint string) (fleet.Engine, error) {
	return Dial(endpoint)
}

// Endpoint returns the daemon address this client talks to.
func (e *Client) Endpoint() string {
	return e.endpoint
}

// Close releases the underlying HTTP client.
func (e *Client) Close() error {
	return e.cli.Close()
}

// CreateContainer creates an anonymous container wired for an
// interactive shell: stdio attached, TTY allocated, command overridden
// to an idle bash so the container stays alive for later execs.
func (e *Client) CreateContainer(ctx context.Context, imageRef string) (string, error) {
	cfg := &container.Config{
		Image:        imageRef,
		AttachStdin:  true,
		AttachStdout: true,
		AttachStderr: true,
		Tty:          true,
		OpenStdin:    true,
		StdinOnce:    false,
		Cmd:          []string{"/bin/bash"},
	}

	resp, err := e.cli.ContainerCreate(ctx, cfg, nil, nil, nil, "")
	if err != nil {
		return "", e.wrap(err, "failed to create container")
	}
	return resp.ID, nil
}

func (e *Client) StartContainer(ctx context.Context, id string) error {
	if err := e.cli.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return e.wrap(err, "failed to start container")
	}
	return nil
}

func (e *Client) InspectContainer(ctx context.Context, id string) (types.ContainerState, error) {
	info, err := e.cli.ContainerInspect(ctx, id)
	if err != nil {
		return types.ContainerState{}, e.wrap(err, "failed to inspect container")
	}
	state := types.ContainerState{}
	if info.State != nil {
		state.Status = info.State.Status
		state.Running = info.State.Running
		state.Error = info.State.Error
		state.ExitCode = info.State.ExitCode
	}
	return state, nil
}

func (e *Client) StopContainer(ctx context.Context, id string, grace time.Duration) error {
	secs := int(grace.Seconds())
	if err := e.cli.ContainerStop(ctx, id, container.StopOptions{Timeout: &secs}); err != nil {
		return e.wrap(err, "failed to stop container")
	}
	return nil
}

func (e *Client) RemoveContainer(ctx context.Context, id string) error {
	err := e.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true})
	if err != nil {
		return e.wrap(err, "failed to remove container")
	}
	return nil
}

// ContainerLogs returns the last tail lines of the container's output,
// stdout and stderr folded together.
func (e *Client) ContainerLogs(ctx context.Context, id string, tail int) (string, error) {
	reader, err := e.cli.ContainerLogs(ctx, id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       strconv.Itoa(tail),
	})
	if err != nil {
		return "", e.wrap(err, "failed to read container logs")
	}
	defer reader.Close()

	var out strings.Builder
	if _, err := stdcopy.StdCopy(&out, &out, reader); err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to demultiplex container logs: %w", err)
	}
	return out.String(), nil
}

// OpenExec starts a non-interactive exec session. No TTY is allocated,
// so output arrives as stream-tagged frames the fleet demultiplexes.
func (e *Client) OpenExec(ctx context.Context, id string, cmd []string, opts types.ExecOptions) (*fleet.ExecStream, error) {
	created, err := e.cli.ContainerExecCreate(ctx, id, container.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
		Tty:          false,
		WorkingDir:   opts.WorkDir,
		Env:          opts.Env,
		User:         opts.User,
	})
	if err != nil {
		return nil, e.wrap(err, "failed to create exec")
	}

	attach, err := e.cli.ContainerExecAttach(ctx, created.ID, container.ExecStartOptions{})
	if err != nil {
		return nil, e.wrap(err, "failed to attach exec")
	}

	return &fleet.ExecStream{
		Reader:      attach.Reader,
		CloseFn:     attach.Close,
		Multiplexed: true,
	}, nil
}

// StartDetachedExec launches cmd without attaching; nothing is ever
// read back.
func (e *Client) StartDetachedExec(ctx context.Context, id string, cmd []string) error {
	created, err := e.cli.ContainerExecCreate(ctx, id, container.ExecOptions{
		Cmd:    cmd,
		Detach: true,
	})
	if err != nil {
		return e.wrap(err, "failed to create exec")
	}
	if err := e.cli.ContainerExecStart(ctx, created.ID, container.ExecStartOptions{Detach: true}); err != nil {
		return e.wrap(err, "failed to start exec")
	}
	return nil
}

func (e *Client) PutArchive(ctx context.Context, id string, dir string, content io.Reader) error {
	err := e.cli.CopyToContainer(ctx, id, dir, content, container.CopyToContainerOptions{})
	if err != nil {
		return e.wrap(err, "failed to upload archive")
	}
	return nil
}

func (e *Client) ListContainers(ctx context.Context, all bool) ([]types.ContainerSummary, error) {
	list, err := e.cli.ContainerList(ctx, container.ListOptions{All: all})
	if err != nil {
		return nil, e.wrap(err, "failed to list containers")
	}
	summaries := make([]types.ContainerSummary, 0, len(list))
	for _, c := range list {
		summaries = append(summaries, types.ContainerSummary{
			ID:     c.ID,
			Image:  c.Image,
			State:  c.State,
			Status: c.Status,
		})
	}
	return summaries, nil
}

func (e *Client) RemoveImage(ctx context.Context, tag string) error {
	_, err := e.cli.ImageRemove(ctx, tag, image.RemoveOptions{Force: true, PruneChildren: true})
	if err != nil {
		return e.wrap(err, "failed to remove image")
	}
	return nil
}

// PruneImages removes unused images: only dangling ones by default, or
// every unused image when all is set.
func (e *Client) PruneImages(ctx context.Context, all bool) error {
	pruneFilters := filters.NewArgs(filters.Arg("dangling", strconv.FormatBool(!all)))
	if _, err := e.cli.ImagesPrune(ctx, pruneFilters); err != nil {
		return e.wrap(err, "failed to prune images")
	}
	return nil
}

func (e *Client) PruneBuildCache(ctx context.Context) error {
	if _, err := e.cli.BuildCachePrune(ctx, dockertypes.BuildCachePruneOptions{}); err != nil {
		return e.wrap(err, "failed to prune build cache")
	}
	return nil
}

func (e *Client) PruneContainers(ctx context.Context) error {
	if _, err := e.cli.ContainersPrune(ctx, filters.Args{}); err != nil {
		return e.wrap(err, "failed to prune containers")
	}
	return nil
}

func (e *Client) PruneNetworks(ctx context.Context) error {
	if _, err := e.cli.NetworksPrune(ctx, filters.Args{}); err != nil {
		return e.wrap(err, "failed to prune networks")
	}
	return nil
}

// wrap annotates an engine error, folding daemon not-found responses
// into types.ErrNotFound so callers stay engine-agnostic.
func (e *Client) wrap(err error, msg string) error {
	if client.IsErrNotFound(err) {
		return fmt.Errorf("%s on %s: %w", msg, e.endpoint, types.ErrNotFound)
	}
	return fmt.Errorf("%s on %s: %w", msg, e.endpoint, err)
}
