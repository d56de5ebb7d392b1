package types

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is wrapped by engine adapters whenever the daemon reports
// that a container, image or exec session no longer exists. Teardown
// paths treat it as success.
var ErrNotFound = errors.New("not found")

// InvalidBuildContextError reports a build context the caller handed us
// that cannot possibly build: missing directory or missing Dockerfile.
// It is a caller error and is never retried.
type InvalidBuildContextError struct {
	Dir    string
	Reason string
}

func (e *InvalidBuildContextError) Error() string {
	return fmt.Sprintf("invalid build context %s: %s", e.Dir, e.Reason)
}

// BuildError is a terminal build failure: non-zero exit from the build
// process, after the single cache-corruption retry if one applied.
type BuildError struct {
	Image    string
	Endpoint string
	ExitCode int
	Output   string // tail of the build output, for diagnostics
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build of %s on %s failed with exit code %d", e.Image, e.Endpoint, e.ExitCode)
}

// BuildTimeoutError reports a build that exceeded the wall-clock ceiling
// and was killed.
type BuildTimeoutError struct {
	Image    string
	Endpoint string
	After    time.Duration
}

func (e *BuildTimeoutError) Error() string {
	return fmt.Sprintf("build of %s on %s timed out after %s", e.Image, e.Endpoint, e.After)
}

// ContainerStartError reports a container that was created but never
// reached the running state. It carries enough diagnostics that the
// caller does not have to re-query the engine. The container itself is
// left behind for the reaper.
type ContainerStartError struct {
	ContainerID string
	Endpoint    string
	Status      string
	Reason      string
	ExitCode    int
	Logs        string // last ~50 lines, best effort
}

func (e *ContainerStartError) Error() string {
	msg := fmt.Sprintf("container %s failed to start on %s: status %q", e.ContainerID, e.Endpoint, e.Status)
	if e.Reason != "" {
		msg += ", error: " + e.Reason
	}
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(", exit code %d", e.ExitCode)
	}
	return msg
}

// ContainerNotFoundError reports a container id unknown to every
// configured endpoint.
type ContainerNotFoundError struct {
	ID string
}

func (e *ContainerNotFoundError) Error() string {
	return fmt.Sprintf("container %s not found on any endpoint", e.ID)
}

// ContainerNotRunningError reports an exec or copy attempted against a
// container whose live status is not running.
type ContainerNotRunningError struct {
	ID     string
	Status string
}

func (e *ContainerNotRunningError) Error() string {
	return fmt.Sprintf("container %s is not running (status %q)", e.ID, e.Status)
}

// ExecTimeoutError reports a read loop that exceeded the caller's bound.
// The remote command may still be running: callers must treat this as
// "remote state unknown", not "command was killed".
type ExecTimeoutError struct {
	ContainerID string
	After       time.Duration
}

func (e *ExecTimeoutError) Error() string {
	return fmt.Sprintf("exec in container %s timed out after %s", e.ContainerID, e.After)
}
