package fleet

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/docker/pkg/stdcopy"

	"github.com/hutchlabs/hutch/pkg/metrics"
	"github.com/hutchlabs/hutch/pkg/types"
)

// Exec runs a shell command inside a running container and returns its
// demultiplexed output. The command is wrapped in `bash -c` so
// pipelines and redirection behave as callers expect.
//
// opts.Timeout bounds the whole read loop, not just the spawn: a
// command that starts and then hangs still fails within the bound. The
// remote process is not signalled on timeout, so ExecTimeoutError means
// "remote state unknown", not "command was killed".
func (m *Manager) Exec(ctx context.Context, id, command string, opts types.ExecOptions) (types.ExecResult, error) {
	_, eng, err := m.Lookup(ctx, id)
	if err != nil {
		return types.ExecResult{}, err
	}

	state, err := eng.InspectContainer(ctx, id)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			m.forget(id)
			return types.ExecResult{}, &types.ContainerNotFoundError{ID: id}
		}
		return types.ExecResult{}, fmt.Errorf("failed to check container status: %w", err)
	}
	if !state.Running {
		return types.ExecResult{}, &types.ContainerNotRunningError{ID: id, Status: state.Status}
	}

	stream, err := eng.OpenExec(ctx, id, []string{"bash", "-c", command}, opts)
	if err != nil {
		metrics.ExecsTotal.WithLabelValues("error").Inc()
		return types.ExecResult{}, fmt.Errorf("failed to start exec: %w", err)
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = m.execTimeout
	}

	var stdout, stderr bytes.Buffer
	done := make(chan error, 1)
	go func() {
		done <- drainExecStream(stream, &stdout, &stderr)
	}()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case err := <-done:
		stream.Close()
		if err != nil {
			metrics.ExecsTotal.WithLabelValues("error").Inc()
			return types.ExecResult{}, fmt.Errorf("failed to read exec output: %w", err)
		}
	case <-expired:
		// Abandon the read loop. The buffers stay with the reader
		// goroutine; partial output is not returned.
		stream.Close()
		metrics.ExecsTotal.WithLabelValues("timeout").Inc()
		return types.ExecResult{}, &types.ExecTimeoutError{ContainerID: id, After: timeout}
	case <-ctx.Done():
		stream.Close()
		metrics.ExecsTotal.WithLabelValues("canceled").Inc()
		return types.ExecResult{}, ctx.Err()
	}

	metrics.ExecsTotal.WithLabelValues("success").Inc()
	return types.ExecResult{
		Stdout: decodePermissive(stdout.Bytes()),
		Stderr: decodePermissive(stderr.Bytes()),
	}, nil
}

// ExecBackground fires a detached, nohup-wrapped command and returns
// immediately. Launch failures are logged, never raised: the contract
// is fire-and-forget, and no synchronous caller exists to report to.
func (m *Manager) ExecBackground(ctx context.Context, id, command string) {
	logger := m.logger.With().Str("container_id", id).Logger()

	_, eng, err := m.Lookup(ctx, id)
	if err != nil {
		logger.Error().Err(err).Msg("failed to start background command")
		return
	}

	wrapped := fmt.Sprintf("nohup %s > /dev/null 2>&1 &", command)
	if err := eng.StartDetachedExec(ctx, id, []string{"bash", "-c", wrapped}); err != nil {
		logger.Error().Err(err).Msg("failed to start background command")
		return
	}
	logger.Debug().Msg("background command launched")
}

// drainExecStream reads frames until the stream ends. Tagged frames are
// routed by stream number; untagged legacy streams fold into stdout.
func drainExecStream(stream *ExecStream, stdout, stderr *bytes.Buffer) error {
	var err error
	if stream.Multiplexed {
		_, err = stdcopy.StdCopy(stdout, stderr, stream.Reader)
	} else {
		_, err = io.Copy(stdout, stream.Reader)
	}
	if err == io.EOF {
		return nil
	}
	return err
}

// decodePermissive converts raw bytes to a string, replacing
// undecodable sequences instead of failing.
func decodePermissive(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}

// forget drops a stale registry entry for an id the engine no longer
// knows.
func (m *Manager) forget(id string) {
	m.mu.Lock()
	delete(m.containers, id)
	m.mu.Unlock()
}
