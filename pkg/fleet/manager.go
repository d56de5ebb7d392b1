package fleet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/hutchlabs/hutch/pkg/builder"
	"github.com/hutchlabs/hutch/pkg/log"
	"github.com/hutchlabs/hutch/pkg/metrics"
	"github.com/hutchlabs/hutch/pkg/types"
)

const (
	defaultStopGrace     = 10 * time.Second
	defaultSettleDelay   = 100 * time.Millisecond
	defaultPollInterval  = 250 * time.Millisecond
	defaultStartDeadline = 10 * time.Second
	startupLogTail       = 50
)

// BuildFunc builds the image for a run request on the given endpoint.
// The default is builder.New(...).Build; tests substitute their own.
type BuildFunc func(ctx context.Context, req types.BuildRequest, endpoint string, pruner builder.Pruner) error

// containerRecord tracks which endpoint owns a container. reserved is
// set for containers this manager started (and whose slot it must
// release on teardown); containers adopted via cross-endpoint lookup
// never held a reservation.
type containerRecord struct {
	node     int
	reserved bool
}

// Manager owns the endpoint registry, the container registry and the
// whole sandbox lifecycle. Construct one per process with NewManager
// and pass it by reference; Close it on every exit path.
type Manager struct {
	mu         sync.Mutex
	endpoints  []string
	engines    []Engine
	counts     []int
	containers map[string]containerRecord

	dial    DialFunc
	build   BuildFunc
	journal AssignmentJournal

	stopGrace     time.Duration
	settleDelay   time.Duration
	pollInterval  time.Duration
	startDeadline time.Duration
	execTimeout   time.Duration

	logger zerolog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithBuildFunc replaces the image build step.
func WithBuildFunc(fn BuildFunc) Option {
	return func(m *Manager) { m.build = fn }
}

// WithBuildTimeout sets the wall-clock ceiling on the default builder.
func WithBuildTimeout(d time.Duration) Option {
	return func(m *Manager) { m.build = builder.New(d).Build }
}

// WithJournal records container assignments in a durable journal.
func WithJournal(j AssignmentJournal) Option {
	return func(m *Manager) { m.journal = j }
}

// WithStopGrace sets how long containers get to stop before removal.
func WithStopGrace(d time.Duration) Option {
	return func(m *Manager) { m.stopGrace = d }
}

// WithStartPolicy tunes the post-start verification loop: an initial
// settle delay, then a status poll every interval until deadline.
func WithStartPolicy(settle, interval, deadline time.Duration) Option {
	return func(m *Manager) {
		m.settleDelay = settle
		m.pollInterval = interval
		m.startDeadline = deadline
	}
}

// WithExecTimeout sets the default bound applied to exec read loops
// when the caller does not pass one.
func WithExecTimeout(d time.Duration) Option {
	return func(m *Manager) { m.execTimeout = d }
}

// NewManager creates a manager for the given daemon endpoints. Engines
// are dialed lazily, so an unreachable endpoint only fails once an
// operation lands on it. An empty endpoint list means the local socket.
func NewManager(endpoints []string, dial DialFunc, opts ...Option) (*Manager, error) {
	if dial == nil {
		return nil, errors.New("fleet: dial function is required")
	}
	if len(endpoints) == 0 {
		endpoints = []string{types.DefaultEndpoint}
	}

	m := &Manager{
		endpoints:     append([]string(nil), endpoints...),
		engines:       make([]Engine, len(endpoints)),
		counts:        make([]int, len(endpoints)),
		containers:    make(map[string]containerRecord),
		dial:          dial,
		build:         builder.New(0).Build,
		stopGrace:     defaultStopGrace,
		settleDelay:   defaultSettleDelay,
		pollInterval:  defaultPollInterval,
		startDeadline: defaultStartDeadline,
		logger:        log.WithComponent("fleet"),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.logger.Info().
		Int("nodes", len(m.endpoints)).
		Strs("endpoints", m.endpoints).
		Msg("fleet manager initialized")

	return m, nil
}

// RunContainer builds the image described by contextDir on the least
// loaded endpoint, then creates, starts and verifies a sandbox
// container from it. The returned id is the engine-assigned container
// id. The reserved node slot stays held until Stop.
func (m *Manager) RunContainer(ctx context.Context, contextDir, imageName string) (string, error) {
	req, err := builder.Resolve(contextDir, imageName)
	if err != nil {
		return "", err
	}

	idx := m.selectAndReserve()
	endpoint := m.endpoints[idx]
	logger := m.logger.With().Str("endpoint", endpoint).Str("image", req.Image).Logger()
	logger.Debug().Int("active", m.ActiveCount(idx)).Msg("selected node")

	eng, err := m.EngineAt(idx)
	if err != nil {
		m.release(idx)
		return "", fmt.Errorf("failed to connect to %s: %w", endpoint, err)
	}

	if err := m.build(ctx, req, endpoint, eng); err != nil {
		m.release(idx)
		return "", err
	}

	id, err := m.startSandbox(ctx, eng, endpoint, req.Image)
	if err != nil {
		m.release(idx)
		logger.Error().Err(err).Msg("container failed to start")
		return "", err
	}

	m.mu.Lock()
	m.containers[id] = containerRecord{node: idx, reserved: true}
	m.mu.Unlock()

	if m.journal != nil {
		if jerr := m.journal.Record(id, endpoint); jerr != nil {
			logger.Warn().Err(jerr).Str("container_id", id).Msg("failed to journal assignment")
		}
	}

	metrics.ContainersStartedTotal.Inc()
	logger.Debug().Str("container_id", id).Msg("container started")
	return id, nil
}

// startSandbox creates and starts one container and waits for it to
// reach running. On verification failure the container is left behind
// for the reaper; only the diagnostics travel back.
func (m *Manager) startSandbox(ctx context.Context, eng Engine, endpoint, image string) (string, error) {
	id, err := eng.CreateContainer(ctx, image)
	if err != nil {
		return "", &types.ContainerStartError{
			Endpoint: endpoint,
			Status:   "create failed",
			Reason:   err.Error(),
		}
	}

	if err := eng.StartContainer(ctx, id); err != nil {
		return "", &types.ContainerStartError{
			ContainerID: id,
			Endpoint:    endpoint,
			Status:      "start failed",
			Reason:      err.Error(),
		}
	}

	state, err := m.awaitRunning(ctx, eng, id)
	if err != nil {
		return "", err
	}
	if !state.Running {
		return "", m.startFailure(ctx, eng, endpoint, id, state)
	}
	return id, nil
}

// awaitRunning polls container status until it is running, reaches a
// terminal state, or the deadline passes. The fixed settle-then-check
// of older setups false-negatives on slow images; polling does not.
func (m *Manager) awaitRunning(ctx context.Context, eng Engine, id string) (types.ContainerState, error) {
	deadline := time.Now().Add(m.startDeadline)

	select {
	case <-time.After(m.settleDelay):
	case <-ctx.Done():
		return types.ContainerState{}, ctx.Err()
	}

	for {
		state, err := eng.InspectContainer(ctx, id)
		if err != nil {
			return types.ContainerState{}, fmt.Errorf("failed to inspect container %s: %w", id, err)
		}
		if state.Running || state.Terminal() || time.Now().After(deadline) {
			return state, nil
		}

		select {
		case <-time.After(m.pollInterval):
		case <-ctx.Done():
			return types.ContainerState{}, ctx.Err()
		}
	}
}

// startFailure gathers diagnostics for a container that never reached
// running. Log retrieval is best effort.
func (m *Manager) startFailure(ctx context.Context, eng Engine, endpoint, id string, state types.ContainerState) error {
	logs, err := eng.ContainerLogs(ctx, id, startupLogTail)
	if err != nil {
		m.logger.Warn().Err(err).Str("container_id", id).Msg("could not retrieve container logs")
		logs = ""
	}
	return &types.ContainerStartError{
		ContainerID: id,
		Endpoint:    endpoint,
		Status:      state.Status,
		Reason:      state.Error,
		ExitCode:    state.ExitCode,
		Logs:        logs,
	}
}

// Lookup resolves a container id to its owning endpoint, probing every
// endpoint for ids this manager has not seen. Probe hits are cached; a
// miss everywhere purges any stale cache entry.
func (m *Manager) Lookup(ctx context.Context, id string) (int, Engine, error) {
	m.mu.Lock()
	rec, ok := m.containers[id]
	m.mu.Unlock()

	if ok {
		eng, err := m.EngineAt(rec.node)
		return rec.node, eng, err
	}

	for i := range m.endpoints {
		eng, err := m.EngineAt(i)
		if err != nil {
			m.logger.Warn().Err(err).Str("endpoint", m.endpoints[i]).Msg("endpoint unreachable during lookup")
			continue
		}
		if _, err := eng.InspectContainer(ctx, id); err == nil {
			m.mu.Lock()
			m.containers[id] = containerRecord{node: i}
			m.mu.Unlock()
			return i, eng, nil
		}
	}

	m.mu.Lock()
	delete(m.containers, id)
	m.mu.Unlock()
	return 0, nil, &types.ContainerNotFoundError{ID: id}
}

// Stop tears a container down: stop with grace, then force-remove.
// Already-gone containers count as success, so Stop is idempotent. On
// success the owning node's slot is released exactly once.
func (m *Manager) Stop(ctx context.Context, id string) error {
	idx, eng, err := m.Lookup(ctx, id)
	if err != nil {
		var notFound *types.ContainerNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}

	if err := eng.StopContainer(ctx, id, m.stopGrace); err != nil && !errors.Is(err, types.ErrNotFound) {
		m.logger.Debug().Err(err).Str("container_id", id).Msg("stop failed, forcing removal")
	}
	if err := eng.RemoveContainer(ctx, id); err != nil && !errors.Is(err, types.ErrNotFound) {
		m.logger.Debug().Err(err).Str("container_id", id).Msg("remove failed")
	}

	m.mu.Lock()
	if rec, ok := m.containers[id]; ok {
		delete(m.containers, id)
		if rec.reserved {
			m.counts[idx]--
			metrics.EndpointActiveContainers.WithLabelValues(m.endpoints[idx]).Set(float64(m.counts[idx]))
		}
	}
	m.mu.Unlock()

	if m.journal != nil {
		if jerr := m.journal.Forget(id); jerr != nil {
			m.logger.Warn().Err(jerr).Str("container_id", id).Msg("failed to clear journal entry")
		}
	}
	return nil
}

// TrackedContainers returns the ids currently in the registry.
func (m *Manager) TrackedContainers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.containers))
	for id := range m.containers {
		ids = append(ids, id)
	}
	return ids
}

// CleanupAll stops and removes every tracked container concurrently.
// Per-container failures are collected, never aborting the batch.
func (m *Manager) CleanupAll(ctx context.Context) error {
	ids := m.TrackedContainers()

	var (
		g    errgroup.Group
		errL sync.Mutex
		errs []error
	)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if err := m.Stop(ctx, id); err != nil {
				m.logger.Error().Err(err).Str("container_id", id).Msg("cleanup failed")
				errL.Lock()
				errs = append(errs, fmt.Errorf("container %s: %w", id, err))
				errL.Unlock()
				return nil
			}
			metrics.CleanupRemovedTotal.Inc()
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Close releases every dialed engine client. It does not tear down
// running containers; callers wanting that run CleanupAll first.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	for i, eng := range m.engines {
		if eng == nil {
			continue
		}
		if err := eng.Close(); err != nil {
			errs = append(errs, fmt.Errorf("endpoint %s: %w", m.endpoints[i], err))
		}
		m.engines[i] = nil
	}
	return errors.Join(errs...)
}
