package builder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hutchlabs/hutch/pkg/log"
	"github.com/hutchlabs/hutch/pkg/metrics"
	"github.com/hutchlabs/hutch/pkg/types"
)

// DefaultTimeout is the wall-clock ceiling on a single build attempt.
const DefaultTimeout = 600 * time.Second

// outputTailLines bounds the build output kept for error diagnostics.
const outputTailLines = 50

// corruptionSignatures are the engine error texts that indicate a
// corrupted build cache. A build failing with one of these gets a
// single no-cache retry after best-effort cache cleanup.
var corruptionSignatures = []string{
	"unknown parent image ID",
	"no such image",
}

// Pruner is the cleanup surface the builder needs between a corrupted
// build and its retry. fleet.Engine satisfies it.
type Pruner interface {
	RemoveImage(ctx context.Context, tag string) error
	PruneImages(ctx context.Context, all bool) error
	PruneBuildCache(ctx context.Context) error
}

// Builder runs image builds through the engine's CLI rather than the
// client library, for BuildKit cache features the library lacks. The
// target daemon is bound per attempt via DOCKER_HOST.
type Builder struct {
	// Bin is the engine CLI binary. Default "docker".
	Bin string

	// Timeout is the per-attempt wall-clock ceiling. On expiry the
	// build process is killed.
	Timeout time.Duration

	logger zerolog.Logger
}

// New creates a Builder. A non-positive timeout means DefaultTimeout.
func New(timeout time.Duration) *Builder {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Builder{
		Bin:     "docker",
		Timeout: timeout,
		logger:  log.WithComponent("builder"),
	}
}

// Resolve validates a build context and fills in the default image
// name (the base name of the absolute context directory).
func Resolve(contextDir, image string) (types.BuildRequest, error) {
	info, err := os.Stat(contextDir)
	if err != nil || !info.IsDir() {
		return types.BuildRequest{}, &types.InvalidBuildContextError{
			Dir:    contextDir,
			Reason: "directory does not exist",
		}
	}
	if _, err := os.Stat(filepath.Join(contextDir, "Dockerfile")); err != nil {
		return types.BuildRequest{}, &types.InvalidBuildContextError{
			Dir:    contextDir,
			Reason: "no Dockerfile found",
		}
	}

	if image == "" {
		abs, err := filepath.Abs(contextDir)
		if err != nil {
			return types.BuildRequest{}, fmt.Errorf("failed to resolve build context path: %w", err)
		}
		image = filepath.Base(abs)
	}

	return types.BuildRequest{ContextDir: contextDir, Image: image}, nil
}

// Build builds req.Image from req.ContextDir on the daemon at endpoint.
// A failure carrying a cache-corruption signature triggers exactly one
// retry with caching disabled, after best-effort removal of the stale
// image and dangling cache; any other failure propagates immediately.
func (b *Builder) Build(ctx context.Context, req types.BuildRequest, endpoint string, pruner Pruner) error {
	buildID := uuid.New().String()[:8]
	logger := b.logger.With().
		Str("build_id", buildID).
		Str("image", req.Image).
		Str("endpoint", endpoint).
		Logger()

	start := time.Now()
	logger.Debug().Msg("building image with cache")
	err := b.buildOnce(ctx, req, endpoint, logger)
	if err != nil && isCacheCorruption(err) {
		logger.Warn().Err(err).Msg("build cache corrupted, rebuilding without cache")
		b.cleanCorruptCache(ctx, req.Image, pruner, logger)
		metrics.BuildRetriesTotal.Inc()

		retry := req
		retry.NoCache = true
		err = b.buildOnce(ctx, retry, endpoint, logger)
	}

	metrics.BuildDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		var timeoutErr *types.BuildTimeoutError
		if errors.As(err, &timeoutErr) {
			metrics.BuildsTotal.WithLabelValues("timeout").Inc()
		} else {
			metrics.BuildsTotal.WithLabelValues("failure").Inc()
		}
		logger.Error().Err(err).Msg("build failed")
		return err
	}

	metrics.BuildsTotal.WithLabelValues("success").Inc()
	logger.Debug().Dur("elapsed", time.Since(start)).Msg("build completed")
	return nil
}

// buildOnce runs a single CLI build attempt, streaming output lines to
// the log and enforcing the wall-clock ceiling by killing the process.
func (b *Builder) buildOnce(ctx context.Context, req types.BuildRequest, endpoint string, logger zerolog.Logger) error {
	args := []string{"build", "-t", req.Image}
	if req.NoCache {
		args = append(args, "--no-cache")
	}
	args = append(args, "--rm", "--force-rm", req.ContextDir)

	bctx, cancel := context.WithTimeout(ctx, b.Timeout)
	defer cancel()

	cmd := exec.CommandContext(bctx, b.Bin, args...)
	cmd.Env = append(os.Environ(),
		"DOCKER_BUILDKIT=1",
		"DOCKER_HOST="+endpoint,
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open build stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to open build stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start build process: %w", err)
	}

	tail := newTailBuffer(outputTailLines)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			tail.add(line)
			logger.Debug().Msg(line)
		}
	}()
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			tail.add(line)
			logger.Debug().Bool("stderr", true).Msg(line)
		}
	}()
	wg.Wait()

	err = cmd.Wait()
	if bctx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		return &types.BuildTimeoutError{Image: req.Image, Endpoint: endpoint, After: b.Timeout}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return &types.BuildError{
			Image:    req.Image,
			Endpoint: endpoint,
			ExitCode: exitCode,
			Output:   tail.String(),
		}
	}
	return nil
}

// cleanCorruptCache removes the possibly corrupted image and prunes
// dangling images and build cache before the no-cache retry. Errors
// here are logged, never fatal.
func (b *Builder) cleanCorruptCache(ctx context.Context, image string, pruner Pruner, logger zerolog.Logger) {
	if pruner == nil {
		return
	}
	if err := pruner.RemoveImage(ctx, image); err != nil {
		logger.Debug().Err(err).Msg("could not remove image")
	}
	if err := pruner.PruneImages(ctx, false); err != nil {
		logger.Debug().Err(err).Msg("could not prune dangling images")
	}
	if err := pruner.PruneBuildCache(ctx); err != nil {
		logger.Debug().Err(err).Msg("could not prune build cache")
	}
}

// isCacheCorruption matches the engine's cache-corruption signatures in
// a build failure's captured output.
func isCacheCorruption(err error) bool {
	var buildErr *types.BuildError
	if !errors.As(err, &buildErr) {
		return false
	}
	for _, sig := range corruptionSignatures {
		if strings.Contains(buildErr.Output, sig) {
			return true
		}
	}
	return false
}

// tailBuffer keeps the last n lines written to it.
type tailBuffer struct {
	mu    sync.Mutex
	lines []string
	max   int
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (t *tailBuffer) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > t.max {
		t.lines = t.lines[len(t.lines)-t.max:]
	}
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lines, "\n")
}
