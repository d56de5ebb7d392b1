package reaper

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/hutchlabs/hutch/pkg/fleet"
	"github.com/hutchlabs/hutch/pkg/log"
	"github.com/hutchlabs/hutch/pkg/metrics"
	"github.com/hutchlabs/hutch/pkg/storage"
	"github.com/hutchlabs/hutch/pkg/types"
)

// Reaper performs bulk and engine-wide cleanup for a fleet. It is
// meant to run between batches of work, not per request.
type Reaper struct {
	manager *fleet.Manager
	journal *storage.Store // may be nil
	logger  zerolog.Logger
}

// New creates a Reaper. journal may be nil, in which case orphan
// recovery is unavailable.
func New(m *fleet.Manager, journal *storage.Store) *Reaper {
	return &Reaper{
		manager: m,
		journal: journal,
		logger:  log.WithComponent("reaper"),
	}
}

// CleanupAll stops and removes every container the manager tracks.
// Per-container errors are collected, never aborting the batch.
func (r *Reaper) CleanupAll(ctx context.Context) error {
	return r.manager.CleanupAll(ctx)
}

// SystemCleanup runs engine-wide maintenance on every endpoint:
// removes exited and dead containers, prunes all unused networks,
// prunes all unused images (not just dangling ones; images are rebuilt
// on demand from their build contexts), and prunes the build
// cache. Each step is independent; a failure in one never blocks the
// others.
func (r *Reaper) SystemCleanup(ctx context.Context) error {
	var g errgroup.Group

	for i, endpoint := range r.manager.Endpoints() {
		i, endpoint := i, endpoint
		g.Go(func() error {
			eng, err := r.manager.EngineAt(i)
			if err != nil {
				r.logger.Error().Err(err).Str("endpoint", endpoint).Msg("endpoint unreachable, skipping cleanup")
				return nil
			}
			logger := r.logger.With().Str("endpoint", endpoint).Logger()

			if err := eng.PruneContainers(ctx); err != nil {
				logger.Error().Err(err).Msg("container prune failed")
			}
			if err := eng.PruneNetworks(ctx); err != nil {
				logger.Error().Err(err).Msg("network prune failed")
			}
			if err := eng.PruneImages(ctx, true); err != nil {
				logger.Error().Err(err).Msg("image prune failed")
			}
			if err := eng.PruneBuildCache(ctx); err != nil {
				logger.Error().Err(err).Msg("build cache prune failed")
			}

			logger.Debug().Msg("engine cleanup completed")
			return nil
		})
	}

	return g.Wait()
}

// ReapOrphans removes containers recorded in the assignment journal
// but no longer tracked by the live manager: sandboxes a crashed or
// earlier process left behind. Already-gone containers just lose their
// journal entry.
func (r *Reaper) ReapOrphans(ctx context.Context) error {
	if r.journal == nil {
		return nil
	}

	assignments, err := r.journal.List()
	if err != nil {
		return err
	}

	tracked := make(map[string]bool)
	for _, id := range r.manager.TrackedContainers() {
		tracked[id] = true
	}

	endpoints := r.manager.Endpoints()
	index := make(map[string]int, len(endpoints))
	for i, ep := range endpoints {
		index[ep] = i
	}

	var errs []error
	for id, endpoint := range assignments {
		if tracked[id] {
			continue
		}
		logger := r.logger.With().Str("container_id", id).Str("endpoint", endpoint).Logger()

		idx, ok := index[endpoint]
		if !ok {
			logger.Warn().Msg("journaled endpoint no longer configured, dropping entry")
			r.forget(id)
			continue
		}

		eng, err := r.manager.EngineAt(idx)
		if err != nil {
			logger.Error().Err(err).Msg("endpoint unreachable, keeping journal entry")
			errs = append(errs, err)
			continue
		}

		if err := eng.RemoveContainer(ctx, id); err != nil && !errors.Is(err, types.ErrNotFound) {
			logger.Error().Err(err).Msg("failed to remove orphan")
			errs = append(errs, err)
			continue
		}

		logger.Info().Msg("orphaned container removed")
		metrics.CleanupRemovedTotal.Inc()
		r.forget(id)
	}

	return errors.Join(errs...)
}

func (r *Reaper) forget(id string) {
	if err := r.journal.Forget(id); err != nil {
		r.logger.Warn().Err(err).Str("container_id", id).Msg("failed to clear journal entry")
	}
}
