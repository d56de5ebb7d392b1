/*
Package reaper removes stale fleet resources.

Three levels of aggression: CleanupAll tears down the containers the
live manager tracks; ReapOrphans removes containers journaled by a
process that is no longer alive; SystemCleanup prunes engine-wide
(dead containers, unused networks, all unused images and the build
cache) on every endpoint. System cleanup is deliberately broad because
sandbox images are always rebuildable from their build contexts.
*/
package reaper
