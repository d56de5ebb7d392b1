/*
Package engine implements fleet.Engine against the Docker Engine API.

One Client wraps one daemon endpoint. All daemon not-found responses
are folded into types.ErrNotFound so the fleet's idempotent teardown
paths never see docker-specific error types. Exec sessions are created
without a TTY, so output frames arrive stream-tagged for
demultiplexing; engines that only deliver combined output degrade to
everything-on-stdout at the fleet layer.
*/
package engine
