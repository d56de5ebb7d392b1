/*
Package fleet manages disposable sandbox containers across one or more
container-engine daemons on behalf of autonomous coding agents.

# Architecture

One Manager owns all shared state: the endpoint list, the per-endpoint
active-container counts, and the container→endpoint registry. A single
mutex serializes every mutation, which makes node selection and its
count increment one atomic step: two concurrent callers can never both
pick the same "least loaded" node and overshoot it.

	caller ──► selectAndReserve ──► build (pkg/builder, on that node)
	                │                      │
	             release ◄── any failure ──┘
	                                       │
	                              create / start / verify
	                                       │
	                              register + journal + return id

Callers then issue Exec / CopyFile / ExecBackground calls by container
id, and eventually Stop, which releases the reserved slot. Teardown is
idempotent: stopping a container the engine already removed succeeds
and releases the slot exactly once.

# Engine abstraction

The Manager consumes the Engine interface defined here; pkg/engine
implements it against the Docker Engine API. Engines are dialed lazily
per endpoint, so misconfigured addresses surface on first use rather
than at construction. Tests substitute fakes for both the engine and
the build step.

# Lifecycles and failure

A reservation is taken before any work and released on any build or
start failure, so capacity accounting stays correct under concurrent,
partially failing operations. A container that was created but never
reached running is left behind for pkg/reaper; the caller receives a
ContainerStartError carrying status, exit code and a log tail instead.

Exec timeouts bound the client read loop only. The remote command may
keep running after the client gives up; ExecTimeoutError therefore
means "remote state unknown".
*/
package fleet
