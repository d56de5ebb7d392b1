/*
Package metrics exposes prometheus instrumentation for the fleet:
per-endpoint active container gauges, build and exec counters by result,
build durations and cleanup counts. Metrics register on import; Serve
exposes them on /metrics when a listen address is configured.
*/
package metrics
