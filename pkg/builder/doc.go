/*
Package builder builds sandbox images from local build contexts.

Builds run through the engine CLI (BuildKit enabled) instead of the
client library, with the target daemon selected via DOCKER_HOST per
attempt. Every output line streams to the log as it arrives, and the
last lines are kept for diagnostics on failure.

Failure handling follows a strict shape: a hard wall-clock ceiling
kills the build process and yields BuildTimeoutError; a failure whose
output matches a cache-corruption signature ("unknown parent image ID",
"no such image") gets exactly one no-cache retry after best-effort
cache cleanup; everything else is a terminal BuildError carrying the
exit code and output tail.
*/
package builder
