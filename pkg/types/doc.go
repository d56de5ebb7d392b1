/*
Package types holds the domain types and error taxonomy shared across
hutch packages.

Every failure a caller can act on is a distinct typed error:

  - InvalidBuildContextError: caller error, never retried
  - BuildError / BuildTimeoutError: terminal build failures
  - ContainerStartError: created but never running, carries diagnostics
  - ContainerNotFoundError: unknown id on every endpoint
  - ContainerNotRunningError: exec/copy against a stopped container
  - ExecTimeoutError: client read loop exceeded its bound

Match them with errors.As. ErrNotFound is the sentinel engine adapters
wrap so that teardown code can recognize already-gone resources without
depending on any particular engine client's error types.
*/
package types
