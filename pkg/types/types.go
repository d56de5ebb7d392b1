package types

import "time"

// DefaultEndpoint is used when no daemon endpoints are configured.
const DefaultEndpoint = "unix:///var/run/docker.sock"

// BuildRequest describes an image build from a local build context.
type BuildRequest struct {
	// ContextDir is the directory holding the Dockerfile and everything it
	// references. It must exist before the build is attempted.
	ContextDir string

	// Image is the tag for the built image. Empty means the base name of
	// the absolute context directory.
	Image string

	// NoCache disables the build cache for this attempt.
	NoCache bool
}

// ContainerState is the subset of an engine inspect response the fleet
// cares about.
type ContainerState struct {
	Status   string // "created", "running", "exited", "dead", ...
	Running  bool
	Error    string
	ExitCode int
}

// Terminal reports whether the container can no longer reach running
// without being restarted.
func (s ContainerState) Terminal() bool {
	return s.Status == "exited" || s.Status == "dead"
}

// ContainerSummary is one row of an engine-side container listing.
type ContainerSummary struct {
	ID     string
	Image  string
	State  string
	Status string
}

// ExecOptions carries the optional knobs for a command execution.
type ExecOptions struct {
	// Timeout bounds the whole read loop, not just process spawn. Zero
	// means no client-side bound.
	Timeout time.Duration

	WorkDir string
	Env     []string
	User    string
}

// ExecResult holds the demultiplexed output of a completed execution.
// Stdout and stderr are never merged.
type ExecResult struct {
	Stdout string
	Stderr string
}
