// Package transport defines the interface between the platform layer and the
// machinery that actually reaches an execution target.
package transport

import (
	"context"
	"time"
)

// ExecRequest describes one shell invocation on the target.
type ExecRequest struct {
	// Shell is the interpreter to run the command with. Empty means the
	// target's default shell.
	Shell string

	// Command is the command line handed to the interpreter.
	Command string

	// WorkingDir is the directory the command runs in. Empty means the
	// target's current working directory.
	WorkingDir string

	// Timeout bounds the execution. Zero means no limit; the transport is
	// responsible for killing the process when the limit is hit.
	Timeout time.Duration
}

// ExecResult holds the outcome of a shell invocation.
type ExecResult struct {
	// Output is the raw interleaved stdout+stderr stream.
	Output string

	// Status is the process exit status.
	Status int

	// Signal is the number of the signal that terminated the process,
	// or 0 if it exited normally.
	Signal int
}

// LaunchSpec describes a process to start on the target. The transport
// fills in PID once the process is running.
type LaunchSpec struct {
	Path       string
	Args       []string
	Env        []string
	WorkingDir string
	PID        int
}

// Transport is the interface for reaching and driving a target system.
// Implementations are not safe for concurrent use; callers serialize.
type Transport interface {
	// Connect establishes a session with the target addressed by url.
	Connect(ctx context.Context, url string) error

	// Disconnect tears the session down. Safe to call when not connected.
	Disconnect() error

	// Connected reports whether a live session exists.
	Connected() bool

	// Exec runs a shell command on the target and blocks until it finishes
	// or times out.
	Exec(ctx context.Context, req ExecRequest) (*ExecResult, error)

	// Fetch copies a file from the target to the local machine.
	Fetch(ctx context.Context, remoteSrc, localDst string) error

	// Upload copies a local file to the target with the given permission
	// bits.
	Upload(ctx context.Context, localSrc, remoteDst string, permissions uint32) error

	// Install places a local file or directory tree onto the target,
	// recursing into directories.
	Install(ctx context.Context, localSrc, remoteDst string) error

	// Launch starts a process on the target and writes the resolved PID
	// back into spec.
	Launch(ctx context.Context, spec *LaunchSpec) error

	// Kill terminates a process on the target.
	Kill(ctx context.Context, pid int) error

	// MakeDirectory creates a directory (and missing parents) on the target.
	MakeDirectory(ctx context.Context, path string, permissions uint32) error

	// FilePermissions returns the permission bits of a path on the target.
	FilePermissions(ctx context.Context, path string) (uint32, error)

	// SetFilePermissions changes the permission bits of a path on the target.
	SetFilePermissions(ctx context.Context, path string, permissions uint32) error

	// WorkingDirectory returns the session's current working directory.
	WorkingDirectory() string

	// SetWorkingDirectory changes the session's working directory. An empty
	// path resets it to the transport's default.
	SetWorkingDirectory(path string)

	// String returns a human-readable description of the target.
	String() string
}

// RsyncSettings configures bulk-transfer acceleration for transports that
// support it.
type RsyncSettings struct {
	// Options is the raw option string passed to the rsync binary.
	Options string

	// RemotePathPrefix is prepended to remote destination paths.
	RemotePathPrefix string

	// OmitHostname drops the host part from the remote rsync path.
	OmitHostname bool

	// LocalCacheDir is where fetched files are staged locally.
	LocalCacheDir string
}

// RsyncCapable is implemented by transports that can accelerate file
// transfer with rsync.
type RsyncCapable interface {
	ConfigureRsync(RsyncSettings)
	DisableRsync()
}
