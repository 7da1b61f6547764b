package platform

import "github.com/eugenetaranov/gantry/internal/transport"

// LaunchInfo describes a process to start on the target. After a successful
// Launch the resolved PID is readable from it.
type LaunchInfo struct {
	// Path is the executable to run on the target.
	Path string

	// Args are the arguments passed to the executable.
	Args []string

	// Env holds extra environment entries in KEY=VALUE form.
	Env []string

	// WorkingDir is the directory the process starts in. Empty means the
	// connection's working directory.
	WorkingDir string

	pid int
}

// PID returns the process id resolved by the last successful Launch, 0
// before that.
func (l *LaunchInfo) PID() int {
	return l.pid
}

// spec converts the launch info into the transport request shape.
func (l *LaunchInfo) spec() *transport.LaunchSpec {
	return &transport.LaunchSpec{
		Path:       l.Path,
		Args:       l.Args,
		Env:        l.Env,
		WorkingDir: l.WorkingDir,
		PID:        l.pid,
	}
}

// absorb writes transport-mutated fields back into the caller's value.
func (l *LaunchInfo) absorb(spec *transport.LaunchSpec) {
	l.pid = spec.PID
}
