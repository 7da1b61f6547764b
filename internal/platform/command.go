package platform

import (
	"math"
	"time"
)

// InfiniteTimeout is the sentinel for "no timeout" at the seconds-based
// accessor boundary.
const InfiniteTimeout = math.MaxUint32

// ShellCommand holds both what to run and, after Run, what happened. A value
// may be reused across runs; each run overwrites the result fields.
type ShellCommand struct {
	shell      string
	command    string
	workingDir string
	timeout    *time.Duration

	output string
	status int
	signal int
}

// NewShellCommand creates a command spec for the given command line.
func NewShellCommand(command string) *ShellCommand {
	c := &ShellCommand{}
	c.SetCommand(command)
	return c
}

// NewShellCommandWithShell creates a command spec with an explicit
// interpreter.
func NewShellCommandWithShell(shell, command string) *ShellCommand {
	c := NewShellCommand(command)
	c.SetShell(shell)
	return c
}

// Clear resets output, status and signal so the spec can be reused. The
// shell, command, working directory and timeout are untouched.
func (c *ShellCommand) Clear() {
	c.output = ""
	c.status = 0
	c.signal = 0
}

// Shell returns the interpreter path, empty for the target default.
func (c *ShellCommand) Shell() string {
	return c.shell
}

// SetShell sets the interpreter path. Empty clears it.
func (c *ShellCommand) SetShell(shell string) {
	c.shell = shell
}

// Command returns the command line.
func (c *ShellCommand) Command() string {
	return c.command
}

// SetCommand sets the command line. Empty clears it.
func (c *ShellCommand) SetCommand(command string) {
	c.command = command
}

// WorkingDirectory returns the directory the command runs in. Run fills this
// in from the connection when it was left empty.
func (c *ShellCommand) WorkingDirectory() string {
	return c.workingDir
}

// SetWorkingDirectory sets the directory the command runs in. Empty defers
// to the connection's working directory at run time.
func (c *ShellCommand) SetWorkingDirectory(path string) {
	c.workingDir = path
}

// TimeoutSeconds returns the timeout in seconds, or InfiniteTimeout when no
// timeout is set.
func (c *ShellCommand) TimeoutSeconds() uint32 {
	if c.timeout == nil {
		return InfiniteTimeout
	}
	return uint32(*c.timeout / time.Second)
}

// SetTimeoutSeconds sets the timeout. InfiniteTimeout removes it.
func (c *ShellCommand) SetTimeoutSeconds(sec uint32) {
	if sec == InfiniteTimeout {
		c.timeout = nil
		return
	}
	d := time.Duration(sec) * time.Second
	c.timeout = &d
}

// timeoutDuration returns the timeout as a duration, zero meaning none.
func (c *ShellCommand) timeoutDuration() time.Duration {
	if c.timeout == nil {
		return 0
	}
	return *c.timeout
}

// Output returns the raw interleaved stdout+stderr of the last run.
func (c *ShellCommand) Output() string {
	return c.output
}

// Status returns the exit status of the last run.
func (c *ShellCommand) Status() int {
	return c.status
}

// Signal returns the terminating signal number of the last run, 0 if the
// process was not signaled.
func (c *ShellCommand) Signal() int {
	return c.signal
}

// setResult overwrites the result fields after an execution.
func (c *ShellCommand) setResult(output string, status, signal int) {
	c.output = output
	c.status = status
	c.signal = signal
}
