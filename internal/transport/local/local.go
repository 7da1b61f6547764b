// Package local provides a transport for the caller's own machine. It backs
// the host platform identity and is treated as permanently connected.
package local

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/eugenetaranov/gantry/internal/transport"
)

// Transport executes operations on the local machine.
type Transport struct {
	shell      string
	shellArgs  []string
	workingDir string
}

// Option configures the local transport.
type Option func(*Transport)

// WithShell sets a custom default shell for command execution.
func WithShell(shell string, args ...string) Option {
	return func(t *Transport) {
		t.shell = shell
		t.shellArgs = args
	}
}

// New creates a new local transport.
func New(opts ...Option) *Transport {
	t := &Transport{}

	// Set default shell based on OS
	switch runtime.GOOS {
	case "windows":
		t.shell = "cmd"
		t.shellArgs = []string{"/C"}
	default:
		t.shell = "/bin/sh"
		t.shellArgs = []string{"-c"}
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Connect is a no-op: the local machine is always reachable.
func (t *Transport) Connect(ctx context.Context, url string) error {
	switch runtime.GOOS {
	case "darwin", "linux":
		return nil
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// Disconnect is a no-op for local targets.
func (t *Transport) Disconnect() error {
	return nil
}

// Connected always reports true: there is no session to lose.
func (t *Transport) Connected() bool {
	return true
}

// Exec runs a command locally and returns the combined output, exit status
// and terminating signal.
func (t *Transport) Exec(ctx context.Context, req transport.ExecRequest) (*transport.ExecResult, error) {
	shell := t.shell
	shellArgs := t.shellArgs
	if req.Shell != "" {
		shell = req.Shell
		shellArgs = []string{"-c"}
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	args := append(append([]string{}, shellArgs...), req.Command)
	cmd := exec.CommandContext(ctx, shell, args...)
	cmd.Dir = t.resolveDir(req.WorkingDir)

	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	err := cmd.Run()

	result := &transport.ExecResult{
		Output: combined.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.Status = exitErr.ExitCode()
			if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
				result.Signal = int(ws.Signal())
				result.Status = -1
			}
			if ctx.Err() == context.DeadlineExceeded {
				return result, fmt.Errorf("command timed out after %s", req.Timeout)
			}
			// A non-zero exit is data, not a transport failure.
			return result, nil
		}
		// Command failed to start
		return nil, fmt.Errorf("failed to execute command: %w", err)
	}

	return result, nil
}

// resolveDir picks the directory a command or transfer runs against.
func (t *Transport) resolveDir(dir string) string {
	if dir != "" {
		return dir
	}
	return t.workingDir
}

// Fetch copies a file from src to dst. Both live on the local machine.
func (t *Transport) Fetch(ctx context.Context, remoteSrc, localDst string) error {
	return copyFile(ctx, remoteSrc, localDst, 0)
}

// Upload copies a local file to dst with the given permission bits.
func (t *Transport) Upload(ctx context.Context, localSrc, remoteDst string, permissions uint32) error {
	return copyFile(ctx, localSrc, remoteDst, os.FileMode(permissions))
}

// Install places a file or directory tree at dst, preserving source modes.
func (t *Transport) Install(ctx context.Context, localSrc, remoteDst string) error {
	info, err := os.Stat(localSrc)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", localSrc, err)
	}

	if !info.IsDir() {
		return copyFile(ctx, localSrc, remoteDst, info.Mode().Perm())
	}

	return filepath.Walk(localSrc, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(localSrc, path)
		if err != nil {
			return err
		}
		target := filepath.Join(remoteDst, rel)
		if fi.IsDir() {
			return os.MkdirAll(target, fi.Mode().Perm())
		}
		return copyFile(ctx, path, target, fi.Mode().Perm())
	})
}

// copyFile copies src to dst. A zero mode keeps the destination default.
func copyFile(ctx context.Context, src, dst string, mode os.FileMode) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", src, err)
	}
	defer in.Close()

	if mode == 0 {
		mode = 0644
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to write to %s: %w", dst, err)
	}

	return nil
}

// Launch starts a detached process and records its PID in spec.
func (t *Transport) Launch(ctx context.Context, spec *transport.LaunchSpec) error {
	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Dir = t.resolveDir(spec.WorkingDir)
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to launch %s: %w", spec.Path, err)
	}
	spec.PID = cmd.Process.Pid

	// Reap the child in the background so it doesn't linger as a zombie.
	go func() { _ = cmd.Wait() }()

	return nil
}

// Kill terminates a local process.
func (t *Transport) Kill(ctx context.Context, pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("process %d not found: %w", pid, err)
	}
	if err := proc.Kill(); err != nil {
		return fmt.Errorf("failed to kill process %d: %w", pid, err)
	}
	return nil
}

// MakeDirectory creates a directory and any missing parents.
func (t *Transport) MakeDirectory(ctx context.Context, path string, permissions uint32) error {
	if err := os.MkdirAll(path, os.FileMode(permissions)); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	// MkdirAll applies the umask; chmod to the requested bits explicitly.
	if err := os.Chmod(path, os.FileMode(permissions)); err != nil {
		return fmt.Errorf("failed to set mode on directory %s: %w", path, err)
	}
	return nil
}

// FilePermissions returns the permission bits of a local path.
func (t *Transport) FilePermissions(ctx context.Context, path string) (uint32, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return uint32(info.Mode().Perm()), nil
}

// SetFilePermissions changes the permission bits of a local path.
func (t *Transport) SetFilePermissions(ctx context.Context, path string, permissions uint32) error {
	if err := os.Chmod(path, os.FileMode(permissions)); err != nil {
		return fmt.Errorf("failed to set mode on %s: %w", path, err)
	}
	return nil
}

// WorkingDirectory returns the configured working directory, falling back to
// the process's current directory.
func (t *Transport) WorkingDirectory() string {
	if t.workingDir != "" {
		return t.workingDir
	}
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return wd
}

// SetWorkingDirectory changes the directory operations run against. An empty
// path resets to the process's current directory.
func (t *Transport) SetWorkingDirectory(path string) {
	t.workingDir = path
}

// String returns a description of the target.
func (t *Transport) String() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	u, err := user.Current()
	if err != nil {
		return fmt.Sprintf("local://%s", hostname)
	}
	return fmt.Sprintf("local://%s@%s", u.Username, hostname)
}

// Ensure Transport implements the transport.Transport interface.
var _ transport.Transport = (*Transport)(nil)

func init() {
	transport.Register("local", func(options map[string]string) (transport.Transport, error) {
		return New(), nil
	})
}
