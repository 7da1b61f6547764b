// Package docker provides a transport that drives a running Docker
// container through the docker CLI, serving as the remote-stub style target
// for container platforms.
package docker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/eugenetaranov/gantry/internal/transport"
)

// Transport executes operations inside a Docker container.
type Transport struct {
	container  string
	user       string
	env        map[string]string
	workingDir string
	connected  bool
}

// New creates a Docker transport from target options. Recognized options:
// user, and env entries prefixed "env.".
func New(options map[string]string) *Transport {
	t := &Transport{
		user: options["user"],
		env:  make(map[string]string),
	}
	for k, v := range options {
		if name, ok := strings.CutPrefix(k, "env."); ok {
			t.env[name] = v
		}
	}
	return t
}

// Connect verifies the container named by url (docker://name) exists and is
// running.
func (t *Transport) Connect(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid connect URL %q: %w", rawURL, err)
	}
	container := u.Host
	if container == "" {
		container = strings.TrimPrefix(u.Path, "/")
	}
	if container == "" {
		return fmt.Errorf("connect URL %q names no container", rawURL)
	}

	// Check if docker is available
	if _, err := exec.LookPath("docker"); err != nil {
		return fmt.Errorf("docker command not found: %w", err)
	}

	cmd := exec.CommandContext(ctx, "docker", "inspect", "-f", "{{.State.Running}}", container)
	output, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("container '%s' not found or not accessible: %w", container, err)
	}
	if strings.TrimSpace(string(output)) != "true" {
		return fmt.Errorf("container '%s' is not running", container)
	}

	t.container = container
	t.connected = true
	return nil
}

// Disconnect drops the session. The container keeps running.
func (t *Transport) Disconnect() error {
	t.connected = false
	t.workingDir = ""
	return nil
}

// Connected reports whether Connect succeeded for a container.
func (t *Transport) Connected() bool {
	return t.connected
}

// Exec runs a command inside the container.
func (t *Transport) Exec(ctx context.Context, req transport.ExecRequest) (*transport.ExecResult, error) {
	if !t.connected {
		return nil, fmt.Errorf("not connected")
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "docker", t.buildExecArgs(req)...)

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
			if ctx.Err() == context.DeadlineExceeded {
				result.Status = -1
				result.Signal = 9
				return result, fmt.Errorf("command timed out after %s", req.Timeout)
			}
			return result, nil
		}
		return nil, fmt.Errorf("failed to execute command in container: %w", err)
	}

	return result, nil
}

// buildExecArgs builds the docker exec command arguments.
func (t *Transport) buildExecArgs(req transport.ExecRequest) []string {
	args := []string{"exec", "-i"}

	if t.user != "" {
		args = append(args, "-u", t.user)
	}

	dir := req.WorkingDir
	if dir == "" {
		dir = t.workingDir
	}
	if dir != "" {
		args = append(args, "-w", dir)
	}

	for k, v := range t.env {
		args = append(args, "-e", fmt.Sprintf("%s=%s", k, v))
	}

	shell := req.Shell
	if shell == "" {
		shell = "/bin/sh"
	}

	return append(args, t.container, shell, "-c", req.Command)
}

// Fetch copies a file out of the container.
func (t *Transport) Fetch(ctx context.Context, remoteSrc, localDst string) error {
	if !t.connected {
		return fmt.Errorf("not connected")
	}

	cmd := exec.CommandContext(ctx, "docker", "cp",
		fmt.Sprintf("%s:%s", t.container, remoteSrc), localDst)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to copy file from container: %s: %w", string(output), err)
	}
	return nil
}

// Upload copies a local file into the container and applies the permission
// bits inside it.
func (t *Transport) Upload(ctx context.Context, localSrc, remoteDst string, permissions uint32) error {
	if !t.connected {
		return fmt.Errorf("not connected")
	}

	cmd := exec.CommandContext(ctx, "docker", "cp", localSrc,
		fmt.Sprintf("%s:%s", t.container, remoteDst))
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to copy file to container: %s: %w", string(output), err)
	}

	chmod := fmt.Sprintf("chmod %o %s", permissions, remoteDst)
	res, err := t.Exec(ctx, transport.ExecRequest{Command: chmod})
	if err != nil {
		return fmt.Errorf("failed to set file permissions in container: %w", err)
	}
	if res.Status != 0 {
		return fmt.Errorf("failed to set file permissions in container: %s", strings.TrimSpace(res.Output))
	}
	return nil
}

// Install places a local file or directory tree into the container.
// docker cp recurses into directories on its own.
func (t *Transport) Install(ctx context.Context, localSrc, remoteDst string) error {
	if !t.connected {
		return fmt.Errorf("not connected")
	}

	if _, err := os.Stat(localSrc); err != nil {
		return fmt.Errorf("failed to stat %s: %w", localSrc, err)
	}

	cmd := exec.CommandContext(ctx, "docker", "cp", localSrc,
		fmt.Sprintf("%s:%s", t.container, remoteDst))
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to copy to container: %s: %w", string(output), err)
	}
	return nil
}

// Launch starts a detached process inside the container and resolves its
// PID.
func (t *Transport) Launch(ctx context.Context, spec *transport.LaunchSpec) error {
	command := spec.Path
	for _, arg := range spec.Args {
		command += " " + arg
	}
	for i := len(spec.Env) - 1; i >= 0; i-- {
		command = fmt.Sprintf("env %s %s", spec.Env[i], command)
	}

	res, err := t.Exec(ctx, transport.ExecRequest{
		Command:    fmt.Sprintf("nohup %s >/dev/null 2>&1 & echo $!", command),
		WorkingDir: spec.WorkingDir,
	})
	if err != nil {
		return err
	}
	if res.Status != 0 {
		return fmt.Errorf("failed to launch %s in container: %s", spec.Path, strings.TrimSpace(res.Output))
	}

	pid, err := strconv.Atoi(strings.TrimSpace(res.Output))
	if err != nil {
		return fmt.Errorf("could not resolve PID for %s: %w", spec.Path, err)
	}
	spec.PID = pid
	return nil
}

// Kill terminates a process inside the container.
func (t *Transport) Kill(ctx context.Context, pid int) error {
	res, err := t.Exec(ctx, transport.ExecRequest{
		Command: fmt.Sprintf("kill -9 %d", pid),
	})
	if err != nil {
		return err
	}
	if res.Status != 0 {
		return fmt.Errorf("failed to kill process %d in container: %s", pid, strings.TrimSpace(res.Output))
	}
	return nil
}

// MakeDirectory creates a directory inside the container.
func (t *Transport) MakeDirectory(ctx context.Context, path string, permissions uint32) error {
	command := fmt.Sprintf("mkdir -p %s && chmod %o %s", path, permissions, path)
	res, err := t.Exec(ctx, transport.ExecRequest{Command: command})
	if err != nil {
		return err
	}
	if res.Status != 0 {
		return fmt.Errorf("failed to create directory %s in container: %s", path, strings.TrimSpace(res.Output))
	}
	return nil
}

// FilePermissions returns the permission bits of a path inside the
// container.
func (t *Transport) FilePermissions(ctx context.Context, path string) (uint32, error) {
	res, err := t.Exec(ctx, transport.ExecRequest{
		Command: fmt.Sprintf("stat -c %%a %s", path),
	})
	if err != nil {
		return 0, err
	}
	if res.Status != 0 {
		return 0, fmt.Errorf("failed to stat %s in container: %s", path, strings.TrimSpace(res.Output))
	}

	bits, err := strconv.ParseUint(strings.TrimSpace(res.Output), 8, 32)
	if err != nil {
		return 0, fmt.Errorf("unexpected stat output for %s: %q", path, res.Output)
	}
	return uint32(bits), nil
}

// SetFilePermissions changes the permission bits of a path inside the
// container.
func (t *Transport) SetFilePermissions(ctx context.Context, path string, permissions uint32) error {
	res, err := t.Exec(ctx, transport.ExecRequest{
		Command: fmt.Sprintf("chmod %o %s", permissions, path),
	})
	if err != nil {
		return err
	}
	if res.Status != 0 {
		return fmt.Errorf("failed to chmod %s in container: %s", path, strings.TrimSpace(res.Output))
	}
	return nil
}

// WorkingDirectory returns the directory exec operations run in. Defaults
// to the container's root.
func (t *Transport) WorkingDirectory() string {
	if t.workingDir != "" {
		return t.workingDir
	}
	if t.connected {
		return "/"
	}
	return ""
}

// SetWorkingDirectory changes the directory exec operations run in. An
// empty path resets to the container default.
func (t *Transport) SetWorkingDirectory(path string) {
	t.workingDir = path
}

// String returns a description of the connection.
func (t *Transport) String() string {
	if t.container == "" {
		return "docker://(disconnected)"
	}
	if t.user != "" {
		return fmt.Sprintf("docker://%s@%s", t.user, t.container)
	}
	return fmt.Sprintf("docker://%s", t.container)
}

// Ensure Transport implements the transport.Transport interface.
var _ transport.Transport = (*Transport)(nil)

func init() {
	transport.Register("docker", func(options map[string]string) (transport.Transport, error) {
		return New(options), nil
	})
}
