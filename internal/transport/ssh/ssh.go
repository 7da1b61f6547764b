// Package ssh provides a transport that reaches a remote machine over SSH,
// with file operations over SFTP and optional rsync acceleration for bulk
// transfer.
package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/user"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/sftp"
	gossh "golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/eugenetaranov/gantry/internal/transport"
)

// signalNumbers maps the signal names reported by the SSH wire protocol to
// conventional POSIX numbers.
var signalNumbers = map[string]int{
	"ABRT": 6,
	"ALRM": 14,
	"FPE":  8,
	"HUP":  1,
	"ILL":  4,
	"INT":  2,
	"KILL": 9,
	"PIPE": 13,
	"QUIT": 3,
	"SEGV": 11,
	"TERM": 15,
	"USR1": 10,
	"USR2": 12,
}

// Transport drives a remote machine over an SSH session.
type Transport struct {
	user        string
	keyFile     string
	password    string
	knownHosts  string
	dialTimeout time.Duration

	addr       string
	client     *gossh.Client
	files      *sftp.Client
	workingDir string
	defaultDir string
	rsync      *transport.RsyncSettings
}

// New creates an SSH transport from target options. Recognized options:
// user, key_file, password, known_hosts, dial_timeout (seconds).
func New(options map[string]string) (*Transport, error) {
	t := &Transport{
		user:        options["user"],
		keyFile:     options["key_file"],
		password:    options["password"],
		knownHosts:  options["known_hosts"],
		dialTimeout: 10 * time.Second,
	}

	if v, ok := options["dial_timeout"]; ok {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid dial_timeout %q: %w", v, err)
		}
		t.dialTimeout = time.Duration(secs) * time.Second
	}

	return t, nil
}

// Connect dials the host named by url (ssh://user@host:port) and opens an
// SFTP session for file operations.
func (t *Transport) Connect(ctx context.Context, rawURL string) error {
	if t.client != nil {
		return fmt.Errorf("already connected to %s", t.addr)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid connect URL %q: %w", rawURL, err)
	}
	if u.Host == "" {
		return fmt.Errorf("connect URL %q has no host", rawURL)
	}

	username := t.user
	if u.User != nil && u.User.Username() != "" {
		username = u.User.Username()
	}
	if username == "" {
		current, err := user.Current()
		if err != nil {
			return fmt.Errorf("no user configured and none could be detected: %w", err)
		}
		username = current.Username
	}

	cfg := &gossh.ClientConfig{
		User:    username,
		Timeout: t.dialTimeout,
	}

	if cfg.Auth, err = t.authMethods(); err != nil {
		return err
	}

	if t.knownHosts != "" {
		callback, err := knownhosts.New(t.knownHosts)
		if err != nil {
			return fmt.Errorf("failed to load known hosts %s: %w", t.knownHosts, err)
		}
		cfg.HostKeyCallback = callback
	} else {
		cfg.HostKeyCallback = gossh.InsecureIgnoreHostKey()
	}

	addr := u.Host
	if u.Port() == "" {
		addr += ":22"
	}

	client, err := gossh.Dial("tcp", addr, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	files, err := sftp.NewClient(client)
	if err != nil {
		client.Close()
		return fmt.Errorf("failed to open SFTP session on %s: %w", addr, err)
	}

	t.addr = addr
	t.client = client
	t.files = files

	if wd, err := files.Getwd(); err == nil {
		t.defaultDir = wd
		t.workingDir = wd
	}

	return nil
}

// authMethods assembles the authentication chain from the configured
// options.
func (t *Transport) authMethods() ([]gossh.AuthMethod, error) {
	var methods []gossh.AuthMethod

	if t.keyFile != "" {
		key, err := os.ReadFile(t.keyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read key file %s: %w", t.keyFile, err)
		}
		signer, err := gossh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("failed to parse key file %s: %w", t.keyFile, err)
		}
		methods = append(methods, gossh.PublicKeys(signer))
	}

	if t.password != "" {
		methods = append(methods, gossh.Password(t.password))
	}

	if len(methods) == 0 {
		return nil, fmt.Errorf("no authentication configured: set key_file or password")
	}

	return methods, nil
}

// Disconnect closes the SFTP and SSH sessions. Safe when not connected.
func (t *Transport) Disconnect() error {
	var firstErr error

	if t.files != nil {
		if err := t.files.Close(); err != nil {
			firstErr = err
		}
		t.files = nil
	}
	if t.client != nil {
		if err := t.client.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		t.client = nil
	}

	t.addr = ""
	t.workingDir = ""
	t.defaultDir = ""
	return firstErr
}

// Connected reports whether a live session exists.
func (t *Transport) Connected() bool {
	return t.client != nil
}

// Exec runs a command remotely in a fresh session and blocks until it
// finishes, or kills it when the timeout fires.
func (t *Transport) Exec(ctx context.Context, req transport.ExecRequest) (*transport.ExecResult, error) {
	if t.client == nil {
		return nil, fmt.Errorf("not connected")
	}

	session, err := t.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to open session on %s: %w", t.addr, err)
	}
	defer session.Close()

	var combined bytes.Buffer
	session.Stdout = &combined
	session.Stderr = &combined

	command := buildCommand(req)

	if req.Timeout <= 0 {
		err = session.Run(command)
		return execResult(&combined, err)
	}

	if err := session.Start(command); err != nil {
		return nil, fmt.Errorf("failed to start command on %s: %w", t.addr, err)
	}

	done := make(chan error, 1)
	go func() { done <- session.Wait() }()

	select {
	case err = <-done:
		return execResult(&combined, err)
	case <-ctx.Done():
		_ = session.Signal(gossh.SIGKILL)
		return &transport.ExecResult{Output: combined.String(), Status: -1, Signal: signalNumbers["KILL"]},
			ctx.Err()
	case <-time.After(req.Timeout):
		// The remote process is ours to reap on timeout.
		_ = session.Signal(gossh.SIGKILL)
		return &transport.ExecResult{Output: combined.String(), Status: -1, Signal: signalNumbers["KILL"]},
			fmt.Errorf("command timed out after %s", req.Timeout)
	}
}

// buildCommand assembles the remote command line from the request,
// honoring the working directory and an explicit interpreter.
func buildCommand(req transport.ExecRequest) string {
	command := req.Command
	if req.Shell != "" {
		command = fmt.Sprintf("%s -c %s", req.Shell, shellQuote(command))
	}
	if req.WorkingDir != "" {
		command = fmt.Sprintf("cd %s && %s", shellQuote(req.WorkingDir), command)
	}
	return command
}

// execResult turns a session error into exit status and signal data.
func execResult(output *bytes.Buffer, err error) (*transport.ExecResult, error) {
	result := &transport.ExecResult{Output: output.String()}

	if err == nil {
		return result, nil
	}

	var exitErr *gossh.ExitError
	if errors.As(err, &exitErr) {
		result.Status = exitErr.ExitStatus()
		if sig := exitErr.Signal(); sig != "" {
			result.Signal = signalNumbers[sig]
			result.Status = -1
		}
		// Remote exit statuses, zero or not, are data for the caller.
		return result, nil
	}

	var missing *gossh.ExitMissingError
	if errors.As(err, &missing) {
		result.Status = -1
		return result, nil
	}

	result.Status = -1
	return result, err
}

// shellQuote wraps s in single quotes for the remote shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Launch starts a detached process via nohup and resolves its PID.
func (t *Transport) Launch(ctx context.Context, spec *transport.LaunchSpec) error {
	command := shellQuote(spec.Path)
	for _, arg := range spec.Args {
		command += " " + shellQuote(arg)
	}
	for i := len(spec.Env) - 1; i >= 0; i-- {
		command = fmt.Sprintf("env %s %s", shellQuote(spec.Env[i]), command)
	}

	// Keep echo $! in the same shell as the nohup job so the reported PID
	// is the launched process, not a cd subshell.
	launch := fmt.Sprintf("nohup %s >/dev/null 2>&1 & echo $!", command)
	dir := spec.WorkingDir
	if dir == "" {
		dir = t.workingDir
	}
	if dir != "" {
		launch = fmt.Sprintf("cd %s && { %s; }", shellQuote(dir), launch)
	}

	res, err := t.Exec(ctx, transport.ExecRequest{Command: launch})
	if err != nil {
		return err
	}
	if res.Status != 0 {
		return fmt.Errorf("failed to launch %s: %s", spec.Path, res.Output)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(res.Output))
	if err != nil {
		return fmt.Errorf("could not resolve PID for %s: %w", spec.Path, err)
	}
	spec.PID = pid
	return nil
}

// Kill terminates a remote process.
func (t *Transport) Kill(ctx context.Context, pid int) error {
	res, err := t.Exec(ctx, transport.ExecRequest{
		Command: fmt.Sprintf("kill -9 %d", pid),
	})
	if err != nil {
		return err
	}
	if res.Status != 0 {
		return fmt.Errorf("failed to kill process %d: %s", pid, strings.TrimSpace(res.Output))
	}
	return nil
}

// WorkingDirectory returns the session's current working directory.
func (t *Transport) WorkingDirectory() string {
	return t.workingDir
}

// SetWorkingDirectory changes the session's working directory. An empty
// path resets to the login directory captured at connect time.
func (t *Transport) SetWorkingDirectory(path string) {
	if path == "" {
		t.workingDir = t.defaultDir
		return
	}
	t.workingDir = path
}

// String returns a description of the target.
func (t *Transport) String() string {
	if t.addr == "" {
		return "ssh://(disconnected)"
	}
	if t.user != "" {
		return fmt.Sprintf("ssh://%s@%s", t.user, t.addr)
	}
	return fmt.Sprintf("ssh://%s", t.addr)
}

// Ensure Transport implements the transport interfaces.
var (
	_ transport.Transport    = (*Transport)(nil)
	_ transport.RsyncCapable = (*Transport)(nil)
)

func init() {
	transport.Register("ssh", func(options map[string]string) (transport.Transport, error) {
		return New(options)
	})
}
