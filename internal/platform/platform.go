// Package platform exposes one uniform control surface over heterogeneous
// execution targets: connect/disconnect, shell execution, file transfer,
// directory and permission management, and process launch/kill. The target
// may be the local machine or a remote system behind a transport; callers
// cannot tell the difference beyond connection management.
package platform

import (
	"context"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/eugenetaranov/gantry/internal/transport"
	"github.com/eugenetaranov/gantry/internal/transport/local"
)

// Default permission bits substituted when the local filesystem reports
// unknown (zero) permissions during Put.
const (
	DefaultFilePermissions      uint32 = 0o644
	DefaultDirectoryPermissions uint32 = 0o755
)

// Platform is a single execution target with its connection state machine.
// The zero value is the invalid platform: every gated operation on it fails
// with ErrInvalidPlatform, and the condition is permanent. Callers build a
// new instance instead of repairing one.
//
// A Platform is not safe for concurrent use; callers issue one operation at
// a time per instance.
type Platform struct {
	name    string
	session string
	t       transport.Transport
	log     *logrus.Entry
	info    cachedInfo
	sdkRoot string
}

// New binds a named identity to a transport. The identity is fixed for the
// lifetime of the instance; only the connected flag and working directory
// mutate afterwards.
func New(name string, t transport.Transport) *Platform {
	session := uuid.NewString()
	return &Platform{
		name:    name,
		session: session,
		t:       t,
		log: logrus.WithFields(logrus.Fields{
			"target":  name,
			"session": session,
		}),
	}
}

// Host returns the distinguished identity for the caller's own machine. It
// is always valid and always connected, and is the default target when no
// remote platform was constructed.
func Host() *Platform {
	return New("host", local.New())
}

// IsValid reports whether this platform has a transport identity.
func (p *Platform) IsValid() bool {
	return p != nil && p.t != nil
}

// Name returns the identity's name, empty for the invalid platform.
func (p *Platform) Name() string {
	if p == nil {
		return ""
	}
	return p.name
}

// String describes the target, e.g. "ssh://deploy@web1:22".
func (p *Platform) String() string {
	if !p.IsValid() {
		return "<invalid platform>"
	}
	return p.t.String()
}

// executeConnected gates an operation on a valid identity and a live
// connection, keeping the two failure modes distinct.
func (p *Platform) executeConnected(fn func(t transport.Transport) error) error {
	if !p.IsValid() {
		return ErrInvalidPlatform
	}
	if !p.t.Connected() {
		return ErrNotConnected
	}
	return fn(p.t)
}

// ConnectRemote establishes a session using the options' URL. The URL is
// forwarded to the transport as-is; transport errors come back unchanged and
// are never retried here. On success any rsync settings in the options are
// pushed down to transports that support acceleration, clearing settings the
// options no longer carry.
func (p *Platform) ConnectRemote(ctx context.Context, opts *ConnectOptions) error {
	if !p.IsValid() {
		return ErrInvalidPlatform
	}
	if opts == nil || opts.URL() == "" {
		return preconditionf("connect URL is empty")
	}

	if err := p.t.Connect(ctx, opts.URL()); err != nil {
		return err
	}
	p.info.reset()

	if rc, ok := p.t.(transport.RsyncCapable); ok {
		if opts.RsyncEnabled() {
			rc.ConfigureRsync(transport.RsyncSettings{
				Options:          opts.RsyncOptions(),
				RemotePathPrefix: opts.RsyncRemotePathPrefix(),
				OmitHostname:     opts.RsyncOmitHostname(),
				LocalCacheDir:    opts.LocalCacheDirectory(),
			})
		} else {
			rc.DisableRsync()
		}
	}

	p.log.WithField("url", opts.URL()).Info("Connected to target")
	return nil
}

// DisconnectRemote tears the session down. It always succeeds and is a
// no-op on an invalid or already-disconnected platform.
func (p *Platform) DisconnectRemote() {
	if !p.IsValid() {
		return
	}
	if err := p.t.Disconnect(); err != nil {
		p.log.WithError(err).Warn("Disconnect reported an error")
	}
	p.info.reset()
}

// IsConnected reports whether a live session exists.
func (p *Platform) IsConnected() bool {
	return p.IsValid() && p.t.Connected()
}

// Run executes a shell command on the target, blocking until it completes
// or its timeout fires. An empty working directory in cmd is filled in from
// the connection before execution, visibly to the caller. The command's
// output, status and signal are overwritten with the results; a non-zero
// exit status is data, not an error of this operation.
func (p *Platform) Run(ctx context.Context, cmd *ShellCommand) error {
	return p.executeConnected(func(t transport.Transport) error {
		if cmd.Command() == "" {
			return preconditionf("invalid shell command (empty)")
		}

		if cmd.WorkingDirectory() == "" {
			if wd := t.WorkingDirectory(); wd != "" {
				cmd.SetWorkingDirectory(wd)
			}
		}

		res, err := t.Exec(ctx, transport.ExecRequest{
			Shell:      cmd.Shell(),
			Command:    cmd.Command(),
			WorkingDir: cmd.WorkingDirectory(),
			Timeout:    cmd.timeoutDuration(),
		})
		if res != nil {
			cmd.setResult(res.Output, res.Status, res.Signal)
		}
		return err
	})
}

// Get copies a file from the target to the local machine. The source lives
// on the remote side, so no local existence check is performed.
func (p *Platform) Get(ctx context.Context, src, dst string) error {
	return p.executeConnected(func(t transport.Transport) error {
		return t.Fetch(ctx, src, dst)
	})
}

// Put copies a local file to the target. A missing local source fails
// before any transport call. Permission bits are derived from the local
// filesystem, substituting defaults when they come back unknown, because
// the remote side may not expose stat bits identically.
func (p *Platform) Put(ctx context.Context, src, dst string) error {
	return p.executeConnected(func(t transport.Transport) error {
		info, err := os.Stat(src)
		if err != nil {
			return preconditionf("'src' argument doesn't exist: '%s'", src)
		}

		permissions := uint32(info.Mode().Perm())
		if permissions == 0 {
			if info.IsDir() {
				permissions = DefaultDirectoryPermissions
			} else {
				permissions = DefaultFilePermissions
			}
		}

		return t.Upload(ctx, src, dst, permissions)
	})
}

// Install places a local file or directory tree onto the target through the
// transport's install primitive, for targets where installation is more
// than a plain copy. The local source must exist.
func (p *Platform) Install(ctx context.Context, src, dst string) error {
	return p.executeConnected(func(t transport.Transport) error {
		if _, err := os.Stat(src); err != nil {
			return preconditionf("'src' argument doesn't exist: '%s'", src)
		}
		return t.Install(ctx, src, dst)
	})
}

// Launch starts a process on the target. Fields the transport resolves
// (the PID) are written back into info.
func (p *Platform) Launch(ctx context.Context, info *LaunchInfo) error {
	return p.executeConnected(func(t transport.Transport) error {
		spec := info.spec()
		if err := t.Launch(ctx, spec); err != nil {
			return err
		}
		info.absorb(spec)
		return nil
	})
}

// Kill terminates a process on the target.
func (p *Platform) Kill(ctx context.Context, pid int) error {
	return p.executeConnected(func(t transport.Transport) error {
		return t.Kill(ctx, pid)
	})
}

// MakeDirectory creates a directory on the target. Only a valid identity is
// required: directory creation is meaningful for the local identity without
// any session.
func (p *Platform) MakeDirectory(ctx context.Context, path string, permissions uint32) error {
	if !p.IsValid() {
		return ErrInvalidPlatform
	}
	return p.t.MakeDirectory(ctx, path, permissions)
}

// GetFilePermissions returns the permission bits of a path on the target.
// It returns 0 when the identity is invalid or the lookup fails; callers
// cannot distinguish zero permission bits from a failed lookup.
func (p *Platform) GetFilePermissions(ctx context.Context, path string) uint32 {
	if !p.IsValid() {
		return 0
	}
	permissions, err := p.t.FilePermissions(ctx, path)
	if err != nil {
		return 0
	}
	return permissions
}

// SetFilePermissions changes the permission bits of a path on the target.
func (p *Platform) SetFilePermissions(ctx context.Context, path string, permissions uint32) error {
	if !p.IsValid() {
		return ErrInvalidPlatform
	}
	return p.t.SetFilePermissions(ctx, path, permissions)
}

// GetWorkingDirectory returns the connection's working directory, empty for
// an invalid identity. It does not require a live session.
func (p *Platform) GetWorkingDirectory() string {
	if !p.IsValid() {
		return ""
	}
	return p.t.WorkingDirectory()
}

// SetWorkingDirectory changes the connection's working directory. An empty
// path resets the transport default. It reports whether the identity was
// valid.
func (p *Platform) SetWorkingDirectory(path string) bool {
	if !p.IsValid() {
		return false
	}
	p.t.SetWorkingDirectory(path)
	return true
}

// SetSDKRoot records the SDK root path for this target.
func (p *Platform) SetSDKRoot(path string) {
	if p == nil {
		return
	}
	p.sdkRoot = path
}

// SDKRoot returns the recorded SDK root path.
func (p *Platform) SDKRoot() string {
	if p == nil {
		return ""
	}
	return p.sdkRoot
}
