package platform

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eugenetaranov/gantry/internal/transport"
)

// fakeTransport is a scriptable transport for unit tests. Unset function
// fields make the corresponding operation succeed trivially.
type fakeTransport struct {
	connected bool

	connectFn func(ctx context.Context, url string) error
	execFn    func(ctx context.Context, req transport.ExecRequest) (*transport.ExecResult, error)
	fetchFn   func(ctx context.Context, remoteSrc, localDst string) error
	uploadFn  func(ctx context.Context, localSrc, remoteDst string, permissions uint32) error
	installFn func(ctx context.Context, localSrc, remoteDst string) error
	launchFn  func(ctx context.Context, spec *transport.LaunchSpec) error
	killFn    func(ctx context.Context, pid int) error
	mkdirFn   func(ctx context.Context, path string, permissions uint32) error
	permsFn   func(ctx context.Context, path string) (uint32, error)
	chmodFn   func(ctx context.Context, path string, permissions uint32) error

	workingDir string
	calls      []string
}

func (f *fakeTransport) Connect(ctx context.Context, url string) error {
	f.calls = append(f.calls, "connect")
	if f.connectFn != nil {
		return f.connectFn(ctx, url)
	}
	f.connected = true
	return nil
}

func (f *fakeTransport) Disconnect() error {
	f.calls = append(f.calls, "disconnect")
	f.connected = false
	return nil
}

func (f *fakeTransport) Connected() bool { return f.connected }

func (f *fakeTransport) Exec(ctx context.Context, req transport.ExecRequest) (*transport.ExecResult, error) {
	f.calls = append(f.calls, "exec")
	if f.execFn != nil {
		return f.execFn(ctx, req)
	}
	return &transport.ExecResult{}, nil
}

func (f *fakeTransport) Fetch(ctx context.Context, remoteSrc, localDst string) error {
	f.calls = append(f.calls, "fetch")
	if f.fetchFn != nil {
		return f.fetchFn(ctx, remoteSrc, localDst)
	}
	return nil
}

func (f *fakeTransport) Upload(ctx context.Context, localSrc, remoteDst string, permissions uint32) error {
	f.calls = append(f.calls, "upload")
	if f.uploadFn != nil {
		return f.uploadFn(ctx, localSrc, remoteDst, permissions)
	}
	return nil
}

func (f *fakeTransport) Install(ctx context.Context, localSrc, remoteDst string) error {
	f.calls = append(f.calls, "install")
	if f.installFn != nil {
		return f.installFn(ctx, localSrc, remoteDst)
	}
	return nil
}

func (f *fakeTransport) Launch(ctx context.Context, spec *transport.LaunchSpec) error {
	f.calls = append(f.calls, "launch")
	if f.launchFn != nil {
		return f.launchFn(ctx, spec)
	}
	return nil
}

func (f *fakeTransport) Kill(ctx context.Context, pid int) error {
	f.calls = append(f.calls, "kill")
	if f.killFn != nil {
		return f.killFn(ctx, pid)
	}
	return nil
}

func (f *fakeTransport) MakeDirectory(ctx context.Context, path string, permissions uint32) error {
	f.calls = append(f.calls, "mkdir")
	if f.mkdirFn != nil {
		return f.mkdirFn(ctx, path, permissions)
	}
	return nil
}

func (f *fakeTransport) FilePermissions(ctx context.Context, path string) (uint32, error) {
	f.calls = append(f.calls, "perms")
	if f.permsFn != nil {
		return f.permsFn(ctx, path)
	}
	return 0, nil
}

func (f *fakeTransport) SetFilePermissions(ctx context.Context, path string, permissions uint32) error {
	f.calls = append(f.calls, "chmod")
	if f.chmodFn != nil {
		return f.chmodFn(ctx, path, permissions)
	}
	return nil
}

func (f *fakeTransport) WorkingDirectory() string     { return f.workingDir }
func (f *fakeTransport) SetWorkingDirectory(p string) { f.workingDir = p }
func (f *fakeTransport) String() string               { return "fake://test" }

var _ transport.Transport = (*fakeTransport)(nil)

// connected returns a platform with an established fake session.
func connected(t *testing.T) (*Platform, *fakeTransport) {
	t.Helper()
	ft := &fakeTransport{}
	p := New("test", ft)
	require.NoError(t, p.ConnectRemote(context.Background(), NewConnectOptions("fake://test")))
	return p, ft
}

func TestInvalidPlatform(t *testing.T) {
	ctx := context.Background()

	var p *Platform
	assert.False(t, p.IsValid())

	zero := &Platform{}
	assert.False(t, zero.IsValid())
	assert.False(t, zero.IsConnected())

	assert.ErrorIs(t, zero.Run(ctx, NewShellCommand("true")), ErrInvalidPlatform)
	assert.ErrorIs(t, zero.Get(ctx, "/a", "/b"), ErrInvalidPlatform)
	assert.ErrorIs(t, zero.Put(ctx, "/a", "/b"), ErrInvalidPlatform)
	assert.ErrorIs(t, zero.Install(ctx, "/a", "/b"), ErrInvalidPlatform)
	assert.ErrorIs(t, zero.Launch(ctx, &LaunchInfo{Path: "/bin/true"}), ErrInvalidPlatform)
	assert.ErrorIs(t, zero.Kill(ctx, 1), ErrInvalidPlatform)
	assert.ErrorIs(t, zero.MakeDirectory(ctx, "/tmp/x", 0o755), ErrInvalidPlatform)
	assert.ErrorIs(t, zero.SetFilePermissions(ctx, "/tmp/x", 0o644), ErrInvalidPlatform)
	assert.ErrorIs(t, zero.ConnectRemote(ctx, NewConnectOptions("fake://x")), ErrInvalidPlatform)

	assert.Zero(t, zero.GetFilePermissions(ctx, "/tmp/x"))
	assert.Empty(t, zero.GetWorkingDirectory())
	assert.False(t, zero.SetWorkingDirectory("/tmp"))
	assert.Equal(t, "<invalid platform>", zero.String())

	// Descriptor queries degrade instead of failing.
	assert.Empty(t, zero.GetTriple(ctx))
	assert.Equal(t, UnknownVersion, zero.GetOSMajorVersion(ctx))
}

func TestNotConnected(t *testing.T) {
	ctx := context.Background()
	p := New("test", &fakeTransport{})

	assert.True(t, p.IsValid())
	assert.False(t, p.IsConnected())

	assert.ErrorIs(t, p.Run(ctx, NewShellCommand("true")), ErrNotConnected)
	assert.ErrorIs(t, p.Get(ctx, "/a", "/b"), ErrNotConnected)
	assert.ErrorIs(t, p.Put(ctx, "/a", "/b"), ErrNotConnected)
	assert.ErrorIs(t, p.Kill(ctx, 1), ErrNotConnected)
}

func TestConnectRemote(t *testing.T) {
	ctx := context.Background()

	t.Run("empty URL is a local precondition", func(t *testing.T) {
		p := New("test", &fakeTransport{})

		var precondition *PreconditionError
		assert.ErrorAs(t, p.ConnectRemote(ctx, nil), &precondition)
		assert.ErrorAs(t, p.ConnectRemote(ctx, NewConnectOptions("")), &precondition)
	})

	t.Run("transport errors pass through unchanged", func(t *testing.T) {
		boom := fmt.Errorf("connection refused")
		ft := &fakeTransport{
			connectFn: func(ctx context.Context, url string) error { return boom },
		}
		p := New("test", ft)

		assert.ErrorIs(t, p.ConnectRemote(ctx, NewConnectOptions("fake://host")), boom)
		assert.False(t, p.IsConnected())
	})

	t.Run("connect then disconnect", func(t *testing.T) {
		p, ft := connected(t)
		assert.True(t, p.IsConnected())

		p.DisconnectRemote()
		assert.False(t, p.IsConnected())
		assert.Contains(t, ft.calls, "disconnect")

		// Disconnecting again is a no-op.
		p.DisconnectRemote()
	})
}

func TestHost(t *testing.T) {
	h := Host()
	assert.True(t, h.IsValid())
	assert.True(t, h.IsConnected())
	assert.Equal(t, "host", h.Name())
	assert.NotEmpty(t, h.GetWorkingDirectory())
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("empty command", func(t *testing.T) {
		p, ft := connected(t)

		var precondition *PreconditionError
		assert.ErrorAs(t, p.Run(ctx, NewShellCommand("")), &precondition)
		assert.NotContains(t, ft.calls, "exec")
	})

	t.Run("results land in the command", func(t *testing.T) {
		p, ft := connected(t)
		ft.execFn = func(ctx context.Context, req transport.ExecRequest) (*transport.ExecResult, error) {
			assert.Equal(t, "ls /missing", req.Command)
			return &transport.ExecResult{Output: "No such file or directory\n", Status: 2}, nil
		}

		cmd := NewShellCommand("ls /missing")
		require.NoError(t, p.Run(ctx, cmd))

		assert.Equal(t, 2, cmd.Status())
		assert.Equal(t, 0, cmd.Signal())
		assert.Equal(t, "No such file or directory\n", cmd.Output())
	})

	t.Run("working directory backfilled from connection", func(t *testing.T) {
		p, ft := connected(t)
		ft.workingDir = "/srv/app"

		var seen string
		ft.execFn = func(ctx context.Context, req transport.ExecRequest) (*transport.ExecResult, error) {
			seen = req.WorkingDir
			return &transport.ExecResult{}, nil
		}

		cmd := NewShellCommand("pwd")
		require.NoError(t, p.Run(ctx, cmd))
		assert.Equal(t, "/srv/app", seen)
		assert.Equal(t, "/srv/app", cmd.WorkingDirectory())

		// An explicit directory wins over the connection's.
		cmd2 := NewShellCommand("pwd")
		cmd2.SetWorkingDirectory("/opt")
		require.NoError(t, p.Run(ctx, cmd2))
		assert.Equal(t, "/opt", seen)
	})

	t.Run("partial results survive an exec error", func(t *testing.T) {
		p, ft := connected(t)
		ft.execFn = func(ctx context.Context, req transport.ExecRequest) (*transport.ExecResult, error) {
			return &transport.ExecResult{Output: "partial", Status: -1, Signal: 9},
				fmt.Errorf("command timed out after 5s")
		}

		cmd := NewShellCommand("sleep 60")
		assert.Error(t, p.Run(ctx, cmd))
		assert.Equal(t, "partial", cmd.Output())
		assert.Equal(t, -1, cmd.Status())
		assert.Equal(t, 9, cmd.Signal())
	})
}

func TestPut(t *testing.T) {
	ctx := context.Background()

	t.Run("missing source fails before the transport", func(t *testing.T) {
		p, ft := connected(t)

		err := p.Put(ctx, "/definitely/not/there", "/tmp/dst")

		var precondition *PreconditionError
		require.ErrorAs(t, err, &precondition)
		assert.Equal(t, "'src' argument doesn't exist: '/definitely/not/there'", err.Error())
		assert.NotContains(t, ft.calls, "upload")
	})

	t.Run("permissions derived from the local file", func(t *testing.T) {
		src := filepath.Join(t.TempDir(), "payload")
		require.NoError(t, os.WriteFile(src, []byte("data"), 0o640))

		p, ft := connected(t)
		var seen uint32
		ft.uploadFn = func(ctx context.Context, localSrc, remoteDst string, permissions uint32) error {
			seen = permissions
			return nil
		}

		require.NoError(t, p.Put(ctx, src, "/tmp/payload"))
		assert.Equal(t, uint32(0o640), seen)
	})
}

func TestGetSkipsLocalCheck(t *testing.T) {
	// The source lives remotely; a local path of the same name must not
	// be consulted.
	p, ft := connected(t)
	var src string
	ft.fetchFn = func(ctx context.Context, remoteSrc, localDst string) error {
		src = remoteSrc
		return nil
	}

	require.NoError(t, p.Get(context.Background(), "/remote/only/file", filepath.Join(t.TempDir(), "out")))
	assert.Equal(t, "/remote/only/file", src)
}

func TestInstall(t *testing.T) {
	ctx := context.Background()
	p, ft := connected(t)

	var precondition *PreconditionError
	assert.ErrorAs(t, p.Install(ctx, "/definitely/not/there", "/opt/app"), &precondition)
	assert.NotContains(t, ft.calls, "install")

	src := t.TempDir()
	require.NoError(t, p.Install(ctx, src, "/opt/app"))
	assert.Contains(t, ft.calls, "install")
}

func TestLaunchResolvesPID(t *testing.T) {
	p, ft := connected(t)
	ft.launchFn = func(ctx context.Context, spec *transport.LaunchSpec) error {
		spec.PID = 4242
		return nil
	}

	info := &LaunchInfo{Path: "/usr/bin/sleepd", Args: []string{"--daemon"}}
	require.NoError(t, p.Launch(context.Background(), info))
	assert.Equal(t, 4242, info.PID())
}

func TestMakeDirectoryNeedsNoSession(t *testing.T) {
	// A valid identity suffices; mkdir is meaningful locally without
	// being "connected" anywhere.
	ft := &fakeTransport{}
	p := New("test", ft)

	require.NoError(t, p.MakeDirectory(context.Background(), "/tmp/newdir", 0o700))
	assert.Contains(t, ft.calls, "mkdir")
}

func TestGetFilePermissions(t *testing.T) {
	ctx := context.Background()
	p, ft := connected(t)

	ft.permsFn = func(ctx context.Context, path string) (uint32, error) {
		return 0o755, nil
	}
	assert.Equal(t, uint32(0o755), p.GetFilePermissions(ctx, "/usr/bin/env"))

	// Failure collapses to zero bits.
	ft.permsFn = func(ctx context.Context, path string) (uint32, error) {
		return 0, fmt.Errorf("no such file")
	}
	assert.Zero(t, p.GetFilePermissions(ctx, "/missing"))
}

func TestWorkingDirectory(t *testing.T) {
	ft := &fakeTransport{}
	p := New("test", ft)

	// Readable and settable without a session.
	assert.True(t, p.SetWorkingDirectory("/srv"))
	assert.Equal(t, "/srv", p.GetWorkingDirectory())
}

func TestSDKRoot(t *testing.T) {
	p := New("test", &fakeTransport{})

	assert.Empty(t, p.SDKRoot())
	p.SetSDKRoot("/opt/sdks/linux")
	assert.Equal(t, "/opt/sdks/linux", p.SDKRoot())
}
