package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShellCommandDefaults(t *testing.T) {
	cmd := NewShellCommand("uname -a")

	assert.Equal(t, "uname -a", cmd.Command())
	assert.Empty(t, cmd.Shell())
	assert.Empty(t, cmd.WorkingDirectory())
	assert.Equal(t, uint32(InfiniteTimeout), cmd.TimeoutSeconds())

	withShell := NewShellCommandWithShell("/bin/bash", "echo hi")
	assert.Equal(t, "/bin/bash", withShell.Shell())
	assert.Equal(t, "echo hi", withShell.Command())
}

func TestShellCommandTimeoutRoundTrip(t *testing.T) {
	cmd := NewShellCommand("sleep 5")

	cmd.SetTimeoutSeconds(30)
	assert.Equal(t, uint32(30), cmd.TimeoutSeconds())

	// The sentinel removes the timeout entirely.
	cmd.SetTimeoutSeconds(InfiniteTimeout)
	assert.Equal(t, uint32(InfiniteTimeout), cmd.TimeoutSeconds())
	assert.Zero(t, cmd.timeoutDuration())
}

func TestShellCommandClear(t *testing.T) {
	cmd := NewShellCommandWithShell("/bin/bash", "false")
	cmd.SetWorkingDirectory("/srv")
	cmd.SetTimeoutSeconds(10)
	cmd.setResult("boom\n", 1, 0)

	cmd.Clear()

	// Results are gone, the specification survives.
	assert.Empty(t, cmd.Output())
	assert.Zero(t, cmd.Status())
	assert.Zero(t, cmd.Signal())
	assert.Equal(t, "false", cmd.Command())
	assert.Equal(t, "/bin/bash", cmd.Shell())
	assert.Equal(t, "/srv", cmd.WorkingDirectory())
	assert.Equal(t, uint32(10), cmd.TimeoutSeconds())

	// Clear twice changes nothing further.
	cmd.Clear()
	assert.Empty(t, cmd.Output())
}

func TestConnectOptions(t *testing.T) {
	opts := NewConnectOptions("ssh://deploy@web1:22")
	assert.Equal(t, "ssh://deploy@web1:22", opts.URL())
	assert.False(t, opts.RsyncEnabled())

	opts.SetURL("")
	assert.Empty(t, opts.URL())

	opts.EnableRsync("-avz", "/mnt/remote", true)
	assert.True(t, opts.RsyncEnabled())
	assert.Equal(t, "-avz", opts.RsyncOptions())
	assert.Equal(t, "/mnt/remote", opts.RsyncRemotePathPrefix())
	assert.True(t, opts.RsyncOmitHostname())

	// Re-enabling with empty strings clears the previous values.
	opts.EnableRsync("", "", false)
	assert.True(t, opts.RsyncEnabled())
	assert.Empty(t, opts.RsyncOptions())
	assert.Empty(t, opts.RsyncRemotePathPrefix())
	assert.False(t, opts.RsyncOmitHostname())

	opts.DisableRsync()
	assert.False(t, opts.RsyncEnabled())

	opts.SetLocalCacheDirectory("/var/cache/gantry")
	assert.Equal(t, "/var/cache/gantry", opts.LocalCacheDirectory())
	opts.SetLocalCacheDirectory("")
	assert.Empty(t, opts.LocalCacheDirectory())
}
