package ssh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eugenetaranov/gantry/internal/transport"
)

func TestRemoteRsyncPath(t *testing.T) {
	tr := &Transport{user: "deploy", addr: "web1:22"}

	tr.ConfigureRsync(transport.RsyncSettings{})
	assert.Equal(t, "deploy@web1:/srv/file", tr.remoteRsyncPath("/srv/file"))

	tr.ConfigureRsync(transport.RsyncSettings{RemotePathPrefix: "/mnt/root"})
	assert.Equal(t, "deploy@web1:/mnt/root/srv/file", tr.remoteRsyncPath("/srv/file"))

	tr.ConfigureRsync(transport.RsyncSettings{OmitHostname: true})
	assert.Equal(t, "/srv/file", tr.remoteRsyncPath("/srv/file"))

	// No configured user falls back to a bare host spec.
	anon := &Transport{addr: "web1:22"}
	anon.ConfigureRsync(transport.RsyncSettings{})
	assert.Equal(t, "web1:/srv/file", anon.remoteRsyncPath("/srv/file"))
}

func TestRsyncArgs(t *testing.T) {
	tr := &Transport{addr: "web1:22"}

	tr.ConfigureRsync(transport.RsyncSettings{Options: "-avz --partial"})
	args, err := tr.rsyncArgs("/local/a", "web1:/remote/a")
	require.NoError(t, err)
	assert.Equal(t, []string{"-avz", "--partial", "/local/a", "web1:/remote/a"}, args)

	tr.ConfigureRsync(transport.RsyncSettings{})
	args, err = tr.rsyncArgs("/local/a", "web1:/remote/a")
	require.NoError(t, err)
	assert.Equal(t, []string{"/local/a", "web1:/remote/a"}, args)

	tr.ConfigureRsync(transport.RsyncSettings{Options: "'unterminated"})
	_, err = tr.rsyncArgs("/local/a", "web1:/remote/a")
	assert.Error(t, err)
}

func TestConfigureAndDisableRsync(t *testing.T) {
	tr := &Transport{}
	assert.Empty(t, tr.cacheDir())

	tr.ConfigureRsync(transport.RsyncSettings{LocalCacheDir: "/var/cache/gantry"})
	assert.Equal(t, "/var/cache/gantry", tr.cacheDir())

	tr.DisableRsync()
	assert.Empty(t, tr.cacheDir())
}
