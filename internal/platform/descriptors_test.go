package platform

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eugenetaranov/gantry/internal/transport"
)

// linuxProbe answers the descriptor commands like a Linux box would.
func linuxProbe(ft *fakeTransport, count *int) {
	answers := map[string]string{
		"uname -s": "Linux\n",
		"uname -m": "x86_64\n",
		"uname -r": "6.8.0-45-generic\n",
		"uname -v": "#45-Ubuntu SMP PREEMPT_DYNAMIC\n",
		"uname -n": "web1\n",
	}
	ft.execFn = func(ctx context.Context, req transport.ExecRequest) (*transport.ExecResult, error) {
		if strings.HasPrefix(req.Command, "uname") {
			*count++
		}
		out, ok := answers[req.Command]
		if !ok {
			return &transport.ExecResult{Status: 127}, nil
		}
		return &transport.ExecResult{Output: out}, nil
	}
}

func TestDescriptors(t *testing.T) {
	ctx := context.Background()
	p, ft := connected(t)

	var probes int
	linuxProbe(ft, &probes)

	assert.Equal(t, "x86_64-unknown-linux-gnu", p.GetTriple(ctx))
	assert.Equal(t, "web1", p.GetHostname(ctx))
	assert.Equal(t, "6.8.0-45-generic", p.GetOSBuild(ctx))
	assert.Equal(t, "#45-Ubuntu SMP PREEMPT_DYNAMIC", p.GetOSDescription(ctx))

	assert.Equal(t, uint32(6), p.GetOSMajorVersion(ctx))
	assert.Equal(t, uint32(8), p.GetOSMinorVersion(ctx))
	assert.Equal(t, uint32(0), p.GetOSUpdateVersion(ctx))

	// All of the above came out of one probe pass.
	assert.Equal(t, 5, probes)
}

func TestDescriptorsRefreshOnReconnect(t *testing.T) {
	ctx := context.Background()
	p, ft := connected(t)

	var probes int
	linuxProbe(ft, &probes)

	require.Equal(t, "web1", p.GetHostname(ctx))
	first := probes

	p.DisconnectRemote()
	assert.Empty(t, p.GetHostname(ctx))

	require.NoError(t, p.ConnectRemote(ctx, NewConnectOptions("fake://test")))
	require.Equal(t, "web1", p.GetHostname(ctx))
	assert.Greater(t, probes, first)
}

func TestDescriptorsDisconnected(t *testing.T) {
	ctx := context.Background()
	p := New("test", &fakeTransport{})

	assert.Empty(t, p.GetTriple(ctx))
	assert.Empty(t, p.GetOSBuild(ctx))
	assert.Empty(t, p.GetOSDescription(ctx))
	assert.Empty(t, p.GetHostname(ctx))
	assert.Equal(t, UnknownVersion, p.GetOSMajorVersion(ctx))
	assert.Equal(t, UnknownVersion, p.GetOSMinorVersion(ctx))
	assert.Equal(t, UnknownVersion, p.GetOSUpdateVersion(ctx))
}
