package ssh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eugenetaranov/gantry/internal/transport"
)

func TestNewOptions(t *testing.T) {
	tr, err := New(map[string]string{
		"user":         "deploy",
		"key_file":     "/home/deploy/.ssh/id_ed25519",
		"dial_timeout": "5",
	})
	require.NoError(t, err)
	assert.Equal(t, "deploy", tr.user)
	assert.Equal(t, "/home/deploy/.ssh/id_ed25519", tr.keyFile)

	_, err = New(map[string]string{"dial_timeout": "soon"})
	assert.Error(t, err)
}

func TestAuthMethodsRequireCredentials(t *testing.T) {
	tr, err := New(map[string]string{})
	require.NoError(t, err)

	_, err = tr.authMethods()
	assert.Error(t, err)

	tr.password = "hunter2"
	methods, err := tr.authMethods()
	require.NoError(t, err)
	assert.Len(t, methods, 1)
}

func TestBuildCommand(t *testing.T) {
	tests := []struct {
		name string
		req  transport.ExecRequest
		want string
	}{
		{
			name: "bare command",
			req:  transport.ExecRequest{Command: "uname -a"},
			want: "uname -a",
		},
		{
			name: "explicit shell",
			req:  transport.ExecRequest{Shell: "/bin/bash", Command: "echo hi"},
			want: "/bin/bash -c 'echo hi'",
		},
		{
			name: "working directory",
			req:  transport.ExecRequest{Command: "make", WorkingDir: "/srv/app"},
			want: "cd '/srv/app' && make",
		},
		{
			name: "shell and directory",
			req:  transport.ExecRequest{Shell: "/bin/sh", Command: "ls", WorkingDir: "/tmp"},
			want: "cd '/tmp' && /bin/sh -c 'ls'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildCommand(tt.req))
		})
	}
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, "'plain'", shellQuote("plain"))
	assert.Equal(t, "'with space'", shellQuote("with space"))
	assert.Equal(t, `'it'\''s'`, shellQuote("it's"))
}

func TestSignalNumbers(t *testing.T) {
	assert.Equal(t, 9, signalNumbers["KILL"])
	assert.Equal(t, 15, signalNumbers["TERM"])
	assert.Equal(t, 2, signalNumbers["INT"])
}

func TestDisconnectWhenNotConnected(t *testing.T) {
	tr, err := New(map[string]string{})
	require.NoError(t, err)

	assert.False(t, tr.Connected())
	assert.NoError(t, tr.Disconnect())
	assert.Equal(t, "ssh://(disconnected)", tr.String())
}
