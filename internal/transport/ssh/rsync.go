package ssh

import (
	"context"
	"fmt"
	"net"
	"os/exec"

	"github.com/google/shlex"

	"github.com/eugenetaranov/gantry/internal/transport"
)

// ConfigureRsync turns on rsync acceleration for file transfer. Settings
// replace any previous configuration wholesale.
func (t *Transport) ConfigureRsync(settings transport.RsyncSettings) {
	t.rsync = &settings
}

// DisableRsync turns rsync acceleration off; transfers fall back to SFTP.
func (t *Transport) DisableRsync() {
	t.rsync = nil
}

// cacheDir returns the configured local staging directory, if any.
func (t *Transport) cacheDir() string {
	if t.rsync == nil {
		return ""
	}
	return t.rsync.LocalCacheDir
}

// rsyncFetch pulls a remote file with the rsync binary.
func (t *Transport) rsyncFetch(ctx context.Context, remoteSrc, localDst string) error {
	args, err := t.rsyncArgs(t.remoteRsyncPath(remoteSrc), localDst)
	if err != nil {
		return err
	}
	return runRsync(ctx, args)
}

// rsyncPush sends a local file with the rsync binary.
func (t *Transport) rsyncPush(ctx context.Context, localSrc, remoteDst string) error {
	args, err := t.rsyncArgs(localSrc, t.remoteRsyncPath(remoteDst))
	if err != nil {
		return err
	}
	return runRsync(ctx, args)
}

// rsyncArgs assembles the argument vector: configured options first, then
// source and destination.
func (t *Transport) rsyncArgs(src, dst string) ([]string, error) {
	var args []string
	if t.rsync.Options != "" {
		split, err := shlex.Split(t.rsync.Options)
		if err != nil {
			return nil, fmt.Errorf("invalid rsync options %q: %w", t.rsync.Options, err)
		}
		args = split
	}
	return append(args, src, dst), nil
}

// remoteRsyncPath renders a remote path for rsync, applying the configured
// path prefix and, unless omitted, the user@host: part.
func (t *Transport) remoteRsyncPath(p string) string {
	full := t.rsync.RemotePathPrefix + p
	if t.rsync.OmitHostname {
		return full
	}

	host := t.addr
	if h, _, err := net.SplitHostPort(t.addr); err == nil {
		host = h
	}
	if t.user != "" {
		return fmt.Sprintf("%s@%s:%s", t.user, host, full)
	}
	return fmt.Sprintf("%s:%s", host, full)
}

// runRsync shells out to the local rsync binary.
func runRsync(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, "rsync", args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("rsync failed: %s: %w", string(output), err)
	}
	return nil
}
