// Package sysinfo probes system descriptors from an execution target. It
// works over any transport by running portable commands, so local, SSH and
// container targets are described the same way.
package sysinfo

import (
	"context"
	"fmt"
	"strings"

	"github.com/eugenetaranov/gantry/internal/transport"
)

// Runner is the slice of a transport that Probe needs.
type Runner interface {
	Exec(ctx context.Context, req transport.ExecRequest) (*transport.ExecResult, error)
}

// Info holds the descriptors of a target system. Empty fields mean the
// value could not be determined.
type Info struct {
	// Triple is the architecture-vendor-os triple, e.g.
	// "x86_64-unknown-linux-gnu".
	Triple string

	// OSBuild is the build identifier of the running OS.
	OSBuild string

	// KernelDescription is the verbose kernel version string.
	KernelDescription string

	// Hostname is the target's hostname.
	Hostname string

	// OSVersion is the dotted OS version, e.g. "6.8.0".
	OSVersion string
}

// Probe collects descriptors from the target. Individual lookups failing
// leave their field empty; Probe only errors when the target cannot run
// commands at all.
func Probe(ctx context.Context, r Runner) (*Info, error) {
	osType, err := run(ctx, r, "uname -s")
	if err != nil {
		return nil, fmt.Errorf("failed to probe target: %w", err)
	}

	info := &Info{}

	machine, _ := run(ctx, r, "uname -m")
	release, _ := run(ctx, r, "uname -r")
	info.KernelDescription, _ = run(ctx, r, "uname -v")
	info.Hostname, _ = run(ctx, r, "uname -n")

	switch osType {
	case "Darwin":
		if machine != "" && release != "" {
			info.Triple = fmt.Sprintf("%s-apple-darwin%s", machine, release)
		}
		info.OSBuild, _ = run(ctx, r, "sw_vers -buildVersion")
		info.OSVersion, _ = run(ctx, r, "sw_vers -productVersion")
	case "Linux":
		if machine != "" {
			info.Triple = fmt.Sprintf("%s-unknown-linux-gnu", machine)
		}
		info.OSBuild = release
		info.OSVersion = versionPrefix(release)
	default:
		if machine != "" && osType != "" {
			info.Triple = fmt.Sprintf("%s-unknown-%s", machine, strings.ToLower(osType))
		}
		info.OSBuild = release
		info.OSVersion = versionPrefix(release)
	}

	return info, nil
}

// run executes a command and returns its trimmed output. Non-zero exits are
// treated as lookup failures.
func run(ctx context.Context, r Runner, command string) (string, error) {
	res, err := r.Exec(ctx, transport.ExecRequest{Command: command})
	if err != nil {
		return "", err
	}
	if res.Status != 0 {
		return "", fmt.Errorf("%q exited with status %d", command, res.Status)
	}
	return strings.TrimSpace(res.Output), nil
}

// versionPrefix extracts the leading dotted-digit part of a version string,
// e.g. "6.8.0-45-generic" -> "6.8.0".
func versionPrefix(s string) string {
	end := 0
	for end < len(s) {
		ch := s[end]
		if (ch < '0' || ch > '9') && ch != '.' {
			break
		}
		end++
	}
	return strings.Trim(s[:end], ".")
}
