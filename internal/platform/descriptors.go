package platform

import (
	"context"
	"math"

	"github.com/eugenetaranov/gantry/pkg/sysinfo"
)

// UnknownVersion is returned by the OS version accessors when the component
// is missing. Descriptor queries never fail, they degrade.
const UnknownVersion uint32 = math.MaxUint32

// cachedInfo holds the probed descriptors for the current session.
type cachedInfo struct {
	info *sysinfo.Info
}

func (c *cachedInfo) reset() {
	c.info = nil
}

// describe probes the target's descriptors once per session and caches
// them. It returns nil when the platform is invalid or disconnected, or
// when probing fails.
func (p *Platform) describe(ctx context.Context) *sysinfo.Info {
	if !p.IsConnected() {
		return nil
	}
	if p.info.info == nil {
		info, err := sysinfo.Probe(ctx, p.t)
		if err != nil {
			p.log.WithError(err).Debug("Descriptor probe failed")
			return nil
		}
		p.info.info = info
	}
	return p.info.info
}

// GetTriple returns the target's architecture-vendor-os triple, empty when
// unavailable.
func (p *Platform) GetTriple(ctx context.Context) string {
	if info := p.describe(ctx); info != nil {
		return info.Triple
	}
	return ""
}

// GetOSBuild returns the target's OS build identifier, empty when
// unavailable.
func (p *Platform) GetOSBuild(ctx context.Context) string {
	if info := p.describe(ctx); info != nil {
		return info.OSBuild
	}
	return ""
}

// GetOSDescription returns the target's kernel description string, empty
// when unavailable.
func (p *Platform) GetOSDescription(ctx context.Context) string {
	if info := p.describe(ctx); info != nil {
		return info.KernelDescription
	}
	return ""
}

// GetHostname returns the target's hostname, empty when unavailable.
func (p *Platform) GetHostname(ctx context.Context) string {
	if info := p.describe(ctx); info != nil {
		return info.Hostname
	}
	return ""
}

// GetOSMajorVersion returns the major OS version, or UnknownVersion.
func (p *Platform) GetOSMajorVersion(ctx context.Context) uint32 {
	return p.versionComponent(ctx, 0)
}

// GetOSMinorVersion returns the minor OS version, or UnknownVersion.
func (p *Platform) GetOSMinorVersion(ctx context.Context) uint32 {
	return p.versionComponent(ctx, 1)
}

// GetOSUpdateVersion returns the update OS version, or UnknownVersion.
func (p *Platform) GetOSUpdateVersion(ctx context.Context) uint32 {
	return p.versionComponent(ctx, 2)
}

func (p *Platform) versionComponent(ctx context.Context, index int) uint32 {
	info := p.describe(ctx)
	if info == nil {
		return UnknownVersion
	}

	v := sysinfo.ParseVersion(info.OSVersion)
	if v.Components <= index {
		return UnknownVersion
	}
	switch index {
	case 0:
		return v.Major
	case 1:
		return v.Minor
	default:
		return v.Update
	}
}
