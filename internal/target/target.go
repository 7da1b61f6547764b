// Package target defines the structure and parsing of gantry target
// inventories.
package target

import (
	"fmt"

	"github.com/eugenetaranov/gantry/internal/platform"
	"github.com/eugenetaranov/gantry/internal/transport"
)

// Target describes a machine gantry can connect to.
type Target struct {
	// Name identifies the target in the inventory.
	Name string `yaml:"name"`

	// Kind selects the transport (local, ssh, docker).
	Kind string `yaml:"kind"`

	// URL is the connect URL passed to the transport.
	URL string `yaml:"url"`

	// Options are transport-specific settings (user, key_file, ...).
	Options map[string]string `yaml:"options"`

	// Rsync configures rsync acceleration for file transfers.
	Rsync *RsyncConfig `yaml:"rsync"`

	// LocalCacheDir stages fetched files locally before final placement.
	LocalCacheDir string `yaml:"local_cache_dir"`
}

// RsyncConfig holds rsync settings for a target.
type RsyncConfig struct {
	// Options are extra flags passed to rsync (e.g. "-avz").
	Options string `yaml:"options"`

	// PathPrefix is prepended to remote paths.
	PathPrefix string `yaml:"path_prefix"`

	// OmitHostname drops the user@host: prefix from remote specs.
	OmitHostname bool `yaml:"omit_hostname"`
}

// Validate checks the target for common errors.
func (t *Target) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("target is missing required 'name' field")
	}

	kind := t.GetKind()
	if !transport.Known(kind) {
		return fmt.Errorf("target %s: unknown transport kind %q (available: %v)",
			t.Name, kind, transport.Kinds())
	}

	if kind != "local" && t.URL == "" {
		return fmt.Errorf("target %s: missing required 'url' field", t.Name)
	}

	return nil
}

// GetKind returns the transport kind, defaulting to "local".
func (t *Target) GetKind() string {
	if t.Kind == "" {
		return "local"
	}
	return t.Kind
}

// ConnectOptions builds the connect options for this target.
func (t *Target) ConnectOptions() *platform.ConnectOptions {
	opts := platform.NewConnectOptions(t.URL)
	if t.Rsync != nil {
		opts.EnableRsync(t.Rsync.Options, t.Rsync.PathPrefix, t.Rsync.OmitHostname)
	}
	if t.LocalCacheDir != "" {
		opts.SetLocalCacheDirectory(t.LocalCacheDir)
	}
	return opts
}

// Transport constructs the transport for this target.
func (t *Target) Transport() (transport.Transport, error) {
	return transport.New(t.GetKind(), t.Options)
}

// String returns a human-readable description of the target.
func (t *Target) String() string {
	if t.URL != "" {
		return fmt.Sprintf("%s (%s)", t.Name, t.URL)
	}
	return fmt.Sprintf("%s (%s)", t.Name, t.GetKind())
}
