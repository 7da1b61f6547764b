package platform

// ConnectOptions describes how to reach a remote target: the connection URL,
// optional rsync transfer acceleration and a local cache directory. The zero
// value is usable; empty strings mean "unset" throughout.
type ConnectOptions struct {
	url               string
	rsyncEnabled      bool
	rsyncOptions      string
	rsyncPathPrefix   string
	rsyncOmitHostname bool
	localCacheDir     string
}

// NewConnectOptions creates options for the given URL.
func NewConnectOptions(url string) *ConnectOptions {
	o := &ConnectOptions{}
	o.SetURL(url)
	return o
}

// URL returns the connection URL, empty when unset.
func (o *ConnectOptions) URL() string {
	return o.url
}

// SetURL sets the connection URL. An empty string clears it.
func (o *ConnectOptions) SetURL(url string) {
	o.url = url
}

// RsyncEnabled reports whether rsync acceleration is requested.
func (o *ConnectOptions) RsyncEnabled() bool {
	return o.rsyncEnabled
}

// EnableRsync turns on rsync acceleration. The option string and remote path
// prefix always replace the previous values; passing empty strings clears
// them rather than leaving stale state behind.
func (o *ConnectOptions) EnableRsync(options, remotePathPrefix string, omitHostname bool) {
	o.rsyncEnabled = true
	o.rsyncOmitHostname = omitHostname
	o.rsyncOptions = options
	o.rsyncPathPrefix = remotePathPrefix
}

// DisableRsync turns off rsync acceleration.
func (o *ConnectOptions) DisableRsync() {
	o.rsyncEnabled = false
}

// RsyncOptions returns the raw rsync option string.
func (o *ConnectOptions) RsyncOptions() string {
	return o.rsyncOptions
}

// RsyncRemotePathPrefix returns the prefix prepended to remote rsync paths.
func (o *ConnectOptions) RsyncRemotePathPrefix() string {
	return o.rsyncPathPrefix
}

// RsyncOmitHostname reports whether the host part is dropped from remote
// rsync paths.
func (o *ConnectOptions) RsyncOmitHostname() bool {
	return o.rsyncOmitHostname
}

// LocalCacheDirectory returns the directory fetched files are staged in.
func (o *ConnectOptions) LocalCacheDirectory() string {
	return o.localCacheDir
}

// SetLocalCacheDirectory sets the staging directory. An empty path clears it.
func (o *ConnectOptions) SetLocalCacheDirectory(path string) {
	o.localCacheDir = path
}
