package ha

import "context"

// FileCopier is the capability boundary for distributing generated
// artifacts (membership config, the Clownfish config file, the corosync
// authentication key) to participating hosts. It is supplied by the
// daemon's entrypoint, exactly like probe.RemoteExec is for command
// execution — neither is constructed inside this package.
type FileCopier interface {
	// WriteFile writes data to remotePath on host.
	WriteFile(ctx context.Context, host, remotePath string, data []byte) error

	// CopyBetweenHosts copies fromPath on fromHost to toPath on toHost
	// without round-tripping the bytes through the caller, mirroring the
	// original's host-to-host authkey distribution.
	CopyBetweenHosts(ctx context.Context, fromHost, fromPath, toHost, toPath string) error
}
