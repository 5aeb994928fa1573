package probe

import "context"

// RemoteExec runs argv on host and returns its captured output. It is the
// sole boundary between Clownfish and the outside world for service
// mount/format/check operations (spec.md §1, §9); a real implementation
// shells out (or uses an existing remote-exec library) and is supplied by
// the daemon's entrypoint, never constructed inside this package.
type RemoteExec interface {
	Run(ctx context.Context, host string, argv []string) (stdout, stderr string, exitCode int, err error)
}
