/*
Package probe is the thin wrapper spec.md calls the Service Probe Wrapper:
it turns the generic capability set every Service kind shares (check,
mount, umount, format, fix) into a small number of RemoteExec calls, and
nothing else. It does not parse real Lustre tool output. RemoteExec is
the boundary that pkg/engine and pkg/dispatch are handed at startup:
SSHRemoteExec (sshexec.go) is the implementation the daemon uses, and
FakeRemoteExec (fake.go) is the one the tests use.

This package is deliberately shallow: Prober.Check decides a
types.StatusKind from how many candidate hosts currently have a service's
mount point mounted, Prober.Fix converges that back to "mounted on
exactly the preferred host" by issuing Umount/Mount calls, and
Prober.Format/Prober.Mount/Prober.Umount each build one plausible
command line per back-store kind and hand it to RemoteExec.
*/
package probe
