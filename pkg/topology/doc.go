/*
Package topology turns a decoded pkg/config.Raw into a frozen
pkg/types.Topology: it resolves every cross-reference (ssh_hosts id,
distribution id, mgs_id, fsname) into the arena's maps, checks every
invariant from spec §3/§4.5, and stops at the first unrecoverable error,
reporting the offending key and the source file path via
pkg/clownfisherr.ConfigError.

Nothing here mutates after Build returns: the caller owns the resulting
*types.Topology for the rest of the process's life, sharing it read-only
across every monitor goroutine, the dispatcher and the session server.
*/
package topology
