/*
Package lookup implements the Local Lookup Utility (spec.md §4.6): an
offline resolver over an already-loaded Topology that answers
(service-name, hostname) -> (device, mount-point) without holding any
lock against a running server.

Grounded directly on
original_source/pyclownfish/clownfish_local.py's
_clownfish_local_main_locate: a bare name first tries the MGT table,
otherwise it is split into "<fsname>-<tag>", the filesystem must be
configured, and the resulting service must belong to that filesystem.
*/
package lookup
