/*
Package types defines Clownfish's topology model: hosts, service
distributions, services (MGT/MDT/OST), service instances, filesystems,
QoS policy and the ephemeral status the engine attaches to a service.

Everything here is a plain data value. Back-references between types
(an instance's host, a service's filesystem) are stored as string ids
rather than pointers, so the whole model stays a flat arena that
pkg/topology assembles from validated configuration and freezes once
at load time. Nothing in this package mutates after that point except
the fields explicitly called out as mutable in the field comments
below (ServiceStatus, and the small HA/lazy-prepare toggles carried by
the process-wide Instance).

# Service kinds

A Service is one of three kinds: MGT (management target), MDT (metadata
target) or OST (object storage target). An MDT may additionally be
flagged IsMGS, meaning it also serves as the filesystem's management
target instead of a standalone MGT. The kind plus the IsMGS flag is
all pkg/engine needs to derive a service's repair priority tier; there
is no separate tier field to keep in sync.

# Back-store kind

A service's instances are shaped by its back-store kind: ldiskfs
instances carry an absolute device path, zfs instances carry a
zpool/dataset name plus the recipe used to create the pool the first
time the service is formatted.
*/
package types
