/*
Package ha implements the HA Cluster Bootstrap component (spec.md §4.4):
generating a corosync/pacemaker membership configuration, distributing an
authentication key and the Clownfish configuration file to every
participating host, and installing a declarative pacemaker resource graph
that encodes each service's legal failover set.

Grounded directly on original_source/pyclownfish/corosync.py's
LustreCorosyncCluster: the same membership file (totem, pacemaker service
stub, logging and quorum sections) plus a deduplicated node-list, the same
host-0-generates-the-key-then-fan-out key distribution, and the same
per-MGT/per-filesystem resource/template/location-constraint/ordering
shape built from `pcs`/`crm configure` command lines. Host key and config
distribution runs concurrently across hosts with golang.org/x/sync/errgroup
bounded by a semaphore (default fan-out 8), rather than the original's
one-host-at-a-time loop — nothing in spec.md §4.4 requires sequential
distribution, and a bootstrap across dozens of hosts should not be linear
in host count.
*/
package ha
