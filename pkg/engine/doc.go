/*
Package engine is the Status & Repair Engine: one monitor goroutine per
configured service, continuously probing it via pkg/probe, plus a bounded
pool of repair workers that elect the highest-priority broken service and
converge it back to healthy.

Shared state lives behind a single mutex/condition-variable pair
(problem-cv in spec terms, engine.cond here): status_by_name,
problems_by_name, in_repair, last_repair_time, waiting_worker_count and
ha_enabled all change under that one lock, and every change that could
unblock a parked worker broadcasts rather than signals, because workers
parked for "HA disabled" and workers parked for "no problems" share the
same condition variable.

Priority is a tagged discriminator on types.Service.Kind (and IsMGS for
MDTs) compared at election time, never stored: tier 1 is the MGT or an
IsMGS MDT, tier 2 is every other MDT, tier 3 is every OST. Within a tier
the candidate with the older (or entirely absent) last_repair_time wins,
so a service that has never been repaired always outranks one repaired
recently, which is what keeps a persistently failing service from
monopolizing the worker pool.
*/
package engine
