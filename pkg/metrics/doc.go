/*
Package metrics defines and registers Clownfish's Prometheus metrics and
exposes them, along with a small health/readiness surface, over an HTTP
side channel that is entirely separate from the console protocol socket.

# Metric groups

Topology: clownfish_services_total{kind}, clownfish_hosts_total,
clownfish_filesystems_total. Sampled from the frozen topology on a 15s
tick by Collector.

Status & repair engine: clownfish_service_status_total{status},
clownfish_services_with_problem, clownfish_services_in_repair,
clownfish_repair_workers_waiting, clownfish_probe_duration_seconds{kind},
clownfish_repair_duration_seconds{outcome},
clownfish_repairs_total{tier,outcome}, clownfish_repair_elections_total{service},
clownfish_ha_enabled. These come from an EngineSnapshot the repair engine
implements; the metrics package depends only on that narrow interface, not
on pkg/engine itself.

Command dispatch: clownfish_commands_total{subsystem,status},
clownfish_command_duration_seconds{subsystem}, clownfish_commands_aborted_total.

Session protocol: clownfish_sessions_active, clownfish_sessions_reaped_total,
clownfish_session_requests_total{message_type,error_code}.

HA cluster bootstrap: clownfish_ha_bootstrap_duration_seconds,
clownfish_ha_teardown_duration_seconds,
clownfish_ha_bootstrap_failures_total{step}.

# Usage

	import "github.com/LiXi-storage/clownfish/pkg/metrics"

	timer := metrics.NewTimer()
	err := probe.Check(ctx, svc)
	timer.ObserveDurationVec(metrics.ProbeDuration, string(svc.Kind))

	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/healthz", metrics.HealthHandler())
	mux.Handle("/readyz", metrics.ReadyHandler())

# Health and readiness

RegisterComponent/UpdateComponent record the health of a named component
(e.g. "topology", "engine", "session"). GetReadiness additionally checks
that engine, session and topology have all been registered as healthy
before returning "ready". cmd/clownfishd does not call RegisterComponent;
it serves /metrics from this package and answers /healthz with its own
handler.
*/
package metrics
