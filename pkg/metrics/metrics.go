package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Topology metrics
	ServicesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "clownfish_services_total",
			Help: "Total number of configured services by kind",
		},
		[]string{"kind"},
	)

	HostsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "clownfish_hosts_total",
			Help: "Total number of configured hosts",
		},
	)

	FilesystemsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "clownfish_filesystems_total",
			Help: "Total number of configured filesystems",
		},
	)

	// Status & repair engine metrics
	ServiceStatusTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "clownfish_service_status_total",
			Help: "Number of services currently in each status kind",
		},
		[]string{"status"},
	)

	ServicesWithProblem = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "clownfish_services_with_problem",
			Help: "Number of services currently flagged as having a problem",
		},
	)

	ServicesInRepair = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "clownfish_services_in_repair",
			Help: "Number of services currently undergoing repair",
		},
	)

	RepairWorkersWaiting = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "clownfish_repair_workers_waiting",
			Help: "Number of repair workers currently parked waiting for a problem",
		},
	)

	ProbeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clownfish_probe_duration_seconds",
			Help:    "Time taken to probe a service's status",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	RepairDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clownfish_repair_duration_seconds",
			Help:    "Time taken for a single repair cycle, by outcome",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	RepairsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clownfish_repairs_total",
			Help: "Total number of repair attempts by tier and outcome",
		},
		[]string{"tier", "outcome"},
	)

	ElectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clownfish_repair_elections_total",
			Help: "Total number of times a service was elected for repair, by service name",
		},
		[]string{"service"},
	)

	HAEnabled = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "clownfish_ha_enabled",
			Help: "Whether the repair engine currently considers HA enabled (1) or disabled (0)",
		},
	)

	// Command dispatch metrics
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clownfish_commands_total",
			Help: "Total number of dispatched commands by subsystem and exit status",
		},
		[]string{"subsystem", "status"},
	)

	CommandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clownfish_command_duration_seconds",
			Help:    "Command execution duration in seconds by subsystem",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"subsystem"},
	)

	CommandsAbortedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "clownfish_commands_aborted_total",
			Help: "Total number of commands aborted by operator request",
		},
	)

	// Session protocol metrics
	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "clownfish_sessions_active",
			Help: "Number of currently active console sessions",
		},
	)

	SessionsReapedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "clownfish_sessions_reaped_total",
			Help: "Total number of sessions evicted by the idle reaper",
		},
	)

	SessionRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clownfish_session_requests_total",
			Help: "Total number of session protocol requests by message type and error code",
		},
		[]string{"message_type", "error_code"},
	)

	// HA cluster bootstrap metrics
	HABootstrapDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clownfish_ha_bootstrap_duration_seconds",
			Help:    "Time taken to bootstrap the HA cluster in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)

	HATeardownDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clownfish_ha_teardown_duration_seconds",
			Help:    "Time taken to tear down the HA cluster in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)

	HABootstrapFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clownfish_ha_bootstrap_failures_total",
			Help: "Total number of HA bootstrap step failures by step",
		},
		[]string{"step"},
	)
)

func init() {
	prometheus.MustRegister(ServicesTotal)
	prometheus.MustRegister(HostsTotal)
	prometheus.MustRegister(FilesystemsTotal)

	prometheus.MustRegister(ServiceStatusTotal)
	prometheus.MustRegister(ServicesWithProblem)
	prometheus.MustRegister(ServicesInRepair)
	prometheus.MustRegister(RepairWorkersWaiting)
	prometheus.MustRegister(ProbeDuration)
	prometheus.MustRegister(RepairDuration)
	prometheus.MustRegister(RepairsTotal)
	prometheus.MustRegister(ElectionsTotal)
	prometheus.MustRegister(HAEnabled)

	prometheus.MustRegister(CommandsTotal)
	prometheus.MustRegister(CommandDuration)
	prometheus.MustRegister(CommandsAbortedTotal)

	prometheus.MustRegister(SessionsActive)
	prometheus.MustRegister(SessionsReapedTotal)
	prometheus.MustRegister(SessionRequestsTotal)

	prometheus.MustRegister(HABootstrapDuration)
	prometheus.MustRegister(HATeardownDuration)
	prometheus.MustRegister(HABootstrapFailuresTotal)
}

// Handler returns the Prometheus HTTP handler served on the metrics side
// channel, separate from the console protocol socket.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
