package metrics

import (
	"time"

	"github.com/LiXi-storage/clownfish/pkg/types"
)

// EngineSnapshot is the minimal view of the status & repair engine that the
// collector needs. pkg/engine's Engine satisfies it; defining it here rather
// than importing pkg/engine keeps metrics collection a leaf dependency.
type EngineSnapshot interface {
	StatusSnapshot() map[string]types.ServiceStatus
	InRepairCount() int
	WaitingWorkerCount() int
	HAEnabled() bool
}

// Collector periodically samples the topology and the repair engine and
// publishes the result as Prometheus gauges.
type Collector struct {
	topo   *types.Topology
	engine EngineSnapshot
	stopCh chan struct{}
}

// NewCollector creates a new metrics collector.
func NewCollector(topo *types.Topology, engine EngineSnapshot) *Collector {
	return &Collector{
		topo:   topo,
		engine: engine,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting metrics on a 15s tick.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectTopologyMetrics()
	c.collectEngineMetrics()
}

func (c *Collector) collectTopologyMetrics() {
	if c.topo == nil {
		return
	}

	kindCounts := make(map[types.ServiceKind]int)
	for _, svc := range c.topo.Services {
		kindCounts[svc.Kind]++
	}
	for kind, count := range kindCounts {
		ServicesTotal.WithLabelValues(string(kind)).Set(float64(count))
	}

	HostsTotal.Set(float64(len(c.topo.Hosts)))
	FilesystemsTotal.Set(float64(len(c.topo.Filesystems)))
}

func (c *Collector) collectEngineMetrics() {
	if c.engine == nil {
		return
	}

	statusCounts := make(map[types.StatusKind]int)
	problemCount := 0
	for _, st := range c.engine.StatusSnapshot() {
		statusCounts[st.Kind]++
		if st.HasProblem {
			problemCount++
		}
	}
	for kind, count := range statusCounts {
		ServiceStatusTotal.WithLabelValues(string(kind)).Set(float64(count))
	}
	ServicesWithProblem.Set(float64(problemCount))

	ServicesInRepair.Set(float64(c.engine.InRepairCount()))
	RepairWorkersWaiting.Set(float64(c.engine.WaitingWorkerCount()))

	if c.engine.HAEnabled() {
		HAEnabled.Set(1)
	} else {
		HAEnabled.Set(0)
	}
}
