package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/LiXi-storage/clownfish/pkg/clownfisherr"
	"github.com/LiXi-storage/clownfish/pkg/log"
	"github.com/LiXi-storage/clownfish/pkg/metrics"
	"github.com/LiXi-storage/clownfish/pkg/probe"
	"github.com/LiXi-storage/clownfish/pkg/types"
)

// DefaultMonitorTick is the default interval between probe cycles for a
// single service.
const DefaultMonitorTick = 1 * time.Second

// DefaultWorkerCount is the default size of the repair worker pool.
const DefaultWorkerCount = 5

// Config controls an Engine's concurrency and timing.
type Config struct {
	MonitorTick time.Duration
	WorkerCount int
	HAEnabled   bool
}

// Engine is the Status & Repair Engine: one monitor per topology service
// plus a bounded pool of repair workers. The zero value is not usable;
// construct with New.
type Engine struct {
	topo   *types.Topology
	prober *probe.Prober

	tick        time.Duration
	workerCount int

	mu             sync.Mutex
	cond           *sync.Cond
	statusByName   map[string]types.ServiceStatus
	problemsByName map[string]struct{}
	inRepair       map[string]struct{}
	lastRepairTime map[string]time.Time
	waitingWorkers int
	haEnabled      bool
	stopped        bool

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New builds an Engine over topo's services. It does not start any
// goroutine; call Start to begin monitoring and repairing.
func New(topo *types.Topology, prober *probe.Prober, cfg Config) *Engine {
	tick := cfg.MonitorTick
	if tick <= 0 {
		tick = DefaultMonitorTick
	}
	workers := cfg.WorkerCount
	if workers <= 0 {
		workers = DefaultWorkerCount
	}

	e := &Engine{
		topo:           topo,
		prober:         prober,
		tick:           tick,
		workerCount:    workers,
		statusByName:   make(map[string]types.ServiceStatus),
		problemsByName: make(map[string]struct{}),
		inRepair:       make(map[string]struct{}),
		lastRepairTime: make(map[string]time.Time),
		haEnabled:      cfg.HAEnabled,
		stopCh:         make(chan struct{}),
	}
	e.cond = sync.NewCond(&e.mu)
	return e
}

// Start spawns one monitor goroutine per service and the repair worker
// pool. It returns immediately.
func (e *Engine) Start() {
	for _, svc := range e.topo.Services {
		e.wg.Add(1)
		go e.monitorService(svc)
	}
	for i := 0; i < e.workerCount; i++ {
		e.wg.Add(1)
		go e.repairWorker(i)
	}
}

// Stop asks every monitor and repair worker to exit and blocks until they
// have, waking anything parked on the condition variable.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	e.mu.Unlock()

	close(e.stopCh)
	e.cond.Broadcast()
	e.wg.Wait()
}

func (e *Engine) monitorService(svc *types.Service) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	for {
		timer := metrics.NewTimer()
		status := e.prober.Check(context.Background(), svc)
		timer.ObserveDurationVec(metrics.ProbeDuration, string(svc.Kind))
		e.publishStatus(status)

		select {
		case <-ticker.C:
		case <-e.stopCh:
			return
		}
	}
}

func (e *Engine) publishStatus(status types.ServiceStatus) {
	e.mu.Lock()
	e.statusByName[status.ServiceName] = status
	_, hadProblem := e.problemsByName[status.ServiceName]
	switch {
	case status.HasProblem && !hadProblem:
		e.problemsByName[status.ServiceName] = struct{}{}
		e.cond.Broadcast()
	case !status.HasProblem && hadProblem:
		delete(e.problemsByName, status.ServiceName)
		e.cond.Broadcast()
	}
	e.mu.Unlock()
}

func (e *Engine) repairWorker(id int) {
	defer e.wg.Done()

	var holding string
	for {
		e.mu.Lock()
		if holding != "" {
			delete(e.inRepair, holding)
			holding = ""
		}
		e.waitingWorkers++
		e.cond.Broadcast()

		for !e.stopped && (!e.haEnabled || len(e.problemsByName) == 0) {
			e.cond.Wait()
		}
		if e.stopped {
			e.waitingWorkers--
			e.mu.Unlock()
			return
		}

		e.waitingWorkers--
		victim := e.electVictimLocked()
		if victim == "" {
			e.mu.Unlock()
			continue
		}

		e.lastRepairTime[victim] = time.Now()
		e.inRepair[victim] = struct{}{}
		holding = victim
		e.mu.Unlock()

		metrics.ElectionsTotal.WithLabelValues(victim).Inc()
		e.runRepairCycle(victim)
	}
}

// electVictimLocked picks the highest-priority service in problemsByName
// that no worker currently holds. Callers must hold e.mu.
func (e *Engine) electVictimLocked() string {
	var candidates []*types.Service
	for name := range e.problemsByName {
		if _, busy := e.inRepair[name]; busy {
			continue
		}
		if svc, ok := e.topo.Services[name]; ok {
			candidates = append(candidates, svc)
		}
	}
	if len(candidates) == 0 {
		return ""
	}

	sort.Slice(candidates, func(i, j int) bool {
		return higherPriority(candidates[i], candidates[j], e.lastRepairTime)
	})
	return candidates[0].Name
}

func (e *Engine) runRepairCycle(name string) {
	svc := e.topo.Services[name]
	timer := metrics.NewTimer()

	status := e.prober.Check(context.Background(), svc)
	outcome := "already-healthy"
	if status.HasProblem {
		if err := e.prober.Fix(context.Background(), svc); err != nil {
			log.WithService(name).Warn().Err(err).Msg("repair attempt failed")
			outcome = "fix-failed"
		} else {
			status = e.prober.Check(context.Background(), svc)
			if status.HasProblem {
				outcome = "still-broken"
			} else {
				outcome = "fixed"
			}
		}
	}

	e.publishStatus(status)
	timer.ObserveDurationVec(metrics.RepairDuration, outcome)
	metrics.RepairsTotal.WithLabelValues(tierLabel(svc), outcome).Inc()
}

func tierLabel(svc *types.Service) string {
	switch tier(svc) {
	case 1:
		return "tier1"
	case 2:
		return "tier2"
	default:
		return "tier3"
	}
}

// SetHAEnabled flips ha_enabled and wakes every parked worker so it can
// re-evaluate its wait predicate.
func (e *Engine) SetHAEnabled(enabled bool) {
	e.mu.Lock()
	e.haEnabled = enabled
	e.mu.Unlock()
	e.cond.Broadcast()
}

// HAEnabled reports the current ha_enabled value.
func (e *Engine) HAEnabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.haEnabled
}

// DisableHA clears ha_enabled and blocks until every repair worker has
// parked (waiting_worker_count == N), or ctx is cancelled first. An abort
// returns a distinguishable error and does not re-enable HA.
func (e *Engine) DisableHA(ctx context.Context) error {
	e.SetHAEnabled(false)
	if err := e.waitForWaitingCount(ctx, e.workerCount); err != nil {
		return clownfisherr.NewAbortedByOperator("disable-ha")
	}
	return nil
}

// EnableHA sets ha_enabled and wakes every parked worker.
func (e *Engine) EnableHA() {
	e.SetHAEnabled(true)
}

// waitForWaitingCount blocks until waitingWorkers reaches target or ctx
// is cancelled. sync.Cond has no native context support, so a helper
// goroutine bridges ctx.Done() into a Broadcast that wakes this wait.
func (e *Engine) waitForWaitingCount(ctx context.Context, target int) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			e.cond.Broadcast()
		case <-done:
		}
	}()

	e.mu.Lock()
	defer e.mu.Unlock()
	for e.waitingWorkers < target && ctx.Err() == nil {
		e.cond.Wait()
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

// StatusSnapshot returns a copy of the engine's current per-service
// status, satisfying metrics.EngineSnapshot.
func (e *Engine) StatusSnapshot() map[string]types.ServiceStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]types.ServiceStatus, len(e.statusByName))
	for name, st := range e.statusByName {
		out[name] = st
	}
	return out
}

// ProblemNames returns the names currently in problems_by_name, sorted.
// It returns bare names; "service list-problems" adds the tier and the
// time since last repair itself.
func (e *Engine) ProblemNames() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.problemsByName))
	for name := range e.problemsByName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// LastRepairTime returns the last repair attempt time for name, if any.
func (e *Engine) LastRepairTime(name string) (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.lastRepairTime[name]
	return t, ok
}

// InRepairCount returns the number of services currently held by a
// repair worker, satisfying metrics.EngineSnapshot.
func (e *Engine) InRepairCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.inRepair)
}

// WaitingWorkerCount returns the number of repair workers currently
// parked on the condition variable, satisfying metrics.EngineSnapshot.
func (e *Engine) WaitingWorkerCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.waitingWorkers
}
