package engine

import (
	"context"
	"testing"
	"time"

	"github.com/LiXi-storage/clownfish/pkg/probe"
	"github.com/LiXi-storage/clownfish/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mgtService() *types.Service {
	return &types.Service{
		Name: "testfs-MGT0000", Kind: types.ServiceKindMGT, BackStore: types.BackStoreLdiskfs,
		Instances: []types.ServiceInstance{{ServiceName: "testfs-MGT0000", HostID: "h1", DeviceOrPool: "/dev/sda1", MountPoint: "/mnt/mgt"}},
	}
}

func mdtService(name string) *types.Service {
	return &types.Service{
		Name: name, Kind: types.ServiceKindMDT, BackStore: types.BackStoreLdiskfs,
		Instances: []types.ServiceInstance{{ServiceName: name, HostID: "h1", DeviceOrPool: "/dev/sda1", MountPoint: "/mnt/" + name}},
	}
}

func ostService(name string) *types.Service {
	return &types.Service{
		Name: name, Kind: types.ServiceKindOST, BackStore: types.BackStoreLdiskfs,
		Instances: []types.ServiceInstance{{ServiceName: name, HostID: "h1", DeviceOrPool: "/dev/sda1", MountPoint: "/mnt/" + name}},
	}
}

func newTestEngine(services ...*types.Service) *Engine {
	topo := &types.Topology{Services: make(map[string]*types.Service)}
	for _, svc := range services {
		topo.Services[svc.Name] = svc
	}
	exec := probe.NewFakeRemoteExec()
	p := probe.New(exec)
	return New(topo, p, Config{MonitorTick: 5 * time.Millisecond, WorkerCount: 1})
}

// TestElectVictim_PriorityOrder is scenario 5: an MGT is configured but
// healthy, while two MDTs and one OST are problematic; the next two
// elections must pick the MDTs before the OST.
func TestElectVictim_PriorityOrder(t *testing.T) {
	mgt := mgtService()
	mdt1 := mdtService("fs-MDT0000")
	mdt2 := mdtService("fs-MDT0001")
	ost := ostService("fs-OST0000")
	e := newTestEngine(mgt, mdt1, mdt2, ost)

	e.mu.Lock()
	e.problemsByName = map[string]struct{}{mdt1.Name: {}, mdt2.Name: {}, ost.Name: {}}
	e.mu.Unlock()

	var order []string
	for i := 0; i < 3; i++ {
		e.mu.Lock()
		victim := e.electVictimLocked()
		require.NotEmpty(t, victim)
		e.lastRepairTime[victim] = time.Now()
		delete(e.problemsByName, victim)
		e.mu.Unlock()
		order = append(order, victim)
	}

	assert.ElementsMatch(t, []string{mdt1.Name, mdt2.Name}, order[:2])
	assert.Equal(t, ost.Name, order[2])
}

// TestElectVictim_AbsentBeatsPresent covers the tie-breaker: within a
// tier, a service never repaired outranks one repaired recently.
func TestElectVictim_AbsentBeatsPresent(t *testing.T) {
	ost1 := ostService("fs-OST0000")
	ost2 := ostService("fs-OST0001")
	e := newTestEngine(ost1, ost2)

	e.mu.Lock()
	e.problemsByName = map[string]struct{}{ost1.Name: {}, ost2.Name: {}}
	e.lastRepairTime[ost1.Name] = time.Now()
	victim := e.electVictimLocked()
	e.mu.Unlock()

	assert.Equal(t, ost2.Name, victim)
}

// TestElectVictim_OlderWinsAmongRepaired covers the case where both
// candidates have been repaired before: the older attempt wins.
func TestElectVictim_OlderWinsAmongRepaired(t *testing.T) {
	ost1 := ostService("fs-OST0000")
	ost2 := ostService("fs-OST0001")
	e := newTestEngine(ost1, ost2)

	e.mu.Lock()
	e.problemsByName = map[string]struct{}{ost1.Name: {}, ost2.Name: {}}
	e.lastRepairTime[ost1.Name] = time.Now().Add(-time.Hour)
	e.lastRepairTime[ost2.Name] = time.Now()
	victim := e.electVictimLocked()
	e.mu.Unlock()

	assert.Equal(t, ost1.Name, victim)
}

// TestElectVictim_SkipsInRepair covers the case where the highest
// priority candidate is already held by another worker.
func TestElectVictim_SkipsInRepair(t *testing.T) {
	ost1 := ostService("fs-OST0000")
	ost2 := ostService("fs-OST0001")
	e := newTestEngine(ost1, ost2)

	e.mu.Lock()
	e.problemsByName = map[string]struct{}{ost1.Name: {}, ost2.Name: {}}
	e.inRepair[ost1.Name] = struct{}{}
	victim := e.electVictimLocked()
	e.mu.Unlock()

	assert.Equal(t, ost2.Name, victim)
}

// TestElectVictim_RotatesAmongPersistentFailures is scenario 6: three
// OSTs are all persistently problematic; across four elections each
// must be chosen at least once.
func TestElectVictim_RotatesAmongPersistentFailures(t *testing.T) {
	osts := []*types.Service{ostService("fs-OST0000"), ostService("fs-OST0001"), ostService("fs-OST0002")}
	e := newTestEngine(osts[0], osts[1], osts[2])

	e.mu.Lock()
	for _, svc := range osts {
		e.problemsByName[svc.Name] = struct{}{}
	}
	e.mu.Unlock()

	elected := make(map[string]int)
	for i := 0; i < 4; i++ {
		e.mu.Lock()
		victim := e.electVictimLocked()
		require.NotEmpty(t, victim)
		e.lastRepairTime[victim] = time.Now()
		e.inRepair[victim] = struct{}{}
		e.mu.Unlock()

		elected[victim]++

		e.mu.Lock()
		delete(e.inRepair, victim)
		e.mu.Unlock()
	}

	for _, svc := range osts {
		assert.GreaterOrEqual(t, elected[svc.Name], 1, "service %s never elected", svc.Name)
	}
}

// TestEngine_NoRepairWhileHADisabled covers invariant 4: while HA is
// disabled no service's last_repair_time changes, and every worker
// eventually parks (invariant 3).
func TestEngine_NoRepairWhileHADisabled(t *testing.T) {
	ost := ostService("fs-OST0000")
	e := newTestEngine(ost)
	e.Start()
	defer e.Stop()

	require.Eventually(t, func() bool {
		return e.WaitingWorkerCount() == 1
	}, time.Second, 5*time.Millisecond)

	_, ok := e.LastRepairTime(ost.Name)
	assert.False(t, ok)

	time.Sleep(30 * time.Millisecond)
	_, ok = e.LastRepairTime(ost.Name)
	assert.False(t, ok, "last_repair_time must not change while HA is disabled")
}

// TestEngine_RepairConvergesWhenEnabled exercises the full monitor ->
// elect -> fix -> re-probe cycle end to end.
func TestEngine_RepairConvergesWhenEnabled(t *testing.T) {
	ost := ostService("fs-OST0000")
	e := newTestEngine(ost)
	e.EnableHA()
	e.Start()
	defer e.Stop()

	require.Eventually(t, func() bool {
		st, ok := e.StatusSnapshot()[ost.Name]
		return ok && st.Kind == types.StatusHealthy
	}, time.Second, 5*time.Millisecond)

	_, ok := e.LastRepairTime(ost.Name)
	assert.True(t, ok)
}

// TestEngine_DisableHAWaitsForAllWorkersToPark covers the blocking
// disable operation itself.
func TestEngine_DisableHAWaitsForAllWorkersToPark(t *testing.T) {
	ost := ostService("fs-OST0000")
	topo := &types.Topology{Services: map[string]*types.Service{ost.Name: ost}}
	exec := probe.NewFakeRemoteExec()
	p := probe.New(exec)
	e := New(topo, p, Config{MonitorTick: 5 * time.Millisecond, WorkerCount: 3, HAEnabled: true})
	e.Start()
	defer e.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := e.DisableHA(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, e.WaitingWorkerCount())
	assert.False(t, e.HAEnabled())
}

// TestEngine_DisableHAAbortDoesNotReEnable covers the documented
// ambiguity: aborting the disable wait never re-enables HA.
func TestEngine_DisableHAAbortDoesNotReEnable(t *testing.T) {
	ost := ostService("fs-OST0000")
	e := newTestEngine(ost)
	e.EnableHA()
	e.Start()
	defer e.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := e.DisableHA(ctx)
	assert.Error(t, err)
	assert.False(t, e.HAEnabled())
}
