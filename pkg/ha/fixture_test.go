package ha

import (
	"context"
	"sync"

	"github.com/LiXi-storage/clownfish/pkg/types"
)

// testTopology builds a two-host, one-filesystem topology with a
// standalone MGT, one MDT and two OSTs; every service is instanced on both
// hosts except testfs-OST0001, which is instanced on h2 only.
func testTopology() *types.Topology {
	topo := &types.Topology{
		Hosts: map[string]types.Host{
			"h1": {ID: "h1", Hostname: "oss1.example.com"},
			"h2": {ID: "h2", Hostname: "oss2.example.com"},
		},
		Services:    map[string]*types.Service{},
		Filesystems: map[string]*types.Filesystem{},
		HighAvailability: types.HighAvailability{
			Enabled:     true,
			Native:      false,
			BindNetAddr: "10.0.0.0",
		},
	}

	mgt := &types.Service{
		Name: "testfs-MGT0000",
		Kind: types.ServiceKindMGT,
		Instances: []types.ServiceInstance{
			{ServiceName: "testfs-MGT0000", HostID: "h1"},
			{ServiceName: "testfs-MGT0000", HostID: "h2"},
		},
	}
	mdt0 := &types.Service{
		Name: "testfs-MDT0000",
		Kind: types.ServiceKindMDT,
		Instances: []types.ServiceInstance{
			{ServiceName: "testfs-MDT0000", HostID: "h1"},
			{ServiceName: "testfs-MDT0000", HostID: "h2"},
		},
	}
	ost0 := &types.Service{
		Name: "testfs-OST0000",
		Kind: types.ServiceKindOST,
		Instances: []types.ServiceInstance{
			{ServiceName: "testfs-OST0000", HostID: "h1"},
			{ServiceName: "testfs-OST0000", HostID: "h2"},
		},
	}
	ost1 := &types.Service{
		Name: "testfs-OST0001",
		Kind: types.ServiceKindOST,
		Instances: []types.ServiceInstance{
			{ServiceName: "testfs-OST0001", HostID: "h2"},
		},
	}

	topo.Services[mgt.Name] = mgt
	topo.Services[mdt0.Name] = mdt0
	topo.Services[ost0.Name] = ost0
	topo.Services[ost1.Name] = ost1

	topo.Filesystems["testfs"] = &types.Filesystem{
		Fsname: "testfs",
		MgsID:  "testfs-MGT0000",
		MDTs:   []string{"testfs-MDT0000"},
		OSTs:   []string{"testfs-OST0000", "testfs-OST0001"},
	}

	return topo
}

// testTopologyMGSFoldedIntoMDT builds a single-filesystem topology whose
// MGS is folded into its only MDT (fs.MgsID is empty, the MDT carries
// IsMGS), exercising filesystemResourceCommands' no-MDT-template branch.
func testTopologyMGSFoldedIntoMDT() *types.Topology {
	topo := &types.Topology{
		Hosts: map[string]types.Host{
			"h1": {ID: "h1", Hostname: "mds1.example.com"},
		},
		Services:    map[string]*types.Service{},
		Filesystems: map[string]*types.Filesystem{},
	}

	mdt0 := &types.Service{
		Name:  "testfs-MDT0000",
		Kind:  types.ServiceKindMDT,
		IsMGS: true,
		Instances: []types.ServiceInstance{
			{ServiceName: "testfs-MDT0000", HostID: "h1"},
		},
	}
	ost0 := &types.Service{
		Name: "testfs-OST0000",
		Kind: types.ServiceKindOST,
		Instances: []types.ServiceInstance{
			{ServiceName: "testfs-OST0000", HostID: "h1"},
		},
	}

	topo.Services[mdt0.Name] = mdt0
	topo.Services[ost0.Name] = ost0

	topo.Filesystems["testfs"] = &types.Filesystem{
		Fsname: "testfs",
		MDTs:   []string{"testfs-MDT0000"},
		OSTs:   []string{"testfs-OST0000"},
	}

	return topo
}

// fakeExec is a minimal RemoteExec double recording every call, failing
// only for hosts/commands explicitly marked.
type fakeExec struct {
	mu      sync.Mutex
	Calls   []fakeCall
	FailOn  map[string]bool // "host:argv[0]" -> fail
}

type fakeCall struct {
	Host string
	Argv []string
}

func newFakeExec() *fakeExec {
	return &fakeExec{FailOn: make(map[string]bool)}
}

func (f *fakeExec) Run(ctx context.Context, host string, argv []string) (string, string, int, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, fakeCall{Host: host, Argv: append([]string(nil), argv...)})
	f.mu.Unlock()

	if len(argv) > 0 && f.FailOn[host+":"+argv[0]] {
		return "", "simulated failure", 1, nil
	}
	return "", "", 0, nil
}

// fakeFiles is a minimal FileCopier double recording every write/copy.
type fakeFiles struct {
	mu     sync.Mutex
	Writes []fakeWrite
	Copies []fakeCopy
}

type fakeWrite struct {
	Host string
	Path string
	Data []byte
}

type fakeCopy struct {
	FromHost, FromPath, ToHost, ToPath string
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{}
}

func (f *fakeFiles) WriteFile(ctx context.Context, host, remotePath string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Writes = append(f.Writes, fakeWrite{Host: host, Path: remotePath, Data: append([]byte(nil), data...)})
	return nil
}

func (f *fakeFiles) CopyBetweenHosts(ctx context.Context, fromHost, fromPath, toHost, toPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Copies = append(f.Copies, fakeCopy{FromHost: fromHost, FromPath: fromPath, ToHost: toHost, ToPath: toPath})
	return nil
}
