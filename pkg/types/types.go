package types

import (
	"sync"
	"time"
)

// BackStoreKind is the on-disk format backing a service instance.
type BackStoreKind string

const (
	BackStoreLdiskfs BackStoreKind = "ldiskfs"
	BackStoreZfs     BackStoreKind = "zfs"
)

// ServiceKind distinguishes the three target roles Clownfish manages.
type ServiceKind string

const (
	ServiceKindMGT ServiceKind = "mgt"
	ServiceKindMDT ServiceKind = "mdt"
	ServiceKindOST ServiceKind = "ost"
)

// Host is one candidate machine a service instance can run on.
type Host struct {
	ID         string
	Hostname   string
	DistroID   string // resolves into a LustreDistribution, staged at config load
	CredPath   string // optional ssh credential path
}

// ZpoolRecipe is the zpool-create recipe used the first time a zfs-backed
// instance is formatted. Only meaningful when the owning service's
// BackStoreKind is BackStoreZfs.
type ZpoolRecipe struct {
	PoolName string
	Devices  []string
	Options  []string
}

// ServiceInstance pins one Service to one Host at a device/mount-point pair.
// DeviceOrPool is an absolute device path for ldiskfs services and a
// zpool/dataset name (not absolute) for zfs services.
type ServiceInstance struct {
	ServiceName  string // back-reference by id, never a pointer
	HostID       string
	DeviceOrPool string
	MountPoint   string
	NetworkID    string
	Zpool        *ZpoolRecipe // non-nil only for BackStoreZfs instances
}

// Service is one configured target: an MGT, an MDT or an OST. Exactly one
// Service exists per configured service name; its Instances are the
// ordered set of hosts it may run on, in preference order.
type Service struct {
	mu sync.RWMutex

	Name          string
	Kind          ServiceKind
	BackStore     BackStoreKind
	IsMGS         bool   // only meaningful when Kind == ServiceKindMDT
	Index         int    // ordinal within the owning filesystem's MDT/OST list
	FilesystemFsname string // back-reference by fsname; empty for a standalone MGT
	Instances     []ServiceInstance
}

// RLock/RUnlock/Lock/Unlock/TryLock expose the service's mount-state lock
// to pkg/probe, pkg/engine and pkg/dispatch without handing out the
// embedded mutex directly, per the single-writer-at-a-time-per-service
// invariant. TryLock backs the bulk-operation total order against
// single-service repair: a bulk op that cannot acquire every service's
// lock releases what it already holds, in reverse order, rather than
// blocking indefinitely.
func (s *Service) RLock()     { s.mu.RLock() }
func (s *Service) RUnlock()   { s.mu.RUnlock() }
func (s *Service) Lock()      { s.mu.Lock() }
func (s *Service) Unlock()    { s.mu.Unlock() }
func (s *Service) TryLock() bool { return s.mu.TryLock() }

// Client is a configured Lustre client mount for a filesystem. Clownfish
// does not monitor or repair clients; they are topology only.
type Client struct {
	HostID     string
	MountPoint string
}

// QoSUser overrides the filesystem-wide QoS thresholds for one uid.
type QoSUser struct {
	UID          int
	IOPSLimit    float64
	MBpsLimit    float64
}

// QoS is the optional ClownfishDecayQoS policy attached to a filesystem.
type QoS struct {
	Enabled           bool
	TelemetryHostname string
	SampleInterval    time.Duration
	GlobalIOPSLimit   float64
	GlobalMBpsLimit   float64
	MDSRPCRateLimit   float64
	OSSRPCRateLimit   float64
	Users             map[int]QoSUser // keyed by uid, unique within the filesystem
}

// Filesystem groups one MGT-or-is-MGS-MDT with its ordered MDTs, ordered
// OSTs, and clients.
type Filesystem struct {
	Fsname string
	MgsID  string // resolves to a standalone MGT service name; empty if an MDT carries IsMGS instead
	MDTs   []string // service names, ordered by Service.Index
	OSTs   []string // service names, ordered by Service.Index
	Clients []Client
	QoS     *QoS
}

// StatusKind is the outcome of probing one service instance.
type StatusKind string

const (
	StatusHealthy              StatusKind = "healthy"
	StatusNotMounted           StatusKind = "not-mounted"
	StatusMountedOnWrongHost   StatusKind = "mounted-on-wrong-host"
	StatusMountedOnMultiple    StatusKind = "mounted-on-multiple"
	StatusUnreachable          StatusKind = "unreachable"
)

// ServiceStatus is the engine's most recent view of one service. It is the
// only mutable per-service state besides the mount-state lock embedded in
// Service, and is always replaced wholesale rather than mutated in place.
type ServiceStatus struct {
	ServiceName string
	CheckTime   time.Time
	Kind        StatusKind
	HasProblem  bool
}

// HighAvailability is the decoded high_availability configuration block.
type HighAvailability struct {
	Enabled     bool
	Native      bool   // true: built-in engine drives repairs; false: external HA (e.g. corosync/pacemaker)
	BindNetAddr string // required when Native is false
}

// LustreDistribution is one set of Lustre client/server packages staged
// locally at config load time.
type LustreDistribution struct {
	ID        string
	ClientDir string
	ServerDir string
}

// Topology is the fully assembled, frozen arena produced by pkg/topology
// from validated configuration. All cross references inside it are ids,
// resolved into the maps below once at load time; nothing after that
// point adds or removes an entry. ServiceStatus is the one per-service
// field that keeps changing, and Service itself owns a lock for mount
// bookkeeping — both are called out on their own types above.
type Topology struct {
	Distributions map[string]LustreDistribution // by id
	Hosts         map[string]Host               // by id
	Services      map[string]*Service           // by name
	Filesystems   map[string]*Filesystem        // by fsname

	HighAvailability HighAvailability
}

// MGTs returns the names of every standalone MGT service (Kind ==
// ServiceKindMGT), in no particular order.
func (t *Topology) MGTs() []string {
	var out []string
	for name, svc := range t.Services {
		if svc.Kind == ServiceKindMGT {
			out = append(out, name)
		}
	}
	return out
}

// AllReferencedHostIDs returns the deduplicated set of host ids referenced
// by any instance of any service across the whole topology. This is the
// exact host set pkg/ha uses to build the membership nodelist.
func (t *Topology) AllReferencedHostIDs() map[string]struct{} {
	out := make(map[string]struct{})
	for _, svc := range t.Services {
		for _, inst := range svc.Instances {
			out[inst.HostID] = struct{}{}
		}
	}
	return out
}

// Instance is the process-wide, mostly-immutable handle passed explicitly
// into every session and engine goroutine. Topology is frozen after load;
// Running, HANative and LazyPrepare are the only fields any goroutine
// mutates after startup, and only under the small critical sections noted
// on each.
type Instance struct {
	Topology *Topology

	mu          sync.Mutex
	running     bool
	haNative    bool
	lazyPrepare bool
}

func NewInstance(topo *Topology) *Instance {
	return &Instance{
		Topology: topo,
		haNative: topo.HighAvailability.Native,
	}
}

func (in *Instance) SetRunning(v bool) {
	in.mu.Lock()
	in.running = v
	in.mu.Unlock()
}

func (in *Instance) Running() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.running
}

func (in *Instance) SetHANative(v bool) {
	in.mu.Lock()
	in.haNative = v
	in.mu.Unlock()
}

func (in *Instance) HANative() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.haNative
}

func (in *Instance) SetLazyPrepare(v bool) {
	in.mu.Lock()
	in.lazyPrepare = v
	in.mu.Unlock()
}

func (in *Instance) LazyPrepare() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.lazyPrepare
}
