package lookup

import (
	"fmt"
	"os"
	"strings"

	"github.com/LiXi-storage/clownfish/pkg/types"
)

// NotFoundError is the distinguishable failure spec.md §4.6 requires:
// either the service name does not resolve to a configured service, or
// it resolves but carries no instance on the requested host.
type NotFoundError struct {
	ServiceName string
	Hostname    string
	Reason      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("service %q on host %q: %s", e.ServiceName, e.Hostname, e.Reason)
}

func newNotFound(serviceName, hostname, reason string) *NotFoundError {
	return &NotFoundError{ServiceName: serviceName, Hostname: hostname, Reason: reason}
}

// Locate resolves serviceName to its instance on hostname within topo,
// returning that instance's device/pool and mount point. hostname
// defaults to the local machine's hostname when empty.
//
// serviceName is either a bare MGT service name or "<fsname>-<tag>"; any
// other form is rejected with a NotFoundError, matching spec.md §4.6.
func Locate(topo *types.Topology, serviceName, hostname string) (device, mountPoint string, err error) {
	if hostname == "" {
		hostname, err = os.Hostname()
		if err != nil {
			return "", "", fmt.Errorf("lookup: resolving local hostname: %w", err)
		}
	}

	svc, err := resolveService(topo, serviceName)
	if err != nil {
		return "", "", err
	}

	for _, inst := range svc.Instances {
		host, ok := topo.Hosts[inst.HostID]
		if !ok {
			continue
		}
		if host.Hostname == hostname {
			return inst.DeviceOrPool, inst.MountPoint, nil
		}
	}

	return "", "", newNotFound(serviceName, hostname, "host does not provide this service")
}

func resolveService(topo *types.Topology, serviceName string) (*types.Service, error) {
	if svc, ok := topo.Services[serviceName]; ok && svc.Kind == types.ServiceKindMGT {
		return svc, nil
	}

	fields := strings.SplitN(serviceName, "-", 2)
	if len(fields) != 2 || fields[0] == "" || fields[1] == "" {
		return nil, newNotFound(serviceName, "", "not a bare MGT id nor a valid <fsname>-<tag> name")
	}

	fsname := fields[0]
	fs, ok := topo.Filesystems[fsname]
	if !ok {
		return nil, newNotFound(serviceName, "", fmt.Sprintf("filesystem %q is not configured", fsname))
	}

	svc, ok := topo.Services[serviceName]
	if !ok || !serviceBelongsToFilesystem(fs, serviceName) {
		return nil, newNotFound(serviceName, "", fmt.Sprintf("service is not configured for filesystem %q", fsname))
	}

	return svc, nil
}

func serviceBelongsToFilesystem(fs *types.Filesystem, serviceName string) bool {
	if fs.MgsID == serviceName {
		return true
	}
	for _, name := range fs.MDTs {
		if name == serviceName {
			return true
		}
	}
	for _, name := range fs.OSTs {
		if name == serviceName {
			return true
		}
	}
	return false
}
