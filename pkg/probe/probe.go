package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/LiXi-storage/clownfish/pkg/clownfisherr"
	"github.com/LiXi-storage/clownfish/pkg/types"
)

// Prober implements the check/mount/umount/format/fix capability set
// common to every Service kind, driven entirely through a RemoteExec.
type Prober struct {
	Exec RemoteExec
}

func New(exec RemoteExec) *Prober {
	return &Prober{Exec: exec}
}

// Check probes every host that could run an instance of svc and derives
// a StatusKind from how many of them currently report the mount point
// mounted. The first instance in svc.Instances is the preferred host.
func (p *Prober) Check(ctx context.Context, svc *types.Service) types.ServiceStatus {
	status := types.ServiceStatus{
		ServiceName: svc.Name,
		CheckTime:   time.Now(),
	}

	if len(svc.Instances) == 0 {
		status.Kind = types.StatusUnreachable
		status.HasProblem = true
		return status
	}

	preferred := svc.Instances[0]
	var mountedOn []string
	reachable := 0

	for _, inst := range svc.Instances {
		mounted, ok := p.isMounted(ctx, inst)
		if !ok {
			continue
		}
		reachable++
		if mounted {
			mountedOn = append(mountedOn, inst.HostID)
		}
	}

	switch {
	case reachable == 0:
		status.Kind = types.StatusUnreachable
	case len(mountedOn) == 0:
		status.Kind = types.StatusNotMounted
	case len(mountedOn) > 1:
		status.Kind = types.StatusMountedOnMultiple
	case mountedOn[0] != preferred.HostID:
		status.Kind = types.StatusMountedOnWrongHost
	default:
		status.Kind = types.StatusHealthy
	}

	status.HasProblem = status.Kind != types.StatusHealthy
	return status
}

func (p *Prober) isMounted(ctx context.Context, inst types.ServiceInstance) (mounted, reachable bool) {
	_, _, exitCode, err := p.Exec.Run(ctx, inst.HostID, []string{"findmnt", "-n", inst.MountPoint})
	if err != nil {
		return false, false
	}
	return exitCode == 0, true
}

// Mount mounts svc's preferred instance on its assigned host.
func (p *Prober) Mount(ctx context.Context, svc *types.Service) error {
	return p.MountOn(ctx, svc, svc.Instances[0].HostID)
}

// Umount unmounts svc's preferred instance from its assigned host.
func (p *Prober) Umount(ctx context.Context, svc *types.Service) error {
	return p.UmountOn(ctx, svc, svc.Instances[0].HostID)
}

// MountOn mounts svc on a specific candidate host, used by the "move"
// command to relocate a service away from its default preferred host.
func (p *Prober) MountOn(ctx context.Context, svc *types.Service, hostID string) error {
	inst, ok := instanceFor(svc, hostID)
	if !ok {
		return clownfisherr.NewRemoteCommandError(hostID, nil, "", fmt.Sprintf("%s is not a candidate host for %s", hostID, svc.Name), -1)
	}
	argv := []string{"mount", "-t", "lustre", inst.DeviceOrPool, inst.MountPoint}
	return p.run(ctx, inst.HostID, argv)
}

// UmountOn unmounts svc from a specific candidate host.
func (p *Prober) UmountOn(ctx context.Context, svc *types.Service, hostID string) error {
	inst, ok := instanceFor(svc, hostID)
	if !ok {
		return clownfisherr.NewRemoteCommandError(hostID, nil, "", fmt.Sprintf("%s is not a candidate host for %s", hostID, svc.Name), -1)
	}
	return p.run(ctx, inst.HostID, []string{"umount", inst.MountPoint})
}

func instanceFor(svc *types.Service, hostID string) (types.ServiceInstance, bool) {
	for _, inst := range svc.Instances {
		if inst.HostID == hostID {
			return inst, true
		}
	}
	return types.ServiceInstance{}, false
}

// Format creates the on-disk filesystem for svc's preferred instance:
// for zfs back stores this means creating the zpool first.
func (p *Prober) Format(ctx context.Context, svc *types.Service) error {
	inst := svc.Instances[0]

	if svc.BackStore == types.BackStoreZfs && inst.Zpool != nil {
		argv := append([]string{"zpool", "create", inst.Zpool.PoolName}, inst.Zpool.Options...)
		argv = append(argv, inst.Zpool.Devices...)
		if err := p.run(ctx, inst.HostID, argv); err != nil {
			return err
		}
	}

	argv := []string{"mkfs.lustre", fmt.Sprintf("--%s", svc.Kind), inst.DeviceOrPool}
	if svc.BackStore == types.BackStoreZfs {
		argv = append(argv, "--backfstype=zfs")
	}
	return p.run(ctx, inst.HostID, argv)
}

// Fix converges svc back to "mounted on exactly the preferred host":
// it unmounts every non-preferred instance that currently has it
// mounted, then mounts the preferred instance if it isn't already.
func (p *Prober) Fix(ctx context.Context, svc *types.Service) error {
	preferred := svc.Instances[0]

	for _, inst := range svc.Instances[1:] {
		mounted, reachable := p.isMounted(ctx, inst)
		if reachable && mounted {
			if err := p.run(ctx, inst.HostID, []string{"umount", inst.MountPoint}); err != nil {
				return err
			}
		}
	}

	mounted, reachable := p.isMounted(ctx, preferred)
	if !reachable {
		return clownfisherr.NewRemoteCommandError(preferred.HostID, []string{"findmnt"}, "", "host unreachable", -1)
	}
	if mounted {
		return nil
	}
	return p.Mount(ctx, svc)
}

func (p *Prober) run(ctx context.Context, host string, argv []string) error {
	stdout, stderr, exitCode, err := p.Exec.Run(ctx, host, argv)
	if err != nil {
		return err
	}
	if exitCode != 0 {
		return clownfisherr.NewRemoteCommandError(host, argv, stdout, stderr, exitCode)
	}
	return nil
}
