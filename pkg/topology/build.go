package topology

import (
	"fmt"
	"sort"
	"strings"

	"github.com/LiXi-storage/clownfish/pkg/clownfisherr"
	"github.com/LiXi-storage/clownfish/pkg/config"
	"github.com/LiXi-storage/clownfish/pkg/types"
)

// Build validates raw and assembles the frozen Topology arena. source is
// the config file path, carried only so errors can report it; Build does
// no I/O itself. It returns on the first unrecoverable error.
func Build(raw *config.Raw, source string) (*types.Topology, error) {
	topo := &types.Topology{
		Distributions: make(map[string]types.LustreDistribution),
		Hosts:         make(map[string]types.Host),
		Services:      make(map[string]*types.Service),
		Filesystems:   make(map[string]*types.Filesystem),
	}

	if err := buildDistributions(raw, topo, source); err != nil {
		return nil, err
	}
	if err := buildHosts(raw, topo, source); err != nil {
		return nil, err
	}
	if err := buildMGSList(raw, topo, source); err != nil {
		return nil, err
	}
	if err := buildLustres(raw, topo, source); err != nil {
		return nil, err
	}
	if err := buildQoS(raw, topo, source); err != nil {
		return nil, err
	}
	if err := buildHighAvailability(raw, topo, source); err != nil {
		return nil, err
	}
	return topo, nil
}

func cfgErr(key, source string, err error) error {
	return clownfisherr.NewConfigError(key, source, err)
}

func buildDistributions(raw *config.Raw, topo *types.Topology, source string) error {
	for i, d := range raw.LustreDistributions {
		key := fmt.Sprintf("lustre_distributions[%d]", i)
		if d.ID == "" {
			return cfgErr(key+".id", source, fmt.Errorf("id is required"))
		}
		if _, exists := topo.Distributions[d.ID]; exists {
			return cfgErr(key+".id", source, fmt.Errorf("duplicate distribution id %q", d.ID))
		}
		if d.ClientDir == "" {
			return cfgErr(key+".client_dir", source, fmt.Errorf("client_dir is required"))
		}
		if d.ServerDir == "" {
			return cfgErr(key+".server_dir", source, fmt.Errorf("server_dir is required"))
		}
		topo.Distributions[d.ID] = types.LustreDistribution{
			ID:        d.ID,
			ClientDir: d.ClientDir,
			ServerDir: d.ServerDir,
		}
	}
	return nil
}

func buildHosts(raw *config.Raw, topo *types.Topology, source string) error {
	for i, h := range raw.SSHHosts {
		key := fmt.Sprintf("ssh_hosts[%d]", i)
		if h.ID == "" {
			return cfgErr(key+".id", source, fmt.Errorf("id is required"))
		}
		if _, exists := topo.Hosts[h.ID]; exists {
			return cfgErr(key+".id", source, fmt.Errorf("duplicate host id %q", h.ID))
		}
		if h.Hostname == "" {
			return cfgErr(key+".hostname", source, fmt.Errorf("hostname is required"))
		}
		if h.DistributionID == "" {
			return cfgErr(key+".distribution_id", source, fmt.Errorf("distribution_id is required"))
		}
		if _, ok := topo.Distributions[h.DistributionID]; !ok {
			return cfgErr(key+".distribution_id", source, fmt.Errorf("distribution_id %q does not resolve", h.DistributionID))
		}
		topo.Hosts[h.ID] = types.Host{
			ID:       h.ID,
			Hostname: h.Hostname,
			DistroID: h.DistributionID,
			CredPath: h.CredentialPath,
		}
	}
	return nil
}

// instanceShape validates a single config.Instance against the back-store
// kind it belongs to and converts it to a types.ServiceInstance.
func instanceShape(serviceName string, backStore types.BackStoreKind, inst config.Instance, key, source string) (types.ServiceInstance, error) {
	out := types.ServiceInstance{
		ServiceName: serviceName,
		HostID:      inst.HostID,
		MountPoint:  inst.MountPoint,
		NetworkID:   inst.NetworkID,
	}

	if inst.HostID == "" {
		return out, cfgErr(key+".host_id", source, fmt.Errorf("host_id is required"))
	}
	if inst.MountPoint == "" {
		return out, cfgErr(key+".mount_point", source, fmt.Errorf("mount_point is required"))
	}

	switch backStore {
	case types.BackStoreLdiskfs:
		if inst.Device == "" {
			return out, cfgErr(key+".device", source, fmt.Errorf("device is required for ldiskfs instances"))
		}
		if !strings.HasPrefix(inst.Device, "/") {
			return out, cfgErr(key+".device", source, fmt.Errorf("device %q must be an absolute path for ldiskfs", inst.Device))
		}
		out.DeviceOrPool = inst.Device
	case types.BackStoreZfs:
		if inst.ZpoolName == "" {
			return out, cfgErr(key+".zpool_name", source, fmt.Errorf("zpool_name is required for zfs instances"))
		}
		if strings.HasPrefix(inst.ZpoolName, "/") {
			return out, cfgErr(key+".zpool_name", source, fmt.Errorf("zpool_name %q must not be an absolute path", inst.ZpoolName))
		}
		out.DeviceOrPool = inst.ZpoolName
		out.Zpool = &types.ZpoolRecipe{
			PoolName: inst.ZpoolName,
			Devices:  inst.ZpoolDevices,
			Options:  inst.ZpoolOptions,
		}
	default:
		return out, cfgErr(key+".back_store", source, fmt.Errorf("back_store must be %q or %q, got %q", types.BackStoreLdiskfs, types.BackStoreZfs, backStore))
	}
	return out, nil
}

func resolveHostRefs(topo *types.Topology, instances []types.ServiceInstance, key, source string) error {
	for i, inst := range instances {
		if _, ok := topo.Hosts[inst.HostID]; !ok {
			return cfgErr(fmt.Sprintf("%s.instances[%d].host_id", key, i), source, fmt.Errorf("host_id %q does not resolve", inst.HostID))
		}
	}
	return nil
}

func buildMGSList(raw *config.Raw, topo *types.Topology, source string) error {
	for i, m := range raw.MGSList {
		key := fmt.Sprintf("mgs_list[%d]", i)
		if m.ID == "" {
			return cfgErr(key+".id", source, fmt.Errorf("id is required"))
		}
		if _, exists := topo.Services[m.ID]; exists {
			return cfgErr(key+".id", source, fmt.Errorf("duplicate service name %q", m.ID))
		}
		if len(m.Instances) == 0 {
			return cfgErr(key+".instances", source, fmt.Errorf("at least one instance is required"))
		}

		backStore := types.BackStoreKind(m.BackStore)
		var instances []types.ServiceInstance
		for j, ci := range m.Instances {
			inst, err := instanceShape(m.ID, backStore, ci, fmt.Sprintf("%s.instances[%d]", key, j), source)
			if err != nil {
				return err
			}
			instances = append(instances, inst)
		}
		if err := resolveHostRefs(topo, instances, key, source); err != nil {
			return err
		}

		topo.Services[m.ID] = &types.Service{
			Name:      m.ID,
			Kind:      types.ServiceKindMGT,
			BackStore: backStore,
			Instances: instances,
		}
	}
	return nil
}

func buildLustres(raw *config.Raw, topo *types.Topology, source string) error {
	for i, l := range raw.Lustres {
		key := fmt.Sprintf("lustres[%d]", i)
		if l.Fsname == "" {
			return cfgErr(key+".fsname", source, fmt.Errorf("fsname is required"))
		}
		if _, exists := topo.Filesystems[l.Fsname]; exists {
			return cfgErr(key+".fsname", source, fmt.Errorf("duplicate fsname %q", l.Fsname))
		}
		if len(l.MDTs) == 0 {
			return cfgErr(key+".mdts", source, fmt.Errorf("at least one MDT is required"))
		}
		if len(l.OSTs) == 0 {
			return cfgErr(key+".osts", source, fmt.Errorf("at least one OST is required"))
		}

		fs := &types.Filesystem{Fsname: l.Fsname}

		mgsCount := 0
		if l.MgsID != "" {
			if _, ok := topo.Services[l.MgsID]; !ok {
				return cfgErr(key+".mgs_id", source, fmt.Errorf("mgs_id %q does not resolve", l.MgsID))
			}
			fs.MgsID = l.MgsID
			mgsCount++
		}

		seenIndex := make(map[int]bool)
		for j, mdt := range l.MDTs {
			mdtKey := fmt.Sprintf("%s.mdts[%d]", key, j)
			if seenIndex[mdt.Index] {
				return cfgErr(mdtKey+".index", source, fmt.Errorf("duplicate MDT index %d", mdt.Index))
			}
			seenIndex[mdt.Index] = true
			if len(mdt.Instances) == 0 {
				return cfgErr(mdtKey+".instances", source, fmt.Errorf("at least one instance is required"))
			}
			if mdt.IsMGS {
				mgsCount++
			}

			name := fmt.Sprintf("%s-MDT%04x", l.Fsname, mdt.Index)
			if _, exists := topo.Services[name]; exists {
				return cfgErr(mdtKey, source, fmt.Errorf("duplicate service name %q", name))
			}

			backStore := types.BackStoreKind(mdt.BackStore)
			var instances []types.ServiceInstance
			for k, ci := range mdt.Instances {
				inst, err := instanceShape(name, backStore, ci, fmt.Sprintf("%s.instances[%d]", mdtKey, k), source)
				if err != nil {
					return err
				}
				instances = append(instances, inst)
			}
			if err := resolveHostRefs(topo, instances, mdtKey, source); err != nil {
				return err
			}

			topo.Services[name] = &types.Service{
				Name:             name,
				Kind:             types.ServiceKindMDT,
				BackStore:        backStore,
				IsMGS:            mdt.IsMGS,
				Index:            mdt.Index,
				FilesystemFsname: l.Fsname,
				Instances:        instances,
			}
			fs.MDTs = append(fs.MDTs, name)
		}

		if mgsCount != 1 {
			return cfgErr(key+".mgs_id", source, fmt.Errorf("exactly one of mgs_id or an is_mgs MDT is required, found %d", mgsCount))
		}

		seenIndex = make(map[int]bool)
		for j, ost := range l.OSTs {
			ostKey := fmt.Sprintf("%s.osts[%d]", key, j)
			if seenIndex[ost.Index] {
				return cfgErr(ostKey+".index", source, fmt.Errorf("duplicate OST index %d", ost.Index))
			}
			seenIndex[ost.Index] = true
			if len(ost.Instances) == 0 {
				return cfgErr(ostKey+".instances", source, fmt.Errorf("at least one instance is required"))
			}

			name := fmt.Sprintf("%s-OST%04x", l.Fsname, ost.Index)
			if _, exists := topo.Services[name]; exists {
				return cfgErr(ostKey, source, fmt.Errorf("duplicate service name %q", name))
			}

			backStore := types.BackStoreKind(ost.BackStore)
			var instances []types.ServiceInstance
			for k, ci := range ost.Instances {
				inst, err := instanceShape(name, backStore, ci, fmt.Sprintf("%s.instances[%d]", ostKey, k), source)
				if err != nil {
					return err
				}
				instances = append(instances, inst)
			}
			if err := resolveHostRefs(topo, instances, ostKey, source); err != nil {
				return err
			}

			topo.Services[name] = &types.Service{
				Name:             name,
				Kind:             types.ServiceKindOST,
				BackStore:        backStore,
				Index:            ost.Index,
				FilesystemFsname: l.Fsname,
				Instances:        instances,
			}
			fs.OSTs = append(fs.OSTs, name)
		}

		for j, c := range l.Clients {
			clientKey := fmt.Sprintf("%s.clients[%d]", key, j)
			if _, ok := topo.Hosts[c.HostID]; !ok {
				return cfgErr(clientKey+".host_id", source, fmt.Errorf("host_id %q does not resolve", c.HostID))
			}
			if c.MountPoint == "" {
				return cfgErr(clientKey+".mount_point", source, fmt.Errorf("mount_point is required"))
			}
			fs.Clients = append(fs.Clients, types.Client{HostID: c.HostID, MountPoint: c.MountPoint})
		}

		sort.Slice(fs.MDTs, func(a, b int) bool {
			return topo.Services[fs.MDTs[a]].Index < topo.Services[fs.MDTs[b]].Index
		})
		sort.Slice(fs.OSTs, func(a, b int) bool {
			return topo.Services[fs.OSTs[a]].Index < topo.Services[fs.OSTs[b]].Index
		})

		topo.Filesystems[l.Fsname] = fs
	}
	return nil
}

func buildQoS(raw *config.Raw, topo *types.Topology, source string) error {
	seenFsname := make(map[string]bool)
	for i, q := range raw.QoS {
		key := fmt.Sprintf("qos[%d]", i)
		if q.Fsname == "" {
			return cfgErr(key+".fsname", source, fmt.Errorf("fsname is required"))
		}
		fs, ok := topo.Filesystems[q.Fsname]
		if !ok {
			return cfgErr(key+".fsname", source, fmt.Errorf("fsname %q does not resolve", q.Fsname))
		}
		if seenFsname[q.Fsname] {
			return cfgErr(key+".fsname", source, fmt.Errorf("duplicate qos entry for fsname %q", q.Fsname))
		}
		seenFsname[q.Fsname] = true

		users := make(map[int]types.QoSUser)
		for j, u := range q.Users {
			userKey := fmt.Sprintf("%s.users[%d]", key, j)
			if _, exists := users[u.UID]; exists {
				return cfgErr(userKey+".uid", source, fmt.Errorf("duplicate uid %d within filesystem %q", u.UID, q.Fsname))
			}
			users[u.UID] = types.QoSUser{
				UID:       u.UID,
				IOPSLimit: u.IOPSLimit,
				MBpsLimit: u.MBpsLimit,
			}
		}

		fs.QoS = &types.QoS{
			Enabled:           q.Enabled,
			TelemetryHostname: q.TelemetryHostname,
			SampleInterval:    secondsToDuration(q.IntervalSeconds),
			GlobalIOPSLimit:   q.GlobalIOPSLimit,
			GlobalMBpsLimit:   q.GlobalMBpsLimit,
			MDSRPCRateLimit:   q.MDSRPCRateLimit,
			OSSRPCRateLimit:   q.OSSRPCRateLimit,
			Users:             users,
		}
	}
	return nil
}

func buildHighAvailability(raw *config.Raw, topo *types.Topology, source string) error {
	ha := types.HighAvailability{
		Enabled:     raw.HighAvailability.Enabled,
		Native:      raw.HighAvailability.Native,
		BindNetAddr: raw.HighAvailability.BindNetAddr,
	}
	if ha.Enabled && !ha.Native && ha.BindNetAddr == "" {
		return cfgErr("high_availability.bindnetaddr", source, fmt.Errorf("bindnetaddr is required when high_availability is enabled and not native"))
	}
	topo.HighAvailability = ha
	return nil
}
