package lookup

import (
	"os"
	"testing"

	"github.com/LiXi-storage/clownfish/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTopology() *types.Topology {
	topo := &types.Topology{
		Hosts: map[string]types.Host{
			"h1": {ID: "h1", Hostname: "server1"},
			"h2": {ID: "h2", Hostname: "server2"},
		},
		Services: map[string]*types.Service{
			"lustre_mgs": {
				Name: "lustre_mgs",
				Kind: types.ServiceKindMGT,
				Instances: []types.ServiceInstance{
					{ServiceName: "lustre_mgs", HostID: "h1", DeviceOrPool: "/dev/sda1", MountPoint: "/mnt/mgs"},
				},
			},
			"lustre0-MDT0000": {
				Name: "lustre0-MDT0000",
				Kind: types.ServiceKindMDT,
				Instances: []types.ServiceInstance{
					{ServiceName: "lustre0-MDT0000", HostID: "h1", DeviceOrPool: "/dev/sdb1", MountPoint: "/mnt/lustre0-MDT0000"},
					{ServiceName: "lustre0-MDT0000", HostID: "h2", DeviceOrPool: "/dev/sdb1", MountPoint: "/mnt/lustre0-MDT0000"},
				},
			},
			"lustre0-OST000a": {
				Name: "lustre0-OST000a",
				Kind: types.ServiceKindOST,
				Instances: []types.ServiceInstance{
					{ServiceName: "lustre0-OST000a", HostID: "h2", DeviceOrPool: "/dev/sdc1", MountPoint: "/mnt/lustre0-OST000a"},
				},
			},
		},
		Filesystems: map[string]*types.Filesystem{
			"lustre0": {
				Fsname: "lustre0",
				MDTs:   []string{"lustre0-MDT0000"},
				OSTs:   []string{"lustre0-OST000a"},
			},
		},
	}
	return topo
}

func TestLocate_BareMGTID(t *testing.T) {
	topo := testTopology()
	device, mount, err := Locate(topo, "lustre_mgs", "server1")
	require.NoError(t, err)
	assert.Equal(t, "/dev/sda1", device)
	assert.Equal(t, "/mnt/mgs", mount)
}

func TestLocate_FsnameTagForm(t *testing.T) {
	topo := testTopology()
	device, mount, err := Locate(topo, "lustre0-OST000a", "server2")
	require.NoError(t, err)
	assert.Equal(t, "/dev/sdc1", device)
	assert.Equal(t, "/mnt/lustre0-OST000a", mount)
}

func TestLocate_MultiInstanceService(t *testing.T) {
	topo := testTopology()
	device, mount, err := Locate(topo, "lustre0-MDT0000", "server1")
	require.NoError(t, err)
	assert.Equal(t, "/dev/sdb1", device)
	assert.Equal(t, "/mnt/lustre0-MDT0000", mount)

	device, mount, err = Locate(topo, "lustre0-MDT0000", "server2")
	require.NoError(t, err)
	assert.Equal(t, "/dev/sdb1", device)
	assert.Equal(t, "/mnt/lustre0-MDT0000", mount)
}

func TestLocate_DefaultsToLocalHostname(t *testing.T) {
	topo := testTopology()
	hostname, err := os.Hostname()
	require.NoError(t, err)

	topo.Hosts["h3"] = types.Host{ID: "h3", Hostname: hostname}
	topo.Services["lustre_mgs"].Instances = append(topo.Services["lustre_mgs"].Instances,
		types.ServiceInstance{ServiceName: "lustre_mgs", HostID: "h3", DeviceOrPool: "/dev/sdz1", MountPoint: "/mnt/local-mgs"})

	device, mount, err := Locate(topo, "lustre_mgs", "")
	require.NoError(t, err)
	assert.Equal(t, "/dev/sdz1", device)
	assert.Equal(t, "/mnt/local-mgs", mount)
}

func TestLocate_HostDoesNotProvideService(t *testing.T) {
	topo := testTopology()
	_, _, err := Locate(topo, "lustre0-OST000a", "server1")
	require.Error(t, err)
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestLocate_UnconfiguredFilesystem(t *testing.T) {
	topo := testTopology()
	_, _, err := Locate(topo, "lustre9-OST0000", "server1")
	require.Error(t, err)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Contains(t, nf.Reason, "lustre9")
}

func TestLocate_ServiceNotPartOfNamedFilesystem(t *testing.T) {
	topo := testTopology()
	// "lustre0-bogus" splits to fsname "lustre0" (configured) but no such
	// service exists.
	_, _, err := Locate(topo, "lustre0-bogus", "server1")
	require.Error(t, err)
}

func TestLocate_InvalidFormRejected(t *testing.T) {
	topo := testTopology()
	_, _, err := Locate(topo, "nosuchthing", "server1")
	require.Error(t, err)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Contains(t, nf.Reason, "not a bare MGT id")
}
