package ha

import (
	"context"
	"testing"

	"github.com/LiXi-storage/clownfish/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootstrap_DistributesConfigAndKeyToAllHosts(t *testing.T) {
	topo := testTopology()
	exec := newFakeExec()
	files := newFakeFiles()

	b := New(topo, exec, files, Config{})
	err := b.Bootstrap(context.Background())
	require.NoError(t, err)

	// corosync.conf written to every host.
	writtenHosts := map[string]bool{}
	for _, w := range files.Writes {
		if w.Path == "/etc/corosync/corosync.conf" {
			writtenHosts[w.Host] = true
		}
	}
	assert.True(t, writtenHosts["h1"])
	assert.True(t, writtenHosts["h2"])

	// authkey generated on h1 (sorted first) then copied to h2, never
	// generated a second time.
	keygenHosts := 0
	for _, c := range exec.Calls {
		if len(c.Argv) > 0 && c.Argv[0] == "corosync-keygen" {
			keygenHosts++
			assert.Equal(t, "h1", c.Host)
		}
	}
	assert.Equal(t, 1, keygenHosts)

	require.Len(t, files.Copies, 1)
	assert.Equal(t, "h1", files.Copies[0].FromHost)
	assert.Equal(t, "h2", files.Copies[0].ToHost)
}

func TestBootstrap_EnablesAndStartsClusterEverywhere(t *testing.T) {
	topo := testTopology()
	exec := newFakeExec()
	files := newFakeFiles()

	b := New(topo, exec, files, Config{})
	require.NoError(t, b.Bootstrap(context.Background()))

	enabled := map[string]bool{}
	started := map[string]bool{}
	for _, c := range exec.Calls {
		if len(c.Argv) >= 2 && c.Argv[0] == "systemctl" && c.Argv[1] == "enable" {
			enabled[c.Host] = true
		}
		if len(c.Argv) >= 2 && c.Argv[0] == "systemctl" && c.Argv[1] == "start" {
			started[c.Host] = true
		}
	}
	assert.True(t, enabled["h1"])
	assert.True(t, enabled["h2"])
	assert.True(t, started["h1"])
	assert.True(t, started["h2"])
}

func TestBootstrap_InstallsResourceGraphOnFirstHostOnly(t *testing.T) {
	topo := testTopology()
	exec := newFakeExec()
	files := newFakeFiles()

	b := New(topo, exec, files, Config{})
	require.NoError(t, b.Bootstrap(context.Background()))

	for _, c := range exec.Calls {
		if len(c.Argv) > 0 && c.Argv[0] == "pcs" && len(c.Argv) > 1 && c.Argv[1] == "property" {
			assert.Equal(t, "h1", c.Host)
		}
	}
}

func TestBootstrap_KeygenFailureAbortsBeforeDistribution(t *testing.T) {
	topo := testTopology()
	exec := newFakeExec()
	exec.FailOn["h1:corosync-keygen"] = true
	files := newFakeFiles()

	b := New(topo, exec, files, Config{})
	err := b.Bootstrap(context.Background())
	require.Error(t, err)
	assert.Empty(t, files.Writes)
}

func TestBootstrap_ClownfishConfigPayloadDistributedWhenSet(t *testing.T) {
	topo := testTopology()
	exec := newFakeExec()
	files := newFakeFiles()

	b := New(topo, exec, files, Config{ClownfishConfigPayload: []byte("fsname: testfs\n")})
	require.NoError(t, b.Bootstrap(context.Background()))

	found := 0
	for _, w := range files.Writes {
		if w.Path == "/etc/clownfish/clownfish.conf" {
			found++
		}
	}
	assert.Equal(t, 2, found)
}

func TestTeardown_DestroysClusterOnEveryHost(t *testing.T) {
	topo := testTopology()
	exec := newFakeExec()
	files := newFakeFiles()

	b := New(topo, exec, files, Config{})
	require.NoError(t, b.Teardown(context.Background()))

	destroyed := map[string]bool{}
	for _, c := range exec.Calls {
		if len(c.Argv) >= 2 && c.Argv[0] == "pcs" && c.Argv[1] == "cluster" {
			destroyed[c.Host] = true
		}
	}
	assert.True(t, destroyed["h1"])
	assert.True(t, destroyed["h2"])
}

func TestTeardown_RetriesAfterKillAndStillFails(t *testing.T) {
	topo := testTopology()
	exec := newFakeExec()
	exec.FailOn["h1:pcs"] = true
	files := newFakeFiles()

	b := New(topo, exec, files, Config{})
	err := b.Teardown(context.Background())
	require.Error(t, err)

	killed := false
	for _, c := range exec.Calls {
		if c.Host == "h1" && len(c.Argv) > 0 && c.Argv[0] == "killall" {
			killed = true
		}
	}
	assert.True(t, killed, "teardown should attempt killall -9 corosync before giving up")
}

func TestBootstrap_NoReferencedHostsErrors(t *testing.T) {
	topo := testTopology()
	topo.Services = map[string]*types.Service{}

	b := New(topo, newFakeExec(), newFakeFiles(), Config{})
	err := b.Bootstrap(context.Background())
	require.Error(t, err)
}
