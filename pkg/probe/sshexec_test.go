package probe

import (
	"context"
	"testing"

	"github.com/LiXi-storage/clownfish/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShellQuote_EscapesSingleQuotes(t *testing.T) {
	assert.Equal(t, `'it'\''s'`, shellQuote("it's"))
	assert.Equal(t, `'plain'`, shellQuote("plain"))
}

func TestShellJoin_QuotesEveryArgument(t *testing.T) {
	got := shellJoin([]string{"mount", "-t", "lustre", "/dev/sda1 with space"})
	assert.Equal(t, `'mount' '-t' 'lustre' '/dev/sda1 with space'`, got)
}

func TestNewSSHRemoteExec_DefaultsUserToRoot(t *testing.T) {
	topo := &types.Topology{Hosts: map[string]types.Host{}}
	s := NewSSHRemoteExec(topo, "")
	assert.Equal(t, "root", s.User)
}

func TestSSHRemoteExec_RunUnknownHostErrors(t *testing.T) {
	topo := &types.Topology{Hosts: map[string]types.Host{}}
	s := NewSSHRemoteExec(topo, "")

	_, _, _, err := s.Run(context.Background(), "nosuchhost", []string{"true"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nosuchhost")
}

func TestSSHRemoteExec_WriteFileUnknownHostErrors(t *testing.T) {
	topo := &types.Topology{Hosts: map[string]types.Host{}}
	s := NewSSHRemoteExec(topo, "")

	err := s.WriteFile(context.Background(), "nosuchhost", "/tmp/x", []byte("data"))
	require.Error(t, err)
}
