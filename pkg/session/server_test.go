package session

import (
	"net"
	"testing"
	"time"

	"github.com/LiXi-storage/clownfish/pkg/dispatch"
	"github.com/LiXi-storage/clownfish/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	topo := &types.Topology{
		Services:    make(map[string]*types.Service),
		Filesystems: make(map[string]*types.Filesystem),
		Hosts:       make(map[string]types.Host),
	}
	inst := types.NewInstance(topo)
	d := dispatch.New(topo, inst, nil, nil, nil, "test-version")
	if cfg.BaseDir == "" {
		cfg.BaseDir = t.TempDir()
	}
	return NewServer(d, cfg)
}

func TestServer_ConnectAssignsMonotonicUUIDs(t *testing.T) {
	s := testServer(t, Config{})
	first, err := s.newSession()
	require.NoError(t, err)
	second, err := s.newSession()
	require.NoError(t, err)

	assert.Equal(t, "1", first.ClientUUID)
	assert.Equal(t, "2", second.ClientUUID)
}

func TestServer_UnknownSessionIsNoUUID(t *testing.T) {
	s := testServer(t, Config{})
	_, ok := s.lookup("does-not-exist")
	assert.False(t, ok)
}

// TestServer_SessionReaperEvictsIdleSession is scenario 7.
func TestServer_SessionReaperEvictsIdleSession(t *testing.T) {
	s := testServer(t, Config{SessionTimeout: 10 * time.Millisecond})
	sess, err := s.newSession()
	require.NoError(t, err)

	sess.mu.Lock()
	sess.lastActivity = time.Now().Add(-time.Hour)
	sess.mu.Unlock()

	s.reapIdle()

	_, ok := s.lookup(sess.ClientUUID)
	assert.False(t, ok)
}

func TestServer_ReaperSparesActiveSession(t *testing.T) {
	s := testServer(t, Config{SessionTimeout: time.Hour})
	sess, err := s.newSession()
	require.NoError(t, err)

	s.reapIdle()

	_, ok := s.lookup(sess.ClientUUID)
	assert.True(t, ok)
}

// TestServer_ConnectCommandFinalRoundTrip drives the wire protocol
// end-to-end over an in-memory net.Pipe: connect, run a fast command,
// and read its final reply.
func TestServer_ConnectCommandFinalRoundTrip(t *testing.T) {
	s := testServer(t, Config{})
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	done := make(chan struct{})
	go func() {
		s.handleConsoleConn(serverConn)
		close(done)
	}()

	require.NoError(t, writeEnvelope(clientConn, &Envelope{ProtocolVersion: ProtocolVersion, Type: MessageConnectRequest}))
	connectReply, err := readEnvelope(clientConn)
	require.NoError(t, err)
	require.Equal(t, MessageConnectReply, connectReply.Type)
	require.NotEmpty(t, connectReply.ClientUUID)

	uuid := connectReply.ClientUUID
	require.NoError(t, writeEnvelope(clientConn, &Envelope{ProtocolVersion: ProtocolVersion, ClientUUID: uuid, Type: MessageCommandRequest, Command: "retval"}))

	var final *Envelope
	for i := 0; i < 20; i++ {
		reply, err := readEnvelope(clientConn)
		require.NoError(t, err)
		require.Equal(t, MessageCommandReply, reply.Type)
		if reply.ReplyKind == ReplyFinal {
			final = reply
			break
		}
		require.NoError(t, writeEnvelope(clientConn, &Envelope{ProtocolVersion: ProtocolVersion, ClientUUID: uuid, Type: MessageCommandPartwayQuery}))
	}
	require.NotNil(t, final, "expected a final reply within the retry budget")
	assert.Equal(t, 0, final.ExitCode)

	require.NoError(t, writeEnvelope(clientConn, &Envelope{ProtocolVersion: ProtocolVersion, ClientUUID: uuid, Type: MessageCommandRequest, Command: "quit"}))
	for {
		reply, err := readEnvelope(clientConn)
		require.NoError(t, err)
		if reply.ReplyKind == ReplyFinal {
			assert.True(t, reply.Quit)
			break
		}
		require.NoError(t, writeEnvelope(clientConn, &Envelope{ProtocolVersion: ProtocolVersion, ClientUUID: uuid, Type: MessageCommandPartwayQuery}))
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handleConsoleConn did not exit after quit")
	}
}

// TestServer_RequestAfterEvictionReturnsNoUUID covers spec.md §4.3
// scenario 7's assertion in full: a request carrying an evicted uuid
// gets ErrorNoUUID.
func TestServer_RequestAfterEvictionReturnsNoUUID(t *testing.T) {
	s := testServer(t, Config{})
	sess, err := s.newSession()
	require.NoError(t, err)
	s.remove(sess.ClientUUID)

	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()
	done := make(chan struct{})
	go func() {
		s.handleConsoleConn(serverConn)
		close(done)
	}()

	require.NoError(t, writeEnvelope(clientConn, &Envelope{ProtocolVersion: ProtocolVersion, ClientUUID: sess.ClientUUID, Type: MessageCommandRequest, Command: "retval"}))
	reply, err := readEnvelope(clientConn)
	require.NoError(t, err)
	assert.Equal(t, MessageGeneral, reply.Type)
	assert.Equal(t, ErrorNoUUID, reply.ErrorCode)

	clientConn.Close()
	<-done
}
