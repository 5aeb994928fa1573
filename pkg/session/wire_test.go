package session

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWire_EnvelopeRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	sent := &Envelope{
		ProtocolVersion: ProtocolVersion,
		ClientUUID:      "7",
		Type:            MessageCommandReply,
		ReplyKind:       ReplyPartway,
		LogRecords: []LogRecord{
			{Message: "mounted ok", IsStdout: true, Time: 1234.5},
		},
	}
	require.NoError(t, writeEnvelope(&buf, sent))

	got, err := readEnvelope(&buf)
	require.NoError(t, err)
	assert.Equal(t, sent.ClientUUID, got.ClientUUID)
	assert.Equal(t, sent.Type, got.Type)
	assert.Equal(t, sent.ReplyKind, got.ReplyKind)
	require.Len(t, got.LogRecords, 1)
	assert.Equal(t, "mounted ok", got.LogRecords[0].Message)
}

func TestWire_MultipleFramesOnOneStream(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeEnvelope(&buf, &Envelope{Type: MessageConnectRequest}))
	require.NoError(t, writeEnvelope(&buf, &Envelope{Type: MessagePingRequest}))

	first, err := readEnvelope(&buf)
	require.NoError(t, err)
	assert.Equal(t, MessageConnectRequest, first.Type)

	second, err := readEnvelope(&buf)
	require.NoError(t, err)
	assert.Equal(t, MessagePingRequest, second.Type)
}

func TestWire_MessageTypeStringsAreDistinct(t *testing.T) {
	seen := make(map[string]bool)
	types := []MessageType{
		MessageConnectRequest, MessageConnectReply, MessagePingRequest, MessagePingReply,
		MessageInteractRequest, MessageInteractReply, MessageCommandRequest, MessageCommandReply,
		MessageCommandPartwayQuery, MessageCommandInputReply, MessageGeneral,
	}
	for _, mt := range types {
		s := mt.String()
		assert.False(t, seen[s], "duplicate String() for %v", mt)
		seen[s] = true
	}
}
