package session

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
)

// ProtocolVersion is the fixed version every envelope must carry.
const ProtocolVersion = 1

// MessageType discriminates an Envelope's body, mirroring the message-type
// values of spec.md §4.3's envelope one-for-one.
type MessageType int

const (
	MessageConnectRequest MessageType = iota + 1
	MessageConnectReply
	MessagePingRequest
	MessagePingReply
	MessageInteractRequest
	MessageInteractReply
	MessageCommandRequest
	MessageCommandReply
	MessageCommandPartwayQuery
	MessageCommandInputReply
	MessageGeneral
)

func (m MessageType) String() string {
	switch m {
	case MessageConnectRequest:
		return "connect-request"
	case MessageConnectReply:
		return "connect-reply"
	case MessagePingRequest:
		return "ping-request"
	case MessagePingReply:
		return "ping-reply"
	case MessageInteractRequest:
		return "interact-request"
	case MessageInteractReply:
		return "interact-reply"
	case MessageCommandRequest:
		return "command-request"
	case MessageCommandReply:
		return "command-reply"
	case MessageCommandPartwayQuery:
		return "command-partway-query"
	case MessageCommandInputReply:
		return "command-input-reply"
	case MessageGeneral:
		return "general"
	default:
		return fmt.Sprintf("message-type(%d)", int(m))
	}
}

// ErrorCode is the envelope's error vehicle; zero means success.
type ErrorCode int

const (
	ErrorNone ErrorCode = iota
	ErrorNoUUID
	ErrorTimeout
	ErrorTransport
	ErrorAbortedByOperator
	ErrorLockTimeout
)

// LogRecord is one streamed line of a command's output or of the daemon's
// internal logging, per spec.md §4.3's log record format.
type LogRecord struct {
	Level    string
	Logger   string
	Source   string
	Line     int
	Func     string
	Time     float64 // unix seconds
	Message  string
	IsStdout bool
	IsStderr bool
}

// ReplyKind distinguishes the three command-reply shapes (spec.md §4.3):
// partway, input and final.
type ReplyKind int

const (
	ReplyPartway ReplyKind = iota
	ReplyInput
	ReplyFinal
)

// Envelope is every frame exchanged over the session protocol. Only the
// fields relevant to Type are populated; the rest are left at their zero
// value, matching a type-specific body inside a fixed-shape wire struct
// since no protoc toolchain is available to generate a real oneof.
type Envelope struct {
	ProtocolVersion int
	ClientUUID      string
	Type            MessageType
	ErrorCode       ErrorCode

	Command string // command-request
	Abort   bool   // command-partway-query
	Input   string // command-input-reply
	Tokens  []string

	ReplyKind   ReplyKind
	LogRecords  []LogRecord
	Prompt      string
	ExitCode    int
	Quit        bool
	Completions []string
	Message     string
}

// writeEnvelope frames env as a 4-byte big-endian length prefix followed
// by its gob encoding.
func writeEnvelope(w io.Writer, env *Envelope) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(env); err != nil {
		return fmt.Errorf("encoding envelope: %w", err)
	}
	var lenPrefix [4]byte
	binary.BigEndian.PutUint32(lenPrefix[:], uint32(buf.Len()))
	if _, err := w.Write(lenPrefix[:]); err != nil {
		return fmt.Errorf("writing frame length: %w", err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing frame body: %w", err)
	}
	return nil
}

// readEnvelope reads one length-prefixed gob frame written by writeEnvelope.
func readEnvelope(r io.Reader) (*Envelope, error) {
	var lenPrefix [4]byte
	if _, err := io.ReadFull(r, lenPrefix[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenPrefix[:])
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("reading frame body: %w", err)
	}
	var env Envelope
	if err := gob.NewDecoder(bytes.NewReader(body)).Decode(&env); err != nil {
		return nil, fmt.Errorf("decoding envelope: %w", err)
	}
	return &env, nil
}
