package session

import (
	"fmt"
	"net"
	"time"
)

// DefaultConnectTimeout bounds how long Dial waits for the TCP handshake.
const DefaultConnectTimeout = 5 * time.Second

// pollBackoff is how long Client sleeps between partway queries that
// returned no new log records, so a console client polls without
// busy-spinning while a long-running command executes.
const pollBackoff = 100 * time.Millisecond

// Client is a console-protocol client connection: the peer side of
// Server.handleConsoleConn, used by cmd/clownfish_console and
// cmd/clownfish_local to drive a running clownfishd from outside the
// process.
type Client struct {
	conn       net.Conn
	clientUUID string
}

// Dial connects to addr and performs the connect handshake, receiving a
// server-assigned session uuid.
func Dial(addr string) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, DefaultConnectTimeout)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}

	if err := writeEnvelope(conn, &Envelope{ProtocolVersion: ProtocolVersion, Type: MessageConnectRequest}); err != nil {
		conn.Close()
		return nil, err
	}
	reply, err := readEnvelope(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if reply.ErrorCode != ErrorNone {
		conn.Close()
		return nil, fmt.Errorf("connect refused: error code %d: %s", reply.ErrorCode, reply.Message)
	}

	return &Client{conn: conn, clientUUID: reply.ClientUUID}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

// CommandResult is the terminal outcome of a RunCommand call: every log
// record streamed while the command ran, plus its final exit code.
type CommandResult struct {
	Logs     []LogRecord
	ExitCode int
	Quit     bool
}

// RunCommand sends line as a command-request and polls partway replies
// until a final reply arrives, answering any input prompt from prompts in
// order (an exhausted prompts list answers with an empty string).
func (c *Client) RunCommand(line string, prompts []string) (*CommandResult, error) {
	if err := writeEnvelope(c.conn, &Envelope{
		ProtocolVersion: ProtocolVersion, ClientUUID: c.clientUUID,
		Type: MessageCommandRequest, Command: line,
	}); err != nil {
		return nil, err
	}

	result := &CommandResult{}
	promptIdx := 0
	for {
		reply, err := readEnvelope(c.conn)
		if err != nil {
			return nil, err
		}
		if reply.ErrorCode == ErrorNoUUID {
			return nil, fmt.Errorf("session expired: %s", reply.Message)
		}
		result.Logs = append(result.Logs, reply.LogRecords...)

		switch reply.ReplyKind {
		case ReplyFinal:
			result.ExitCode = reply.ExitCode
			result.Quit = reply.Quit
			return result, nil

		case ReplyInput:
			var answer string
			if promptIdx < len(prompts) {
				answer = prompts[promptIdx]
				promptIdx++
			}
			if err := writeEnvelope(c.conn, &Envelope{
				ProtocolVersion: ProtocolVersion, ClientUUID: c.clientUUID,
				Type: MessageCommandInputReply, Input: answer,
			}); err != nil {
				return nil, err
			}
			if err := writeEnvelope(c.conn, &Envelope{
				ProtocolVersion: ProtocolVersion, ClientUUID: c.clientUUID,
				Type: MessageCommandPartwayQuery,
			}); err != nil {
				return nil, err
			}

		default: // ReplyPartway
			if len(reply.LogRecords) == 0 {
				time.Sleep(pollBackoff)
			}
			if err := writeEnvelope(c.conn, &Envelope{
				ProtocolVersion: ProtocolVersion, ClientUUID: c.clientUUID,
				Type: MessageCommandPartwayQuery,
			}); err != nil {
				return nil, err
			}
		}
	}
}

// Complete asks the server for tab-completion candidates for tokens.
func (c *Client) Complete(tokens []string) ([]string, error) {
	if err := writeEnvelope(c.conn, &Envelope{
		ProtocolVersion: ProtocolVersion, ClientUUID: c.clientUUID,
		Type: MessageInteractRequest, Tokens: tokens,
	}); err != nil {
		return nil, err
	}
	reply, err := readEnvelope(c.conn)
	if err != nil {
		return nil, err
	}
	return reply.Completions, nil
}
