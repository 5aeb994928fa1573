package clownfisherr

import (
	"errors"
	"fmt"
)

// ConfigError is returned when loading or validating the Clownfish
// configuration fails. It is always fatal at startup. Key and Source
// identify the offending configuration entry so the operator can find it
// without re-reading the whole tree.
type ConfigError struct {
	Key    string // offending key, e.g. "lustres[0].mdts[1].index"
	Source string // config file path
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error at %s (%s): %v", e.Key, e.Source, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func NewConfigError(key, source string, err error) *ConfigError {
	return &ConfigError{Key: key, Source: source, Err: err}
}

// TransportError covers a failure of the session wire protocol itself
// (malformed envelope, connection reset mid-frame). The owning session
// terminates when one occurs.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("transport error: %v", e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

func NewTransportError(err error) *TransportError {
	return &TransportError{Err: err}
}

// UnknownSession is returned when a request carries a client uuid the
// server has no session for (evicted by the reaper, or never issued). The
// caller should reply with the NO_UUID error code and nothing else.
type UnknownSession struct {
	ClientUUID string
}

func (e *UnknownSession) Error() string {
	return fmt.Sprintf("unknown session: %s", e.ClientUUID)
}

func NewUnknownSession(clientUUID string) *UnknownSession {
	return &UnknownSession{ClientUUID: clientUUID}
}

// RemoteCommandError wraps a failed remote-exec invocation. Stdout/Stderr
// are preserved so the dispatch pipeline can surface them as the
// operation's status rather than just an opaque failure.
type RemoteCommandError struct {
	Host     string
	Argv     []string
	Stdout   string
	Stderr   string
	ExitCode int
}

func (e *RemoteCommandError) Error() string {
	return fmt.Sprintf("remote command failed on %s (exit %d): %v", e.Host, e.ExitCode, e.Argv)
}

func NewRemoteCommandError(host string, argv []string, stdout, stderr string, exitCode int) *RemoteCommandError {
	return &RemoteCommandError{Host: host, Argv: argv, Stdout: stdout, Stderr: stderr, ExitCode: exitCode}
}

// LockTimeout is returned when a bulk operation could not acquire a
// service's writer lock before its deadline. Callers must unwind any
// locks already held in reverse acquisition order before returning it.
type LockTimeout struct {
	ServiceName string
}

func (e *LockTimeout) Error() string {
	return fmt.Sprintf("timed out waiting for lock on service %q", e.ServiceName)
}

func NewLockTimeout(serviceName string) *LockTimeout {
	return &LockTimeout{ServiceName: serviceName}
}

// AbortedByOperator is returned by an operation that was cooperatively
// cancelled via the session protocol's abort flag. It is distinguishable
// from any other non-zero status, and carries no rollback guarantee.
type AbortedByOperator struct {
	Op string
}

func (e *AbortedByOperator) Error() string {
	return fmt.Sprintf("%s aborted by operator", e.Op)
}

func NewAbortedByOperator(op string) *AbortedByOperator {
	return &AbortedByOperator{Op: op}
}

// Timeout covers the independent connect/ping/partway/input-wait timeouts
// of the session protocol (spec §4.3, §7). What a caller does with it
// (terminate the thread vs. surface a well-known error code) is up to the
// caller.
type Timeout struct {
	What string // e.g. "ping", "connect", "partway", "input-wait"
}

func (e *Timeout) Error() string { return fmt.Sprintf("%s timed out", e.What) }

func NewTimeout(what string) *Timeout {
	return &Timeout{What: what}
}

// AsConfigError is a convenience wrapper around errors.As for the common
// "is this fatal at startup" check.
func AsConfigError(err error) (*ConfigError, bool) {
	var ce *ConfigError
	ok := errors.As(err, &ce)
	return ce, ok
}
