/*
Package clownfisherr defines the typed error taxonomy used throughout
Clownfish (spec §7): ConfigError, TransportError, UnknownSession,
RemoteCommandError, LockTimeout, AbortedByOperator and Timeout. Callers
wrap a cause with the matching constructor and check the result with
errors.As, instead of comparing error strings.

Only the outermost handler (a command's dispatch loop, a session's reply
writer, config load at startup) needs to distinguish these kinds; code
in between just returns errors wrapped with fmt.Errorf("...: %w", err),
preserving the cause for errors.As further up the stack.
*/
package clownfisherr
