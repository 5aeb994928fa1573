/*
Package log provides Clownfish's structured logging on top of zerolog.

A single global Logger is configured once at daemon startup via Init, then
every goroutine that needs a child logger derives one from it with
WithComponent, WithHost, WithService or WithSession rather than
constructing a new zerolog.Logger by hand. This keeps every log line
carrying the same base fields (timestamp, level) while letting each
subsystem attach the context that matters to it: pkg/engine attaches
"service", pkg/session attaches "session_uuid" to its connect, quit and
idle-reaping lines. The records in a session's log buffer (see
pkg/session) are not written to this logger.

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	serviceLog := log.WithService(svc.Name)
	serviceLog.Info().Str("host", inst.HostID).Msg("repair starting")

# Output

JSONOutput selects structured JSON (for log shipping); otherwise a
zerolog.ConsoleWriter renders human-readable lines with RFC3339
timestamps. Log rotation and shipping are handled by external
tools (logrotate, journald); this package only ever writes to the
io.Writer passed in Config.Output, defaulting to stdout.
*/
package log
