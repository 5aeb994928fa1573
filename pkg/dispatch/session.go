package dispatch

import "context"

// Session is the narrow view of a console session that command handlers
// need. pkg/session's Session type satisfies it structurally; defining it
// here rather than importing pkg/session keeps dispatch a leaf dependency
// (pkg/session imports pkg/dispatch to route lines, not the reverse).
type Session interface {
	// Confirm blocks on the session's pending-input slot with the given
	// prompt and reports whether the answer's first rune was y/Y.
	Confirm(ctx context.Context, prompt string) (bool, error)

	// Aborted reports whether the operator has requested this command's
	// execution be cancelled.
	Aborted() bool

	// LastRetval returns the exit status of the previous command line run
	// on this session.
	LastRetval() int

	// RequestQuit marks the session for closure once the current reply
	// has been sent, matching the `quit` flag on a final reply.
	RequestQuit()
}
