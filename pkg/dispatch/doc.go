/*
Package dispatch parses and evaluates console command lines and routes
each phrase to a registered subsystem handler.

A line is a non-empty sequence of phrases joined by the delimiter tokens
AND, OR and CONT. AND runs the next phrase only if the previous one
exited zero, OR only if it exited non-zero, and CONT always runs it with
the final exit status taken from whichever phrase ran last. Output from
every phrase that actually ran is accumulated into the final Result so a
CONT pipeline's reply carries both sides even though only the last
phrase's exit code matters.

Subsystems (global, option, fs, service) and their commands are plain
data registered on a Registry; Dispatcher only knows how to parse the
grammar, resolve a phrase's subsystem/command, and accumulate results —
every domain action (mount, repair, HA toggle) lives in the subsystem
handler closures built in the subsystems_*.go files (global, option, fs,
service), which close over the Dispatcher's
topology, engine and prober handles.
*/
package dispatch
