/*
Package session implements the Session Protocol Server (spec.md §4.3):
the stateful request/reply protocol between consoles and the daemon.

The reference implementation (original_source/pyclownfish/clownfish_server.py)
frames requests as Protocol Buffers over ZeroMQ ROUTER/DEALER sockets, with
zmq.proxy fanning connections out to a worker pool. Neither ZeroMQ bindings
nor a protoc toolchain are available here, so the same shape is rebuilt
directly over net.Listener/net.Conn: Server.acceptLoop takes each new
connection and hands it to a worker goroutine from a bounded pool, and every
frame is a length-prefixed encoding/gob envelope (wire.go). Field layout and
message-type set match spec.md §4.3's envelope one-for-one.

A Session (session.go) is the per-connection state the protocol mutates: a
log buffer that each partway reply drains, a pending-input slot for
command-input-reply, last-retval, quit and abort flags. A partway reply is
sent at once; it does not wait for new records, so it carries zero records
when nothing has been buffered since the last one. Sessions are owned by
the Server, which also runs the idle-session reaper (spec.md §4.3, scenario 7) and assigns monotonically increasing
client uuids. A second, independent listener answers ping-request frames at
a short interval so keepalives never compete with slow command traffic for
a worker.
*/
package session
