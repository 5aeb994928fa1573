package session

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/LiXi-storage/clownfish/pkg/dispatch"
	"github.com/LiXi-storage/clownfish/pkg/log"
	"github.com/LiXi-storage/clownfish/pkg/metrics"
	"github.com/google/uuid"
)

const (
	DefaultWorkerCount    = 10
	DefaultSessionTimeout = 30 * time.Second
	DefaultReapInterval   = 5 * time.Second
)

// Config controls a Server's concurrency and timing.
type Config struct {
	BaseDir        string // root directory under which per-session workspaces are created
	WorkerCount    int
	SessionTimeout time.Duration
	ReapInterval   time.Duration
}

// Server is the Session Protocol Server: an accept loop over a bounded
// worker pool for console connections, an independent accept loop for
// ping keepalives, and an idle-session reaper, per spec.md §4.3.
type Server struct {
	cfg        Config
	dispatcher *dispatch.Dispatcher

	mu       sync.Mutex
	sessions map[string]*Session
	nextSeq  uint64

	sem chan struct{}

	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	consoleLn net.Listener
	pingLn    net.Listener
}

// NewServer builds a Server that routes command lines through d.
func NewServer(d *dispatch.Dispatcher, cfg Config) *Server {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = DefaultWorkerCount
	}
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = DefaultSessionTimeout
	}
	if cfg.ReapInterval <= 0 {
		cfg.ReapInterval = DefaultReapInterval
	}
	return &Server{
		cfg:        cfg,
		dispatcher: d,
		sessions:   make(map[string]*Session),
		sem:        make(chan struct{}, cfg.WorkerCount),
		stopCh:     make(chan struct{}),
	}
}

// Serve starts the console accept loop, the ping accept loop and the
// reaper, then returns immediately; call Stop to shut everything down.
func (s *Server) Serve(consoleLn, pingLn net.Listener) {
	s.consoleLn = consoleLn
	s.pingLn = pingLn

	s.wg.Add(3)
	go func() { defer s.wg.Done(); s.acceptLoop(consoleLn, s.handleConsoleConn) }()
	go func() { defer s.wg.Done(); s.acceptLoop(pingLn, s.handlePingConn) }()
	go func() { defer s.wg.Done(); s.reapLoop() }()
}

// Stop closes both listeners and waits for every in-flight connection
// handler and the reaper to exit.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		if s.consoleLn != nil {
			s.consoleLn.Close()
		}
		if s.pingLn != nil {
			s.pingLn.Close()
		}
	})
	s.wg.Wait()
}

func (s *Server) acceptLoop(ln net.Listener, handle func(net.Conn)) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
				log.WithComponent("session").Warn().Err(err).Msg("accept failed")
				return
			}
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			handle(conn)
		}()
	}
}

func (s *Server) reapLoop() {
	ticker := time.NewTicker(s.cfg.ReapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.reapIdle()
		}
	}
}

func (s *Server) reapIdle() {
	s.mu.Lock()
	var stale []*Session
	for id, sess := range s.sessions {
		if sess.IdleFor() > s.cfg.SessionTimeout {
			stale = append(stale, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range stale {
		sess.Close()
		metrics.SessionsActive.Dec()
		metrics.SessionsReapedTotal.Inc()
		log.WithSession(sess.ClientUUID).Info().Msg("session reaped for inactivity")
	}
}

func (s *Server) newSession() (*Session, error) {
	s.mu.Lock()
	s.nextSeq++
	id := strconv.FormatUint(s.nextSeq, 10)
	s.mu.Unlock()

	sess, err := NewSession(id, s.cfg.BaseDir)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()
	metrics.SessionsActive.Inc()
	return sess, nil
}

func (s *Server) lookup(clientUUID string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[clientUUID]
	return sess, ok
}

func (s *Server) remove(clientUUID string) {
	s.mu.Lock()
	sess, ok := s.sessions[clientUUID]
	if ok {
		delete(s.sessions, clientUUID)
	}
	s.mu.Unlock()
	if ok {
		sess.Close()
		metrics.SessionsActive.Dec()
	}
}

// handlePingConn answers ping-request frames on the console-independent
// keepalive socket (spec.md §4.3: "run on an independent socket at a
// shorter interval so idle consoles never time out").
func (s *Server) handlePingConn(conn net.Conn) {
	defer conn.Close()
	for {
		env, err := readEnvelope(conn)
		if err != nil {
			return
		}
		metrics.SessionRequestsTotal.WithLabelValues(env.Type.String(), strconv.Itoa(int(ErrorNone))).Inc()

		reply := &Envelope{ProtocolVersion: ProtocolVersion, ClientUUID: env.ClientUUID, Type: MessagePingReply}
		if sess, ok := s.lookup(env.ClientUUID); ok {
			sess.Touch()
		} else {
			reply.ErrorCode = ErrorNoUUID
		}
		if err := writeEnvelope(conn, reply); err != nil {
			return
		}
	}
}

// handleConsoleConn is one worker-pool slot's worth of connection
// handling: it blocks on the semaphore until a slot is free, then serves
// every frame on conn until the connection closes or the session quits.
func (s *Server) handleConsoleConn(conn net.Conn) {
	defer conn.Close()
	s.sem <- struct{}{}
	defer func() { <-s.sem }()

	connID := uuid.New().String()
	logger := log.WithComponent("session").With().Str("conn", connID).Logger()

	for {
		env, err := readEnvelope(conn)
		if err != nil {
			logger.Debug().Err(err).Msg("console connection closed")
			return
		}
		metrics.SessionRequestsTotal.WithLabelValues(env.Type.String(), strconv.Itoa(int(ErrorNone))).Inc()

		if env.Type == MessageConnectRequest {
			sess, err := s.newSession()
			if err != nil {
				writeEnvelope(conn, &Envelope{ProtocolVersion: ProtocolVersion, Type: MessageGeneral, ErrorCode: ErrorTransport, Message: err.Error()})
				continue
			}
			logger.Info().Str("session_uuid", sess.ClientUUID).Msg("session connected")
			writeEnvelope(conn, &Envelope{ProtocolVersion: ProtocolVersion, ClientUUID: sess.ClientUUID, Type: MessageConnectReply})
			continue
		}

		sess, ok := s.lookup(env.ClientUUID)
		if !ok {
			writeEnvelope(conn, &Envelope{ProtocolVersion: ProtocolVersion, ClientUUID: env.ClientUUID, Type: MessageGeneral, ErrorCode: ErrorNoUUID, Message: "unknown or expired session"})
			continue
		}
		sess.Touch()

		final := false
		switch env.Type {
		case MessageInteractRequest:
			candidates := s.dispatcher.Complete(env.Tokens)
			writeEnvelope(conn, &Envelope{ProtocolVersion: ProtocolVersion, ClientUUID: sess.ClientUUID, Type: MessageInteractReply, Completions: candidates})

		case MessageCommandRequest:
			final = s.runCommand(conn, sess, env.Command)

		case MessageCommandPartwayQuery:
			final = s.continueCommand(conn, sess, env.Abort)

		case MessageCommandInputReply:
			sess.ProvideInput(env.Input)

		default:
			writeEnvelope(conn, &Envelope{ProtocolVersion: ProtocolVersion, ClientUUID: sess.ClientUUID, Type: MessageGeneral, Message: "unexpected message type"})
		}

		if final && sess.QuitRequested() {
			logger.Info().Str("session_uuid", sess.ClientUUID).Msg("session closed by quit command")
			s.remove(sess.ClientUUID)
			return
		}
	}
}

func (s *Server) runCommand(conn net.Conn, sess *Session, line string) bool {
	sess.StartCommand(context.Background(), s.dispatcher, line)
	return s.sendNextReply(conn, sess)
}

func (s *Server) continueCommand(conn net.Conn, sess *Session, abort bool) bool {
	if abort {
		sess.RequestAbort()
		metrics.CommandsAbortedTotal.Inc()
	}
	return s.sendNextReply(conn, sess)
}

// sendNextReply writes exactly one of the three command-reply shapes
// (spec.md §4.3): input if the task is blocked on a prompt, partway if it
// is still running or has buffered output left to flush, final otherwise.
// It reports whether the reply it wrote was the final one.
func (s *Server) sendNextReply(conn net.Conn, sess *Session) bool {
	if prompt, waiting := sess.PendingPrompt(); waiting {
		writeEnvelope(conn, &Envelope{
			ProtocolVersion: ProtocolVersion, ClientUUID: sess.ClientUUID,
			Type: MessageCommandReply, ReplyKind: ReplyInput, Prompt: prompt,
		})
		return false
	}

	done, result := sess.PollCommand()
	logs := sess.DrainLogs()
	if !done || len(logs) > 0 {
		writeEnvelope(conn, &Envelope{
			ProtocolVersion: ProtocolVersion, ClientUUID: sess.ClientUUID,
			Type: MessageCommandReply, ReplyKind: ReplyPartway, LogRecords: logs,
		})
		return false
	}

	writeEnvelope(conn, &Envelope{
		ProtocolVersion: ProtocolVersion, ClientUUID: sess.ClientUUID,
		Type: MessageCommandReply, ReplyKind: ReplyFinal,
		ExitCode: result.ExitCode, Quit: sess.QuitRequested(),
	})
	return true
}
