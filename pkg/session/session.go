package session

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/LiXi-storage/clownfish/pkg/clownfisherr"
	"github.com/LiXi-storage/clownfish/pkg/dispatch"
)

// Session is the server-side state for one connected console: a workspace
// directory, a per-session log buffer, last-retval, a quit flag and a
// pending-input slot, per spec.md §4.3's session lifecycle. A Session
// satisfies dispatch.Session so command handlers can prompt and check for
// abort without importing this package.
type Session struct {
	ClientUUID   string
	WorkspaceDir string

	mu           sync.Mutex
	lastActivity time.Time
	lastRetval   int
	quitReq      bool
	aborted      bool

	logMu  sync.Mutex
	logBuf []LogRecord

	pendingMu     sync.Mutex
	pendingPrompt string
	pendingAnswer chan string

	taskMu sync.Mutex
	task   *commandTask
}

type commandTask struct {
	cancel context.CancelFunc
	done   chan struct{}
	result *dispatch.Result
}

// NewSession allocates a Session rooted at a fresh subdirectory of baseDir.
func NewSession(clientUUID, baseDir string) (*Session, error) {
	dir, err := os.MkdirTemp(baseDir, fmt.Sprintf("session-%s-", clientUUID))
	if err != nil {
		return nil, fmt.Errorf("creating session workspace: %w", err)
	}
	return &Session{
		ClientUUID:   clientUUID,
		WorkspaceDir: dir,
		lastActivity: time.Now(),
	}, nil
}

// Close removes the session's workspace directory.
func (s *Session) Close() error {
	return os.RemoveAll(s.WorkspaceDir)
}

// Touch records activity, resetting the idle-reaper clock.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// IdleFor reports how long it has been since the session last saw a
// request.
func (s *Session) IdleFor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastActivity)
}

// AppendLog buffers one log record for the next partway reply to drain.
func (s *Session) AppendLog(rec LogRecord) {
	s.logMu.Lock()
	s.logBuf = append(s.logBuf, rec)
	s.logMu.Unlock()
}

// DrainLogs returns and clears everything buffered since the last drain.
func (s *Session) DrainLogs() []LogRecord {
	s.logMu.Lock()
	defer s.logMu.Unlock()
	if len(s.logBuf) == 0 {
		return nil
	}
	out := s.logBuf
	s.logBuf = nil
	return out
}

// StartCommand runs line through d's dispatch pipeline in its own
// goroutine and, once the pipeline returns, appends its stdout and stderr
// as log records. It resets the session's abort flag; a fresh cancellable
// context is derived from ctx and torn down when the command task finishes
// or is aborted.
func (s *Session) StartCommand(ctx context.Context, d *dispatch.Dispatcher, line string) {
	cmdCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.aborted = false
	s.mu.Unlock()

	task := &commandTask{cancel: cancel, done: make(chan struct{})}
	s.taskMu.Lock()
	s.task = task
	s.taskMu.Unlock()

	go func() {
		defer cancel()
		result := d.Run(cmdCtx, s, line)
		if result.Stdout != "" {
			s.AppendLog(LogRecord{Message: result.Stdout, IsStdout: true, Time: nowSeconds()})
		}
		if result.Stderr != "" {
			s.AppendLog(LogRecord{Message: result.Stderr, IsStderr: true, Time: nowSeconds()})
		}

		s.mu.Lock()
		s.lastRetval = result.ExitCode
		s.mu.Unlock()

		task.result = result
		close(task.done)
	}()
}

// PollCommand reports whether the running command task has finished and,
// if so, its result. It is safe to call repeatedly while a task runs.
func (s *Session) PollCommand() (done bool, result *dispatch.Result) {
	s.taskMu.Lock()
	task := s.task
	s.taskMu.Unlock()
	if task == nil {
		return true, nil
	}
	select {
	case <-task.done:
		return true, task.result
	default:
		return false, nil
	}
}

// RequestAbort sets the session's abort flag and cancels the running
// command task's context, per spec.md §4.3's command-partway-query
// abort=true semantics.
func (s *Session) RequestAbort() {
	s.mu.Lock()
	s.aborted = true
	s.mu.Unlock()

	s.taskMu.Lock()
	task := s.task
	s.taskMu.Unlock()
	if task != nil {
		task.cancel()
	}

	s.pendingMu.Lock()
	if s.pendingAnswer != nil {
		close(s.pendingAnswer)
		s.pendingAnswer = nil
		s.pendingPrompt = ""
	}
	s.pendingMu.Unlock()
}

// PendingPrompt reports the prompt of an input request the running task is
// blocked on, if any.
func (s *Session) PendingPrompt() (string, bool) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	if s.pendingAnswer == nil {
		return "", false
	}
	return s.pendingPrompt, true
}

// ProvideInput delivers a command-input-reply's answer to whatever
// Confirm call is blocked waiting for one. It reports false if nothing was
// waiting.
func (s *Session) ProvideInput(answer string) bool {
	s.pendingMu.Lock()
	ch := s.pendingAnswer
	s.pendingAnswer = nil
	s.pendingPrompt = ""
	s.pendingMu.Unlock()
	if ch == nil {
		return false
	}
	ch <- answer
	return true
}

// Confirm implements dispatch.Session: it publishes prompt to the pending-
// input slot and blocks until a console answers, the context is
// cancelled, or the session is aborted.
func (s *Session) Confirm(ctx context.Context, prompt string) (bool, error) {
	ch := make(chan string, 1)
	s.pendingMu.Lock()
	s.pendingPrompt = prompt
	s.pendingAnswer = ch
	s.pendingMu.Unlock()

	select {
	case answer, ok := <-ch:
		if !ok {
			return false, clownfisherr.NewAbortedByOperator("confirm")
		}
		trimmed := strings.TrimSpace(answer)
		return len(trimmed) > 0 && (trimmed[0] == 'y' || trimmed[0] == 'Y'), nil
	case <-ctx.Done():
		return false, clownfisherr.NewTimeout("input-wait")
	}
}

// Aborted implements dispatch.Session.
func (s *Session) Aborted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aborted
}

// LastRetval implements dispatch.Session.
func (s *Session) LastRetval() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRetval
}

// RequestQuit implements dispatch.Session.
func (s *Session) RequestQuit() {
	s.mu.Lock()
	s.quitReq = true
	s.mu.Unlock()
}

// QuitRequested reports whether the session has been marked for closure.
func (s *Session) QuitRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quitReq
}

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
