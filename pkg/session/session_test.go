package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_ConfirmBlocksUntilAnswered(t *testing.T) {
	sess, err := NewSession("1", t.TempDir())
	require.NoError(t, err)
	defer sess.Close()

	type outcome struct {
		yes bool
		err error
	}
	resultCh := make(chan outcome, 1)
	go func() {
		yes, err := sess.Confirm(context.Background(), "proceed? [y/N] ")
		resultCh <- outcome{yes, err}
	}()

	require.Eventually(t, func() bool {
		_, waiting := sess.PendingPrompt()
		return waiting
	}, time.Second, time.Millisecond)

	assert.True(t, sess.ProvideInput("y"))

	select {
	case out := <-resultCh:
		require.NoError(t, out.err)
		assert.True(t, out.yes)
	case <-time.After(time.Second):
		t.Fatal("Confirm did not return after ProvideInput")
	}
}

func TestSession_ConfirmReturnsFalseOnNonYAnswer(t *testing.T) {
	sess, err := NewSession("2", t.TempDir())
	require.NoError(t, err)
	defer sess.Close()

	resultCh := make(chan bool, 1)
	go func() {
		yes, _ := sess.Confirm(context.Background(), "prompt")
		resultCh <- yes
	}()

	require.Eventually(t, func() bool {
		_, waiting := sess.PendingPrompt()
		return waiting
	}, time.Second, time.Millisecond)
	sess.ProvideInput("n")

	select {
	case yes := <-resultCh:
		assert.False(t, yes)
	case <-time.After(time.Second):
		t.Fatal("Confirm did not return")
	}
}

func TestSession_ConfirmAbortedByRequestAbort(t *testing.T) {
	sess, err := NewSession("3", t.TempDir())
	require.NoError(t, err)
	defer sess.Close()

	errCh := make(chan error, 1)
	go func() {
		_, err := sess.Confirm(context.Background(), "prompt")
		errCh <- err
	}()

	require.Eventually(t, func() bool {
		_, waiting := sess.PendingPrompt()
		return waiting
	}, time.Second, time.Millisecond)

	sess.RequestAbort()

	select {
	case err := <-errCh:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("Confirm did not unblock on abort")
	}
}

func TestSession_ConfirmTimesOutWithCancelledContext(t *testing.T) {
	sess, err := NewSession("4", t.TempDir())
	require.NoError(t, err)
	defer sess.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = sess.Confirm(ctx, "prompt")
	assert.Error(t, err)
}

func TestSession_LogBufferDrainsAndClears(t *testing.T) {
	sess, err := NewSession("5", t.TempDir())
	require.NoError(t, err)
	defer sess.Close()

	sess.AppendLog(LogRecord{Message: "one", IsStdout: true})
	sess.AppendLog(LogRecord{Message: "two", IsStderr: true})

	drained := sess.DrainLogs()
	require.Len(t, drained, 2)
	assert.Empty(t, sess.DrainLogs())
}

func TestSession_RequestQuitSetsFlag(t *testing.T) {
	sess, err := NewSession("6", t.TempDir())
	require.NoError(t, err)
	defer sess.Close()

	assert.False(t, sess.QuitRequested())
	sess.RequestQuit()
	assert.True(t, sess.QuitRequested())
}

func TestSession_TouchResetsIdleClock(t *testing.T) {
	sess, err := NewSession("7", t.TempDir())
	require.NoError(t, err)
	defer sess.Close()

	sess.mu.Lock()
	sess.lastActivity = time.Now().Add(-time.Hour)
	sess.mu.Unlock()

	assert.Greater(t, sess.IdleFor(), 30*time.Minute)
	sess.Touch()
	assert.Less(t, sess.IdleFor(), time.Second)
}
