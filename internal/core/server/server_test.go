package server

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aki/mbx/internal/core/config"
	"github.com/aki/mbx/internal/core/logger"
	"github.com/aki/mbx/internal/core/mailbox"
)

type stubExecutor struct {
	output string
	code   int
	err    error

	calls      int
	lastScript string
}

func (e *stubExecutor) Run(_ context.Context, script string) (string, int, error) {
	e.calls++
	e.lastScript = script
	return e.output, e.code, e.err
}

type fixture struct {
	server *Server
	store  *mailbox.MemStore
	paths  mailbox.Paths
	exec   *stubExecutor
	clock  *mailbox.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := mailbox.NewFakeClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	store := mailbox.NewMemStore(clock)
	paths := mailbox.NewPaths("/mbx")
	exec := &stubExecutor{}
	srv := New(store, paths, config.Default(), exec, clock, logger.Nop())
	return &fixture{server: srv, store: store, paths: paths, exec: exec, clock: clock}
}

func (f *fixture) readOut(t *testing.T) string {
	t.Helper()
	data, err := f.store.Read(f.paths.Out)
	require.NoError(t, err)
	return string(data)
}

func (f *fixture) readRc(t *testing.T) string {
	t.Helper()
	data, err := f.store.Read(f.paths.Rc)
	require.NoError(t, err)
	return string(data)
}

func (f *fixture) readStatus(t *testing.T) string {
	t.Helper()
	data, err := f.store.Read(f.paths.Sta)
	require.NoError(t, err)
	return strings.TrimSpace(string(data))
}

func TestTick_RoundTrip(t *testing.T) {
	f := newFixture(t)
	f.exec.output = "HELLO\n"
	f.exec.code = 0
	f.store.Put(f.paths.CmdPending, []byte("echo HELLO\n"))

	stopped := f.server.Tick(context.Background())

	assert.False(t, stopped)
	assert.Equal(t, 1, f.exec.calls)
	assert.Equal(t, "echo HELLO\n", f.exec.lastScript)
	assert.Equal(t, "HELLO\n", f.readOut(t))
	assert.Equal(t, "0\n", f.readRc(t))
	assert.False(t, f.store.Exists(f.paths.CmdPending))
	assert.False(t, f.store.Exists(f.paths.CmdClaimed))
	assert.Equal(t, StateReady, f.server.State())
	assert.Equal(t, "READY", f.readStatus(t))
}

func TestTick_NonzeroCodePublished(t *testing.T) {
	f := newFixture(t)
	f.exec.output = "bad things\n"
	f.exec.code = 2
	f.store.Put(f.paths.CmdPending, []byte("false"))

	f.server.Tick(context.Background())

	assert.Equal(t, "bad things\n", f.readOut(t))
	assert.Equal(t, "2\n", f.readRc(t))
}

func TestTick_StopDirective(t *testing.T) {
	f := newFixture(t)
	f.store.Put(f.paths.CmdPending, []byte("EXIT\n"))

	stopped := f.server.Tick(context.Background())

	assert.True(t, stopped)
	assert.Equal(t, 0, f.exec.calls, "stop directive must not invoke the executor")
	assert.Equal(t, Farewell+"\n", f.readOut(t))
	assert.Equal(t, "0\n", f.readRc(t))
	assert.False(t, f.store.Exists(f.paths.CmdClaimed))
	assert.Equal(t, StateStopped, f.server.State())
	assert.Equal(t, "BYE", f.readStatus(t))
}

func TestTick_StopDirectiveCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	f.store.Put(f.paths.CmdPending, []byte("\n  quit  \n"))

	assert.True(t, f.server.Tick(context.Background()))
	assert.Equal(t, Farewell+"\n", f.readOut(t))
}

func TestTick_EmptyCommand(t *testing.T) {
	f := newFixture(t)
	f.store.Put(f.paths.CmdPending, []byte("  \n\t\n"))

	stopped := f.server.Tick(context.Background())

	assert.False(t, stopped)
	assert.Equal(t, 0, f.exec.calls, "empty command must skip execution")
	assert.True(t, strings.HasPrefix(f.readOut(t), "ERROR: command file is empty"))
	assert.Contains(t, f.readOut(t), "errno=")
	assert.Equal(t, "1\n", f.readRc(t))
	assert.False(t, f.store.Exists(f.paths.CmdClaimed))
}

func TestTick_PayloadTooLarge(t *testing.T) {
	f := newFixture(t)
	f.server.cfg.MaxPayload = 16
	f.store.Put(f.paths.CmdPending, []byte("echo "+strings.Repeat("x", 64)))

	f.server.Tick(context.Background())

	assert.Equal(t, 0, f.exec.calls, "oversize payload must not reach the executor")
	assert.True(t, strings.HasPrefix(f.readOut(t), "ERROR: command payload too large"))
	assert.Equal(t, "1\n", f.readRc(t))
	assert.False(t, f.store.Exists(f.paths.CmdClaimed))
}

func TestTick_CrashRecovery(t *testing.T) {
	f := newFixture(t)
	f.exec.output = "recovered\n"

	// A claimed command left behind by a crashed server; no pending file.
	f.store.Put(f.paths.CmdClaimed, []byte("echo recovered"))

	stopped := f.server.Tick(context.Background())

	assert.False(t, stopped)
	assert.Equal(t, 1, f.exec.calls, "stale claim must be resumed, not discarded")
	assert.Equal(t, "recovered\n", f.readOut(t))
	assert.False(t, f.store.Exists(f.paths.CmdClaimed))
}

func TestTick_ExecutionFailurePublishesSentinel(t *testing.T) {
	f := newFixture(t)
	f.exec.err = errors.New("interpreter not found")
	f.store.Put(f.paths.CmdPending, []byte("run something"))

	stopped := f.server.Tick(context.Background())

	assert.False(t, stopped)
	out := f.readOut(t)
	assert.True(t, strings.HasPrefix(out, "ERROR: execution failed"))
	assert.Contains(t, out, "errno=0")
	assert.Equal(t, "1\n", f.readRc(t), "missing completion code publishes the sentinel 1")
}

func TestTick_ClaimRetriesExhausted(t *testing.T) {
	f := newFixture(t)
	f.store.Put(f.paths.CmdPending, []byte("echo hi"))
	f.store.FailWith(f.paths.CmdClaimed, errors.New("sharing violation"))

	stopped := f.server.Tick(context.Background())

	assert.False(t, stopped)
	assert.Equal(t, 0, f.exec.calls)
	assert.True(t, f.store.Exists(f.paths.CmdPending), "exhausted claim must not consume the command")
	assert.Equal(t, StateReady, f.server.State())
}

func TestTick_PublishFailureDoesNotStopLoop(t *testing.T) {
	f := newFixture(t)
	f.exec.output = "result\n"
	f.store.Put(f.paths.CmdPending, []byte("echo result"))
	f.store.FailWith(f.paths.Out, errors.New("disk full"))

	stopped := f.server.Tick(context.Background())

	assert.False(t, stopped)
	// The return code is still published even when the output was lost.
	assert.Equal(t, "0\n", f.readRc(t))
	assert.False(t, f.store.Exists(f.paths.CmdClaimed))
	assert.Equal(t, StateReady, f.server.State())
}

func TestTick_NoCommand(t *testing.T) {
	f := newFixture(t)
	assert.False(t, f.server.Tick(context.Background()))
	assert.Equal(t, 0, f.exec.calls)
}

func TestRun_StopsOnStopDirective(t *testing.T) {
	f := newFixture(t)
	f.store.Put(f.paths.CmdPending, []byte("EXIT"))

	require.NoError(t, f.server.Run(context.Background()))

	assert.Equal(t, StateStopped, f.server.State())
	assert.Equal(t, "BYE", f.readStatus(t))
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, f.server.Run(ctx))

	assert.Equal(t, StateStopped, f.server.State())
	assert.Equal(t, Farewell+"\n", f.readOut(t))
	assert.Equal(t, "BYE", f.readStatus(t))
}

func TestRun_SurvivesFailedCommands(t *testing.T) {
	f := newFixture(t)
	f.exec.err = errors.New("boom")
	f.store.Put(f.paths.CmdPending, []byte("explode"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.server.Run(ctx) }()

	// Wait for the failing command to be processed, then stop the loop.
	require.Eventually(t, func() bool {
		return f.store.Exists(f.paths.Rc)
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, 1, f.exec.calls)
}
