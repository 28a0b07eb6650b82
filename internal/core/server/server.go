// Package server implements the guest side of the mailbox protocol: a
// polling loop that claims pending commands by atomic rename, hands them to
// an executor, and publishes output and return code back into the shared
// directory. The loop never dies from a single command's failure; only a
// stop directive or an external stop signal ends it.
package server

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	"github.com/google/uuid"

	"github.com/aki/mbx/internal/core/config"
	"github.com/aki/mbx/internal/core/executor"
	"github.com/aki/mbx/internal/core/logger"
	"github.com/aki/mbx/internal/core/mailbox"
	"github.com/aki/mbx/internal/core/reporter"
)

// Farewell is the fixed output published when the server stops.
const Farewell = "MBX BYE"

// State is the server's position in its claim/run loop.
type State int

const (
	// StateReady means the server is polling for a command to claim.
	StateReady State = iota
	// StateClaiming means a claim rename is being attempted.
	StateClaiming
	// StateRunning means a claimed command is being processed.
	StateRunning
	// StateStopped is terminal.
	StateStopped
)

// Server is a guest mailbox server bound to one shared directory.
type Server struct {
	store mailbox.Store
	paths mailbox.Paths
	cfg   *config.Config
	exec  executor.Executor
	clock mailbox.Clock
	rep   *reporter.Reporter
	log   logger.Logger

	state State
}

// New creates a server. The executor is the sole execution boundary; the
// server itself never invokes an interpreter.
func New(store mailbox.Store, paths mailbox.Paths, cfg *config.Config, exec executor.Executor, clock mailbox.Clock, log logger.Logger) *Server {
	return &Server{
		store: store,
		paths: paths,
		cfg:   cfg,
		exec:  exec,
		clock: clock,
		rep:   reporter.New(store, paths, clock, log),
		log:   log,
		state: StateReady,
	}
}

// State returns the server's current state.
func (s *Server) State() State {
	return s.state
}

// Run polls the mailbox until a stop directive arrives or ctx is canceled.
// Cancellation is the operator stop signal: the server publishes the
// farewell and exits gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.rep.Logf("mbx server starting")
	s.rep.SetStatus(reporter.StatusReady)

	if s.store.Exists(s.paths.CmdClaimed) {
		s.rep.Logf("found stale %s; resuming it", mailbox.FileCmdClaimed)
	}

	for {
		select {
		case <-ctx.Done():
			s.rep.Logf("stop signal received; exiting")
			s.publishResult(Farewell+"\n", 0)
			s.rep.SetStatus(reporter.StatusBye)
			s.state = StateStopped
			return nil
		default:
		}

		stopped := s.Tick(ctx)
		if stopped {
			s.rep.Logf("mbx server stopped")
			return nil
		}

		s.clock.Sleep(s.cfg.PollInterval)
	}
}

// Tick performs one poll step: resume or claim a command if one is
// available, process it, and report whether the server stopped. Exposed so
// tests can drive the scheduler explicitly.
func (s *Server) Tick(ctx context.Context) bool {
	// A claimed command present at tick start is either freshly claimed or
	// leftover from a crash; both are processed the same way. A stale claim
	// is never discarded silently.
	if !s.store.Exists(s.paths.CmdClaimed) {
		if !s.store.Exists(s.paths.CmdPending) {
			return false
		}
		if !s.claim() {
			s.state = StateReady
			return false
		}
	}

	return s.process(ctx)
}

// claim attempts the pending-to-claimed rename, the protocol's sole mutual
// exclusion point. Bounded retries cover the window where the host has
// created the file but a competing observer got the rename in first, or the
// filesystem is transiently unhappy.
func (s *Server) claim() bool {
	s.state = StateClaiming

	for i := 0; i < s.cfg.ClaimRetries; i++ {
		if !s.store.Exists(s.paths.CmdPending) {
			// Someone else consumed it; nothing to do.
			return false
		}
		if err := s.store.Rename(s.paths.CmdPending, s.paths.CmdClaimed); err == nil {
			s.rep.Logf("claimed %s -> %s", mailbox.FileCmdPending, mailbox.FileCmdClaimed)
			return true
		}
		s.clock.Sleep(s.cfg.ClaimBackoff)
	}

	s.rep.Logf("claim retries exhausted; returning to ready")
	return false
}

// process handles the claimed command and returns true when the server
// should stop.
func (s *Server) process(ctx context.Context) bool {
	s.state = StateRunning
	s.rep.SetStatus(reporter.StatusRunning)

	defer func() {
		if s.state != StateStopped {
			s.state = StateReady
			s.rep.SetStatus(reporter.StatusReady)
		}
	}()

	payload, err := s.store.Read(s.paths.CmdClaimed)
	if err != nil {
		s.rep.Logf("ERROR: failed to read %s: %v", mailbox.FileCmdClaimed, err)
		s.publishError("failed to read command file", err)
		s.removeClaimed()
		return false
	}

	directive := mailbox.ParseDirective(string(payload))

	switch directive.Kind {
	case mailbox.DirectiveEmpty:
		s.rep.Logf("ERROR: %s is empty", mailbox.FileCmdClaimed)
		s.publishError(mailbox.ErrEmptyCommand.Error(), nil)
		s.removeClaimed()
		return false

	case mailbox.DirectiveStop:
		s.rep.Logf("received stop directive %q", directive.Line)
		s.publishResult(Farewell+"\n", 0)
		s.removeClaimed()
		s.rep.SetStatus(reporter.StatusBye)
		s.state = StateStopped
		return true

	default:
		s.execute(ctx, string(payload))
		s.removeClaimed()
		return false
	}
}

// execute runs an execution directive through the executor and publishes
// the result, output first. The output publish is the host's readiness
// signal, so the return code must land after it, never before.
func (s *Server) execute(ctx context.Context, payload string) {
	if len(payload) > s.cfg.MaxPayload {
		s.rep.Logf("ERROR: payload too large (%d bytes, limit %d)", len(payload), s.cfg.MaxPayload)
		reason := fmt.Sprintf("%s (%d bytes, limit %d)", mailbox.ErrPayloadTooLarge.Error(), len(payload), s.cfg.MaxPayload)
		s.publishError(reason, nil)
		return
	}

	jobID := uuid.NewString()[:8]
	s.rep.Logf("executing job %s (payload=%d bytes)", jobID, len(payload))

	output, code, err := s.exec.Run(ctx, payload)
	if err != nil {
		// The executor produced no usable completion code. Publish an error
		// output and the nonzero sentinel so the host never reads a stale
		// code from the previous command.
		s.log.Warn("execution produced no completion code", "job", jobID, "error", err)
		s.rep.Logf("ERROR: job %s failed: %v", jobID, err)
		s.publishError(fmt.Sprintf("execution failed: %v", err), err)
		return
	}

	s.rep.Logf("job %s finished (rc=%d)", jobID, code)
	s.publishResult(output, code)
}

// publishResult publishes output then return code. A publish failure is
// logged and the loop continues; from the host's perspective the result may
// be lost, which it surfaces as a timeout.
func (s *Server) publishResult(output string, code int) {
	if err := s.store.Publish(s.paths.OutStaging, s.paths.Out, []byte(output)); err != nil {
		s.log.Warn("failed to publish output; result may be lost", "error", err)
		s.rep.Logf("ERROR: failed to publish %s: %v", mailbox.FileOut, err)
	}
	if err := s.store.Publish(s.paths.RcStaging, s.paths.Rc, []byte(fmt.Sprintf("%d\n", code))); err != nil {
		s.log.Warn("failed to publish return code", "error", err)
		s.rep.Logf("ERROR: failed to publish %s: %v", mailbox.FileRc, err)
	}
}

// publishError publishes an explicit error output plus the nonzero sentinel
// return code, without invoking the executor.
func (s *Server) publishError(reason string, cause error) {
	body := fmt.Sprintf("ERROR: %s\nerrno=%d\n", reason, errnoOf(cause))
	s.publishResult(body, 1)
}

func (s *Server) removeClaimed() {
	if err := s.store.Remove(s.paths.CmdClaimed); err != nil {
		s.rep.Logf("ERROR: failed to remove %s: %v", mailbox.FileCmdClaimed, err)
	}
}

// errnoOf extracts an OS error number from err for the diagnostic line of
// error outputs. Zero when none is present.
func errnoOf(err error) int {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	return 0
}
