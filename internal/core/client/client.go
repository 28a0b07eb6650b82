// Package client implements the host side of the mailbox protocol: deposit
// a command into the shared directory, then poll the published output for a
// timestamp change. The client owns only the staging and pending files; it
// never touches a command after the guest has claimed it.
package client

import (
	"context"
	"fmt"
	"time"

	"github.com/aki/mbx/internal/core/config"
	"github.com/aki/mbx/internal/core/logger"
	"github.com/aki/mbx/internal/core/mailbox"
)

// rcGraceStep is the poll interval while waiting out the return-code grace
// window. Finer than the main poll because the window itself is short.
const rcGraceStep = 20 * time.Millisecond

// Client issues one command at a time against a mailbox.
type Client struct {
	store mailbox.Store
	paths mailbox.Paths
	cfg   *config.Config
	clock mailbox.Clock
	log   logger.Logger
}

// New creates a client for the mailbox at paths.
func New(store mailbox.Store, paths mailbox.Paths, cfg *config.Config, clock mailbox.Clock, log logger.Logger) *Client {
	return &Client{store: store, paths: paths, cfg: cfg, clock: clock, log: log}
}

// Send deposits command as the pending command and blocks, by polling,
// until the published output shows a timestamp change, then returns the
// reply. On timeout it returns mailbox.ErrTimeout and leaves the pending
// command in place; the guest may still be processing it and the client
// cannot cancel a claim it does not own.
//
// Single-command-in-flight contract: a second Send before the guest claims
// the first silently replaces the pending command.
func (c *Client) Send(ctx context.Context, command string) (mailbox.Reply, error) {
	// Snapshot timestamps first so a result published for this command is
	// distinguishable from whatever a previous command left behind. Absence
	// is a valid snapshot value.
	outBefore, outExisted := c.store.MTime(c.paths.Out)
	rcBefore, rcExisted := c.store.MTime(c.paths.Rc)

	if err := c.store.Publish(c.paths.CmdStaging, c.paths.CmdPending, []byte(command+"\n")); err != nil {
		return mailbox.Reply{}, fmt.Errorf("failed to deposit command: %w", err)
	}
	c.log.Debug("command deposited", "dir", c.paths.Dir, "bytes", len(command))

	deadline := c.clock.Now().Add(c.cfg.SendTimeout)
	for {
		if err := ctx.Err(); err != nil {
			return mailbox.Reply{}, err
		}

		if outNow, ok := c.store.MTime(c.paths.Out); ok && changed(outBefore, outExisted, outNow) {
			return c.collect(rcBefore, rcExisted)
		}

		if c.clock.Now().After(deadline) {
			return mailbox.Reply{}, fmt.Errorf("%w after %s (mailbox %s)",
				mailbox.ErrTimeout, c.cfg.SendTimeout, c.paths.Dir)
		}
		c.clock.Sleep(c.cfg.SendPoll)
	}
}

// Stop sends the stop directive and waits for the farewell reply.
func (c *Client) Stop(ctx context.Context) (mailbox.Reply, error) {
	return c.Send(ctx, "EXIT")
}

// collect reads the published output and, within a bounded grace window,
// the return code. Output and return code are not published atomically
// together, so the code may lag the output by one staging rename.
func (c *Client) collect(rcBefore time.Time, rcExisted bool) (mailbox.Reply, error) {
	data, err := c.store.Read(c.paths.Out)
	if err != nil {
		// Mid-rename or publish failure; treat like a transient miss.
		return mailbox.Reply{}, fmt.Errorf("failed to read published output: %w", err)
	}
	reply := mailbox.Reply{Output: string(data)}

	graceDeadline := c.clock.Now().Add(c.cfg.RcGrace)
	for {
		if rcNow, ok := c.store.MTime(c.paths.Rc); ok && changed(rcBefore, rcExisted, rcNow) {
			rcData, err := c.store.Read(c.paths.Rc)
			if err != nil {
				c.log.Debug("return code unreadable; reporting unknown", "error", err)
				return reply, nil
			}
			if code, ok := mailbox.ParseReturnCode(string(rcData)); ok {
				reply.Code = &code
			}
			// Malformed content stays "code unknown", not an error.
			return reply, nil
		}

		if c.clock.Now().After(graceDeadline) {
			c.log.Debug("return code not updated within grace window; reporting unknown")
			return reply, nil
		}
		c.clock.Sleep(rcGraceStep)
	}
}

// changed reports whether an observed mtime differs from its snapshot. A
// file that did not exist at snapshot time and exists now counts as changed.
func changed(before time.Time, existed bool, now time.Time) bool {
	if !existed {
		return true
	}
	return !now.Equal(before)
}
