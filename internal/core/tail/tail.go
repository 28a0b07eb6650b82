// Package tail streams the mailbox's append-only log to a writer.
package tail

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aki/mbx/internal/core/mailbox"
)

// Options configures the tail behavior
type Options struct {
	// PollInterval is how often to check for new log lines
	PollInterval time.Duration
	// Writer is where to write the output
	Writer io.Writer
	// FromStart replays the whole log before following new lines
	FromStart bool
}

// DefaultOptions returns default tail options
func DefaultOptions() Options {
	return Options{
		PollInterval: 500 * time.Millisecond,
		FromStart:    true,
	}
}

// Tailer streams an append-only log file as it grows.
type Tailer struct {
	store mailbox.Store
	path  string
	clock mailbox.Clock
	opts  Options
}

// New creates a new Tailer for the log file at path
func New(store mailbox.Store, path string, clock mailbox.Clock, opts Options) *Tailer {
	if opts.PollInterval == 0 {
		opts.PollInterval = DefaultOptions().PollInterval
	}
	return &Tailer{
		store: store,
		path:  path,
		clock: clock,
		opts:  opts,
	}
}

// Follow continuously streams appended log bytes until the context is
// cancelled. The log is append-only under the protocol, so a shrinking
// file means it was recreated and is replayed from the start.
func (t *Tailer) Follow(ctx context.Context) error {
	var offset int

	if !t.opts.FromStart {
		if data, err := t.store.Read(t.path); err == nil {
			offset = len(data)
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		data, err := t.store.Read(t.path)
		if err == nil {
			if len(data) < offset {
				offset = 0
			}
			if len(data) > offset && t.opts.Writer != nil {
				if _, err := t.opts.Writer.Write(data[offset:]); err != nil {
					return fmt.Errorf("failed to write log output: %w", err)
				}
			}
			offset = len(data)
		}

		t.clock.Sleep(t.opts.PollInterval)
	}
}

// Dump writes the current log contents once, without following.
func (t *Tailer) Dump() error {
	data, err := t.store.Read(t.path)
	if err != nil {
		return fmt.Errorf("failed to read log: %w", err)
	}
	if t.opts.Writer != nil {
		if _, err := t.opts.Writer.Write(data); err != nil {
			return fmt.Errorf("failed to write log output: %w", err)
		}
	}
	return nil
}

// FollowFunc is a convenience function that follows a log with default options
func FollowFunc(ctx context.Context, store mailbox.Store, path string, w io.Writer) error {
	opts := DefaultOptions()
	opts.Writer = w
	tailer := New(store, path, mailbox.SystemClock(), opts)
	return tailer.Follow(ctx)
}
