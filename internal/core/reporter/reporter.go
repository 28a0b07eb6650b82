// Package reporter maintains the diagnostic side files of a mailbox: the
// single-token status value and the append-only log. Both are advisory; the
// protocol never reads them and a failed write never fails a command.
package reporter

import (
	"fmt"

	"github.com/aki/mbx/internal/core/logger"
	"github.com/aki/mbx/internal/core/mailbox"
)

// Server status tokens written to the status file.
const (
	StatusReady   = "READY"
	StatusRunning = "RUNNING"
	StatusBye     = "BYE"
)

// Reporter writes the status and log files of one mailbox and mirrors every
// record to the structured logger.
type Reporter struct {
	store mailbox.Store
	paths mailbox.Paths
	clock mailbox.Clock
	log   logger.Logger
}

// New returns a Reporter for the mailbox at paths.
func New(store mailbox.Store, paths mailbox.Paths, clock mailbox.Clock, log logger.Logger) *Reporter {
	return &Reporter{store: store, paths: paths, clock: clock, log: log}
}

// SetStatus replaces the status file wholesale with state. A write failure
// is logged and swallowed; status is never correctness-relevant.
func (r *Reporter) SetStatus(state string) {
	if err := r.store.Publish(r.paths.StaStaging, r.paths.Sta, []byte(state+"\n")); err != nil {
		r.log.Warn("failed to write status file", "state", state, "error", err)
	}
}

// Logf appends one timestamped line to the mailbox log and mirrors it to
// the structured logger.
func (r *Reporter) Logf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	line := fmt.Sprintf("[%s] %s", r.clock.Now().Format("2006-01-02 15:04:05"), msg)
	if err := r.store.AppendLine(r.paths.Log, line); err != nil {
		r.log.Warn("failed to append log record", "error", err)
	}
	r.log.Info(msg)
}
