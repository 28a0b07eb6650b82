package commands

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aki/mbx/internal/core/mailbox"
	"github.com/aki/mbx/internal/core/tail"
)

var (
	logFollow bool
	logPoll   time.Duration
)

var logCmd = &cobra.Command{
	Use:   "log <directory>",
	Short: "Print the guest's activity log",
	Long: `Print LOG.TXT from the shared directory. With --follow, keep polling and
stream new lines as the guest appends them, until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runLog,
}

func init() {
	logCmd.Flags().BoolVarP(&logFollow, "follow", "f", false, "Stream new log lines as they are appended")
	logCmd.Flags().DurationVar(&logPoll, "poll", 0, "Poll interval when following")
}

func runLog(cmd *cobra.Command, args []string) error {
	paths, _, err := openMailbox(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	opts := tail.DefaultOptions()
	opts.Writer = os.Stdout
	if logPoll > 0 {
		opts.PollInterval = logPoll
	}
	tailer := tail.New(mailbox.NewDirStore(), paths.Log, mailbox.SystemClock(), opts)

	if !logFollow {
		return tailer.Dump()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := tailer.Follow(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
