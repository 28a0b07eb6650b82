package commands

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/aki/mbx/internal/core/executor"
	"github.com/aki/mbx/internal/core/mailbox"
	"github.com/aki/mbx/internal/core/server"
)

var (
	servePoll  time.Duration
	serveShell string
)

var serveCmd = &cobra.Command{
	Use:   "serve <directory>",
	Short: "Run the guest mailbox server",
	Long: `Poll the shared directory for commands, execute them through the shell, and
publish output and return code. The loop runs until a stop directive (EXIT or
QUIT) arrives through the mailbox or the process receives an interrupt.`,
	Args: cobra.ExactArgs(1),
	RunE: runServe,
}

func init() {
	serveCmd.Flags().DurationVar(&servePoll, "poll", 0, "Idle poll interval (overrides mbx.yaml)")
	serveCmd.Flags().StringVar(&serveShell, "shell", "", "Shell interpreter (overrides mbx.yaml)")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := CreateLogger()

	paths, cfg, err := openMailbox(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if servePoll > 0 {
		cfg.PollInterval = servePoll
	}
	if serveShell != "" {
		cfg.Shell = serveShell
	}

	// Guard against two servers polling the same mailbox from this side.
	// Advisory only: the lock never crosses the shared-folder boundary, so
	// protocol correctness still rests on the claim rename alone.
	lock := flock.New(paths.ServeLock)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire server lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another server is already polling %s", paths.Dir)
	}
	defer func() { _ = lock.Unlock() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exec := executor.NewShellExecutor(cfg.Shell, cfg.CommandTimeout)
	srv := server.New(mailbox.NewDirStore(), paths, cfg, exec, mailbox.SystemClock(), log)

	log.Info("serving mailbox", "dir", paths.Dir, "poll", cfg.PollInterval.String(), "shell", cfg.Shell)
	return srv.Run(ctx)
}
