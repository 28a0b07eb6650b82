package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aki/mbx/internal/cli/ui"
	"github.com/aki/mbx/internal/core/config"
	"github.com/aki/mbx/internal/core/mailbox"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init <directory>",
	Short: "Initialize a mailbox in a shared directory",
	Long: `Create the shared directory if needed and write a default mbx.yaml with the
protocol tunables (poll interval, payload ceiling, shell, timeouts).`,
	Args: cobra.ExactArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite an existing mbx.yaml")
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := args[0]

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create shared directory: %w", err)
	}

	paths := mailbox.NewPaths(dir)
	if _, err := os.Stat(paths.Config); err == nil && !forceInit {
		return fmt.Errorf("mailbox already initialized at %s. Use --force to overwrite", dir)
	}

	if err := config.Save(cmd.Context(), paths, config.Default()); err != nil {
		return err
	}

	ui.Success("Mailbox initialized in %s", dir)
	ui.PrintKeyValue("Configuration", paths.Config)
	ui.OutputLine("\nRun 'mbx serve %s' in the guest to start answering commands", dir)
	return nil
}
