package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/aki/mbx/internal/cli/ui"
)

var stopTimeout time.Duration

var stopCmd = &cobra.Command{
	Use:   "stop <directory>",
	Short: "Ask the guest server to shut down",
	Long:  "Send the stop directive through the mailbox and wait for the farewell reply.",
	Args:  cobra.ExactArgs(1),
	RunE:  runStop,
}

func init() {
	stopCmd.Flags().DurationVar(&stopTimeout, "timeout", 0, "Wait budget for the farewell (overrides mbx.yaml)")
}

func runStop(cmd *cobra.Command, args []string) error {
	c, err := newClient(cmd.Context(), args[0], stopTimeout, CreateQuietLogger())
	if err != nil {
		return err
	}

	reply, err := c.Stop(cmd.Context())
	if err != nil {
		return err
	}

	ui.Success("Guest stopped: %s", reply.Output)
	return nil
}
