package commands

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aki/mbx/internal/cli/ui"
)

var (
	sendFile    string
	sendTimeout time.Duration
)

var sendCmd = &cobra.Command{
	Use:   "send <directory> [command...]",
	Short: "Send one command to the guest and wait for the reply",
	Long: `Deposit a command into the mailbox and wait, by polling, until the guest
publishes the output. The command can be provided as:
- Command line arguments
- From a file with -f/--file
- From stdin (when no command argument is provided)

The process exit code is the guest's published return code, or 0/1 when no
code was captured.

Examples:
  mbx send ./shared "echo HELLO"
  mbx send ./shared --file job.sh --timeout 30s
  echo "uname -a" | mbx send ./shared`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

func init() {
	sendCmd.Flags().StringVarP(&sendFile, "file", "f", "", "Read the command from a file")
	sendCmd.Flags().DurationVar(&sendTimeout, "timeout", 0, "Wait budget for the reply (overrides mbx.yaml)")
}

func runSend(cmd *cobra.Command, args []string) error {
	command, err := commandText(args[1:])
	if err != nil {
		return err
	}

	c, err := newClient(cmd.Context(), args[0], sendTimeout, CreateQuietLogger())
	if err != nil {
		return err
	}

	reply, err := c.Send(cmd.Context(), command)
	if err != nil {
		return err
	}

	fmt.Print(reply.Output)
	if reply.Code != nil {
		ui.PrintKeyValue("RC", fmt.Sprintf("%d", *reply.Code))
		if *reply.Code != 0 {
			os.Exit(*reply.Code)
		}
	}
	return nil
}

// commandText assembles the command payload from arguments, --file, or
// stdin.
func commandText(args []string) (string, error) {
	if sendFile != "" {
		data, err := os.ReadFile(sendFile)
		if err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
		return string(data), nil
	}

	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}

	stat, err := os.Stdin.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat stdin: %w", err)
	}
	if (stat.Mode() & os.ModeCharDevice) != 0 {
		return "", fmt.Errorf("no command provided: use arguments, --file, or pipe input")
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read from stdin: %w", err)
	}
	return string(data), nil
}
