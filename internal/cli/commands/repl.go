package commands

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aki/mbx/internal/cli/ui"
	"github.com/aki/mbx/internal/core/mailbox"
)

var replTimeout time.Duration

var replCmd = &cobra.Command{
	Use:   "repl <directory>",
	Short: "Interactive command loop against the guest",
	Long: `Read command lines and send each to the guest, printing the reply.

Special inputs:
  exit        quit the REPL locally, leaving the guest running
  quit-guest  send the stop directive to the guest, then quit`,
	Args: cobra.ExactArgs(1),
	RunE: runRepl,
}

func init() {
	replCmd.Flags().DurationVar(&replTimeout, "timeout", 0, "Per-command wait budget (overrides mbx.yaml)")
}

func runRepl(cmd *cobra.Command, args []string) error {
	c, err := newClient(cmd.Context(), args[0], replTimeout, CreateQuietLogger())
	if err != nil {
		return err
	}

	ui.Info("mbx REPL. Shared directory: %s", args[0])
	ui.OutputLine("Type commands for the guest. 'exit' quits locally, 'quit-guest' stops the guest.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(ui.PromptStyle.Render("mbx> "))
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue
		case line == "exit":
			return nil
		case line == "quit-guest":
			reply, err := c.Stop(cmd.Context())
			if err != nil {
				printSendError(err)
				continue
			}
			fmt.Print(reply.Output)
			return nil
		}

		reply, err := c.Send(cmd.Context(), line)
		if err != nil {
			printSendError(err)
			continue
		}

		fmt.Print(reply.Output)
		if reply.Code != nil {
			ui.PrintKeyValue("RC", fmt.Sprintf("%d", *reply.Code))
		}
	}

	return scanner.Err()
}

// printSendError keeps the REPL alive: a timeout or I/O failure on one
// command is reported and the loop continues.
func printSendError(err error) {
	if errors.Is(err, mailbox.ErrTimeout) {
		ui.Warning("%v (is 'mbx serve' running in the guest?)", err)
		return
	}
	ui.Error("%v", err)
}
