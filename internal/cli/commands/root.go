// Package commands provides CLI command implementations for mbx.
package commands

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mbx",
	Short: "File-based command mailbox between a host and an isolated guest",
	Long: `mbx drives a shell-command mailbox over a shared directory. The guest side
runs 'mbx serve' inside the isolated environment; the host side deposits
commands with 'mbx send' or 'mbx repl' and reads back output and return code.

The shared directory is the only channel: every hand-off is an atomic file
rename, so the protocol works wherever a folder can be shared, with no
sockets, pipes, or shared memory.`,

	SilenceUsage: true,
}

func init() {
	RegisterLoggerFlags(rootCmd)

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(replCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(mcpCmd)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
