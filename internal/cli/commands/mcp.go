package commands

import (
	"github.com/spf13/cobra"

	"github.com/aki/mbx/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp <directory>",
	Short: "Serve the mailbox as MCP tools over stdio",
	Long: `Expose the host client as Model Context Protocol tools (mailbox_send,
mailbox_status, mailbox_stop) so agent frontends can drive the guest.`,
	Args: cobra.ExactArgs(1),
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	srv, err := mcp.NewServer(args[0], CreateQuietLogger())
	if err != nil {
		return err
	}
	return srv.Start(cmd.Context())
}
