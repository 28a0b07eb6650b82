package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aki/mbx/internal/cli/ui"
	"github.com/aki/mbx/internal/core/mailbox"
)

var statusCmd = &cobra.Command{
	Use:   "status <directory>",
	Short: "Show the guest status and the mailbox file set",
	Long: `Print the guest server's advisory status token and a table of the protocol
files currently present in the shared directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	paths, _, err := openMailbox(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	store := mailbox.NewDirStore()

	if data, err := store.Read(paths.Sta); err == nil {
		ui.PrintKeyValue("Guest status", strings.TrimSpace(string(data)))
	} else {
		ui.PrintKeyValue("Guest status", ui.DimStyle.Render("unknown (no status file)"))
	}
	ui.PrintKeyValue("Mailbox", paths.Dir)

	entries := []struct {
		name string
		path string
		role string
	}{
		{mailbox.FileCmdPending, paths.CmdPending, "pending command"},
		{mailbox.FileCmdClaimed, paths.CmdClaimed, "claimed command"},
		{mailbox.FileOut, paths.Out, "published output"},
		{mailbox.FileRc, paths.Rc, "published return code"},
		{mailbox.FileSta, paths.Sta, "status value"},
		{mailbox.FileLog, paths.Log, "log"},
	}

	tbl := ui.NewTable("FILE", "ROLE", "SIZE", "AGE")
	found := 0
	for _, e := range entries {
		info, err := os.Stat(e.path)
		if err != nil {
			continue
		}
		found++
		tbl.AddRow(e.name, e.role, formatSize(info.Size()), ui.FormatDuration(time.Since(info.ModTime())))
	}

	if found == 0 {
		ui.Info("No protocol files present; mailbox is idle")
		return nil
	}

	ui.OutputLine("")
	tbl.Print()

	if store.Exists(paths.CmdClaimed) {
		ui.Warning("A claimed command is present; the guest is running it or crashed mid-execution")
	}
	return nil
}

func formatSize(size int64) string {
	switch {
	case size < 1024:
		return fmt.Sprintf("%dB", size)
	case size < 1024*1024:
		return fmt.Sprintf("%dKiB", size/1024)
	default:
		return fmt.Sprintf("%dMiB", size/(1024*1024))
	}
}
