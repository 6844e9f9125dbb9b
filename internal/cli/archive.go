package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "archive [id]",
		Short: "Archive a long-term memory",
		Long:  "Mark a long-term record as archived: it stays on disk but drops out of default retrieval.",
		Args:  cobra.ExactArgs(1),
		Run:   runArchive,
	}

	RootCmd.AddCommand(cmd)
}

func runArchive(cmd *cobra.Command, args []string) {
	eng, err := openEngine()
	if err != nil {
		exitErr("open engine", err)
	}
	defer eng.Close()

	if err := eng.Archive(cmd.Context(), args[0]); err != nil {
		exitErr("archive", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"id":%q,"archived":true}`+"\n", args[0])
}
