package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/memteam/memoryman/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all records of a memory type (or everything)",
		Run:   runClear,
	}

	cmd.Flags().StringP("type", "t", "", "Memory type to clear (empty = all types)")

	RootCmd.AddCommand(cmd)
}

func runClear(cmd *cobra.Command, args []string) {
	typeStr, _ := cmd.Flags().GetString("type")

	var memType model.Type
	if typeStr != "" {
		t, err := model.ParseType(typeStr)
		if err != nil {
			exitErr("clear", err)
		}
		memType = t
	}

	eng, err := openEngine()
	if err != nil {
		exitErr("open engine", err)
	}
	defer eng.Close()

	if err := eng.Clear(cmd.Context(), memType); err != nil {
		exitErr("clear", err)
	}

	fmt.Println(`{"ok":true}`)
}
