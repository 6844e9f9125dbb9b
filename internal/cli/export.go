package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/memteam/memoryman/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export memories as JSON",
		Long:  "Export memories as a JSON array, including archived records. Filter by type with -t.",
		Run:   runExport,
	}

	cmd.Flags().StringP("type", "t", "", "Filter by memory type")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	typeStr, _ := cmd.Flags().GetString("type")

	var memType model.Type
	if typeStr != "" {
		t, err := model.ParseType(typeStr)
		if err != nil {
			exitErr("export", err)
		}
		memType = t
	}

	eng, err := openEngine()
	if err != nil {
		exitErr("open engine", err)
	}
	defer eng.Close()

	recs, err := eng.Export(cmd.Context(), memType)
	if err != nil {
		exitErr("export", err)
	}

	b, _ := json.MarshalIndent(recs, "", "  ")
	fmt.Println(string(b))
}
