package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/memteam/memoryman/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List the most recent records of a memory type",
		Run:   runRecent,
	}

	cmd.Flags().StringP("type", "t", "buffer", "Memory type")
	cmd.Flags().IntP("limit", "l", 10, "Max results")

	RootCmd.AddCommand(cmd)
}

func runRecent(cmd *cobra.Command, args []string) {
	typeStr, _ := cmd.Flags().GetString("type")
	limit, _ := cmd.Flags().GetInt("limit")

	memType, err := model.ParseType(typeStr)
	if err != nil {
		exitErr("recent", err)
	}

	eng, err := openEngine()
	if err != nil {
		exitErr("open engine", err)
	}
	defer eng.Close()

	recs, err := eng.Recent(cmd.Context(), memType, limit)
	if err != nil {
		exitErr("recent", err)
	}

	if len(recs) == 0 {
		fmt.Println("[]")
		return
	}

	b, _ := json.MarshalIndent(recs, "", "  ")
	fmt.Println(string(b))
}
