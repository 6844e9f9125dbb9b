package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/memteam/memoryman/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Retrieve a memory by id or entity key",
		Args:  cobra.MaximumNArgs(1),
		Run:   runGet,
	}

	cmd.Flags().StringP("key", "k", "", "Look up an entity record by key instead of id")

	RootCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	key, _ := cmd.Flags().GetString("key")
	if key == "" && len(args) == 0 {
		exitErr("get", fmt.Errorf("an id argument or --key is required"))
	}

	eng, err := openEngine()
	if err != nil {
		exitErr("open engine", err)
	}
	defer eng.Close()

	var rec model.Record
	if key != "" {
		rec, err = eng.GetEntity(cmd.Context(), key)
	} else {
		rec, err = eng.Get(cmd.Context(), args[0])
	}
	if err != nil {
		exitErr("get", err)
	}

	b, _ := json.MarshalIndent(rec, "", "  ")
	fmt.Println(string(b))
}
