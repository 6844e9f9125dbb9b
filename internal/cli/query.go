package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/memteam/memoryman/internal/engine"
	"github.com/memteam/memoryman/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "query [text]",
		Short: "Rank memories against a query",
		Long:  "Score memories by term matches, recency, and pinning, and return the top results.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runQuery,
	}

	cmd.Flags().StringP("types", "t", "", "Comma-separated memory types (default: all)")
	cmd.Flags().IntP("limit", "l", 10, "Max results")
	cmd.Flags().Bool("archived", false, "Include archived long-term records")

	RootCmd.AddCommand(cmd)
}

func runQuery(cmd *cobra.Command, args []string) {
	typesStr, _ := cmd.Flags().GetString("types")
	limit, _ := cmd.Flags().GetInt("limit")
	archived, _ := cmd.Flags().GetBool("archived")

	var types []model.Type
	if typesStr != "" {
		for _, t := range strings.Split(typesStr, ",") {
			parsed, err := model.ParseType(strings.TrimSpace(t))
			if err != nil {
				exitErr("query", err)
			}
			types = append(types, parsed)
		}
	}

	eng, err := openEngine()
	if err != nil {
		exitErr("open engine", err)
	}
	defer eng.Close()

	results, err := eng.Query(cmd.Context(), engine.QueryParams{
		Text:            strings.Join(args, " "),
		Types:           types,
		Limit:           limit,
		IncludeArchived: archived,
	})
	if err != nil {
		exitErr("query", err)
	}

	if len(results) == 0 {
		fmt.Println("[]")
		return
	}

	b, _ := json.MarshalIndent(results, "", "  ")
	fmt.Println(string(b))
}
