package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/memteam/memoryman/internal/engine"
	"github.com/memteam/memoryman/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "add [content]",
		Short: "Store a memory",
		Long:  "Store a memory. Content can be a positional arg or piped via stdin.",
		Run:   runAdd,
	}

	cmd.Flags().StringP("type", "t", "buffer", "Memory type: buffer, summary, entity, longterm")
	cmd.Flags().StringP("key", "k", "", "Logical key (entity memory only)")
	cmd.Flags().Bool("pin", false, "Pin the record (exempt from buffer eviction)")
	cmd.Flags().Float64("importance", 0, "Importance score for ranking")
	cmd.Flags().String("speaker", "", "Speaker annotation")

	RootCmd.AddCommand(cmd)
}

func runAdd(cmd *cobra.Command, args []string) {
	typeStr, _ := cmd.Flags().GetString("type")
	key, _ := cmd.Flags().GetString("key")
	pin, _ := cmd.Flags().GetBool("pin")
	importance, _ := cmd.Flags().GetFloat64("importance")
	speaker, _ := cmd.Flags().GetString("speaker")

	// Get content: positional arg first, then check stdin
	var content string
	if len(args) > 0 {
		content = strings.Join(args, " ")
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			content = string(b)
		}
	}

	if strings.TrimSpace(content) == "" {
		exitErr("add", fmt.Errorf("content is required (positional arg or stdin)"))
	}

	memType, err := model.ParseType(typeStr)
	if err != nil {
		exitErr("add", err)
	}

	eng, err := openEngine()
	if err != nil {
		exitErr("open engine", err)
	}
	defer eng.Close()

	rec, err := eng.Add(cmd.Context(), engine.AddParams{
		Type:    memType,
		Key:     key,
		Content: strings.TrimSpace(content),
		Metadata: model.Metadata{
			Pinned:     pin,
			Importance: importance,
			Speaker:    speaker,
		},
	})
	if err != nil {
		exitErr("add", err)
	}

	b, _ := json.Marshal(rec)
	fmt.Println(string(b))
}
