// Package cli implements the memoryman CLI commands.
package cli

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/memteam/memoryman/internal/config"
	"github.com/memteam/memoryman/internal/engine"
)

var (
	dbPath     string
	configPath string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "memoryman",
	Short: "Local memory layer for conversational agents",
	Long:  "A local memory engine for AI agents: buffer, summary, entity, and long-term retention over a single SQLite file.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $MEMORYMAN_DB or ~/.memoryman/memory.db)")
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (yaml)")
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if dbPath != "" {
		cfg.Storage.Path = dbPath
	}
	return cfg, nil
}

func openEngine() (*engine.Engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	eng, report, err := engine.New(cfg.EngineOptions())
	if err != nil {
		if eng != nil {
			eng.Close()
		}
		return nil, err
	}
	if report != nil && len(report.Skipped) > 0 {
		log.Printf("load: skipped %d malformed record(s)", len(report.Skipped))
	}
	return eng, nil
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
