package cli

import (
	"log"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/memteam/memoryman/internal/server"
)

// Version is set at build time.
var Version = "dev"

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the memory engine over a local HTTP API",
		Run:   runServe,
	}

	cmd.Flags().String("bind", "", "Bind address (overrides config)")
	cmd.Flags().Int("port", 0, "Port (overrides config)")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}
	if bind, _ := cmd.Flags().GetString("bind"); bind != "" {
		cfg.Server.Bind = bind
	}
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Server.Port = port
	}

	eng, err := openEngine()
	if err != nil {
		exitErr("open engine", err)
	}
	defer eng.Close()

	srv := server.New(eng, Version)
	log.Printf("memoryman listening on http://%s", cfg.ListenAddr())
	if err := http.ListenAndServe(cfg.ListenAddr(), srv); err != nil {
		exitErr("serve", err)
	}
}
