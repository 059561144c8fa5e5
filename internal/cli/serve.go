package cli

import (
	"github.com/spf13/cobra"

	"github.com/quartermaster-shop/quartermaster/internal/daemon"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("config", "c", "", "Path to config.toml (default: $QM_CONFIG or ~/.quartermaster/config.toml)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the shop daemon",
	Long: `Run the shop daemon: opens the ledger database, starts the RCON
session when enabled, and serves the HTTP API until interrupted.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = daemon.ConfigPath()
	}

	cfg, err := daemon.LoadConfig(path)
	if err != nil {
		return err
	}
	return daemon.Run(cfg)
}
