// Package cli implements the quartermaster command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "quartermaster",
	Short: "Game-server item shop with a coin ledger and RCON delivery",
	Long: `Quartermaster runs the item shop for a game server: players hold a
coin balance, and purchases or grants spawn items in-game through a
persistent authenticated RCON session with automatic reconnection.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the quartermaster version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(os.Stdout, "quartermaster %s\n", version)
	},
}
