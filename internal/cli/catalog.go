package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quartermaster-shop/quartermaster/internal/daemon"
	"github.com/quartermaster-shop/quartermaster/internal/domain"
)

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.Flags().StringP("config", "c", "", "Path to config.toml")
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Print the loaded shop catalog",
	Long:  `Print the shop items and welcome pack that the daemon would serve.`,
	RunE:  runCatalog,
}

func runCatalog(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = daemon.ConfigPath()
	}

	cfg, err := daemon.LoadConfig(path)
	if err != nil {
		return err
	}
	cat, err := daemon.LoadCatalog(cfg)
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, "Shop items:")
	for _, it := range cat.Items() {
		fmt.Fprintf(os.Stdout, "  %-14s %-24s %s\n", it.Key, it.Name, domain.FormatCoins(it.Price))
	}
	fmt.Fprintln(os.Stdout, "")
	fmt.Fprintln(os.Stdout, "Welcome pack:")
	for _, pi := range cat.WelcomePack() {
		fmt.Fprintf(os.Stdout, "  %s\n", pi.Name)
	}
	return nil
}
