package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/ctfcord/internal/cli"
	"github.com/example/ctfcord/internal/version"
	"github.com/example/ctfcord/internal/wire"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:     "ctfcord",
		Short:   "ctfcord - CTF team coordination bot for Discord",
		Version: version.String(),
		Long: `ctfcord registers CTFtime events as dedicated team channels, tracks
challenges and solves, and handles team membership through a reaction
on the registration announcement.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			wire.SetConfigPath(configPath)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "ctfcord.yaml", "path to the config file")

	rootCmd.AddCommand(cli.ServeCmd())
	rootCmd.AddCommand(cli.DetailsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
