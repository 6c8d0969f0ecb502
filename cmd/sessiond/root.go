package main

import (
	"fmt"
	"os"

	"github.com/MrEthical07/goSession/internal/server"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "sessiond",
	Short:         "sessiond serves the goSession login/session demo",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "path to a YAML config file ("+server.EnvPrefix+"* variables override it)")
}

func loadConfig(cmd *cobra.Command) (server.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := server.LoadConfig(path)
	if err != nil {
		return server.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return server.Config{}, err
	}
	return cfg, nil
}
