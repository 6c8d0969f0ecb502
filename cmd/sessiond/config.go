package main

import (
	"fmt"

	goSession "github.com/MrEthical07/goSession"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect sessiond configuration",
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration and print the effective values",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		engineCfg, err := cfg.EngineConfig()
		if err != nil {
			return err
		}
		lint := engineCfg.Lint()

		// Secrets are not echoed.
		if cfg.Store.Token.Secret != "" {
			cfg.Store.Token.Secret = "<redacted>"
		}
		if cfg.Store.Redis.Password != "" {
			cfg.Store.Redis.Password = "<redacted>"
		}
		if cfg.Store.Postgres.DSN != "" {
			cfg.Store.Postgres.DSN = "<redacted>"
		}
		for i := range cfg.Users {
			if cfg.Users[i].Password != "" {
				cfg.Users[i].Password = "<redacted>"
			}
		}

		out, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, "config ok")
		for _, warn := range lint {
			fmt.Fprintf(w, "%-4s %s: %s\n", warn.Severity, warn.Code, warn.Message)
		}
		if _, err := w.Write(out); err != nil {
			return err
		}
		if strict {
			return lint.AsError(goSession.LintWarn)
		}
		return nil
	},
}

var strict bool

func init() {
	configCheckCmd.Flags().BoolVar(&strict, "strict", false, "fail on lint warnings of WARN severity or above")
	configCmd.AddCommand(configCheckCmd)
	rootCmd.AddCommand(configCmd)
}
