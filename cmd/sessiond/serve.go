package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/MrEthical07/goSession/internal/logging"
	"github.com/MrEthical07/goSession/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Starts sessiond with the configured session store and serves until SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Addr = addr
		}

		logger := logging.NewWithWriter(os.Stderr, logging.ParseLevel(cfg.Log.Level), cfg.Log.JSON)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv, err := server.New(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := srv.Close(); err != nil {
				logger.Warn("closing session store", "err", err)
			}
		}()

		if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		logger.Info("sessiond stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "listen address, overrides the config file")
}
