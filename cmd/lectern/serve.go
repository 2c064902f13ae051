package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/lectern/internal/config"
	"github.com/jackzampolin/lectern/internal/home"
	"github.com/jackzampolin/lectern/internal/server"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Lectern server",
	Long: `Start the Lectern HTTP server.

Books and conversation state live in memory for the lifetime of the
process. Configuration is hot-reloaded: editing config.yaml while the
server runs updates the provider registry without a restart.

Examples:
  lectern serve                  # Start on default port 8585
  lectern serve --port 3000      # Start on custom port
  lectern serve --host 0.0.0.0   # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Set up logger
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		// Get home directory
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		// Load config, preferring the home directory file when no
		// explicit --config was given.
		cfgPath := cfgFile
		if cfgPath == "" && h.ConfigExists() {
			cfgPath = h.ConfigPath()
		}
		cm, err := config.NewManager(cfgPath)
		if err != nil {
			return err
		}
		cm.WatchConfig()

		host := serveHost
		port := servePort
		if !cmd.Flags().Changed("host") && cm.Get().Server.Host != "" {
			host = cm.Get().Server.Host
		}
		if !cmd.Flags().Changed("port") && cm.Get().Server.Port != 0 {
			port = cm.Get().Server.Port
		}

		srv, err := server.New(server.Config{
			Host:          host,
			Port:          port,
			ConfigManager: cm,
			Home:          h,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind to")
	serveCmd.Flags().IntVar(&servePort, "port", 8585, "Port to listen on")

	rootCmd.AddCommand(serveCmd)
}
